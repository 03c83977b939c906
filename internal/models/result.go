package models

import "strings"

// ContextSeparator joins retrieved texts in a combined context.
const ContextSeparator = "\n\n"

// QueryResult is one retrieved chunk from a single corpus.
// Rank is 0-based within its source, ascending by distance.
type QueryResult struct {
	Source   string  `json:"source"`
	Position int     `json:"position"`
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
	Rank     int     `json:"rank"`
}

// CombinedContext is the corpus-major concatenation of results from every source.
// Results are not re-ranked across sources.
type CombinedContext struct {
	Results []*QueryResult `json:"results"`
}

// Texts returns the result texts in context order.
func (c *CombinedContext) Texts() []string {
	texts := make([]string, len(c.Results))
	for i, r := range c.Results {
		texts[i] = r.Text
	}
	return texts
}

// String renders the context passed to the generator.
func (c *CombinedContext) String() string {
	return strings.Join(c.Texts(), ContextSeparator)
}

// Len returns the number of results.
func (c *CombinedContext) Len() int {
	return len(c.Results)
}

// Answer is a generated answer together with the context it was grounded on.
type Answer struct {
	RequestID string           `json:"request_id"`
	Question  string           `json:"question"`
	Text      string           `json:"answer"`
	Context   *CombinedContext `json:"context,omitempty"`
	QueryTime int64            `json:"query_time_ms"`
}
