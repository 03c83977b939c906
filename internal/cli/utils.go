// Package cli formats answers and status for the kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

const contextPreviewLen = 200

// WriteAnswer writes an answer to w in the given format. In text format the retrieved
// context is listed when showContext is set.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat, showContext bool) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if !showContext || answer.Context == nil {
		return nil
	}
	fmt.Fprintf(w, "\nContext: %d chunks", answer.Context.Len())
	if answer.QueryTime > 0 {
		fmt.Fprintf(w, " (answered in %dms)", answer.QueryTime)
	}
	fmt.Fprintln(w)
	for _, r := range answer.Context.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s] Rank: %d | Position: %d | Distance: %.4f\n", r.Source, r.Rank, r.Position, r.Distance)
		fmt.Fprintf(w, "%s\n", utils.Snippet(r.Text, contextPreviewLen))
	}
	return nil
}

// WriteStatus writes catalog status to w in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Index type:  %s\n", st.IndexType)
	fmt.Fprintf(w, "Dimensions:  %d\n", st.Dimensions)
	fmt.Fprintf(w, "Vectors:     %d\n", st.TotalVectors)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(st.DiskUsageBytes))
	}
	fmt.Fprintln(w, "Corpora:")
	for _, c := range st.Corpora {
		fmt.Fprintf(w, "  %-16s %8d vectors\n", c.Name, c.Vectors)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
