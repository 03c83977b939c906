package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuestion is returned when a question is blank after trimming.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects blank input.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Answer string `json:"answer"`
}
