package models

import "time"

// CorpusStatus describes one loaded corpus.
type CorpusStatus struct {
	Name       string `json:"name"`
	Vectors    int    `json:"vectors"`
	Dimensions int    `json:"dimensions"`
	IndexType  string `json:"index_type"`
}

// Status is the body of GET /api/v1/status and the output of the status command.
type Status struct {
	Corpora        []CorpusStatus `json:"corpora"`
	TotalVectors   int            `json:"total_vectors"`
	Dimensions     int            `json:"dimensions"`
	IndexType      string         `json:"index_type"`
	LoadedAt       time.Time      `json:"loaded_at"`
	DiskUsageBytes int64          `json:"disk_usage_bytes,omitempty"`
}
