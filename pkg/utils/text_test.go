package utils

import "testing"

func TestSnippet(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"日本語のテキスト", 3, "日本語..."},
		{"Estimators\nimplement  fit\n\npredict", 0, "Estimators implement fit predict"},
		{"  line one\nline two  ", 12, "line one lin..."},
	}
	for _, tt := range tests {
		if got := Snippet(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Snippet(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
