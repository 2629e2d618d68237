package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading gets an id",
			input:    "# Caching Strategies",
			contains: []string{`<h1 id="caching-strategies">`, "Caching Strategies"},
		},
		{
			name:     "emphasis",
			input:    "some **bold** text",
			contains: []string{"<strong>bold</strong>"},
		},
		{
			name:     "gfm table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "fenced code is highlighted",
			input:    "```go\nfunc main() {}\n```",
			contains: []string{"<pre", "main"},
		},
		{
			name:     "raw html is dropped",
			input:    "<script>alert(1)</script>\n\nhello",
			contains: []string{"hello"},
			excludes: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("output should not contain %q:\n%s", bad, got)
				}
			}
		})
	}
}
