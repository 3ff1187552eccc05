package render

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		contains []string
		absent   []string
	}{
		{
			name:     "list and emphasis",
			in:       "**Schritte:**\n\n1. Neustart\n2. Kabel prüfen",
			contains: []string{"<strong>Schritte:</strong>", "<ol>", "<li>Neustart</li>"},
		},
		{
			name:     "gfm table",
			in:       "| Port | Mbit |\n|---|---|\n| TDM | 2 |",
			contains: []string{"<table>", "<td>TDM</td>"},
		},
		{
			name:     "hard wraps",
			in:       "Zeile eins\nZeile zwei",
			contains: []string{"<br>"},
		},
		{
			name:   "raw html is dropped",
			in:     "<script>alert(1)</script>\n\ntext",
			absent: []string{"<script>"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := HTML(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(got, want) {
					t.Errorf("%q missing from %q", want, got)
				}
			}
			for _, bad := range tc.absent {
				if strings.Contains(got, bad) {
					t.Errorf("%q should not appear in %q", bad, got)
				}
			}
		})
	}
}

func TestHTMLBlank(t *testing.T) {
	got, err := HTML("  \n ")
	if err != nil || got != "" {
		t.Fatalf("HTML(blank) = %q, %v", got, err)
	}
}
