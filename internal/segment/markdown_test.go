package segment

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		contains []string
		excludes []string
	}{
		{
			name:     "emphasis and links",
			markdown: "This is **bold** and a [link](https://example.com).",
			contains: []string{"This is bold and a link."},
			excludes: []string{"https://example.com", "**"},
		},
		{
			name:     "code blocks dropped",
			markdown: "Before.\n\n```go\nfmt.Println(\"x\")\n```\n\nAfter.",
			contains: []string{"Before.", "After."},
			excludes: []string{"Println"},
		},
		{
			name:     "heading closed",
			markdown: "# Chapter One\n\nIt begins.",
			contains: []string{"Chapter One.", "It begins."},
		},
		{
			name:     "list items closed",
			markdown: "- first item\n- second item!\n",
			contains: []string{"first item.", "second item!"},
		},
		{
			name:     "html dropped",
			markdown: "<div>hidden</div>\n\nVisible text.",
			contains: []string{"Visible text."},
			excludes: []string{"hidden", "<div>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainText(tt.markdown)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("PlainText() = %q, want it to contain %q", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("PlainText() = %q, should not contain %q", got, bad)
				}
			}
		})
	}
}

func TestPlainTextSplitsHeadings(t *testing.T) {
	units := Split(PlainText("## Intro\n\nFirst line. Second line."))
	want := []string{"Intro.", "First line.", "Second line."}

	if len(units) != len(want) {
		t.Fatalf("got %d units %q, want %q", len(units), units, want)
	}
	for i := range want {
		if units[i] != want[i] {
			t.Errorf("unit %d = %q, want %q", i, units[i], want[i])
		}
	}
}
