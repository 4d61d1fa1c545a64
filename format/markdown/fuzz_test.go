package markdown

import (
	"testing"
	"unicode/utf8"

	"github.com/rgonek/rescribe/ir"
)

func FuzzRoundTripMarkdown(f *testing.F) {
	seeds := []string{
		"",
		"# heading {#id .cls}",
		"- [x] a\n  - b\n\n1. c",
		"| a | b |\n| :-- | --: |\n| 1 | 2 |",
		"---\ntitle: t\n---\nbody",
		"text[^1]\n\n[^1]: note",
		"<div>\n*x*\n</div>",
		"![img](data:image/png;base64,AAAA)",
		"```\n```` nested\n```",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	reader, err := NewReader(Config{})
	if err != nil {
		f.Fatalf("failed to create reader: %v", err)
	}
	writer, err := NewWriter(Config{})
	if err != nil {
		f.Fatalf("failed to create writer: %v", err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip()
		}
		result, err := reader.Parse([]byte(input), ir.ParseOptions{EmbedResources: true, PreserveSourceInfo: true})
		if err != nil {
			t.Fatalf("parse returned error: %v", err)
		}
		if _, err := writer.Emit(result.Value, ir.EmitOptions{EmbedResources: true}); err != nil {
			t.Fatalf("emit returned error: %v", err)
		}
	})
}
