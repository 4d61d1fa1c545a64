package docbook

import (
	"testing"

	"github.com/rgonek/rescribe/ir"
)

func FuzzParseDocBook(f *testing.F) {
	seeds := []string{
		"",
		"<article><title>t</title><para>p</para></article>",
		"<para>a <emphasis>b</para>",
		"<section><title>x",
		"<variablelist><varlistentry><term>t</term></varlistentry></variablelist>",
		"<informaltable><tgroup><tbody><row><entry>1</entry></row></tbody></tgroup></informaltable>",
		"<para><footnote><para>n</para></footnote></para>",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	reader, err := NewReader(Config{ReportRepairs: true})
	if err != nil {
		f.Fatalf("failed to create reader: %v", err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		result, err := reader.Parse([]byte(input), ir.ParseOptions{PreserveSourceInfo: true})
		if err != nil {
			if !ir.IsParseError(err) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}
		if result.Value == nil {
			t.Fatal("nil document without error")
		}
	})
}
