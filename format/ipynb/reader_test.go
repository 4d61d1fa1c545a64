package ipynb

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {
  "kernelspec": {"name": "python3", "display_name": "Python 3", "language": "python"},
  "language_info": {"name": "python", "version": "3.12"}
 },
 "cells": [
  {"cell_type": "markdown", "id": "a1", "metadata": {}, "source": ["# Title\n", "\n", "Some *text*."]},
  {"cell_type": "code", "id": "b2", "metadata": {}, "execution_count": 3, "source": "print(1)",
   "outputs": [
    {"output_type": "stream", "name": "stdout", "text": ["1\n"]},
    {"output_type": "execute_result", "execution_count": 3, "metadata": {}, "data": {"text/plain": ["42"]}},
    {"output_type": "display_data", "metadata": {}, "data": {"image/png": "iVBORw0KGgo=\n", "text/plain": "<Figure>"}},
    {"output_type": "error", "ename": "ValueError", "evalue": "bad", "traceback": ["\u001b[31mTraceback\u001b[0m", "line 1"]}
   ]},
  {"cell_type": "raw", "metadata": {"raw_mimetype": "text/html"}, "source": "<b>raw</b>"}
 ]
}`

func parse(t *testing.T, input string, opts ir.ParseOptions) ir.Result[*ir.Document] {
	t.Helper()
	reader, err := NewReader(Config{})
	require.NoError(t, err)
	result, err := reader.Parse([]byte(input), opts)
	require.NoError(t, err)
	require.NotNil(t, result.Value)
	return result
}

func kinds(nodes []ir.Node) []ir.NodeKind {
	out := make([]ir.NodeKind, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Kind)
	}
	return out
}

func TestParseNotebook(t *testing.T) {
	result := parse(t, sample, ir.ParseOptions{EmbedResources: true})
	assert.Empty(t, result.Warnings)

	children := result.Value.Content.Children
	require.Equal(t, []ir.NodeKind{
		vocab.Heading, vocab.Paragraph,
		vocab.CodeBlock, vocab.CodeBlock, vocab.CodeBlock, vocab.Paragraph, vocab.CodeBlock,
		vocab.RawBlock,
	}, kinds(children))

	code := children[2]
	assert.Equal(t, "print(1)", code.Props.StringOr(vocab.Content, ""))
	assert.Equal(t, "python", code.Props.StringOr(vocab.Language, ""))
	count, ok := code.Props.GetInt(PropExecutionCount)
	require.True(t, ok)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, "b2", code.Props.StringOr(PropCellID, ""))

	stream := children[3]
	assert.Equal(t, "stream", stream.Props.StringOr(PropOutputType, ""))
	assert.Equal(t, "stdout", stream.Props.StringOr(PropStreamName, ""))
	assert.Equal(t, "1\n", stream.Props.StringOr(vocab.Content, ""))

	assert.Equal(t, "42", children[4].Props.StringOr(vocab.Content, ""))
	assert.Equal(t, "execute_result", children[4].Props.StringOr(PropOutputType, ""))

	img := children[5].Children[0]
	_, res, ok := result.Value.ResolveResource(img)
	require.True(t, ok)
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), res.Data)

	assert.Equal(t, "ValueError: bad\nTraceback\nline 1", children[6].Props.StringOr(vocab.Content, ""))

	raw := children[7]
	assert.Equal(t, "html", raw.Props.StringOr(vocab.Format, ""))
	assert.Equal(t, "<b>raw</b>", raw.Props.StringOr(vocab.Content, ""))
}

func TestParseMetadata(t *testing.T) {
	meta := parse(t, sample, ir.ParseOptions{}).Value.Metadata

	nbformat, _ := meta.GetInt("nbformat")
	assert.Equal(t, int64(4), nbformat)
	assert.Equal(t, "python3", meta.StringOr("kernel_name", ""))
	assert.Equal(t, "Python 3", meta.StringOr("kernel_display_name", ""))
	assert.Equal(t, "python", meta.StringOr("language", ""))
	assert.Equal(t, "3.12", meta.StringOr("language_version", ""))
}

func TestWarningsAccumulateInCellOrder(t *testing.T) {
	input := `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": "press <kbd>q</kbd>"},
  {"cell_type": "widget", "metadata": {}, "source": ""}
]}`
	result := parse(t, input, ir.ParseOptions{})

	require.Len(t, result.Warnings, 3, "two from the markdown cell, one for the unknown cell")
	assert.Equal(t, ir.WarningFeatureLost, result.Warnings[0].Kind)
	assert.Equal(t, ir.WarningFeatureLost, result.Warnings[1].Kind)
	assert.Equal(t, "ipynb:widget", result.Warnings[2].Subject)
	for _, w := range result.Warnings {
		assert.Equal(t, ir.SeverityMinor, w.Severity)
	}
}

func TestInvalidImageDataKeepsReference(t *testing.T) {
	input := `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [
  {"cell_type": "code", "metadata": {}, "execution_count": null, "source": "plot()", "outputs": [
    {"output_type": "display_data", "metadata": {}, "data": {"image/png": "not base64!!"}}
  ]}
]}`
	result := parse(t, input, ir.ParseOptions{EmbedResources: true})

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.SeverityMajor, result.Warnings[0].Severity)
	assert.Equal(t, ir.WarningResourceFailed, result.Warnings[0].Kind)

	children := result.Value.Content.Children
	require.Len(t, children, 2)
	_, hasCount := children[0].Props.GetInt(PropExecutionCount)
	assert.False(t, hasCount)
	img := children[1].Children[0]
	assert.True(t, strings.HasPrefix(img.Props.StringOr(vocab.URL, ""), "data:image/png;base64,"))
	assert.Equal(t, 0, result.Value.Resources.Len())
}

func TestImagesStayInlineWithoutEmbedding(t *testing.T) {
	result := parse(t, sample, ir.ParseOptions{})

	img := result.Value.Content.Children[5].Children[0]
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", img.Props.StringOr(vocab.URL, ""))
	assert.Equal(t, 0, result.Value.Resources.Len())
}

func TestSkipOutputs(t *testing.T) {
	reader, err := NewReader(Config{SkipOutputs: true})
	require.NoError(t, err)
	result, err := reader.Parse([]byte(sample), ir.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []ir.NodeKind{vocab.Heading, vocab.Paragraph, vocab.CodeBlock, vocab.RawBlock},
		kinds(result.Value.Content.Children))
}

func TestParseErrors(t *testing.T) {
	reader, err := NewReader(Config{})
	require.NoError(t, err)

	_, err = reader.Parse([]byte(`{"cells": [`), ir.ParseOptions{})
	require.Error(t, err)
	assert.True(t, ir.IsParseError(err))

	_, err = reader.Parse([]byte(`{"nbformat": 3, "worksheets": []}`), ir.ParseOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "red plain", stripANSI("\x1b[1;31mred\x1b[0m plain"))
	assert.Equal(t, "none", stripANSI("none"))
}

func TestRawCellFormat(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     string
	}{
		{name: "format key", metadata: `{"format": "latex"}`, want: "latex"},
		{name: "mimetype", metadata: `{"raw_mimetype": "text/restructuredtext"}`, want: "rst"},
		{name: "empty", metadata: ``, want: "text"},
		{name: "not an object", metadata: `["x"]`, want: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rawFormat(json.RawMessage(tt.metadata)))
		})
	}
}
