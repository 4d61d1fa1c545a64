package ipynb

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, doc *ir.Document) (notebook, ir.Result[[]byte]) {
	t.Helper()
	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	result, err := writer.Emit(doc, ir.EmitOptions{})
	require.NoError(t, err)

	var nb notebook
	require.NoError(t, json.Unmarshal(result.Value, &nb))
	return nb, result
}

func cellTypes(nb notebook) []string {
	types := make([]string, 0, len(nb.Cells))
	for _, c := range nb.Cells {
		types = append(types, c.CellType)
	}
	return types
}

func TestRoundTripNotebook(t *testing.T) {
	parsed := parse(t, sample, ir.ParseOptions{EmbedResources: true})
	nb, result := emit(t, parsed.Value)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 4, nb.NBFormat)
	assert.Equal(t, 5, nb.NBFormatMinor)
	require.NotNil(t, nb.Metadata.KernelSpec)
	assert.Equal(t, "python3", nb.Metadata.KernelSpec.Name)
	assert.Equal(t, "3.12", nb.Metadata.LanguageInfo.Version)

	require.Equal(t, []string{"markdown", "code", "raw"}, cellTypes(nb))
	assert.Equal(t, "# Title\n\nSome *text*.", string(nb.Cells[0].Source))

	code := nb.Cells[1]
	assert.Equal(t, "b2", code.ID)
	assert.Equal(t, "print(1)", string(code.Source))
	count, ok := code.executionCount()
	require.True(t, ok)
	assert.Equal(t, 3, count)

	outputs := code.outputs()
	require.Len(t, outputs, 4)
	assert.Equal(t, "stream", outputs[0].OutputType)
	assert.Equal(t, "1\n", string(*outputs[0].Text))
	assert.Equal(t, "execute_result", outputs[1].OutputType)
	plain, ok := outputs[1].dataText("text/plain")
	require.True(t, ok)
	assert.Equal(t, "42", plain)
	png, ok := outputs[2].dataText("image/png")
	require.True(t, ok)
	assert.Equal(t, "iVBORw0KGgo=", png)
	assert.Equal(t, "ValueError", outputs[3].EName)
	assert.Equal(t, "bad", outputs[3].EValue)
	assert.Equal(t, []string{"Traceback", "line 1"}, outputs[3].Traceback)

	assert.JSONEq(t, `{"raw_mimetype": "text/html"}`, string(nb.Cells[2].Metadata))
}

func TestEmitGroupsMarkdownCells(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.AppendChildren(
		ir.New(vocab.Heading).Prop(vocab.Level, 1).Child(ir.Text("Intro")),
		ir.New(vocab.Paragraph).Child(ir.Text("text")),
		ir.New(vocab.CodeBlock).Prop(vocab.Content, "x = 1\n"),
		ir.New(vocab.Paragraph).Child(ir.Text("after")),
	)

	nb, result := emit(t, doc)
	assert.Empty(t, result.Warnings)
	require.Equal(t, []string{"markdown", "code", "markdown"}, cellTypes(nb))
	assert.Equal(t, "# Intro\n\ntext", string(nb.Cells[0].Source))
	assert.Equal(t, "x = 1", string(nb.Cells[1].Source))
	_, ok := nb.Cells[1].executionCount()
	assert.False(t, ok)
	assert.NotNil(t, nb.Cells[1].Outputs)
	for _, c := range nb.Cells {
		assert.Len(t, c.ID, 8)
	}
}

func TestEmitSourceLines(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.Child(ir.New(vocab.CodeBlock).Prop(vocab.Content, "a\nb\n"))

	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	result, err := writer.Emit(doc, ir.EmitOptions{})
	require.NoError(t, err)

	var raw struct {
		Cells []struct {
			Source []string `json:"source"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(result.Value, &raw))
	require.Len(t, raw.Cells, 1)
	assert.Equal(t, []string{"a\n", "b"}, raw.Cells[0].Source)
}

func TestEmitOrphanOutputIsMarkdown(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.Child(
		ir.New(vocab.CodeBlock).Prop(PropOutputType, "stream").Prop(vocab.Content, "out"),
	)

	nb, result := emit(t, doc)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningFeatureLost, result.Warnings[0].Kind)
	require.Equal(t, []string{"markdown"}, cellTypes(nb))
}

func TestEmitAbsorbsMarkdownWarnings(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.AppendChildren(
		ir.New(vocab.Paragraph).Child(ir.New(vocab.SmallCaps).Child(ir.Text("caps"))),
		ir.New(vocab.CodeBlock).Prop(vocab.Language, "go").Prop(vocab.Content, "x := 1"),
	)

	_, result := emit(t, doc)
	require.Len(t, result.Warnings, 2, "one from the markdown cell, one for the language mismatch")
	assert.Equal(t, ir.WarningSimplified, result.Warnings[0].Kind)
	assert.Equal(t, vocab.Language, result.Warnings[1].Subject)
}

func TestEmitNilDocument(t *testing.T) {
	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	_, err = writer.Emit(nil, ir.EmitOptions{})
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}
