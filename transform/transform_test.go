package transform

import (
	"testing"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heading(level int, text string) ir.Node {
	return ir.New(vocab.Heading).Prop(vocab.Level, level).Child(ir.Text(text))
}

func docOf(children ...ir.Node) *ir.Document {
	doc := ir.NewDocument()
	doc.Content = doc.Content.AppendChildren(children...)
	return doc
}

func levels(doc *ir.Document) []int64 {
	var out []int64
	ir.Walk(&doc.Content, func(n *ir.Node) bool {
		if n.Is(vocab.Heading) {
			level, _ := n.Props.GetInt(vocab.Level)
			out = append(out, level)
		}
		return true
	})
	return out
}

func TestShiftHeadings(t *testing.T) {
	doc := docOf(heading(1, "a"), ir.New(vocab.Blockquote).Child(heading(2, "b")), heading(6, "c"))

	result, err := ShiftHeadings{Delta: 1}.Transform(doc)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 6}, levels(result.Value))
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningSimplified, result.Warnings[0].Kind)
	assert.Equal(t, ir.SeverityMinor, result.Warnings[0].Severity)

	assert.Equal(t, []int64{1, 2, 6}, levels(doc), "input must not change")
}

func TestShiftHeadingsBounds(t *testing.T) {
	doc := docOf(heading(1, "a"), heading(4, "b"))

	result, err := ShiftHeadings{Delta: -2, Min: 2, Max: 3}.Transform(doc)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, levels(result.Value))
	assert.Len(t, result.Warnings, 1)

	_, err = ShiftHeadings{Min: 4, Max: 2}.Transform(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shift_headings")
}

func TestStripEmpty(t *testing.T) {
	doc := docOf(
		ir.New(vocab.Paragraph).Child(ir.Text("  \n")),
		ir.New(vocab.Paragraph).AppendChildren(ir.Text("keep"), ir.Text(" ")),
		ir.New(vocab.Div),
		ir.New(vocab.HorizontalRule),
	)

	result, err := StripEmpty{}.Transform(doc)
	require.NoError(t, err)
	assert.True(t, result.HighFidelity())

	children := result.Value.Content.Children
	require.Len(t, children, 2)
	assert.Equal(t, "keep", children[0].TextContent())
	assert.Len(t, children[0].Children, 1)
	assert.True(t, children[1].Is(vocab.HorizontalRule))
	assert.Len(t, doc.Content.Children, 4)
}

func TestMergeText(t *testing.T) {
	doc := docOf(ir.New(vocab.Paragraph).AppendChildren(
		ir.Text("a").At(ir.Span{Start: 0, End: 1}),
		ir.Text("b").At(ir.Span{Start: 1, End: 2}),
		ir.New(vocab.Strong).Child(ir.Text("c")),
		ir.Text("d"),
		ir.Text("e").Prop(vocab.ID, "x"),
	))

	result, err := MergeText{}.Transform(doc)
	require.NoError(t, err)
	para := result.Value.Content.Children[0]
	require.Len(t, para.Children, 4)
	assert.Equal(t, "ab", para.Children[0].Props.StringOr(vocab.Content, ""))
	assert.Equal(t, ir.Span{Start: 0, End: 2}, *para.Children[0].Span)
	assert.True(t, para.Children[1].Is(vocab.Strong))
	assert.Equal(t, "d", para.Children[2].Props.StringOr(vocab.Content, ""))
}

func TestUnwrapSingleChild(t *testing.T) {
	doc := docOf(
		ir.New(vocab.Div).Child(ir.New(vocab.Div).Child(ir.New(vocab.Paragraph).Child(ir.Text("x")))),
		ir.New(vocab.Div).Prop(vocab.Classes, "note").Child(ir.New(vocab.Paragraph)),
	)

	result, err := UnwrapSingleChild{}.Transform(doc)
	require.NoError(t, err)
	children := result.Value.Content.Children
	require.Len(t, children, 2)
	assert.True(t, children[0].Is(vocab.Paragraph))
	assert.True(t, children[1].Is(vocab.Div))
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Transform(*ir.Document) (ir.Result[*ir.Document], error) {
	return ir.Result[*ir.Document]{}, assert.AnError
}

func TestChain(t *testing.T) {
	doc := docOf(heading(6, "deep"), ir.New(vocab.Paragraph))

	chain := Chain{StripEmpty{}, ShiftHeadings{Delta: 1}, ShiftHeadings{Delta: 1}}
	assert.Equal(t, "chain(strip_empty,shift_headings,shift_headings)", chain.Name())

	result, err := chain.Transform(doc)
	require.NoError(t, err)
	assert.Len(t, result.Value.Content.Children, 1)
	assert.Len(t, result.Warnings, 2)

	_, err = Chain{StripEmpty{}, failing{}}.Transform(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failing")
}

func TestNilDocument(t *testing.T) {
	for _, tr := range []ir.Transformer{ShiftHeadings{}, StripEmpty{}, MergeText{}, UnwrapSingleChild{}, Chain{}} {
		_, err := tr.Transform(nil)
		assert.ErrorIs(t, err, ir.ErrInvalidInput, tr.Name())
	}
}
