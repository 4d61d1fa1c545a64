package native

import (
	"math"
	"testing"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, doc *ir.Document) ir.Result[[]byte] {
	t.Helper()
	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	result, err := writer.Emit(doc, ir.EmitOptions{})
	require.NoError(t, err)
	return result
}

func TestEmitLayout(t *testing.T) {
	doc := ir.NewDocument()
	doc.Metadata.Set("title", ir.String("Guide"))
	doc.Content = doc.Content.AppendChildren(
		ir.New(vocab.Heading).Prop(vocab.Level, 2).Child(ir.Text("Hi")),
		ir.New(vocab.HorizontalRule),
	)

	result := emit(t, doc)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, `metadata {
  title: "Guide"
}
content document [
  heading { level: 2 } [
    text "Hi"
  ]
  horizontal_rule
]
`, string(result.Value))
}

func TestEmitQuoting(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.Child(
		ir.New("odd kind").
			Prop("html:data-x", "1").
			Prop("two words", "a\"b\n").
			Prop("n", 3.0).
			Prop("list", []string{}).
			Prop("map", ir.Map(ir.Properties{})),
	)

	result := emit(t, doc)
	assert.Equal(t, `content document [
  @"odd kind" { html:data-x: "1", "two words": "a\"b\n", n: 3.0, list: [], map: {} }
]
`, string(result.Value))
}

func TestEmitNonFiniteFloats(t *testing.T) {
	doc := ir.NewDocument()
	doc.Content = doc.Content.Prop("nan", math.NaN()).Prop("inf", math.Inf(-1))

	result := emit(t, doc)
	require.Len(t, result.Warnings, 2)
	for _, w := range result.Warnings {
		assert.Equal(t, ir.WarningFeatureLost, w.Kind)
		assert.Equal(t, ir.SeverityMinor, w.Severity)
	}
	assert.Equal(t, "content document { nan: \"NaN\", inf: \"-Inf\" }\n", string(result.Value))

	parsed := parse(t, string(result.Value), ir.ParseOptions{})
	assert.Equal(t, "NaN", parsed.Value.Content.Props.StringOr("nan", ""))
}

func TestRoundTrip(t *testing.T) {
	doc := ir.NewDocument()
	doc.Metadata.Set("title", ir.String("Guide"))
	doc.Metadata.Set("authors", ir.List(ir.String("Ada"), ir.String("Grace")))
	doc.Source = &ir.SourceInfo{Format: "html", Metadata: ir.NewProperties("charset", "utf-8")}
	id := doc.Embed(ir.Resource{
		Name:     "dot.png",
		MIMEType: "image/png",
		Data:     []byte{0x89, 'P', 'N', 'G', 0, 1, 2},
		Metadata: ir.NewProperties("width", 1),
	})
	doc.Content = doc.Content.AppendChildren(
		ir.New(vocab.Heading).Prop(vocab.Level, 1).Prop(vocab.ID, "top").Child(ir.Text("Guide")),
		ir.New(vocab.Paragraph).AppendChildren(
			ir.Text("tab\there, quote \" and # hash"),
			ir.New(vocab.Image).Prop(vocab.Resource, string(id)).Prop(vocab.Alt, "dot"),
		),
		ir.New(vocab.CodeBlock).Prop(vocab.Language, "go").Prop(vocab.Content, "x := 1\n"),
		ir.New("docbook:gizmo").
			Prop("ratio", 0.25).
			Prop("big", 1e21).
			Prop("neg", -7).
			Prop("ok", false).
			Prop("nested", ir.Map(ir.NewProperties("a", ir.List(ir.Int(1), ir.Float(2.5)), "b", true))),
		ir.New(vocab.Table).Child(ir.New(vocab.TableRow).Child(
			ir.New(vocab.TableCell).Prop(vocab.Colspan, 2).Child(ir.Text("wide")))),
	)

	first := emit(t, doc)
	assert.Empty(t, first.Warnings)
	parsed := parse(t, string(first.Value), ir.ParseOptions{})
	assert.Empty(t, parsed.Warnings)

	got := parsed.Value
	assert.Equal(t, doc.Content, got.Content)
	assert.True(t, doc.Metadata.Equal(got.Metadata))
	require.NotNil(t, got.Source)
	assert.Equal(t, "html", got.Source.Format)
	assert.Equal(t, "utf-8", got.Source.Metadata.StringOr("charset", ""))

	res, ok := got.Resource(id)
	require.True(t, ok)
	original, _ := doc.Resource(id)
	assert.Equal(t, original.Digest(), res.Digest())
	assert.Equal(t, "dot.png", res.Name)
	assert.True(t, original.Metadata.Equal(res.Metadata))

	second := emit(t, got)
	assert.Equal(t, string(first.Value), string(second.Value))
}

func TestEmitNilDocument(t *testing.T) {
	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	_, err = writer.Emit(nil, ir.EmitOptions{})
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewWriter(Config{Indent: "--"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
