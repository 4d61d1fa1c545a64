package markdown

import (
	"errors"
	"testing"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, cfg Config, doc *ir.Document, opts ir.EmitOptions) ir.Result[[]byte] {
	t.Helper()
	writer, err := NewWriter(cfg)
	require.NoError(t, err)
	result, err := writer.Emit(doc, opts)
	require.NoError(t, err)
	return result
}

func docWith(children ...ir.Node) *ir.Document {
	doc := ir.NewDocument()
	doc.Content = doc.Content.AppendChildren(children...)
	return doc
}

func para(children ...ir.Node) ir.Node {
	return ir.New(vocab.Paragraph).AppendChildren(children...)
}

func item(children ...ir.Node) ir.Node {
	return ir.New(vocab.ListItem).AppendChildren(children...)
}

func TestEmitInlineMarkup(t *testing.T) {
	doc := docWith(para(
		ir.Text("A "),
		ir.New(vocab.Strong).Child(ir.Text("B")),
		ir.Text(" "),
		ir.New(vocab.Emphasis).Child(ir.Text("C")),
		ir.Text(" "),
		ir.New(vocab.Code).Prop(vocab.Content, "x"),
		ir.Text(" "),
		ir.New(vocab.Link).Prop(vocab.URL, "https://e.com").Child(ir.Text("l")),
	))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "A **B** *C* `x` [l](https://e.com)\n", string(result.Value))
	assert.Empty(t, result.Warnings)
}

func TestEmitBlocks(t *testing.T) {
	doc := docWith(
		ir.New(vocab.Heading).Prop(vocab.Level, 2).Prop(vocab.ID, "t").Child(ir.Text("H")),
		ir.New(vocab.List).Prop(vocab.Tight, true).AppendChildren(
			item(para(ir.Text("a"))),
			item(para(ir.Text("b"))),
		),
		ir.New(vocab.List).Prop(vocab.Ordered, true).Prop(vocab.Start, 3).Child(item(para(ir.Text("c")))),
		ir.New(vocab.CodeBlock).Prop(vocab.Language, "go").Prop(vocab.Content, "x := 1\n"),
	)

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "## H {#t}\n\n- a\n- b\n\n3. c\n\n```go\nx := 1\n```\n", string(result.Value))
}

func TestEmitLists(t *testing.T) {
	tests := []struct {
		name string
		list ir.Node
		want string
	}{
		{
			name: "loose",
			list: ir.New(vocab.List).Prop(vocab.Tight, false).AppendChildren(
				item(para(ir.Text("a"))),
				item(para(ir.Text("b"))),
			),
			want: "- a\n\n- b\n",
		},
		{
			name: "nested",
			list: ir.New(vocab.List).Child(item(
				para(ir.Text("a")),
				ir.New(vocab.List).Child(item(para(ir.Text("b")))),
			)),
			want: "- a\n  - b\n",
		},
		{
			name: "task",
			list: ir.New(vocab.List).AppendChildren(
				item(para(ir.Text("done"))).Prop(vocab.Checked, true),
				item(para(ir.Text("todo"))).Prop(vocab.Checked, false),
			),
			want: "- [x] done\n- [ ] todo\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := emit(t, Config{}, docWith(tt.list), ir.EmitOptions{})
			assert.Equal(t, tt.want, string(result.Value))
		})
	}
}

func TestEmitBlockquote(t *testing.T) {
	doc := docWith(ir.New(vocab.Blockquote).AppendChildren(
		para(ir.Text("q")),
		para(ir.Text("r")),
	))
	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "> q\n>\n> r\n", string(result.Value))
}

func TestEmitEscapesMarkdownSyntax(t *testing.T) {
	doc := docWith(
		para(ir.Text("*not*")),
		para(ir.Text("# no")),
	)
	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "\\*not\\*\n\n\\# no\n", string(result.Value))
}

func TestEmitTable(t *testing.T) {
	doc := docWith(ir.New(vocab.Table).AppendChildren(
		ir.New(vocab.TableHead).Child(ir.New(vocab.TableRow).AppendChildren(
			ir.New(vocab.TableHeader).Child(ir.Text("a")),
			ir.New(vocab.TableHeader).Prop(vocab.Align, "right").Child(ir.Text("b")),
		)),
		ir.New(vocab.TableBody).Child(ir.New(vocab.TableRow).AppendChildren(
			ir.New(vocab.TableCell).Child(ir.Text("1")),
			ir.New(vocab.TableCell).Child(ir.Text("2")),
		)),
	))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "| a | b |\n| --- | ---: |\n| 1 | 2 |\n", string(result.Value))
	assert.Empty(t, result.Warnings)
}

func TestEmitTableSpansAreSimplified(t *testing.T) {
	doc := docWith(ir.New(vocab.Table).Child(ir.New(vocab.TableRow).Child(
		ir.New(vocab.TableCell).Prop(vocab.Colspan, 2).Child(ir.Text("wide")),
	)))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningSimplified, result.Warnings[0].Kind)
	assert.True(t, result.HighFidelity())
}

func TestEmitFrontMatter(t *testing.T) {
	doc := docWith(ir.New(vocab.Heading).Prop(vocab.Level, 1).Child(ir.Text("H")))
	doc.Metadata.Set(vocab.Title, ir.String("Hello"))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "---\ntitle: Hello\n---\n\n# H\n", string(result.Value))
}

func TestEmitStyles(t *testing.T) {
	doc := docWith(para(
		ir.New(vocab.Underline).Child(ir.Text("u")),
		ir.New(vocab.LineBreak),
		ir.Text("H"),
		ir.New(vocab.Subscript).Child(ir.Text("2")),
		ir.Text("O"),
	))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "<u>u</u>\\\nH<sub>2</sub>O\n", string(result.Value))

	result = emit(t, Config{
		UnderlineStyle: UnderlineBold,
		SubSupStyle:    SubSupLaTeX,
		HardBreakStyle: HardBreakHTML,
	}, doc, ir.EmitOptions{})
	assert.Equal(t, "**u**<br>\nH$_{2}$O\n", string(result.Value))
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningSimplified, result.Warnings[0].Kind)
}

func TestEmitUnknownNodes(t *testing.T) {
	widget := ir.New("custom:widget").Child(para(ir.Text("x")))

	t.Run("unwrap", func(t *testing.T) {
		result := emit(t, Config{}, docWith(widget), ir.EmitOptions{})
		assert.Equal(t, "x\n", string(result.Value))
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, ir.SeverityMinor, result.Warnings[0].Severity)
		assert.Equal(t, "custom:widget", result.Warnings[0].Subject)
	})

	t.Run("placeholder", func(t *testing.T) {
		result := emit(t, Config{UnknownNodes: UnknownPlaceholder}, docWith(widget), ir.EmitOptions{})
		assert.Equal(t, "[Unknown node: custom:widget]\n", string(result.Value))
	})

	t.Run("skip", func(t *testing.T) {
		result := emit(t, Config{UnknownNodes: UnknownSkip}, docWith(widget), ir.EmitOptions{})
		assert.Empty(t, result.Value)
		assert.Equal(t, 1, result.Count(ir.SeverityMajor))
	})

	t.Run("error", func(t *testing.T) {
		writer, err := NewWriter(Config{UnknownNodes: UnknownError})
		require.NoError(t, err)
		_, err = writer.Emit(docWith(widget), ir.EmitOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ir.ErrInvalidInput)
	})
}

func TestEmitResources(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	doc := ir.NewDocument()
	id := doc.Embed(ir.NewResource("image/png", payload))
	doc.Content = doc.Content.Child(para(
		ir.New(vocab.Image).Prop(vocab.Resource, string(id)).Prop(vocab.Alt, "dot"),
	))
	res, ok := doc.Resource(id)
	require.True(t, ok)

	t.Run("reference", func(t *testing.T) {
		result := emit(t, Config{}, doc, ir.EmitOptions{})
		assert.Equal(t, "![dot]("+ir.ResourceURL(id)+")\n", string(result.Value))
		assert.Empty(t, result.Warnings)
	})

	t.Run("embedded", func(t *testing.T) {
		result := emit(t, Config{}, doc, ir.EmitOptions{EmbedResources: true})
		assert.Equal(t, "![dot]("+ir.EncodeDataURI(res)+")\n", string(result.Value))
	})

	t.Run("hook", func(t *testing.T) {
		var seen ResourceInput
		cfg := Config{ResourceHook: func(in ResourceInput) (ResourceOutput, error) {
			seen = in
			return ResourceOutput{URL: "https://cdn.example.com/dot.png", Handled: true}, nil
		}}
		result := emit(t, cfg, doc, ir.EmitOptions{EmbedResources: true})
		assert.Equal(t, "![dot](https://cdn.example.com/dot.png)\n", string(result.Value))
		assert.Equal(t, id, seen.ID)
		assert.Equal(t, "dot", seen.Alt)
	})

	unresolved := func(ResourceInput) (ResourceOutput, error) {
		return ResourceOutput{}, ErrUnresolved
	}

	t.Run("unresolved best effort", func(t *testing.T) {
		result := emit(t, Config{ResourceHook: unresolved}, doc, ir.EmitOptions{})
		assert.Equal(t, "![dot]("+ir.ResourceURL(id)+")\n", string(result.Value))
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, ir.SeverityMinor, result.Warnings[0].Severity)
	})

	t.Run("unresolved strict", func(t *testing.T) {
		writer, err := NewWriter(Config{ResourceHook: unresolved, ResolutionMode: ResolutionStrict})
		require.NoError(t, err)
		_, err = writer.Emit(doc, ir.EmitOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnresolved)
	})

	t.Run("hook failure", func(t *testing.T) {
		failing := func(ResourceInput) (ResourceOutput, error) {
			return ResourceOutput{}, errors.New("boom")
		}
		writer, err := NewWriter(Config{ResourceHook: failing})
		require.NoError(t, err)
		_, err = writer.Emit(doc, ir.EmitOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestEmitMissingResourceIsMajor(t *testing.T) {
	doc := docWith(para(ir.New(vocab.Image).Prop(vocab.Resource, "missing").Prop(vocab.Alt, "x")))

	result := emit(t, Config{}, doc, ir.EmitOptions{})
	assert.Equal(t, "![x](resource:missing)\n", string(result.Value))
	assert.Equal(t, 1, result.Count(ir.SeverityMajor))
	assert.False(t, result.HighFidelity())
}

func TestEmitNilDocument(t *testing.T) {
	writer, err := NewWriter(Config{})
	require.NoError(t, err)
	_, err = writer.Emit(nil, ir.EmitOptions{})
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewWriter(Config{UnderlineStyle: "wavy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRoundTrip(t *testing.T) {
	input := "# Title\n\nSome *em* and **strong** text.\n\n- a\n- b\n\n```go\nx := 1\n```\n"
	parsed := parse(t, input, ir.ParseOptions{})

	result := emit(t, Config{}, parsed.Value, ir.EmitOptions{})
	assert.Equal(t, input, string(result.Value))
	assert.Empty(t, result.Warnings)
}
