package docbook

import (
	"testing"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, cfg Config, input string, opts ir.ParseOptions) ir.Result[*ir.Document] {
	t.Helper()
	reader, err := NewReader(cfg)
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

const article = `<?xml version="1.0"?>
<article>
  <articleinfo>
    <title>Guide</title>
    <author><firstname>Ada</firstname> <surname>Lovelace</surname></author>
    <date>2024-01-02</date>
    <keywordset><keyword>go</keyword><keyword>docs</keyword></keywordset>
  </articleinfo>
  <section id="intro">
    <title>Intro</title>
    <para>Hello <emphasis role="bold">bold</emphasis> and
      <emphasis>em</emphasis>.</para>
    <section>
      <title>Deeper</title>
      <para>x</para>
    </section>
  </section>
</article>
`

func TestParseArticle(t *testing.T) {
	result := parse(t, Config{}, article, ir.ParseOptions{})
	assert.Empty(t, result.Warnings)

	children := result.Value.Content.Children
	require.Equal(t, []ir.NodeKind{vocab.Heading, vocab.Paragraph, vocab.Heading, vocab.Paragraph}, kinds(children))

	level, _ := children[0].Props.GetInt(vocab.Level)
	assert.Equal(t, int64(1), level)
	assert.Equal(t, "intro", children[0].Props.StringOr(vocab.ID, ""))
	assert.Equal(t, "Intro", children[0].TextContent())

	para := children[1]
	assert.Equal(t, []ir.NodeKind{vocab.Text, vocab.Strong, vocab.Text, vocab.Emphasis, vocab.Text}, kinds(para.Children))
	assert.Equal(t, "Hello bold and em.", para.TextContent())

	level, _ = children[2].Props.GetInt(vocab.Level)
	assert.Equal(t, int64(2), level)
}

func TestParseMetadata(t *testing.T) {
	meta := parse(t, Config{}, article, ir.ParseOptions{}).Value.Metadata

	assert.Equal(t, "Guide", meta.StringOr(vocab.Title, ""))
	assert.Equal(t, "Ada Lovelace", meta.StringOr("author", ""))
	assert.Equal(t, "2024-01-02", meta.StringOr("date", ""))
	keywords, ok := meta.Get("keywords")
	require.True(t, ok)
	items, ok := keywords.AsList()
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestMismatchedTagsAreRepaired(t *testing.T) {
	result := parse(t, Config{ReportRepairs: true}, "<para>a <emphasis>b</para>", ir.ParseOptions{})

	children := result.Value.Content.Children
	require.Len(t, children, 1)
	para := children[0]
	assert.Equal(t, ir.NodeKind(vocab.Paragraph), para.Kind)
	assert.Equal(t, []ir.NodeKind{vocab.Text, vocab.Emphasis}, kinds(para.Children))
	assert.Equal(t, "b", para.Children[1].TextContent())

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningStructureRepaired, result.Warnings[0].Kind)
}

func TestUnclosedElementsKeepContent(t *testing.T) {
	result := parse(t, Config{}, "<article><section><title>T</title><para>tail", ir.ParseOptions{})
	assert.Equal(t, "Ttail", result.Value.Content.TextContent())
}

func TestVariableList(t *testing.T) {
	input := `<variablelist>
  <varlistentry>
    <term>API</term>
    <listitem><para>Interface</para></listitem>
  </varlistentry>
</variablelist>`
	result := parse(t, Config{}, input, ir.ParseOptions{})

	list := result.Value.Content.Children[0]
	assert.Equal(t, ir.NodeKind(vocab.DefinitionList), list.Kind)
	assert.Equal(t, []ir.NodeKind{vocab.DefinitionTerm, vocab.DefinitionDesc}, kinds(list.Children))
	assert.Equal(t, "API", list.Children[0].TextContent())
	assert.Equal(t, "Interface", list.Children[1].TextContent())
}

func TestListsAndCode(t *testing.T) {
	input := "<itemizedlist><listitem><para>one</para></listitem></itemizedlist>" +
		`<orderedlist startingnumber="3"><listitem><para>x</para></listitem></orderedlist>` +
		"<programlisting language=\"go\">x  :=  1\n</programlisting>"
	result := parse(t, Config{}, input, ir.ParseOptions{})

	children := result.Value.Content.Children
	require.Equal(t, []ir.NodeKind{vocab.List, vocab.List, vocab.CodeBlock}, kinds(children))
	ordered, _ := children[1].Props.GetBool(vocab.Ordered)
	assert.True(t, ordered)
	start, _ := children[1].Props.GetInt(vocab.Start)
	assert.Equal(t, int64(3), start)
	assert.Equal(t, "go", children[2].Props.StringOr(vocab.Language, ""))
	assert.Equal(t, "x  :=  1\n", children[2].Props.StringOr(vocab.Content, ""))
}

func TestCALSTable(t *testing.T) {
	input := `<informaltable><tgroup cols="2">
<thead><row><entry>a</entry><entry align="right">b</entry></row></thead>
<tbody><row><entry>1</entry><entry>2</entry></row></tbody>
</tgroup></informaltable>`
	result := parse(t, Config{}, input, ir.ParseOptions{})

	table := result.Value.Content.Children[0]
	require.Equal(t, []ir.NodeKind{vocab.TableHead, vocab.TableBody}, kinds(table.Children))
	header := table.Children[0].Children[0]
	assert.Equal(t, []ir.NodeKind{vocab.TableHeader, vocab.TableHeader}, kinds(header.Children))
	assert.Equal(t, "right", header.Children[1].Props.StringOr(vocab.Align, ""))
	body := table.Children[1].Children[0]
	assert.Equal(t, []ir.NodeKind{vocab.TableCell, vocab.TableCell}, kinds(body.Children))
}

func TestLinksAndFootnotes(t *testing.T) {
	input := `<para>See <ulink url="https://e.com">site</ulink><footnote><para>Note</para></footnote>.</para>`
	result := parse(t, Config{}, input, ir.ParseOptions{})

	children := result.Value.Content.Children
	require.Equal(t, []ir.NodeKind{vocab.Paragraph, vocab.FootnoteDef}, kinds(children))
	assert.Equal(t, []ir.NodeKind{vocab.Text, vocab.Link, vocab.FootnoteRef, vocab.Text}, kinds(children[0].Children))
	assert.Equal(t, "https://e.com", children[0].Children[1].Props.StringOr(vocab.URL, ""))
	assert.Equal(t, "1", children[0].Children[2].Props.StringOr(vocab.Label, ""))
	assert.Equal(t, "1", children[1].Props.StringOr(vocab.Label, ""))
	assert.Equal(t, "Note", children[1].TextContent())
}

func TestMediaObject(t *testing.T) {
	input := `<mediaobject><imageobject><imagedata fileref="a.png"/></imageobject>` +
		`<textobject><phrase>Alt text</phrase></textobject></mediaobject>`
	result := parse(t, Config{}, input, ir.ParseOptions{})

	p := result.Value.Content.Children[0]
	require.Len(t, p.Children, 1)
	img := p.Children[0]
	assert.Equal(t, ir.NodeKind(vocab.Image), img.Kind)
	assert.Equal(t, "a.png", img.Props.StringOr(vocab.URL, ""))
	assert.Equal(t, "Alt text", img.Props.StringOr(vocab.Alt, ""))
}

func TestUnknownElementWarnsOnce(t *testing.T) {
	result := parse(t, Config{}, "<para><gizmo>x</gizmo></para>", ir.ParseOptions{})

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningUnsupportedNode, result.Warnings[0].Kind)
	assert.Equal(t, "docbook:gizmo", result.Warnings[0].Subject)
	assert.Equal(t, "x", result.Value.Content.TextContent())
}

func TestSpans(t *testing.T) {
	result := parse(t, Config{}, "<para>hi</para>", ir.ParseOptions{PreserveSourceInfo: true})

	para := result.Value.Content.Children[0]
	require.NotNil(t, para.Span)
	assert.Equal(t, ir.Span{Start: 0, End: 15}, *para.Span)
	require.NotNil(t, para.Children[0].Span)
	assert.Equal(t, ir.Span{Start: 6, End: 8}, *para.Children[0].Span)
	assert.Equal(t, Format, result.Value.Source.Format)
}

func TestMalformedXML(t *testing.T) {
	reader, err := NewReader(Config{})
	require.NoError(t, err)
	_, err = reader.Parse([]byte("<para attr=>x</para>"), ir.ParseOptions{})
	require.Error(t, err)
	assert.True(t, ir.IsParseError(err))
}

func TestInvalidUTF8(t *testing.T) {
	reader, err := NewReader(Config{})
	require.NoError(t, err)
	_, err = reader.Parse([]byte("<para>\xff</para>"), ir.ParseOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
	assert.Contains(t, err.Error(), "byte 6")
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewReader(Config{Recovery: "panic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
