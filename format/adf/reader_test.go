package adf

import (
	"testing"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "version": 1,
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Release notes"}]},
    {"type": "paragraph", "marks": [{"type": "alignment", "attrs": {"align": "center"}}], "content": [
      {"type": "text", "text": "bold ", "marks": [{"type": "strong"}]},
      {"type": "text", "text": "both", "marks": [{"type": "strong"}, {"type": "em"}]},
      {"type": "text", "text": " and "},
      {"type": "text", "text": "docs", "marks": [{"type": "link", "attrs": {"href": "https://example.com", "title": "Docs"}}]},
      {"type": "hardBreak"},
      {"type": "mention", "attrs": {"id": "u-1", "text": "@Alice"}},
      {"type": "emoji", "attrs": {"shortName": ":tada:", "text": "🎉"}},
      {"type": "status", "attrs": {"text": "DONE", "color": "green"}},
      {"type": "date", "attrs": {"timestamp": "1700000000000"}}
    ]},
    {"type": "orderedList", "attrs": {"order": 3}, "content": [
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "third"}]}]}
    ]},
    {"type": "taskList", "attrs": {"localId": "list-1"}, "content": [
      {"type": "taskItem", "attrs": {"localId": "t-1", "state": "DONE"}, "content": [{"type": "text", "text": "ship"}]},
      {"type": "taskList", "attrs": {"localId": "list-2"}, "content": [
        {"type": "taskItem", "attrs": {"localId": "t-2", "state": "TODO"}, "content": [{"type": "text", "text": "announce"}]}
      ]}
    ]},
    {"type": "panel", "attrs": {"panelType": "warning"}, "content": [
      {"type": "paragraph", "content": [{"type": "text", "text": "careful"}]}
    ]},
    {"type": "expand", "attrs": {"title": "Details"}, "content": [
      {"type": "codeBlock", "attrs": {"language": "go"}, "content": [{"type": "text", "text": "x := 1"}]}
    ]},
    {"type": "table", "content": [
      {"type": "tableRow", "content": [
        {"type": "tableHeader", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Name"}]}]},
        {"type": "tableHeader", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "Value"}]}]}
      ]},
      {"type": "tableRow", "content": [
        {"type": "tableCell", "attrs": {"colspan": 2, "background": "#eeeeee"}, "content": [{"type": "paragraph", "content": [{"type": "text", "text": "wide", "marks": [{"type": "code"}]}]}]}
      ]}
    ]},
    {"type": "mediaSingle", "attrs": {"layout": "center"}, "content": [
      {"type": "media", "attrs": {"type": "external", "url": "https://example.com/a.png", "alt": "diagram"}},
      {"type": "caption", "content": [{"type": "text", "text": "Figure 1"}]}
    ]},
    {"type": "extension", "attrs": {"extensionKey": "toc", "extensionType": "com.atlassian.confluence.macro.core"}},
    {"type": "rule"}
  ]
}`

func parse(t *testing.T, cfg Config, input string, opts ir.ParseOptions) ir.Result[*ir.Document] {
	t.Helper()
	r, err := NewReader(cfg)
	require.NoError(t, err)
	result, err := r.Parse([]byte(input), opts)
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

func TestParseSample(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	assert.True(t, result.HighFidelity(), "%v", result.Warnings)

	blocks := result.Value.Content.Children
	assert.Equal(t, []ir.NodeKind{
		vocab.Heading, vocab.Paragraph, vocab.List, vocab.List, vocab.Div, vocab.Div,
		vocab.Table, vocab.Figure, vocab.RawBlock, vocab.HorizontalRule,
	}, kinds(blocks))

	level, _ := blocks[0].Props.GetInt(vocab.Level)
	assert.Equal(t, int64(2), level)
	assert.Equal(t, "center", blocks[1].Props.StringOr(vocab.StyleAlign, ""))

	start, _ := blocks[2].Props.GetInt(vocab.Start)
	assert.Equal(t, int64(3), start)

	assert.Equal(t, "warning", blocks[4].Props.StringOr(PropPanelType, ""))
	assert.Equal(t, "Details", blocks[5].Props.StringOr(vocab.Title, ""))
	assert.Equal(t, "x := 1", blocks[5].Children[0].Props.StringOr(vocab.Content, ""))

	raw := blocks[8]
	assert.Equal(t, Format, raw.Props.StringOr(vocab.Format, ""))
	assert.Contains(t, raw.Props.StringOr(vocab.Content, ""), `"extensionKey":"toc"`)
}

func TestParseMergesAdjacentMarks(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	p := result.Value.Content.Children[1]

	strong := p.Children[0]
	require.True(t, strong.Is(vocab.Strong))
	require.Len(t, strong.Children, 2)
	assert.Equal(t, "bold ", strong.Children[0].Props.StringOr(vocab.Content, ""))
	assert.True(t, strong.Children[1].Is(vocab.Emphasis))
	assert.Equal(t, "both", strong.Children[1].TextContent())

	link := p.Children[2]
	require.True(t, link.Is(vocab.Link))
	assert.Equal(t, "https://example.com", link.Props.StringOr(vocab.URL, ""))
	assert.Equal(t, "Docs", link.Props.StringOr(vocab.Title, ""))
}

func TestParseInlineNodes(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	p := result.Value.Content.Children[1]
	require.Len(t, p.Children, 8)

	assert.True(t, p.Children[3].Is(vocab.LineBreak))

	mention := p.Children[4]
	assert.Equal(t, "u-1", mention.Props.StringOr(PropMention, ""))
	assert.Equal(t, "@Alice", mention.TextContent())

	emoji := p.Children[5]
	assert.Equal(t, ":tada:", emoji.Props.StringOr(PropEmoji, ""))
	assert.Equal(t, "🎉", emoji.TextContent())

	status := p.Children[6]
	assert.Equal(t, "green", status.Props.StringOr(PropStatus, ""))
	assert.Equal(t, "DONE", status.TextContent())

	date := p.Children[7]
	assert.Equal(t, "1700000000000", date.Props.StringOr(PropDate, ""))
	assert.Equal(t, "2023-11-14", date.TextContent())
}

func TestParseDateFormat(t *testing.T) {
	input := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"date","attrs":{"timestamp":"1700000000"}},
		{"type":"date","attrs":{"timestamp":"soon"}}
	]}]}`
	result := parse(t, Config{DateFormat: "02 Jan 2006"}, input, ir.ParseOptions{})
	p := result.Value.Content.Children[0]
	assert.Equal(t, "14 Nov 2023", p.Children[0].TextContent())
	assert.Equal(t, "soon", p.Children[1].TextContent())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningUnsupportedProperty, result.Warnings[0].Kind)
}

func TestParseTaskList(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	list := result.Value.Content.Children[3]
	assert.Equal(t, listTask, list.Props.StringOr(PropListType, ""))
	require.Len(t, list.Children, 1, "nested task list moves into the preceding item")

	item := list.Children[0]
	checked, _ := item.Props.GetBool(vocab.Checked)
	assert.True(t, checked)
	assert.Equal(t, "t-1", item.Props.StringOr(PropLocalID, ""))
	require.Len(t, item.Children, 2)
	assert.Equal(t, "ship", item.Children[0].TextContent())

	nested := item.Children[1]
	require.True(t, nested.Is(vocab.List))
	nestedChecked, ok := nested.Children[0].Props.GetBool(vocab.Checked)
	assert.True(t, ok)
	assert.False(t, nestedChecked)
}

func TestParseTable(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	table := result.Value.Content.Children[6]
	require.Len(t, table.Children, 2)
	assert.Equal(t, []ir.NodeKind{vocab.TableHeader, vocab.TableHeader}, kinds(table.Children[0].Children))

	cell := table.Children[1].Children[0]
	assert.True(t, cell.Is(vocab.TableCell))
	colspan, _ := cell.Props.GetInt(vocab.Colspan)
	assert.Equal(t, int64(2), colspan)
	assert.Equal(t, "#eeeeee", cell.Props.StringOr(vocab.StyleBgColor, ""))

	code := cell.Children[0].Children[0]
	assert.True(t, code.Is(vocab.Code))
	assert.Equal(t, "wide", code.Props.StringOr(vocab.Content, ""))
}

func TestParseMedia(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{})
	figure := result.Value.Content.Children[7]
	require.Len(t, figure.Children, 2)
	image := figure.Children[0]
	assert.Equal(t, "https://example.com/a.png", image.Props.StringOr(vocab.URL, ""))
	assert.Equal(t, "diagram", image.Props.StringOr(vocab.Alt, ""))
	assert.Equal(t, "Figure 1", figure.Children[1].TextContent())

	file := `{"type":"doc","content":[{"type":"mediaSingle","content":[
		{"type":"media","attrs":{"type":"file","id":"abc","collection":"c1"}}
	]}]}`
	unresolved := parse(t, Config{}, file, ir.ParseOptions{})
	require.Len(t, unresolved.Warnings, 1)
	assert.Equal(t, ir.WarningResourceFailed, unresolved.Warnings[0].Kind)
	img := unresolved.Value.Content.Children[0].Children[0]
	assert.Equal(t, "abc", img.Props.StringOr(PropMediaID, ""))
	assert.Equal(t, "c1", img.Props.StringOr(PropCollection, ""))
	assert.False(t, img.Props.Has(vocab.URL))

	resolved := parse(t, Config{MediaBaseURL: "https://media.example.com/"}, file, ir.ParseOptions{})
	assert.Empty(t, resolved.Warnings)
	img = resolved.Value.Content.Children[0].Children[0]
	assert.Equal(t, "https://media.example.com/abc", img.Props.StringOr(vocab.URL, ""))
}

func TestParseEmbedsDataURIs(t *testing.T) {
	input := `{"type":"doc","content":[{"type":"mediaSingle","content":[
		{"type":"media","attrs":{"type":"external","url":"data:text/plain;base64,aGk="}}
	]}]}`
	result := parse(t, Config{}, input, ir.ParseOptions{EmbedResources: true})
	image := result.Value.Content.Children[0].Children[0]
	id, res, ok := result.Value.ResolveResource(image)
	require.True(t, ok, "image refers to %q", id)
	assert.Equal(t, "hi", string(res.Data))
	assert.Equal(t, "text/plain", res.MIMEType)
}

func TestParseExtensionModes(t *testing.T) {
	input := `{"type":"doc","content":[
		{"type":"bodiedExtension","attrs":{"extensionKey":"note"},"content":[
			{"type":"paragraph","content":[{"type":"text","text":"body"}]}
		]},
		{"type":"paragraph","content":[
			{"type":"inlineExtension","attrs":{"extensionKey":"jira","text":"PROJ-1"}}
		]}
	]}`

	raw := parse(t, Config{}, input, ir.ParseOptions{})
	assert.Equal(t, []ir.NodeKind{vocab.RawBlock, vocab.Paragraph}, kinds(raw.Value.Content.Children))
	assert.True(t, raw.Value.Content.Children[1].Children[0].Is(vocab.RawInline))

	text := parse(t, Config{Extensions: ExtensionText}, input, ir.ParseOptions{})
	blocks := text.Value.Content.Children
	assert.Equal(t, "note", blocks[0].Props.StringOr(PropExtension, ""))
	assert.Equal(t, "body", blocks[0].TextContent())
	assert.Equal(t, "PROJ-1", blocks[1].TextContent())
	assert.Len(t, text.Warnings, 2)

	stripped := parse(t, Config{Extensions: ExtensionStrip}, input, ir.ParseOptions{})
	assert.Equal(t, []ir.NodeKind{vocab.Paragraph}, kinds(stripped.Value.Content.Children))
	assert.Empty(t, stripped.Value.Content.Children[0].Children)
}

func TestParseUnknownNodes(t *testing.T) {
	input := `{"type":"doc","content":[
		{"type":"sparkle","content":[{"type":"paragraph","content":[{"type":"text","text":"kept"}]}]}
	]}`

	unwrapped := parse(t, Config{}, input, ir.ParseOptions{})
	assert.Equal(t, "kept", unwrapped.Value.Content.TextContent())
	require.Len(t, unwrapped.Warnings, 1)
	assert.Equal(t, ir.SeverityMinor, unwrapped.Warnings[0].Severity)
	assert.Equal(t, "adf:sparkle", unwrapped.Warnings[0].Subject)

	skipped := parse(t, Config{UnknownNodes: UnknownSkip}, input, ir.ParseOptions{})
	assert.Empty(t, skipped.Value.Content.Children)
	assert.Equal(t, 1, skipped.Count(ir.SeverityMajor))

	r, err := NewReader(Config{UnknownNodes: UnknownError})
	require.NoError(t, err)
	_, err = r.Parse([]byte(input), ir.ParseOptions{})
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestParseUnknownMarks(t *testing.T) {
	input := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"x","marks":[{"type":"glow"},{"type":"strong"}]}
	]}]}`

	result := parse(t, Config{}, input, ir.ParseOptions{})
	assert.True(t, result.Value.Content.Children[0].Children[0].Is(vocab.Strong))
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ir.WarningUnsupportedProperty, result.Warnings[0].Kind)

	r, err := NewReader(Config{UnknownMarks: UnknownError})
	require.NoError(t, err)
	_, err = r.Parse([]byte(input), ir.ParseOptions{})
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestParseSourceInfo(t *testing.T) {
	result := parse(t, Config{}, sample, ir.ParseOptions{PreserveSourceInfo: true})
	require.NotNil(t, result.Value.Source)
	assert.Equal(t, Format, result.Value.Source.Format)
	version, _ := result.Value.Source.Metadata.GetInt("version")
	assert.Equal(t, int64(1), version)
}

func TestParseErrors(t *testing.T) {
	r, err := NewReader(Config{})
	require.NoError(t, err)

	tests := map[string]string{
		"invalid JSON":   `{"type":`,
		"wrong root":     `{"type":"paragraph"}`,
		"wrong shape":    `{"type":"doc","content":{}}`,
		"invalid UTF-8":  "{\"type\":\"doc\",\"content\":[{\"type\":\"text\",\"text\":\"\xff\"}]}",
		"empty document": ``,
	}
	for name, input := range tests {
		_, err := r.Parse([]byte(input), ir.ParseOptions{})
		require.Error(t, err, name)
		assert.True(t, ir.IsParseError(err), name)
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []Config{
		{UnknownNodes: "explode"},
		{UnknownMarks: UnknownUnwrap},
		{Extensions: "json"},
		{Indent: "--"},
	}
	for _, cfg := range tests {
		_, err := NewReader(cfg)
		assert.Error(t, err, "%+v", cfg)
		_, err = NewWriter(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}
