// Package adf reads and writes the Atlassian Document Format, the JSON tree
// Jira and Confluence store rich text in. Nodes without a common vocabulary
// equivalent (panels, mentions, statuses, task lists) map to divs, spans and
// lists carrying adf: properties so the writer can restore them.
package adf

import (
	"fmt"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Property keys recorded on nodes that stand in for ADF-specific nodes.
const (
	PropPanelType  = vocab.ADFPrefix + "panel_type"
	PropExpand     = vocab.ADFPrefix + "expand"
	PropListType   = vocab.ADFPrefix + "list_type"
	PropState      = vocab.ADFPrefix + "state"
	PropLocalID    = vocab.ADFPrefix + "local_id"
	PropMention    = vocab.ADFPrefix + "mention"
	PropEmoji      = vocab.ADFPrefix + "emoji"
	PropStatus     = vocab.ADFPrefix + "status"
	PropDate       = vocab.ADFPrefix + "date"
	PropMediaID    = vocab.ADFPrefix + "media_id"
	PropCollection = vocab.ADFPrefix + "collection"
	PropLayout     = vocab.ADFPrefix + "layout"
	PropSection    = vocab.ADFPrefix + "layout_section"
	PropExtension  = vocab.ADFPrefix + "extension_key"
)

// List types recorded under PropListType.
const (
	listTask     = "task"
	listDecision = "decision"
)

// Reader parses ADF JSON into the IR. It is safe for concurrent use.
type Reader struct {
	config Config
}

// NewReader creates a reader with the given config.
func NewReader(config Config) (*Reader, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Reader{config: cfg}, nil
}

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

type readState struct {
	config Config
	opts   ir.ParseOptions
	doc    *ir.Document
	warn   ir.Collector
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if !utf8.Valid(input) {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "document is not valid UTF-8")
	}
	var root Doc
	if err := json.Unmarshal(input, &root); err != nil {
		return ir.Result[*ir.Document]{}, ir.NewParseError(Format, "invalid ADF JSON", err)
	}
	if root.Type != "doc" {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "root node must have type doc, got %q", root.Type)
	}
	if root.Version > 1 {
		// Later versions are read as version 1 on a best-effort basis.
		root.Version = 1
	}

	s := &readState{config: r.config, opts: opts, doc: ir.NewDocument()}
	blocks, err := s.blocks(root.Content)
	if err != nil {
		return ir.Result[*ir.Document]{}, err
	}
	s.doc.Content = s.doc.Content.AppendChildren(blocks...)

	if opts.PreserveSourceInfo {
		s.doc.Source = &ir.SourceInfo{
			Format:   Format,
			Metadata: ir.NewProperties("version", root.Version),
		}
	}
	return ir.Seal(&s.warn, s.doc), nil
}

func (s *readState) blocks(nodes []Node) ([]ir.Node, error) {
	var out []ir.Node
	for _, n := range nodes {
		converted, err := s.block(n)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (s *readState) block(n Node) ([]ir.Node, error) {
	switch n.Type {
	case "paragraph":
		inline, err := s.inline(n.Content)
		if err != nil {
			return nil, err
		}
		return one(s.blockMarks(ir.New(vocab.Paragraph).AppendChildren(inline...), n)), nil

	case "heading":
		level := min(max(n.GetIntAttr("level", 1), 1), 6)
		inline, err := s.inline(n.Content)
		if err != nil {
			return nil, err
		}
		heading := ir.New(vocab.Heading).Prop(vocab.Level, level).AppendChildren(inline...)
		return one(s.blockMarks(heading, n)), nil

	case "blockquote":
		return s.container(ir.New(vocab.Blockquote), n)

	case "bulletList":
		return s.list(ir.New(vocab.List).Prop(vocab.Ordered, false), n)

	case "orderedList":
		list := ir.New(vocab.List).Prop(vocab.Ordered, true)
		if order := n.GetIntAttr("order", 1); order != 1 {
			list = list.Prop(vocab.Start, order)
		}
		return s.list(list, n)

	case "taskList":
		return s.list(ir.New(vocab.List).Prop(vocab.Ordered, false).Prop(PropListType, listTask), n)

	case "decisionList":
		return s.list(ir.New(vocab.List).Prop(vocab.Ordered, false).Prop(PropListType, listDecision), n)

	case "listItem":
		return s.container(ir.New(vocab.ListItem), n)

	case "taskItem", "decisionItem":
		return s.item(n)

	case "codeBlock":
		code := ir.New(vocab.CodeBlock).Prop(vocab.Content, plainText(n.Content))
		if language := n.GetStringAttr("language", ""); language != "" {
			code = code.Prop(vocab.Language, language)
		}
		return one(code), nil

	case "rule":
		return one(ir.New(vocab.HorizontalRule)), nil

	case "panel":
		div := ir.New(vocab.Div).Prop(PropPanelType, n.GetStringAttr("panelType", "info"))
		return s.container(div, n)

	case "expand", "nestedExpand":
		div := ir.New(vocab.Div).Prop(PropExpand, true)
		if title := n.GetStringAttr("title", ""); title != "" {
			div = div.Prop(vocab.Title, title)
		}
		return s.container(div, n)

	case "layoutSection":
		return s.container(ir.New(vocab.Div).Prop(PropSection, true), n)

	case "layoutColumn":
		div := ir.New(vocab.Div)
		if width, ok := n.Attrs["width"].(float64); ok {
			div = div.Prop(vocab.LayoutColumn, width)
		}
		return s.container(div, n)

	case "table":
		return s.table(n)

	case "mediaSingle":
		return s.mediaSingle(n)

	case "mediaGroup":
		images, err := s.media(n.Content)
		if err != nil {
			return nil, err
		}
		return one(ir.New(vocab.Paragraph).AppendChildren(images...)), nil

	case "blockCard", "embedCard":
		link, ok := s.card(n)
		if !ok {
			return nil, nil
		}
		return one(ir.New(vocab.Paragraph).Child(link)), nil

	case "extension", "bodiedExtension":
		return s.extension(n, true)

	case "text", "hardBreak", "mention", "emoji", "status", "date", "inlineCard", "inlineExtension", "mediaInline":
		// Inline content directly in a block container gets an implied paragraph.
		inline, err := s.inline([]Node{n})
		if err != nil {
			return nil, err
		}
		return one(ir.New(vocab.Paragraph).AppendChildren(inline...)), nil

	default:
		return s.unknown(n, true)
	}
}

func one(n ir.Node) []ir.Node { return []ir.Node{n} }

func (s *readState) container(n ir.Node, src Node) ([]ir.Node, error) {
	children, err := s.blocks(src.Content)
	if err != nil {
		return nil, err
	}
	return one(n.AppendChildren(children...)), nil
}

// list converts the items of any ADF list. Task lists nest by placing a
// taskList directly inside the parent list; it is moved into the preceding
// item.
func (s *readState) list(list ir.Node, src Node) ([]ir.Node, error) {
	for _, child := range src.Content {
		converted, err := s.block(child)
		if err != nil {
			return nil, err
		}
		for _, item := range converted {
			if item.Is(vocab.ListItem) {
				list = list.Child(item)
				continue
			}
			if last := len(list.Children) - 1; last >= 0 {
				list.Children[last] = list.Children[last].Child(item)
				continue
			}
			list = list.Child(ir.New(vocab.ListItem).Child(item))
		}
	}
	return one(list), nil
}

// item converts taskItem and decisionItem, whose content is inline.
func (s *readState) item(n Node) ([]ir.Node, error) {
	inline, err := s.inline(n.Content)
	if err != nil {
		return nil, err
	}
	state := n.GetStringAttr("state", "")
	item := ir.New(vocab.ListItem)
	if n.Type == "taskItem" {
		item = item.Prop(vocab.Checked, state == "DONE")
	} else if state != "" {
		item = item.Prop(PropState, state)
	}
	if id := n.GetStringAttr("localId", ""); id != "" {
		item = item.Prop(PropLocalID, id)
	}
	if len(inline) > 0 {
		item = item.Child(ir.New(vocab.Paragraph).AppendChildren(inline...))
	}
	return one(item), nil
}

// blockMarks maps alignment and indentation block marks onto n.
func (s *readState) blockMarks(n ir.Node, src Node) ir.Node {
	for _, mark := range src.Marks {
		switch mark.Type {
		case "alignment":
			switch align := mark.GetStringAttr("align", ""); align {
			case "center":
				n = n.Prop(vocab.StyleAlign, "center")
			case "end":
				n = n.Prop(vocab.StyleAlign, "right")
			}
		case "indentation":
			s.warn.Add(ir.FeatureLost(ir.SeverityMinor, "indentation", "block indentation dropped"))
		case "breakout":
			// Width hint only.
		default:
			s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, mark.Type, "unknown block mark dropped"))
		}
	}
	return n
}

func (s *readState) table(n Node) ([]ir.Node, error) {
	table := ir.New(vocab.Table)
	if layout := n.GetStringAttr("layout", ""); layout != "" && layout != "default" {
		table = table.Prop(PropLayout, layout)
	}
	var after []ir.Node
	for _, rowNode := range n.Content {
		if rowNode.Type != "tableRow" {
			converted, err := s.block(rowNode)
			if err != nil {
				return nil, err
			}
			if len(converted) > 0 {
				s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, rowNode.Type, "table content outside a row moved after the table"))
				after = append(after, converted...)
			}
			continue
		}
		row := ir.New(vocab.TableRow)
		for _, cellNode := range rowNode.Content {
			kind := ir.NodeKind(vocab.TableCell)
			if cellNode.Type == "tableHeader" {
				kind = vocab.TableHeader
			}
			cell := ir.New(kind)
			if colspan := cellNode.GetIntAttr("colspan", 1); colspan > 1 {
				cell = cell.Prop(vocab.Colspan, colspan)
			}
			if rowspan := cellNode.GetIntAttr("rowspan", 1); rowspan > 1 {
				cell = cell.Prop(vocab.Rowspan, rowspan)
			}
			if bg := cellNode.GetStringAttr("background", ""); bg != "" {
				cell = cell.Prop(vocab.StyleBgColor, bg)
			}
			content, err := s.blocks(cellNode.Content)
			if err != nil {
				return nil, err
			}
			row = row.Child(cell.AppendChildren(content...))
		}
		table = table.Child(row)
	}
	return append(one(table), after...), nil
}

func (s *readState) mediaSingle(n Node) ([]ir.Node, error) {
	var images, caption []ir.Node
	for _, child := range n.Content {
		if child.Type == "caption" {
			inline, err := s.inline(child.Content)
			if err != nil {
				return nil, err
			}
			caption = inline
			continue
		}
		converted, err := s.media([]Node{child})
		if err != nil {
			return nil, err
		}
		images = append(images, converted...)
	}
	if len(images) == 0 {
		return nil, nil
	}

	if caption == nil {
		p := ir.New(vocab.Paragraph).AppendChildren(images...)
		if layout := n.GetStringAttr("layout", "center"); layout != "center" {
			p = p.Prop(vocab.LayoutFloat, layout)
		}
		return one(p), nil
	}
	figure := ir.New(vocab.Figure).AppendChildren(images...).
		Child(ir.New(vocab.Caption).AppendChildren(caption...))
	if layout := n.GetStringAttr("layout", "center"); layout != "center" {
		figure = figure.Prop(vocab.LayoutFloat, layout)
	}
	return one(figure), nil
}

// media converts media and mediaInline nodes to images.
func (s *readState) media(nodes []Node) ([]ir.Node, error) {
	var out []ir.Node
	for _, n := range nodes {
		if n.Type != "media" && n.Type != "mediaInline" {
			converted, err := s.unknown(n, false)
			if err != nil {
				return nil, err
			}
			out = append(out, converted...)
			continue
		}
		out = append(out, s.image(n))
	}
	return out, nil
}

func (s *readState) image(n Node) ir.Node {
	image := ir.New(vocab.Image)
	if alt := n.GetStringAttr("alt", ""); alt != "" {
		image = image.Prop(vocab.Alt, alt)
	}

	if n.GetStringAttr("type", "file") == "external" {
		url := n.GetStringAttr("url", "")
		if s.opts.EmbedResources && ir.IsDataURI(url) {
			res, err := ir.DecodeDataURI(url)
			if err != nil {
				s.warn.Add(ir.ResourceFailed(url, err.Error()))
				return image.Prop(vocab.URL, url)
			}
			return image.Prop(vocab.Resource, string(s.doc.Embed(res)))
		}
		return image.Prop(vocab.URL, url)
	}

	id := n.GetStringAttr("id", "")
	if id == "" {
		s.warn.Add(ir.ResourceFailed(n.Type, "media node has no id"))
		return image
	}
	image = image.Prop(PropMediaID, id)
	if collection := n.GetStringAttr("collection", ""); collection != "" {
		image = image.Prop(PropCollection, collection)
	}
	if s.config.MediaBaseURL != "" {
		return image.Prop(vocab.URL, s.config.MediaBaseURL+"/"+id)
	}
	s.warn.Add(ir.ResourceFailed(id, "file media has no URL; set a media base URL to resolve it"))
	return image
}

// card converts smart links to links. ok is false when the card has no URL.
func (s *readState) card(n Node) (ir.Node, bool) {
	url := n.GetStringAttr("url", "")
	name := ""
	if data, ok := n.Attrs["data"].(map[string]any); ok {
		if url == "" {
			url = stringAttr(data, "url", "")
		}
		name = stringAttr(data, "name", "")
	}
	if url == "" {
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningFeatureLost, n.Type, "smart link without a URL dropped"))
		return ir.Node{}, false
	}
	if name == "" {
		name = url
	}
	return ir.New(vocab.Link).Prop(vocab.URL, url).Child(ir.Text(name)), true
}

func (s *readState) extension(n Node, block bool) ([]ir.Node, error) {
	key := n.GetStringAttr("extensionKey", n.Type)
	switch s.config.Extensions {
	case ExtensionStrip:
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, key, "extension dropped"))
		return nil, nil

	case ExtensionText:
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, key, "extension reduced to its content"))
		if n.Type == "bodiedExtension" {
			return s.container(ir.New(vocab.Div).Prop(PropExtension, key), n)
		}
		text := n.GetStringAttr("text", "")
		if text == "" {
			return nil, nil
		}
		if block {
			return one(ir.New(vocab.Paragraph).Child(ir.Text(text))), nil
		}
		return one(ir.Text(text)), nil

	default:
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, ir.NewParseError(Format, "failed to re-encode extension", err)
		}
		kind := ir.NodeKind(vocab.RawInline)
		if block {
			kind = vocab.RawBlock
		}
		return one(ir.New(kind).Prop(vocab.Format, Format).Prop(vocab.Content, string(raw))), nil
	}
}

// unknown applies the reader's unknown node policy.
func (s *readState) unknown(n Node, block bool) ([]ir.Node, error) {
	subject := vocab.ADFPrefix + n.Type
	switch s.config.UnknownNodes {
	case UnknownError:
		return nil, ir.InvalidInput(Format, "unknown node type %q", n.Type)
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, subject, "unknown ADF node dropped"))
		return nil, nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, subject, "unknown ADF node unwrapped"))
		if block {
			return s.blocks(n.Content)
		}
		return s.inline(n.Content)
	}
}

func plainText(nodes []Node) string {
	var out []byte
	for _, n := range nodes {
		out = append(out, n.Text...)
		if n.Type == "hardBreak" {
			out = append(out, '\n')
		}
		out = append(out, plainText(n.Content)...)
	}
	return string(out)
}
