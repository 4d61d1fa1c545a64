package adf

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Writer renders IR documents as ADF JSON. It is safe for concurrent use.
type Writer struct {
	config Config
}

// NewWriter creates a writer with the given config.
func NewWriter(config Config) (*Writer, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Writer{config: cfg}, nil
}

// Formats implements ir.Emitter.
func (w *Writer) Formats() []string { return []string{Format} }

type writeState struct {
	config Config
	opts   ir.EmitOptions
	doc    *ir.Document
	warn   ir.Collector
	// expandDepth counts enclosing expands and table cells; ADF only allows
	// nestedExpand there.
	expandDepth int
}

// Emit implements ir.Emitter.
func (w *Writer) Emit(doc *ir.Document, opts ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}
	s := &writeState{config: w.config, opts: opts, doc: doc}

	content, err := s.blocks(doc.Content.Children)
	if err != nil {
		return ir.Result[[]byte]{}, err
	}
	if content == nil {
		content = []Node{}
	}
	root := Doc{Version: 1, Type: "doc", Content: content}

	var out []byte
	if opts.Pretty {
		out, err = json.MarshalIndent(root, "", w.config.Indent)
	} else {
		out, err = json.Marshal(root)
	}
	if err != nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to encode ADF JSON", err)
	}
	return ir.Seal(&s.warn, append(out, '\n')), nil
}

// blocks converts block children. Runs of inline nodes get an implied
// paragraph.
func (s *writeState) blocks(nodes []ir.Node) ([]Node, error) {
	var out []Node
	var run []ir.Node
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		converted, err := s.paragraph(ir.New(vocab.Paragraph).AppendChildren(run...))
		run = nil
		if err != nil {
			return err
		}
		out = append(out, converted...)
		return nil
	}

	for _, n := range nodes {
		if vocab.IsInline(string(n.Kind)) {
			run = append(run, n)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		converted, err := s.block(n)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *writeState) block(n ir.Node) ([]Node, error) {
	switch n.Kind {
	case vocab.Paragraph:
		return s.paragraph(n)

	case vocab.Heading:
		level, _ := n.Props.GetInt(vocab.Level)
		if level < 1 || level > 6 {
			clamped := min(max(level, 1), 6)
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, vocab.Level,
				fmt.Sprintf("heading level %d clamped to %d", level, clamped)))
			level = clamped
		}
		content, err := s.inlines(n.Children, nil)
		if err != nil {
			return nil, err
		}
		heading := Node{Type: "heading", Attrs: map[string]any{"level": level}, Content: content}
		return []Node{alignment(heading, n)}, nil

	case vocab.Blockquote:
		return s.container("blockquote", n)

	case vocab.CodeBlock:
		code := Node{Type: "codeBlock"}
		if language, ok := n.Props.GetString(vocab.Language); ok && language != "" {
			code.setAttr("language", language)
		}
		if content := n.Props.StringOr(vocab.Content, ""); content != "" {
			code.Content = []Node{{Type: "text", Text: strings.TrimSuffix(content, "\n")}}
		}
		return []Node{code}, nil

	case vocab.HorizontalRule:
		return []Node{{Type: "rule"}}, nil

	case vocab.List:
		return s.list(n)

	case vocab.ListItem:
		// A stray item outside a list.
		return s.list(ir.New(vocab.List).Child(n))

	case vocab.Table:
		return s.table(n)

	case vocab.Figure:
		return s.figure(n)

	case vocab.Caption:
		return s.paragraph(ir.New(vocab.Paragraph).AppendChildren(n.Children...))

	case vocab.Div:
		return s.div(n)

	case vocab.RawBlock:
		return s.rawBlock(n)

	case vocab.MathDisplay:
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "display math written as a latex code block"))
		return s.block(ir.New(vocab.CodeBlock).Prop(vocab.Language, "latex").
			Prop(vocab.Content, n.Props.StringOr(vocab.Content, "")))

	case vocab.DefinitionList:
		return s.definitionList(n)

	case vocab.FootnoteDef:
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), "footnote written as plain content"))
		return s.blocks(n.Children)

	case vocab.TableHead, vocab.TableBody, vocab.TableFoot, vocab.TableRow, vocab.TableCell, vocab.TableHeader,
		vocab.DefinitionTerm, vocab.DefinitionDesc:
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, string(n.Kind), "node outside its container unwrapped"))
		return s.blocks(n.Children)

	default:
		return s.unknown(n)
	}
}

func (s *writeState) container(adfType string, n ir.Node) ([]Node, error) {
	content, err := s.blocks(n.Children)
	if err != nil {
		return nil, err
	}
	return []Node{{Type: adfType, Content: content}}, nil
}

// paragraph writes n, hoisting a paragraph that holds nothing but images to
// mediaSingle nodes.
func (s *writeState) paragraph(n ir.Node) ([]Node, error) {
	if images, ok := onlyImages(n.Children); ok {
		out := make([]Node, 0, len(images))
		for _, image := range images {
			out = append(out, s.mediaSingle(image, n.Props.StringOr(vocab.LayoutFloat, ""), nil))
		}
		return out, nil
	}
	content, err := s.inlines(n.Children, nil)
	if err != nil {
		return nil, err
	}
	return []Node{alignment(Node{Type: "paragraph", Content: content}, n)}, nil
}

func onlyImages(nodes []ir.Node) ([]ir.Node, bool) {
	var images []ir.Node
	for _, n := range nodes {
		switch {
		case n.Is(vocab.Image):
			images = append(images, n)
		case n.Is(vocab.Text) && strings.TrimSpace(n.Props.StringOr(vocab.Content, "")) == "",
			n.Is(vocab.SoftBreak):
		default:
			return nil, false
		}
	}
	return images, len(images) > 0
}

func alignment(node Node, n ir.Node) Node {
	switch n.Props.StringOr(vocab.StyleAlign, "") {
	case "center":
		node.Marks = append(node.Marks, Mark{Type: "alignment", Attrs: map[string]any{"align": "center"}})
	case "right", "end":
		node.Marks = append(node.Marks, Mark{Type: "alignment", Attrs: map[string]any{"align": "end"}})
	}
	return node
}

func (s *writeState) list(n ir.Node) ([]Node, error) {
	switch listType(n) {
	case listTask:
		return s.itemList("taskList", "taskItem", n)
	case listDecision:
		return s.itemList("decisionList", "decisionItem", n)
	}

	list := Node{Type: "bulletList"}
	if ordered, _ := n.Props.GetBool(vocab.Ordered); ordered {
		list.Type = "orderedList"
		start, ok := n.Props.GetInt(vocab.Start)
		if !ok {
			start = 1
		}
		list.setAttr("order", start)
	}
	for _, item := range n.Children {
		children := item.Children
		if !item.Is(vocab.ListItem) {
			children = []ir.Node{item}
		}
		content, err := s.blocks(children)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 || content[0].Type != "paragraph" {
			content = append([]Node{{Type: "paragraph"}}, content...)
		}
		list.Content = append(list.Content, Node{Type: "listItem", Content: content})
	}
	if len(list.Content) == 0 {
		return nil, nil
	}
	return []Node{list}, nil
}

// listType reports the ADF list a list maps to. Lists whose every item
// carries a checked state become task lists.
func listType(n ir.Node) string {
	if t, ok := n.Props.GetString(PropListType); ok {
		return t
	}
	if len(n.Children) == 0 {
		return ""
	}
	for _, item := range n.Children {
		if !item.Props.Has(vocab.Checked) {
			return ""
		}
	}
	return listTask
}

// itemList writes task and decision lists, whose items hold inline content.
// Nested lists follow their item inside the parent list.
func (s *writeState) itemList(listKind, itemKind string, n ir.Node) ([]Node, error) {
	list := Node{Type: listKind, Attrs: map[string]any{"localId": newLocalID()}}
	for _, item := range n.Children {
		entry := Node{Type: itemKind}
		localID := item.Props.StringOr(PropLocalID, "")
		if localID == "" {
			localID = newLocalID()
		}
		entry.setAttr("localId", localID)
		if itemKind == "taskItem" {
			state := "TODO"
			if checked, _ := item.Props.GetBool(vocab.Checked); checked {
				state = "DONE"
			}
			entry.setAttr("state", state)
		} else {
			entry.setAttr("state", item.Props.StringOr(PropState, "DECIDED"))
		}

		var nested []Node
		for i, child := range item.Children {
			switch {
			case child.Is(vocab.Paragraph) && i == 0:
				content, err := s.inlines(child.Children, nil)
				if err != nil {
					return nil, err
				}
				entry.Content = content
			case child.Is(vocab.List) && itemKind == "taskItem":
				converted, err := s.list(child.Prop(PropListType, listTask))
				if err != nil {
					return nil, err
				}
				nested = append(nested, converted...)
			case vocab.IsInline(string(child.Kind)):
				content, err := s.inlines([]ir.Node{child}, nil)
				if err != nil {
					return nil, err
				}
				entry.Content = append(entry.Content, content...)
			default:
				s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(child.Kind),
					itemKind+" holds inline content only; block flattened to text"))
				if text := child.TextContent(); text != "" {
					entry.Content = append(entry.Content, Node{Type: "text", Text: text})
				}
			}
		}
		list.Content = append(list.Content, entry)
		list.Content = append(list.Content, nested...)
	}
	if len(list.Content) == 0 {
		return nil, nil
	}
	return []Node{list}, nil
}

func newLocalID() string {
	return uuid.NewString()
}

func (s *writeState) table(n ir.Node) ([]Node, error) {
	var rows []ir.Node
	var after []Node
	for _, child := range n.Children {
		switch child.Kind {
		case vocab.TableHead, vocab.TableBody, vocab.TableFoot:
			rows = append(rows, child.Children...)
		case vocab.TableRow:
			rows = append(rows, child)
		case vocab.Caption:
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(child.Kind), "table caption written as a paragraph after the table"))
			converted, err := s.paragraph(ir.New(vocab.Paragraph).AppendChildren(child.Children...))
			if err != nil {
				return nil, err
			}
			after = append(after, converted...)
		default:
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, string(child.Kind), "table content outside a row moved after the table"))
			converted, err := s.blocks([]ir.Node{child})
			if err != nil {
				return nil, err
			}
			after = append(after, converted...)
		}
	}

	table := Node{Type: "table"}
	if layout := n.Props.StringOr(PropLayout, ""); layout != "" {
		table.setAttr("layout", layout)
	}
	s.expandDepth++
	defer func() { s.expandDepth-- }()
	for _, row := range rows {
		tableRow := Node{Type: "tableRow"}
		for _, cell := range row.Children {
			converted, err := s.cell(cell)
			if err != nil {
				return nil, err
			}
			tableRow.Content = append(tableRow.Content, converted)
		}
		table.Content = append(table.Content, tableRow)
	}
	if len(table.Content) == 0 {
		return after, nil
	}
	return append([]Node{table}, after...), nil
}

func (s *writeState) cell(n ir.Node) (Node, error) {
	cell := Node{Type: "tableCell"}
	if n.Is(vocab.TableHeader) {
		cell.Type = "tableHeader"
	}
	if colspan, ok := n.Props.GetInt(vocab.Colspan); ok && colspan > 1 {
		cell.setAttr("colspan", colspan)
	}
	if rowspan, ok := n.Props.GetInt(vocab.Rowspan); ok && rowspan > 1 {
		cell.setAttr("rowspan", rowspan)
	}
	if bg := n.Props.StringOr(vocab.StyleBgColor, ""); bg != "" {
		cell.setAttr("background", bg)
	}
	content, err := s.blocks(n.Children)
	if err != nil {
		return Node{}, err
	}
	if len(content) == 0 {
		content = []Node{{Type: "paragraph"}}
	}
	cell.Content = content
	return cell, nil
}

// figure writes the first image of a figure with the figure's caption.
func (s *writeState) figure(n ir.Node) ([]Node, error) {
	var image *ir.Node
	var caption []Node
	var rest []ir.Node
	for i, child := range n.Children {
		switch {
		case child.Is(vocab.Image) && image == nil:
			image = &n.Children[i]
		case child.Is(vocab.Caption):
			content, err := s.inlines(child.Children, nil)
			if err != nil {
				return nil, err
			}
			caption = content
		case child.Is(vocab.Paragraph) && image == nil:
			if images, ok := onlyImages(child.Children); ok {
				image = &images[0]
				rest = append(rest, images[1:]...)
				continue
			}
			rest = append(rest, child)
		default:
			rest = append(rest, child)
		}
	}
	if image == nil {
		return s.blocks(n.Children)
	}
	out := []Node{s.mediaSingle(*image, n.Props.StringOr(vocab.LayoutFloat, ""), caption)}
	more, err := s.blocks(rest)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

func (s *writeState) mediaSingle(image ir.Node, layout string, caption []Node) Node {
	if layout == "" {
		layout = "center"
	}
	single := Node{
		Type:    "mediaSingle",
		Attrs:   map[string]any{"layout": layout},
		Content: []Node{s.media(image)},
	}
	if len(caption) > 0 {
		single.Content = append(single.Content, Node{Type: "caption", Content: caption})
	}
	return single
}

func (s *writeState) media(image ir.Node) Node {
	media := Node{Type: "media"}
	if id, ok := image.Props.GetString(PropMediaID); ok && id != "" {
		media.setAttr("type", "file")
		media.setAttr("id", id)
		if collection := image.Props.StringOr(PropCollection, ""); collection != "" {
			media.setAttr("collection", collection)
		}
	} else {
		media.setAttr("type", "external")
		media.setAttr("url", s.imageURL(image))
	}
	if alt := image.Props.StringOr(vocab.Alt, ""); alt != "" {
		media.setAttr("alt", alt)
	}
	return media
}

// imageURL resolves an image to a data URI when embedding, otherwise to its
// resource reference or URL.
func (s *writeState) imageURL(n ir.Node) string {
	id, ok := ir.ReferencedResource(n)
	if !ok {
		return n.Props.StringOr(vocab.URL, "")
	}
	res, found := s.doc.Resource(id)
	if !found {
		s.warn.Add(ir.ResourceFailed(string(id), "resource not found in document"))
		return n.Props.StringOr(vocab.URL, ir.ResourceURL(id))
	}
	if s.opts.EmbedResources {
		return ir.EncodeDataURI(res)
	}
	return ir.ResourceURL(id)
}

func (s *writeState) div(n ir.Node) ([]Node, error) {
	switch {
	case n.Props.Has(PropPanelType):
		panel, err := s.container("panel", n)
		if err != nil {
			return nil, err
		}
		panel[0].setAttr("panelType", n.Props.StringOr(PropPanelType, "info"))
		return panel, nil

	case n.Props.Has(PropExpand):
		kind := "expand"
		if s.expandDepth > 0 {
			kind = "nestedExpand"
		}
		s.expandDepth++
		expand, err := s.container(kind, n)
		s.expandDepth--
		if err != nil {
			return nil, err
		}
		expand[0].setAttr("title", n.Props.StringOr(vocab.Title, ""))
		return expand, nil

	case n.Props.Has(PropSection):
		var columns []Node
		for _, child := range n.Children {
			column := Node{Type: "layoutColumn"}
			if width, ok := child.Props.GetFloat(vocab.LayoutColumn); ok {
				column.setAttr("width", width)
			}
			content, err := s.blocks(child.Children)
			if err != nil {
				return nil, err
			}
			column.Content = content
			columns = append(columns, column)
		}
		return []Node{{Type: "layoutSection", Content: columns}}, nil

	default:
		if key, ok := n.Props.GetString(PropExtension); ok {
			s.warn.Add(ir.FeatureLost(ir.SeverityMinor, key, "extension parameters are not kept; body written as plain content"))
		}
		return s.blocks(n.Children)
	}
}

func (s *writeState) rawBlock(n ir.Node) ([]Node, error) {
	format := n.Props.StringOr(vocab.Format, "")
	content := n.Props.StringOr(vocab.Content, "")
	if format == Format {
		var node Node
		if err := json.Unmarshal([]byte(content), &node); err == nil && node.Type != "" {
			return []Node{node}, nil
		}
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "invalid raw ADF written as a code block"))
	} else {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), fmt.Sprintf("raw %q content written as a code block", format)))
	}
	return s.block(ir.New(vocab.CodeBlock).Prop(vocab.Language, format).Prop(vocab.Content, content))
}

func (s *writeState) definitionList(n ir.Node) ([]Node, error) {
	s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "definition list written as a bullet list"))
	list := ir.New(vocab.List).Prop(vocab.Ordered, false)
	item := ir.New(vocab.ListItem)
	open := false
	for _, child := range n.Children {
		switch child.Kind {
		case vocab.DefinitionTerm:
			if open {
				list = list.Child(item)
			}
			term := ir.New(vocab.Paragraph).Child(ir.New(vocab.Strong).AppendChildren(child.Children...))
			item = ir.New(vocab.ListItem).Child(term)
			open = true
		default:
			item = item.AppendChildren(child.Children...)
			open = true
		}
	}
	if open {
		list = list.Child(item)
	}
	return s.list(list)
}

// unknown applies the writer's unknown node policy.
func (s *writeState) unknown(n ir.Node) ([]Node, error) {
	switch s.config.UnknownNodes {
	case UnknownError:
		return nil, ir.NewEmitError(Format, fmt.Sprintf("unknown node kind %q", n.Kind), ir.ErrInvalidInput)
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, string(n.Kind), "node dropped: no ADF equivalent"))
		return nil, nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no ADF equivalent"))
		return s.blocks(n.Children)
	}
}
