package docbook

import (
	"strconv"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/stream"
	"github.com/rgonek/rescribe/vocab"
)

var preformatted = map[string]bool{
	"programlisting": true, "screen": true, "literallayout": true, "synopsis": true,
}

// sections hold a title and body; their nesting depth is the heading level.
var sections = map[string]bool{
	"chapter": true, "appendix": true, "preface": true, "part": true, "section": true,
	"simplesect": true, "sect1": true, "sect2": true, "sect3": true, "sect4": true,
	"sect5": true, "refsect1": true, "refsect2": true, "refsect3": true, "colophon": true,
}

var infoElements = map[string]bool{
	"info": true, "articleinfo": true, "bookinfo": true, "chapterinfo": true,
	"sectioninfo": true, "prefaceinfo": true, "appendixinfo": true,
}

var admonitions = map[string]bool{
	"note": true, "warning": true, "tip": true, "caution": true, "important": true,
}

var codeElements = map[string]bool{
	"literal": true, "code": true, "command": true, "filename": true, "varname": true,
	"function": true, "classname": true, "option": true, "userinput": true,
	"computeroutput": true, "envar": true, "parameter": true, "replaceable": true,
	"methodname": true, "property": true, "prompt": true, "constant": true, "type": true,
}

var silentDrops = map[string]bool{
	"indexterm": true, "colspec": true, "spanspec": true, "titleabbrev": true,
}

func (s *readState) mapElement(el stream.Element, warn *ir.Collector) stream.Output {
	switch {
	case infoElements[el.Tag]:
		if sections[el.Parent()] {
			return stream.EmitMany(headings(el.Children)...)
		}
		return stream.Drop()
	case s.inInfo(el) && el.Tag != "title" && el.Tag != "subtitle":
		// Info content is read as metadata, not as body text.
		return stream.Passthrough()
	case sections[el.Tag]:
		return s.section(el)
	case admonitions[el.Tag]:
		return stream.Emit(withID(ir.New(vocab.Div).Prop(vocab.Classes, el.Tag), el).AppendChildren(dropBlankText(el.Children)...))
	case codeElements[el.Tag]:
		code := ir.New(vocab.Code).Prop(vocab.Content, el.TextContent())
		if el.Tag != "code" && el.Tag != "literal" {
			code = code.Prop(vocab.DocBookPrefix+"tag", el.Tag)
		}
		return stream.Emit(code)
	case silentDrops[el.Tag]:
		return stream.Drop()
	}

	switch el.Tag {
	case "book", "article":
		return stream.Passthrough()
	case "title", "subtitle":
		return s.title(el)
	case "para", "simpara", "formalpara":
		return stream.Emit(withID(ir.New(vocab.Paragraph), el).AppendChildren(paragraphChildren(el.Children)...))
	case "emphasis":
		return stream.Emit(ir.New(emphasisKind(el.Attrs.GetOr("role", ""))).AppendChildren(el.Children...))
	case "programlisting", "screen", "literallayout", "synopsis":
		block := ir.New(vocab.CodeBlock).Prop(vocab.Content, strings.TrimPrefix(el.TextContent(), "\n"))
		if lang, ok := el.Attr("language"); ok && lang != "" {
			block = block.Prop(vocab.Language, lang)
		}
		if el.Tag != "programlisting" {
			block = block.Prop(vocab.DocBookPrefix+"tag", el.Tag)
		}
		return stream.Emit(block)
	case "itemizedlist":
		return stream.Emit(withID(ir.New(vocab.List).Prop(vocab.Ordered, false), el).AppendChildren(listItems(el.Children)...))
	case "orderedlist":
		list := ir.New(vocab.List).Prop(vocab.Ordered, true)
		if start, err := strconv.Atoi(el.Attrs.GetOr("startingnumber", "")); err == nil {
			list = list.Prop(vocab.Start, start)
		}
		return stream.Emit(withID(list, el).AppendChildren(listItems(el.Children)...))
	case "listitem":
		kind := ir.NodeKind(vocab.ListItem)
		if el.Parent() == "varlistentry" {
			kind = vocab.DefinitionDesc
		}
		return stream.Emit(ir.New(kind).AppendChildren(dropBlankText(el.Children)...))
	case "variablelist":
		return stream.Emit(withID(ir.New(vocab.DefinitionList), el).AppendChildren(dropBlankText(el.Children)...))
	case "varlistentry":
		// A term and its description become siblings of the definition list.
		return stream.EmitMany(dropBlankText(el.Children)...)
	case "term":
		return stream.Emit(ir.New(vocab.DefinitionTerm).AppendChildren(trimEdges(el.Children)...))
	case "blockquote", "epigraph":
		return stream.Emit(withID(ir.New(vocab.Blockquote), el).AppendChildren(dropBlankText(el.Children)...))
	case "attribution":
		return stream.Emit(ir.New(vocab.Paragraph).Child(ir.New(vocab.Cite).AppendChildren(trimEdges(el.Children)...)))
	case "sidebar":
		return stream.Emit(withID(ir.New(vocab.Div).Prop(vocab.Classes, "sidebar"), el).AppendChildren(dropBlankText(el.Children)...))
	case "figure", "informalfigure", "example", "informalexample":
		figure := withID(ir.New(vocab.Figure), el)
		if el.Tag == "example" || el.Tag == "informalexample" {
			figure = figure.Prop(vocab.DocBookPrefix+"tag", el.Tag)
		}
		return stream.Emit(figure.AppendChildren(dropBlankText(el.Children)...))
	case "mediaobject", "inlinemediaobject":
		return s.mediaObject(el, warn)
	case "imageobject":
		return stream.Passthrough()
	case "imagedata":
		img := ir.New(vocab.Image).Prop(vocab.URL, el.Attrs.GetOr("fileref", ""))
		if img.Props.StringOr(vocab.URL, "") == "" {
			warn.Add(ir.ResourceFailed("imagedata", "image without fileref"))
		}
		return stream.Emit(img)
	case "textobject":
		return stream.Emit(ir.New(textObjectKind).AppendChildren(el.Children...))
	case "table", "informaltable":
		return stream.Emit(withID(ir.New(vocab.Table), el).AppendChildren(dropBlankText(el.Children)...))
	case "tgroup":
		return stream.EmitMany(dropBlankText(el.Children)...)
	case "thead":
		return stream.Emit(ir.New(vocab.TableHead).AppendChildren(dropBlankText(el.Children)...))
	case "tbody":
		return stream.Emit(ir.New(vocab.TableBody).AppendChildren(dropBlankText(el.Children)...))
	case "tfoot":
		return stream.Emit(ir.New(vocab.TableFoot).AppendChildren(dropBlankText(el.Children)...))
	case "row", "tr":
		return stream.Emit(ir.New(vocab.TableRow).AppendChildren(dropBlankText(el.Children)...))
	case "entry", "td", "th":
		return stream.Emit(tableCell(el))
	case "ulink":
		return stream.Emit(link(el.Attrs.GetOr("url", ""), el))
	case "link", "olink":
		href, ok := el.Attr("xlink:href")
		if !ok {
			if end, ok := el.Attr("linkend"); ok {
				href = "#" + end
			}
		}
		return stream.Emit(link(href, el))
	case "xref":
		end := el.Attrs.GetOr("linkend", "")
		return stream.Emit(ir.New(vocab.Link).Prop(vocab.URL, "#"+end).Child(ir.Text(end)))
	case "email":
		return stream.Emit(link("mailto:"+el.TextContent(), el))
	case "subscript":
		return stream.Emit(ir.New(vocab.Subscript).AppendChildren(el.Children...))
	case "superscript":
		return stream.Emit(ir.New(vocab.Superscript).AppendChildren(el.Children...))
	case "quote":
		return stream.Emit(ir.New(vocab.Quoted).Prop(vocab.QuoteType, "double").AppendChildren(el.Children...))
	case "citetitle", "citation":
		return stream.Emit(ir.New(vocab.Cite).AppendChildren(el.Children...))
	case "phrase":
		n := ir.New(vocab.Span)
		if role, ok := el.Attr("role"); ok && role != "" {
			n = n.Prop(vocab.Classes, role)
		}
		return stream.Emit(withID(n, el).AppendChildren(el.Children...))
	case "anchor":
		return stream.Emit(withID(ir.New(vocab.Span), el))
	case "footnote":
		return s.footnote(el)
	case "equation", "informalequation":
		var sb strings.Builder
		for _, child := range el.Children {
			if !child.Is(vocab.Caption) {
				sb.WriteString(child.TextContent())
			}
		}
		return stream.Emit(ir.New(vocab.MathDisplay).Prop(vocab.Content, strings.TrimSpace(sb.String())))
	case "inlineequation":
		return stream.Emit(ir.New(vocab.MathInline).Prop(vocab.Content, strings.TrimSpace(el.TextContent())))
	case "mathphrase":
		return stream.Passthrough()
	case "literallayoutline", "sbr":
		return stream.Emit(ir.New(vocab.LineBreak))
	case "remark", "comment":
		warn.Add(s.at(ir.FeatureLost(ir.SeverityMinor, vocab.DocBookPrefix+el.Tag, "editorial remark dropped"), el))
		return stream.Drop()
	}

	return s.unknown(el, warn)
}

// unknown keeps the content of an unrecognized element and records exactly
// one warning for it.
func (s *readState) unknown(el stream.Element, warn *ir.Collector) stream.Output {
	warn.Add(s.at(ir.UnsupportedNode(ir.SeverityMinor, vocab.DocBookPrefix+el.Tag, "Unknown DocBook element: "+el.Tag), el))

	kind := ir.NodeKind(vocab.Span)
	children := el.Children
	for _, child := range children {
		if vocab.IsBlock(string(child.Kind)) {
			kind = vocab.Div
			children = dropBlankText(children)
			break
		}
	}
	return stream.Emit(ir.New(kind).Prop(vocab.DocBookPrefix+"tag", el.Tag).AppendChildren(children...))
}

func (s *readState) at(w ir.Warning, el stream.Element) ir.Warning {
	if el.Span != nil {
		return w.At(*el.Span)
	}
	return w
}

// section splices its children into the parent; the id moves to the
// section's heading.
func (s *readState) section(el stream.Element) stream.Output {
	children := dropBlankText(el.Children)
	id := elementID(el)
	if id != "" && len(children) > 0 && children[0].Is(vocab.Heading) && !children[0].Props.Has(vocab.ID) {
		children[0] = children[0].Prop(vocab.ID, id)
	}
	return stream.EmitMany(children...)
}

func (s *readState) title(el stream.Element) stream.Output {
	parent := el.Parent()
	owner := parent
	if infoElements[parent] && len(el.Ancestors) >= 2 {
		owner = el.Ancestors[len(el.Ancestors)-2]
	}
	switch {
	case sections[owner] && el.Tag == "title":
		level := 0
		for _, tag := range el.Ancestors {
			if sections[tag] {
				level++
			}
		}
		level = min(max(level, 1), 6)
		return stream.Emit(ir.New(vocab.Heading).Prop(vocab.Level, level).AppendChildren(trimEdges(el.Children)...))
	case infoElements[parent] || parent == "book" || parent == "article" || parent == "":
		if text := strings.TrimSpace(el.TextContent()); text != "" {
			key := vocab.Title
			if el.Tag == "subtitle" {
				key = "subtitle"
			}
			if !s.meta.Has(key) {
				s.meta.Set(key, ir.String(text))
			}
		}
		return stream.Drop()
	case parent == "figure" || parent == "table" || parent == "example" || parent == "equation":
		return stream.Emit(ir.New(vocab.Caption).AppendChildren(trimEdges(el.Children)...))
	default:
		return stream.Emit(ir.New(vocab.Paragraph).Prop(vocab.DocBookPrefix+"tag", el.Tag).
			Child(ir.New(vocab.Strong).AppendChildren(trimEdges(el.Children)...)))
	}
}

// textObjectKind marks a textobject until its media object reads the text
// as alternate text.
const textObjectKind = "docbook:textobject"

func (s *readState) mediaObject(el stream.Element, warn *ir.Collector) stream.Output {
	var image *ir.Node
	var alt string
	for _, child := range el.Children {
		switch {
		case child.Is(vocab.Image) && image == nil:
			img := child
			image = &img
		case child.Is(textObjectKind) && alt == "":
			alt = strings.TrimSpace(child.TextContent())
		}
	}
	if image == nil {
		if alt == "" {
			warn.Add(s.at(ir.FeatureLost(ir.SeverityMinor, vocab.DocBookPrefix+el.Tag, "media object without an image dropped"), el))
			return stream.Drop()
		}
		return stream.Emit(ir.Text(alt))
	}
	img := *image
	if alt != "" {
		img = img.Prop(vocab.Alt, alt)
	}
	if el.Tag == "mediaobject" {
		return stream.Emit(ir.New(vocab.Paragraph).Child(img))
	}
	return stream.Emit(img)
}

func (s *readState) footnote(el stream.Element) stream.Output {
	label := strconv.Itoa(len(s.footnotes) + 1)
	if id := elementID(el); id != "" {
		label = id
	}
	s.footnotes = append(s.footnotes,
		ir.New(vocab.FootnoteDef).Prop(vocab.Label, label).AppendChildren(dropBlankText(el.Children)...))
	return stream.Emit(ir.New(vocab.FootnoteRef).Prop(vocab.Label, label))
}

func headings(nodes []ir.Node) []ir.Node {
	var out []ir.Node
	for _, n := range nodes {
		if n.Is(vocab.Heading) {
			out = append(out, n)
		}
	}
	return out
}

func emphasisKind(role string) ir.NodeKind {
	switch strings.ToLower(role) {
	case "bold", "strong":
		return vocab.Strong
	case "underline":
		return vocab.Underline
	case "strikethrough", "strike":
		return vocab.Strikeout
	default:
		return vocab.Emphasis
	}
}

func tableCell(el stream.Element) ir.Node {
	kind := ir.NodeKind(vocab.TableCell)
	if el.Tag == "th" || el.Within("thead") {
		kind = vocab.TableHeader
	}
	cell := ir.New(kind)
	if align, ok := el.Attr("align"); ok && align != "" && align != "justify" && align != "char" {
		cell = cell.Prop(vocab.Align, align)
	}
	if span, err := strconv.Atoi(el.Attrs.GetOr("morerows", "")); err == nil && span > 0 {
		cell = cell.Prop(vocab.Rowspan, span+1)
	}
	if span, err := strconv.Atoi(el.Attrs.GetOr("colspan", "")); err == nil && span > 1 {
		cell = cell.Prop(vocab.Colspan, span)
	}
	if span, err := strconv.Atoi(el.Attrs.GetOr("rowspan", "")); err == nil && span > 1 {
		cell = cell.Prop(vocab.Rowspan, span)
	}
	return cell.AppendChildren(trimEdges(dropBlankText(el.Children))...)
}

func link(href string, el stream.Element) ir.Node {
	n := ir.New(vocab.Link).Prop(vocab.URL, href)
	children := trimEdges(el.Children)
	if len(children) == 0 && href != "" {
		children = []ir.Node{ir.Text(strings.TrimPrefix(href, "mailto:"))}
	}
	return n.AppendChildren(children...)
}

func listItems(nodes []ir.Node) []ir.Node {
	out := dropBlankText(nodes)
	for i, n := range out {
		if !n.Is(vocab.ListItem) {
			out[i] = ir.New(vocab.ListItem).Child(n)
		}
	}
	return out
}

func elementID(el stream.Element) string {
	if id, ok := el.Attr("xml:id"); ok {
		return id
	}
	return el.Attrs.GetOr("id", "")
}

func withID(n ir.Node, el stream.Element) ir.Node {
	if id := elementID(el); id != "" {
		return n.Prop(vocab.ID, id)
	}
	return n
}

func paragraphChildren(nodes []ir.Node) []ir.Node {
	for _, n := range nodes {
		if vocab.IsBlock(string(n.Kind)) {
			return dropBlankText(nodes)
		}
	}
	return trimEdges(nodes)
}

// dropBlankText removes whitespace-only text nodes between blocks.
func dropBlankText(nodes []ir.Node) []ir.Node {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsPlainText() && strings.TrimSpace(n.Props.StringOr(vocab.Content, "")) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// trimEdges strips the leading space of the first text node and the trailing
// space of the last one, dropping them if nothing remains.
func trimEdges(nodes []ir.Node) []ir.Node {
	if len(nodes) == 0 {
		return nodes
	}
	out := append([]ir.Node(nil), nodes...)
	if first := out[0]; first.IsPlainText() {
		out[0] = retext(first, strings.TrimLeft(first.Props.StringOr(vocab.Content, ""), " "))
	}
	last := len(out) - 1
	if n := out[last]; n.IsPlainText() {
		out[last] = retext(n, strings.TrimRight(n.Props.StringOr(vocab.Content, ""), " "))
	}
	return dropEmptyText(out)
}

func retext(n ir.Node, content string) ir.Node {
	t := ir.Text(content)
	t.Span = n.Span
	return t
}

func dropEmptyText(nodes []ir.Node) []ir.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.IsPlainText() && n.Props.StringOr(vocab.Content, "") == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (s *readState) inInfo(el stream.Element) bool {
	for _, tag := range el.Ancestors {
		if infoElements[tag] {
			return true
		}
	}
	return false
}
