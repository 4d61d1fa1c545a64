package html

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Writer renders the IR as HTML. It is safe for concurrent use.
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
}

// Emit implements ir.Emitter.
func (w *Writer) Emit(doc *ir.Document, opts ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}
	s := &writeState{config: w.config, opts: opts, doc: doc}

	body := element("body")
	s.appendBlocks(body, vocab.Document, doc.Content.Children, 1)

	var buf bytes.Buffer
	if w.config.FullDocument {
		root := s.fullDocument(body)
		if err := xhtml.Render(&buf, root); err != nil {
			return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to render HTML", err)
		}
	} else {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := xhtml.Render(&buf, c); err != nil {
				return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to render HTML", err)
			}
		}
	}
	out := buf.Bytes()
	if opts.Pretty {
		out = bytes.TrimLeft(out, "\n")
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
	}
	return ir.Seal(&s.warn, out), nil
}

func (s *writeState) fullDocument(body *xhtml.Node) *xhtml.Node {
	root := &xhtml.Node{Type: xhtml.DocumentNode}
	root.AppendChild(&xhtml.Node{Type: xhtml.DoctypeNode, Data: "html"})

	htmlEl := element("html")
	if lang, ok := s.doc.Metadata.GetString("html:lang"); ok {
		htmlEl.Attr = append(htmlEl.Attr, xhtml.Attribute{Key: "lang", Val: lang})
	}
	head := element("head")
	head.AppendChild(element("meta", attr("charset", "utf-8")))
	if title, ok := s.doc.Metadata.GetString(vocab.Title); ok {
		t := element("title")
		t.AppendChild(text(title))
		head.AppendChild(t)
	}
	for _, name := range []string{"author", "description", "keywords", "date"} {
		if content, ok := s.doc.Metadata.GetString(name); ok {
			head.AppendChild(element("meta", attr("name", name), attr("content", content)))
		}
	}
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)
	return root
}

// appendBlocks appends children, indenting block children when Pretty is set.
func (s *writeState) appendBlocks(parent *xhtml.Node, parentKind ir.NodeKind, children []ir.Node, depth int) {
	indented := false
	for _, child := range children {
		if s.opts.Pretty && vocab.IsBlock(string(child.Kind)) {
			parent.AppendChild(text("\n" + strings.Repeat(s.config.Indent, depth-1)))
			indented = true
		}
		s.appendNode(parent, parentKind, child, depth)
	}
	if indented && depth > 1 {
		parent.AppendChild(text("\n" + strings.Repeat(s.config.Indent, depth-2)))
	}
}

func (s *writeState) appendNode(parent *xhtml.Node, parentKind ir.NodeKind, n ir.Node, depth int) {
	switch n.Kind {
	case vocab.Document:
		s.appendBlocks(parent, parentKind, n.Children, depth)
	case vocab.Paragraph:
		parent.AppendChild(s.wrap("p", n, depth))
	case vocab.Heading:
		parent.AppendChild(s.wrap(s.headingTag(n), n, depth))
	case vocab.CodeBlock:
		parent.AppendChild(s.codeBlock(n))
	case vocab.Blockquote:
		parent.AppendChild(s.wrap("blockquote", n, depth))
	case vocab.List:
		parent.AppendChild(s.list(n, depth))
	case vocab.ListItem:
		parent.AppendChild(s.listItem(n, depth))
	case vocab.Table:
		parent.AppendChild(s.wrap("table", n, depth))
	case vocab.TableHead:
		parent.AppendChild(s.wrap("thead", n, depth))
	case vocab.TableBody:
		parent.AppendChild(s.wrap("tbody", n, depth))
	case vocab.TableFoot:
		parent.AppendChild(s.wrap("tfoot", n, depth))
	case vocab.TableRow:
		parent.AppendChild(s.wrap("tr", n, depth))
	case vocab.TableCell:
		parent.AppendChild(s.tableCell("td", n, depth))
	case vocab.TableHeader:
		parent.AppendChild(s.tableCell("th", n, depth))
	case vocab.Figure:
		parent.AppendChild(s.wrap("figure", n, depth))
	case vocab.Caption:
		tag := "figcaption"
		if parentKind == vocab.Table {
			tag = "caption"
		}
		parent.AppendChild(s.wrap(tag, n, depth))
	case vocab.HorizontalRule:
		parent.AppendChild(s.attrs(element("hr"), n))
	case vocab.Div:
		parent.AppendChild(s.wrap(n.Props.StringOr("html:tag", "div"), n, depth))
	case vocab.RawBlock, vocab.RawInline:
		s.raw(parent, n)
	case vocab.DefinitionList:
		parent.AppendChild(s.wrap("dl", n, depth))
	case vocab.DefinitionTerm:
		parent.AppendChild(s.wrap("dt", n, depth))
	case vocab.DefinitionDesc:
		parent.AppendChild(s.wrap("dd", n, depth))
	case vocab.FootnoteDef:
		label := n.Props.StringOr(vocab.Label, "")
		div := s.wrap("div", n, depth)
		div.Attr = append(div.Attr, attr("class", "footnote"), attr("id", "fn-"+label))
		parent.AppendChild(div)
	case vocab.MathDisplay:
		div := element("div", attr("class", "math display"))
		div.AppendChild(text(`\[` + n.Props.StringOr(vocab.Content, "") + `\]`))
		parent.AppendChild(div)

	case vocab.Text:
		parent.AppendChild(text(n.Props.StringOr(vocab.Content, "")))
	case vocab.Emphasis:
		parent.AppendChild(s.wrap("em", n, depth))
	case vocab.Strong:
		parent.AppendChild(s.wrap("strong", n, depth))
	case vocab.Strikeout:
		parent.AppendChild(s.wrap("del", n, depth))
	case vocab.Underline:
		parent.AppendChild(s.wrap("u", n, depth))
	case vocab.Subscript:
		parent.AppendChild(s.wrap("sub", n, depth))
	case vocab.Superscript:
		parent.AppendChild(s.wrap("sup", n, depth))
	case vocab.SmallCaps:
		parent.AppendChild(s.wrap("small", n, depth))
	case vocab.Cite:
		parent.AppendChild(s.wrap("cite", n, depth))
	case vocab.Quoted:
		parent.AppendChild(s.wrap("q", n, depth))
	case vocab.Code:
		code := s.attrs(element(n.Props.StringOr("html:tag", "code")), n)
		code.AppendChild(text(n.Props.StringOr(vocab.Content, "")))
		parent.AppendChild(code)
	case vocab.Link:
		a := s.wrap("a", n, depth)
		if url, ok := n.Props.GetString(vocab.URL); ok {
			a.Attr = append(a.Attr, attr("href", url))
		}
		if title, ok := n.Props.GetString(vocab.Title); ok {
			a.Attr = append(a.Attr, attr("title", title))
		}
		parent.AppendChild(a)
	case vocab.Image:
		parent.AppendChild(s.image(n))
	case vocab.LineBreak:
		parent.AppendChild(element("br"))
	case vocab.SoftBreak:
		parent.AppendChild(text("\n"))
	case vocab.Span:
		parent.AppendChild(s.wrap(n.Props.StringOr("html:tag", "span"), n, depth))
	case vocab.FootnoteRef:
		label := n.Props.StringOr(vocab.Label, "")
		sup := element("sup")
		a := element("a", attr("href", "#fn-"+label), attr("id", "fnref-"+label))
		a.AppendChild(text(label))
		sup.AppendChild(a)
		parent.AppendChild(sup)
	case vocab.MathInline:
		sp := element("span", attr("class", "math inline"))
		sp.AppendChild(text(`\(` + n.Props.StringOr(vocab.Content, "") + `\)`))
		parent.AppendChild(sp)

	default:
		s.unknown(parent, parentKind, n, depth)
	}
}

func (s *writeState) unknown(parent *xhtml.Node, parentKind ir.NodeKind, n ir.Node, depth int) {
	switch s.config.UnknownNodes {
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, string(n.Kind), "node dropped: no HTML equivalent"))
	case UnknownComment:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no HTML equivalent"))
		parent.AppendChild(&xhtml.Node{Type: xhtml.CommentNode, Data: " " + string(n.Kind) + " "})
		s.appendBlocks(parent, parentKind, n.Children, depth)
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no HTML equivalent"))
		s.appendBlocks(parent, parentKind, n.Children, depth)
	}
}

// wrap renders n as tag with its attributes and children.
func (s *writeState) wrap(tag string, n ir.Node, depth int) *xhtml.Node {
	el := s.attrs(element(tag), n)
	s.appendBlocks(el, n.Kind, n.Children, depth+1)
	return el
}

// attrs copies id, classes and html:* properties onto el.
func (s *writeState) attrs(el *xhtml.Node, n ir.Node) *xhtml.Node {
	if id, ok := n.Props.GetString(vocab.ID); ok && id != "" {
		el.Attr = append(el.Attr, attr("id", id))
	}
	if classes, ok := n.Props.GetString(vocab.Classes); ok && classes != "" {
		el.Attr = append(el.Attr, attr("class", classes))
	}
	for key, value := range n.Props.Namespace(vocab.HTMLPrefix).All() {
		name := strings.TrimPrefix(key, vocab.HTMLPrefix)
		if name == "tag" || strings.Contains(name, ":") {
			continue
		}
		el.Attr = append(el.Attr, attr(name, value.String()))
	}
	return el
}

func (s *writeState) headingTag(n ir.Node) string {
	level, ok := n.Props.GetInt(vocab.Level)
	if !ok {
		level = 1
	}
	if level < 1 || level > 6 {
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, vocab.Heading,
			fmt.Sprintf("heading level %d clamped to 1-6", level)))
		level = min(max(level, 1), 6)
	}
	return "h" + strconv.FormatInt(level, 10)
}

func (s *writeState) codeBlock(n ir.Node) *xhtml.Node {
	pre := element("pre")
	if id, ok := n.Props.GetString(vocab.ID); ok {
		pre.Attr = append(pre.Attr, attr("id", id))
	}
	code := element("code")
	if lang, ok := n.Props.GetString(vocab.Language); ok && lang != "" {
		code.Attr = append(code.Attr, attr("class", "language-"+lang))
	}
	code.AppendChild(text(n.Props.StringOr(vocab.Content, "")))
	pre.AppendChild(code)
	return pre
}

func (s *writeState) list(n ir.Node, depth int) *xhtml.Node {
	tag := "ul"
	if ordered, _ := n.Props.GetBool(vocab.Ordered); ordered {
		tag = "ol"
	}
	el := s.wrap(tag, n, depth)
	if start, ok := n.Props.GetInt(vocab.Start); ok && start != 1 && tag == "ol" {
		el.Attr = append(el.Attr, attr("start", strconv.FormatInt(start, 10)))
	}
	return el
}

func (s *writeState) listItem(n ir.Node, depth int) *xhtml.Node {
	li := s.attrs(element("li"), n)
	if checked, ok := n.Props.GetBool(vocab.Checked); ok {
		box := element("input", attr("type", "checkbox"), attr("disabled", ""))
		if checked {
			box.Attr = append(box.Attr, attr("checked", ""))
		}
		li.AppendChild(box)
		li.AppendChild(text(" "))
	}
	s.appendBlocks(li, n.Kind, n.Children, depth+1)
	return li
}

func (s *writeState) tableCell(tag string, n ir.Node, depth int) *xhtml.Node {
	cell := s.wrap(tag, n, depth)
	if colspan, ok := n.Props.GetInt(vocab.Colspan); ok && colspan > 1 {
		cell.Attr = append(cell.Attr, attr("colspan", strconv.FormatInt(colspan, 10)))
	}
	if rowspan, ok := n.Props.GetInt(vocab.Rowspan); ok && rowspan > 1 {
		cell.Attr = append(cell.Attr, attr("rowspan", strconv.FormatInt(rowspan, 10)))
	}
	if align, ok := n.Props.GetString(vocab.Align); ok && align != "" {
		cell.Attr = append(cell.Attr, attr("style", "text-align: "+align))
	}
	return cell
}

func (s *writeState) image(n ir.Node) *xhtml.Node {
	img := element("img")
	if src := s.imageSource(n); src != "" {
		img.Attr = append(img.Attr, attr("src", src))
	}
	if alt, ok := n.Props.GetString(vocab.Alt); ok {
		img.Attr = append(img.Attr, attr("alt", alt))
	}
	if title, ok := n.Props.GetString(vocab.Title); ok {
		img.Attr = append(img.Attr, attr("title", title))
	}
	return s.attrs(img, n)
}

// imageSource resolves an image to a data URI when embedding, otherwise to
// its resource reference or URL.
func (s *writeState) imageSource(n ir.Node) string {
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

func (s *writeState) raw(parent *xhtml.Node, n ir.Node) {
	format := n.Props.StringOr(vocab.Format, "")
	content := n.Props.StringOr(vocab.Content, "")
	if format != Format {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), fmt.Sprintf("raw %q content omitted from HTML output", format)))
		return
	}
	parent.AppendChild(&xhtml.Node{Type: xhtml.RawNode, Data: content})
}

func element(tag string, attrs ...xhtml.Attribute) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

func attr(key, val string) xhtml.Attribute {
	return xhtml.Attribute{Key: key, Val: val}
}

func text(s string) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.TextNode, Data: s}
}
