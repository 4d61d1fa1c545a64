package html

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/stream"
	"github.com/rgonek/rescribe/vocab"
	xhtml "golang.org/x/net/html"
)

// checkboxKind marks an <input type="checkbox"> directly inside an <li> until
// the list item absorbs it.
const checkboxKind = "html:checkbox"

// Reader parses HTML into the IR. It is safe for concurrent use.
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

// readState holds per-call state so Parse stays safe for concurrent use.
type readState struct {
	config  Config
	opts    ir.ParseOptions
	doc     *ir.Document
	builder *stream.Builder
	source  ir.Properties
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if i := invalidUTF8(input); i >= 0 {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "invalid UTF-8 at byte %d", i)
	}

	s := &readState{config: r.config, opts: opts, doc: ir.NewDocument()}
	s.builder = stream.NewBuilder(s.mapElement, stream.Options{
		FoldCase:      true,
		PreserveSpans: opts.PreserveSourceInfo,
		Recovery:      r.config.Recovery,
		Lookahead:     r.config.Lookahead,
		ReportRepairs: r.config.ReportRepairs,
	})

	if err := s.tokenize(input); err != nil {
		return ir.Result[*ir.Document]{}, err
	}

	built := s.builder.Finish()
	s.doc.Content = s.doc.Content.AppendChildren(dropBlankText(built.Value, true)...)
	if opts.PreserveSourceInfo {
		s.doc.Content = s.doc.Content.At(ir.Span{Start: 0, End: len(input)})
		s.doc.Source = &ir.SourceInfo{Format: Format, Metadata: s.source}
	}
	return ir.WithWarnings(s.doc, built.Warnings), nil
}

func (s *readState) tokenize(input []byte) error {
	z := xhtml.NewTokenizer(bytes.NewReader(input))
	offset := 0
	for {
		tt := z.Next()
		size := len(z.Raw())
		span := &ir.Span{Start: offset, End: offset + size}
		offset += size

		switch tt {
		case xhtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return ir.NewParseError(Format, "failed to tokenize HTML", z.Err())
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tag, attrs := readTag(z)
			s.start(tag, attrs, span, tt == xhtml.SelfClosingTagToken || voidElements[tag])
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			s.builder.EndAt(tag, span)
		case xhtml.TextToken:
			text := string(z.Text())
			if !s.preformatted() {
				text = collapseSpace(text)
			}
			s.builder.TextAt(text, span)
		case xhtml.DoctypeToken:
			s.source.Set("html:doctype", ir.String(string(z.Text())))
		case xhtml.CommentToken:
		}
	}
}

func readTag(z *xhtml.Tokenizer) (string, stream.Attrs) {
	name, hasAttr := z.TagName()
	tag := string(name)
	var attrs stream.Attrs
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		attrs = append(attrs, stream.Attr{Key: string(key), Value: string(val)})
	}
	return tag, attrs
}

// start applies the implied end tag rules before opening tag.
func (s *readState) start(tag string, attrs stream.Attrs, span *ir.Span, void bool) {
	if closers, ok := impliedEnd[tag]; ok {
		for slices.Contains(closers, s.builder.Current()) {
			s.builder.End(s.builder.Current())
		}
	}
	if closesParagraph(tag) && s.builder.Current() == "p" {
		s.builder.End("p")
	}
	if void {
		s.builder.EmptyAt(tag, attrs, span)
		return
	}
	s.builder.StartAt(tag, attrs, span)
}

func (s *readState) preformatted() bool {
	for _, tag := range s.builder.Open() {
		if preformatted[tag] {
			return true
		}
	}
	return false
}

func (s *readState) mapElement(el stream.Element, warn *ir.Collector) stream.Output {
	switch el.Tag {
	case "html":
		if lang, ok := el.Attr("lang"); ok {
			s.doc.Metadata.Set("html:lang", ir.String(lang))
		}
		return stream.Passthrough()
	case "body":
		return stream.Passthrough()
	case "head", "link", "base", "wbr":
		return stream.Drop()
	case "title":
		if title := strings.TrimSpace(el.TextContent()); title != "" {
			s.doc.Metadata.Set(vocab.Title, ir.String(title))
		}
		return stream.Drop()
	case "meta":
		s.meta(el)
		return stream.Drop()
	case "script", "style", "template":
		if strings.TrimSpace(el.TextContent()) != "" {
			warn.Add(s.at(ir.FeatureLost(ir.SeverityMinor, "html:"+el.Tag, fmt.Sprintf("<%s> content dropped", el.Tag)), el))
		}
		return stream.Drop()

	case "p":
		return s.container(vocab.Paragraph, el, false)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(el.Tag[1:])
		return stream.Emit(commonAttrs(ir.New(vocab.Heading).Prop(vocab.Level, level), el).AppendChildren(el.Children...))
	case "pre":
		return stream.Emit(s.codeBlock(el))
	case "blockquote":
		return s.container(vocab.Blockquote, el, true)
	case "ul":
		return stream.Emit(commonAttrs(ir.New(vocab.List).Prop(vocab.Ordered, false), el).AppendChildren(dropBlankText(el.Children, true)...))
	case "ol":
		list := ir.New(vocab.List).Prop(vocab.Ordered, true)
		if start, err := strconv.Atoi(el.Attrs.GetOr("start", "")); err == nil {
			list = list.Prop(vocab.Start, start)
		}
		return stream.Emit(commonAttrs(list, el).AppendChildren(dropBlankText(el.Children, true)...))
	case "li":
		return stream.Emit(listItem(el))
	case "dl":
		return s.container(vocab.DefinitionList, el, true)
	case "dt":
		return s.container(vocab.DefinitionTerm, el, false)
	case "dd":
		return s.container(vocab.DefinitionDesc, el, true)
	case "table":
		return s.container(vocab.Table, el, true)
	case "thead":
		return s.container(vocab.TableHead, el, true)
	case "tbody":
		return s.container(vocab.TableBody, el, true)
	case "tfoot":
		return s.container(vocab.TableFoot, el, true)
	case "tr":
		return s.container(vocab.TableRow, el, true)
	case "td":
		return stream.Emit(tableCell(vocab.TableCell, el))
	case "th":
		return stream.Emit(tableCell(vocab.TableHeader, el))
	case "caption", "figcaption":
		return s.container(vocab.Caption, el, false)
	case "figure":
		return s.container(vocab.Figure, el, true)
	case "hr":
		return stream.Emit(commonAttrs(ir.New(vocab.HorizontalRule), el))
	case "div":
		return stream.Emit(s.div(el))
	case "section", "article", "main", "aside", "nav", "header", "footer":
		return stream.Emit(s.div(el).Prop("html:tag", el.Tag))

	case "em", "i":
		return s.container(vocab.Emphasis, el, false)
	case "strong", "b":
		return s.container(vocab.Strong, el, false)
	case "s", "strike", "del":
		return s.container(vocab.Strikeout, el, false)
	case "u", "ins":
		return s.container(vocab.Underline, el, false)
	case "sub":
		return s.container(vocab.Subscript, el, false)
	case "sup":
		return s.container(vocab.Superscript, el, false)
	case "small":
		return s.container(vocab.SmallCaps, el, false)
	case "cite":
		return s.container(vocab.Cite, el, false)
	case "q":
		return stream.Emit(commonAttrs(ir.New(vocab.Quoted).Prop(vocab.QuoteType, "double"), el).AppendChildren(el.Children...))
	case "code", "kbd", "samp", "tt":
		code := ir.New(vocab.Code).Prop(vocab.Content, el.TextContent())
		if el.Tag != "code" {
			code = code.Prop("html:tag", el.Tag)
		}
		return stream.Emit(commonAttrs(code, el))
	case "a":
		return stream.Emit(link(el))
	case "img":
		return stream.Emit(s.image(el, warn))
	case "br":
		return stream.Emit(ir.New(vocab.LineBreak))
	case "span":
		return stream.Emit(span(el))
	case "input":
		if el.Parent() == "li" && strings.EqualFold(el.Attrs.GetOr("type", ""), "checkbox") {
			_, checked := el.Attr("checked")
			return stream.Emit(ir.New(checkboxKind).Prop(vocab.Checked, checked))
		}
	}

	return s.unknown(el, warn)
}

// unknown maps an unrecognized element to a div or span by the block-element
// heuristic and records exactly one warning for it.
func (s *readState) unknown(el stream.Element, warn *ir.Collector) stream.Output {
	warn.Add(s.at(ir.UnsupportedNode(ir.SeverityMinor, "html:"+el.Tag, "Unknown HTML element: "+el.Tag), el))

	kind := ir.NodeKind(vocab.Span)
	children := el.Children
	if IsBlockElement(el.Tag) {
		kind = vocab.Div
		children = dropBlankText(children, false)
	}
	n := extraAttrs(commonAttrs(ir.New(kind).Prop("html:tag", el.Tag), el), el)
	return stream.Emit(n.AppendChildren(children...))
}

func (s *readState) at(w ir.Warning, el stream.Element) ir.Warning {
	if el.Span != nil {
		return w.At(*el.Span)
	}
	return w
}

func (s *readState) container(kind ir.NodeKind, el stream.Element, block bool) stream.Output {
	children := el.Children
	if block {
		children = dropBlankText(children, false)
	}
	return stream.Emit(commonAttrs(ir.New(kind), el).AppendChildren(children...))
}

func (s *readState) div(el stream.Element) ir.Node {
	classes := el.Attrs.GetOr("class", "")
	if hasClass(classes, "math") && hasClass(classes, "display") {
		return ir.New(vocab.MathDisplay).Prop(vocab.Content, stripMathDelimiters(el.TextContent()))
	}
	n := extraAttrs(commonAttrs(ir.New(vocab.Div), el), el)
	return n.AppendChildren(dropBlankText(el.Children, false)...)
}

func (s *readState) codeBlock(el stream.Element) ir.Node {
	content := strings.TrimPrefix(el.TextContent(), "\n")
	block := ir.New(vocab.CodeBlock).Prop(vocab.Content, content)
	for _, child := range el.Children {
		if !child.Is(vocab.Code) {
			continue
		}
		if lang := languageFromClasses(child.Props.StringOr(vocab.Classes, "")); lang != "" {
			block = block.Prop(vocab.Language, lang)
		}
		break
	}
	if !block.Props.Has(vocab.Language) {
		if lang := languageFromClasses(el.Attrs.GetOr("class", "")); lang != "" {
			block = block.Prop(vocab.Language, lang)
		}
	}
	if id, ok := el.Attr("id"); ok {
		block = block.Prop(vocab.ID, id)
	}
	return block
}

func (s *readState) image(el stream.Element, warn *ir.Collector) ir.Node {
	img := ir.New(vocab.Image)
	if src := el.Attrs.GetOr("src", ""); src != "" {
		img = s.embed(img, src, el, warn)
	}
	if alt, ok := el.Attr("alt"); ok {
		img = img.Prop(vocab.Alt, alt)
	}
	if title, ok := el.Attr("title"); ok {
		img = img.Prop(vocab.Title, title)
	}
	return commonAttrs(img, el)
}

// embed stores a data URI as a document resource when embedding is enabled.
// A payload that fails to decode is kept as a URL with a Major warning.
func (s *readState) embed(img ir.Node, src string, el stream.Element, warn *ir.Collector) ir.Node {
	if !s.opts.EmbedResources || !ir.IsDataURI(src) {
		return img.Prop(vocab.URL, src)
	}
	res, err := ir.DecodeDataURI(src)
	if err != nil {
		warn.Add(s.at(ir.ResourceFailed(abbreviate(src), err.Error()), el))
		return img.Prop(vocab.URL, src)
	}
	id := s.doc.Embed(res)
	return img.Prop(vocab.Resource, string(id))
}

func (s *readState) meta(el stream.Element) {
	if charset, ok := el.Attr("charset"); ok {
		s.source.Set("html:charset", ir.String(charset))
		return
	}
	name := el.Attrs.GetOr("name", el.Attrs.GetOr("property", ""))
	content, ok := el.Attr("content")
	if name == "" || !ok {
		return
	}
	switch strings.ToLower(name) {
	case "author", "description", "keywords", "date":
		s.doc.Metadata.Set(strings.ToLower(name), ir.String(content))
	default:
		s.doc.Metadata.Set("html:meta:"+name, ir.String(content))
	}
}

func listItem(el stream.Element) ir.Node {
	item := commonAttrs(ir.New(vocab.ListItem), el)
	children := dropBlankText(el.Children, false)
	if len(children) > 0 && children[0].Is(checkboxKind) {
		checked, _ := children[0].Props.GetBool(vocab.Checked)
		item = item.Prop(vocab.Checked, checked)
		children = trimLeadingSpace(children[1:])
	}
	if slices.ContainsFunc(children, func(n ir.Node) bool { return n.Is(checkboxKind) }) {
		children = slices.Clone(children)
		for i, child := range children {
			if child.Is(checkboxKind) {
				checked, _ := child.Props.GetBool(vocab.Checked)
				children[i] = ir.New(vocab.Span).Prop("html:tag", "input").Prop(vocab.Checked, checked)
			}
		}
	}
	return item.AppendChildren(children...)
}

func tableCell(kind ir.NodeKind, el stream.Element) ir.Node {
	cell := commonAttrs(ir.New(kind), el)
	if n, err := strconv.Atoi(el.Attrs.GetOr("colspan", "")); err == nil && n > 1 {
		cell = cell.Prop(vocab.Colspan, n)
	}
	if n, err := strconv.Atoi(el.Attrs.GetOr("rowspan", "")); err == nil && n > 1 {
		cell = cell.Prop(vocab.Rowspan, n)
	}
	if align := cellAlign(el); align != "" {
		cell = cell.Prop(vocab.Align, align)
	}
	return cell.AppendChildren(dropBlankText(el.Children, false)...)
}

func cellAlign(el stream.Element) string {
	if align, ok := el.Attr("align"); ok {
		return strings.ToLower(align)
	}
	style := strings.ToLower(el.Attrs.GetOr("style", ""))
	for _, decl := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(key) == "text-align" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func link(el stream.Element) ir.Node {
	a := ir.New(vocab.Link)
	if href, ok := el.Attr("href"); ok {
		a = a.Prop(vocab.URL, href)
	}
	if title, ok := el.Attr("title"); ok {
		a = a.Prop(vocab.Title, title)
	}
	return commonAttrs(a, el).AppendChildren(el.Children...)
}

func span(el stream.Element) ir.Node {
	classes := el.Attrs.GetOr("class", "")
	if hasClass(classes, "math") && hasClass(classes, "inline") {
		return ir.New(vocab.MathInline).Prop(vocab.Content, stripMathDelimiters(el.TextContent()))
	}
	return extraAttrs(commonAttrs(ir.New(vocab.Span), el), el).AppendChildren(el.Children...)
}

// commonAttrs copies id and class onto n.
func commonAttrs(n ir.Node, el stream.Element) ir.Node {
	if id, ok := el.Attr("id"); ok && id != "" {
		n = n.Prop(vocab.ID, id)
	}
	if class, ok := el.Attr("class"); ok && class != "" {
		n = n.Prop(vocab.Classes, class)
	}
	return n
}

// extraAttrs keeps every other attribute under the html: namespace.
func extraAttrs(n ir.Node, el stream.Element) ir.Node {
	for _, attr := range el.Attrs {
		if attr.Key == "id" || attr.Key == "class" {
			continue
		}
		n = n.Prop(vocab.HTMLPrefix+attr.Key, attr.Value)
	}
	return n
}

// dropBlankText removes whitespace-only text nodes between blocks. With
// always set they are removed even when no block sibling is present.
func dropBlankText(nodes []ir.Node, always bool) []ir.Node {
	if !always && !slices.ContainsFunc(nodes, func(n ir.Node) bool { return vocab.IsBlock(string(n.Kind)) }) {
		return nodes
	}
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsPlainText() && strings.TrimSpace(n.TextContent()) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func trimLeadingSpace(nodes []ir.Node) []ir.Node {
	if len(nodes) == 0 || !nodes[0].IsPlainText() {
		return nodes
	}
	trimmed := strings.TrimLeft(nodes[0].TextContent(), " ")
	if trimmed == "" {
		return nodes[1:]
	}
	out := append([]ir.Node{ir.Text(trimmed)}, nodes[1:]...)
	if nodes[0].Span != nil {
		out[0] = out[0].At(*nodes[0].Span)
	}
	return out
}

func collapseSpace(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	space := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

func hasClass(classes, name string) bool {
	return slices.Contains(strings.Fields(classes), name)
}

func languageFromClasses(classes string) string {
	for _, class := range strings.Fields(classes) {
		if lang, ok := strings.CutPrefix(class, "language-"); ok {
			return lang
		}
		if lang, ok := strings.CutPrefix(class, "lang-"); ok {
			return lang
		}
	}
	return ""
}

func stripMathDelimiters(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`\(`, `\)`}, {`\[`, `\]`}, {"$$", "$$"}, {"$", "$"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) >= len(pair[0])+len(pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

func abbreviate(s string) string {
	const limit = 48
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func invalidUTF8(input []byte) int {
	if utf8.Valid(input) {
		return -1
	}
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
