package markdown

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

var inlineKinds = map[ir.NodeKind]bool{
	vocab.Text: true, vocab.Emphasis: true, vocab.Strong: true, vocab.Strikeout: true,
	vocab.Underline: true, vocab.Subscript: true, vocab.Superscript: true, vocab.Code: true,
	vocab.Link: true, vocab.Image: true, vocab.LineBreak: true, vocab.SoftBreak: true,
	vocab.Span: true, vocab.RawInline: true, vocab.FootnoteRef: true, vocab.SmallCaps: true,
	vocab.Quoted: true, vocab.Cite: true, vocab.MathInline: true,
}

func isInlineKind(kind ir.NodeKind) bool {
	return inlineKinds[kind]
}

func (s *writeState) convertInlines(children []ir.Node) (string, error) {
	var sb strings.Builder
	for _, child := range children {
		result, err := s.convertInline(child)
		if err != nil {
			return "", err
		}
		sb.WriteString(result)
	}
	return sb.String(), nil
}

func (s *writeState) convertInline(n ir.Node) (string, error) {
	switch n.Kind {
	case vocab.Text:
		return escapeText(n.Props.StringOr(vocab.Content, "")), nil
	case vocab.Emphasis:
		return s.delimited(n, "*", "*")
	case vocab.Strong:
		return s.delimited(n, "**", "**")
	case vocab.Strikeout:
		return s.delimited(n, "~~", "~~")
	case vocab.Underline:
		switch s.config.UnderlineStyle {
		case UnderlineHTML:
			return s.delimited(n, "<u>", "</u>")
		case UnderlineBold:
			s.simplified(n, "underline rendered as bold")
			return s.delimited(n, "**", "**")
		default:
			s.simplified(n, "underline dropped")
			return s.convertInlines(n.Children)
		}
	case vocab.Subscript, vocab.Superscript:
		return s.convertSubSup(n)
	case vocab.Code:
		return codeSpan(n.Props.StringOr(vocab.Content, "")), nil
	case vocab.Link:
		return s.convertLink(n)
	case vocab.Image:
		return s.convertImage(n)
	case vocab.LineBreak:
		if s.config.HardBreakStyle == HardBreakHTML {
			return "<br>\n", nil
		}
		return "\\\n", nil
	case vocab.SoftBreak:
		return "\n", nil
	case vocab.Span, vocab.Cite:
		return s.convertInlines(n.Children)
	case vocab.SmallCaps:
		s.simplified(n, "small caps dropped")
		return s.convertInlines(n.Children)
	case vocab.Quoted:
		quote := `"`
		if n.Props.StringOr(vocab.QuoteType, "") == "single" {
			quote = "'"
		}
		return s.delimited(n, quote, quote)
	case vocab.RawInline:
		return s.convertRaw(n, ""), nil
	case vocab.FootnoteRef:
		return "[^" + n.Props.StringOr(vocab.Label, "") + "]", nil
	case vocab.MathInline:
		return "$" + n.Props.StringOr(vocab.Content, "") + "$", nil
	case vocab.Paragraph:
		return s.convertInlines(n.Children)
	default:
		if vocab.IsBlock(string(n.Kind)) {
			s.simplified(n, "block content flattened into inline context")
			return s.convertInlines(n.Children)
		}
		return s.unknownInline(n)
	}
}

func (s *writeState) unknownInline(n ir.Node) (string, error) {
	switch s.config.UnknownNodes {
	case UnknownError:
		return "", ir.NewEmitError(Format, fmt.Sprintf("unknown node kind %q", n.Kind), ir.ErrInvalidInput)
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, string(n.Kind), "node dropped: no Markdown equivalent"))
		return "", nil
	case UnknownPlaceholder:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node replaced by a placeholder"))
		return escapeText(fmt.Sprintf("[Unknown node: %s]", n.Kind)), nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no Markdown equivalent"))
		return s.convertInlines(n.Children)
	}
}

func (s *writeState) simplified(n ir.Node, message string) {
	s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), message))
}

func (s *writeState) delimited(n ir.Node, opening, closing string) (string, error) {
	content, err := s.convertInlines(n.Children)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}
	return opening + content + closing, nil
}

func (s *writeState) convertSubSup(n ir.Node) (string, error) {
	sub := n.Kind == vocab.Subscript
	switch s.config.SubSupStyle {
	case SubSupHTML:
		if sub {
			return s.delimited(n, "<sub>", "</sub>")
		}
		return s.delimited(n, "<sup>", "</sup>")
	case SubSupLaTeX:
		if sub {
			return s.delimited(n, "$_{", "}$")
		}
		return s.delimited(n, "$^{", "}$")
	default:
		s.simplified(n, "subscript/superscript dropped")
		return s.convertInlines(n.Children)
	}
}

func (s *writeState) convertLink(n ir.Node) (string, error) {
	content, err := s.convertInlines(n.Children)
	if err != nil {
		return "", err
	}
	href, ok := n.Props.GetString(vocab.URL)
	if !ok || href == "" {
		return content, nil
	}
	return "[" + content + "](" + destination(href, n.Props.StringOr(vocab.Title, "")) + ")", nil
}

func (s *writeState) convertImage(n ir.Node) (string, error) {
	src, err := s.imageSource(n)
	if err != nil {
		return "", err
	}
	alt := escapeText(n.Props.StringOr(vocab.Alt, ""))
	return "![" + alt + "](" + destination(src, n.Props.StringOr(vocab.Title, "")) + ")", nil
}

// imageSource resolves an image to a hook URL, a data URI when embedding, or
// its resource reference or URL.
func (s *writeState) imageSource(n ir.Node) (string, error) {
	id, ok := ir.ReferencedResource(n)
	if !ok {
		return n.Props.StringOr(vocab.URL, ""), nil
	}
	res, found := s.doc.Resource(id)
	if !found {
		s.warn.Add(ir.ResourceFailed(string(id), "resource not found in document"))
		return n.Props.StringOr(vocab.URL, ir.ResourceURL(id)), nil
	}

	url, handled, err := s.applyResourceHook(ResourceInput{
		ID:       id,
		Resource: res,
		Alt:      n.Props.StringOr(vocab.Alt, ""),
		Title:    n.Props.StringOr(vocab.Title, ""),
	})
	if err != nil {
		return "", err
	}
	if handled {
		return url, nil
	}
	if s.opts.EmbedResources {
		return ir.EncodeDataURI(res), nil
	}
	return ir.ResourceURL(id), nil
}

func destination(href, title string) string {
	if strings.ContainsAny(href, " ()<>") {
		href = "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(href) + ">"
	}
	if title == "" {
		return href
	}
	escapedTitle := strings.ReplaceAll(title, "\\", "\\\\")
	escapedTitle = strings.ReplaceAll(escapedTitle, "\"", "\\\"")
	return href + " \"" + escapedTitle + "\""
}

// codeSpan wraps content in enough backticks to contain it.
func codeSpan(content string) string {
	fence := "`"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	if strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") ||
		(strings.HasPrefix(content, " ") && strings.HasSuffix(content, " ") && strings.TrimSpace(content) != "") {
		return fence + " " + content + " " + fence
	}
	return fence + content + fence
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `~`, `\~`, `|`, `\|`,
)

// escapeText backslash-escapes characters that would otherwise start
// Markdown syntax.
func escapeText(text string) string {
	escaped := textEscaper.Replace(text)
	if !strings.Contains(escaped, "&") {
		return escaped
	}
	var sb strings.Builder
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c == '&' && i+1 < len(escaped) && (isASCIILetter(escaped[i+1]) || escaped[i+1] == '#') {
			sb.WriteString(`\&`)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// escapeLineStarts escapes characters that would turn a paragraph line into
// a heading, quote, list item or setext underline.
func escapeLineStarts(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		switch line[0] {
		case '#', '>', '-', '+', '=':
			lines[i] = `\` + line
			continue
		}
		digits := 0
		for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
			digits++
		}
		if digits > 0 && digits < len(line) && (line[digits] == '.' || line[digits] == ')') {
			lines[i] = line[:digits] + `\` + line[digits:]
		}
	}
	return strings.Join(lines, "\n")
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
