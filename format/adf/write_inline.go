package adf

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// inlines flattens inline wrappers into ADF text nodes carrying the marks of
// every enclosing wrapper, outermost first.
func (s *writeState) inlines(nodes []ir.Node, marks []Mark) ([]Node, error) {
	var out []Node
	for _, n := range nodes {
		converted, err := s.inline(n, marks)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	return out, nil
}

func withMark(marks []Mark, m Mark) []Mark {
	for _, existing := range marks {
		if existing.Type == m.Type {
			return marks
		}
	}
	return append(slices.Clip(marks), m)
}

func textNode(text string, marks []Mark) []Node {
	if text == "" {
		return nil
	}
	return []Node{{Type: "text", Text: text, Marks: slices.Clone(marks)}}
}

func (s *writeState) inline(n ir.Node, marks []Mark) ([]Node, error) {
	switch n.Kind {
	case vocab.Text:
		return textNode(n.Props.StringOr(vocab.Content, ""), marks), nil

	case vocab.Strong:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "strong"}))
	case vocab.Emphasis:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "em"}))
	case vocab.Strikeout:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "strike"}))
	case vocab.Underline:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "underline"}))
	case vocab.Subscript:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "subsup", Attrs: map[string]any{"type": "sub"}}))
	case vocab.Superscript:
		return s.inlines(n.Children, withMark(marks, Mark{Type: "subsup", Attrs: map[string]any{"type": "sup"}}))

	case vocab.Code:
		return textNode(n.Props.StringOr(vocab.Content, ""), s.codeMarks(marks)), nil

	case vocab.Link:
		link := Mark{Type: "link", Attrs: map[string]any{"href": s.linkURL(n)}}
		if title := n.Props.StringOr(vocab.Title, ""); title != "" {
			link.Attrs["title"] = title
		}
		return s.inlines(n.Children, withMark(marks, link))

	case vocab.Span:
		return s.span(n, marks)

	case vocab.LineBreak:
		return []Node{{Type: "hardBreak"}}, nil
	case vocab.SoftBreak:
		return textNode(" ", marks), nil

	case vocab.Image:
		// ADF only allows external media at block level.
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "inline image written as a link"))
		url := s.imageURL(n)
		text := n.Props.StringOr(vocab.Alt, url)
		if url == "" {
			return textNode(text, marks), nil
		}
		return textNode(text, withMark(marks, Mark{Type: "link", Attrs: map[string]any{"href": url}})), nil

	case vocab.RawInline:
		format := n.Props.StringOr(vocab.Format, "")
		content := n.Props.StringOr(vocab.Content, "")
		if format == Format {
			var node Node
			if err := json.Unmarshal([]byte(content), &node); err == nil && node.Type != "" {
				return []Node{node}, nil
			}
		}
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), fmt.Sprintf("raw %q content written as code", format)))
		return textNode(content, s.codeMarks(marks)), nil

	case vocab.MathInline:
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "inline math written as code"))
		return textNode(n.Props.StringOr(vocab.Content, ""), s.codeMarks(marks)), nil

	case vocab.FootnoteRef:
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), "footnote reference written as a superscript label"))
		label := n.Props.StringOr(vocab.Label, "*")
		return textNode(label, withMark(marks, Mark{Type: "subsup", Attrs: map[string]any{"type": "sup"}})), nil

	case vocab.Quoted:
		open, closing := "“", "”"
		if n.Props.StringOr(vocab.QuoteType, "") == "single" {
			open, closing = "‘", "’"
		}
		content, err := s.inlines(n.Children, marks)
		if err != nil {
			return nil, err
		}
		out := textNode(open, marks)
		out = append(out, content...)
		return append(out, textNode(closing, marks)...), nil

	case vocab.SmallCaps, vocab.Cite:
		s.warn.Add(ir.NewWarning(ir.SeverityInfo, ir.WarningSimplified, string(n.Kind), "styling dropped"))
		return s.inlines(n.Children, marks)

	default:
		if vocab.IsBlock(string(n.Kind)) {
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind), "block inside inline content flattened to text"))
			return textNode(n.TextContent(), marks), nil
		}
		return s.unknownInline(n, marks)
	}
}

// codeMarks keeps only link marks, the one mark ADF combines with code.
func (s *writeState) codeMarks(marks []Mark) []Mark {
	out := []Mark{}
	for _, m := range marks {
		if m.Type == "link" {
			out = append(out, m)
		} else {
			s.warn.Add(ir.FeatureLost(ir.SeverityMinor, m.Type, "mark cannot be combined with code"))
		}
	}
	return append(out, Mark{Type: "code"})
}

func (s *writeState) linkURL(n ir.Node) string {
	if _, ok := ir.ReferencedResource(n); ok {
		return s.imageURL(n)
	}
	return n.Props.StringOr(vocab.URL, "")
}

func (s *writeState) span(n ir.Node, marks []Mark) ([]Node, error) {
	text := n.TextContent()
	switch {
	case n.Props.Has(PropMention):
		return []Node{{Type: "mention", Attrs: map[string]any{
			"id":   n.Props.StringOr(PropMention, ""),
			"text": text,
		}}}, nil
	case n.Props.Has(PropEmoji):
		attrs := map[string]any{"text": text}
		if shortName := n.Props.StringOr(PropEmoji, ""); shortName != "" {
			attrs["shortName"] = shortName
		} else {
			attrs["shortName"] = text
		}
		return []Node{{Type: "emoji", Attrs: attrs}}, nil
	case n.Props.Has(PropStatus):
		return []Node{{Type: "status", Attrs: map[string]any{
			"text":    text,
			"color":   n.Props.StringOr(PropStatus, "neutral"),
			"localId": newLocalID(),
		}}}, nil
	case n.Props.Has(PropDate):
		return []Node{{Type: "date", Attrs: map[string]any{
			"timestamp": n.Props.StringOr(PropDate, ""),
		}}}, nil
	}

	if color := n.Props.StringOr(vocab.StyleColor, ""); color != "" {
		marks = withMark(marks, Mark{Type: "textColor", Attrs: map[string]any{"color": color}})
	}
	if bg := n.Props.StringOr(vocab.StyleBgColor, ""); bg != "" {
		marks = withMark(marks, Mark{Type: "backgroundColor", Attrs: map[string]any{"color": bg}})
	}
	return s.inlines(n.Children, marks)
}

func (s *writeState) unknownInline(n ir.Node, marks []Mark) ([]Node, error) {
	switch s.config.UnknownNodes {
	case UnknownError:
		return nil, ir.NewEmitError(Format, fmt.Sprintf("unknown node kind %q", n.Kind), ir.ErrInvalidInput)
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, string(n.Kind), "node dropped: no ADF equivalent"))
		return nil, nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no ADF equivalent"))
		if content, ok := n.Props.GetString(vocab.Content); ok && len(n.Children) == 0 {
			return textNode(content, marks), nil
		}
		return s.inlines(n.Children, marks)
	}
}
