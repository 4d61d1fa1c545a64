package adf

import (
	"slices"
	"strconv"
	"time"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// inline converts inline content. Text marks become wrapper nodes, the
// first mark outermost; adjacent wrappers with equal properties are merged
// so "**a** **b**" style runs split across text nodes stay one strong node.
func (s *readState) inline(nodes []Node) ([]ir.Node, error) {
	var out []ir.Node
	for _, n := range nodes {
		converted, err := s.inlineNode(n)
		if err != nil {
			return nil, err
		}
		for _, c := range converted {
			out = appendMerged(out, c)
		}
	}
	return out, nil
}

func (s *readState) inlineNode(n Node) ([]ir.Node, error) {
	switch n.Type {
	case "text":
		return s.text(n)

	case "hardBreak":
		return one(ir.New(vocab.LineBreak)), nil

	case "mention":
		id := n.GetStringAttr("id", "")
		text := n.GetStringAttr("text", "@"+id)
		return one(ir.New(vocab.Span).Prop(PropMention, id).Child(ir.Text(text))), nil

	case "emoji":
		shortName := n.GetStringAttr("shortName", "")
		text := n.GetStringAttr("text", shortName)
		if text == "" {
			s.warn.Add(ir.FeatureLost(ir.SeverityMinor, "emoji", "emoji without shortName or text dropped"))
			return nil, nil
		}
		return one(ir.New(vocab.Span).Prop(PropEmoji, shortName).Child(ir.Text(text))), nil

	case "status":
		color := n.GetStringAttr("color", "neutral")
		text := n.GetStringAttr("text", "")
		return one(ir.New(vocab.Span).Prop(PropStatus, color).Child(ir.Text(text))), nil

	case "date":
		return one(s.date(n)), nil

	case "inlineCard":
		link, ok := s.card(n)
		if !ok {
			return nil, nil
		}
		return one(link), nil

	case "inlineExtension":
		return s.extension(n, false)

	case "media", "mediaInline":
		return one(s.image(n)), nil

	case "placeholder":
		s.warn.Add(ir.FeatureLost(ir.SeverityInfo, "placeholder", "editor placeholder dropped"))
		return nil, nil

	default:
		return s.unknown(n, false)
	}
}

func (s *readState) text(n Node) ([]ir.Node, error) {
	if n.Text == "" {
		return nil, nil
	}
	var wrappers []ir.Node
	code := false
	for _, mark := range n.Marks {
		wrapper, ok, err := s.mark(mark)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if wrapper.Is(vocab.Code) {
			code = true
			continue
		}
		wrappers = append(wrappers, wrapper)
	}

	node := ir.Text(n.Text)
	if code {
		node = ir.New(vocab.Code).Prop(vocab.Content, n.Text)
	}
	for i := len(wrappers) - 1; i >= 0; i-- {
		node = wrappers[i].Child(node)
	}
	return one(node), nil
}

// mark returns the wrapper node a text mark stands for. ok is false for
// marks that are dropped.
func (s *readState) mark(m Mark) (ir.Node, bool, error) {
	switch m.Type {
	case "strong":
		return ir.New(vocab.Strong), true, nil
	case "em":
		return ir.New(vocab.Emphasis), true, nil
	case "strike":
		return ir.New(vocab.Strikeout), true, nil
	case "underline":
		return ir.New(vocab.Underline), true, nil
	case "code":
		return ir.New(vocab.Code), true, nil
	case "link":
		href := m.GetStringAttr("href", "")
		if href == "" {
			s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, "link", "link mark without href dropped"))
			return ir.Node{}, false, nil
		}
		link := ir.New(vocab.Link).Prop(vocab.URL, href)
		if title := m.GetStringAttr("title", ""); title != "" {
			link = link.Prop(vocab.Title, title)
		}
		return link, true, nil
	case "subsup":
		if m.GetStringAttr("type", "") == "sub" {
			return ir.New(vocab.Subscript), true, nil
		}
		return ir.New(vocab.Superscript), true, nil
	case "textColor":
		return ir.New(vocab.Span).Prop(vocab.StyleColor, m.GetStringAttr("color", "")), true, nil
	case "backgroundColor":
		return ir.New(vocab.Span).Prop(vocab.StyleBgColor, m.GetStringAttr("color", "")), true, nil
	default:
		if s.config.UnknownMarks == UnknownError {
			return ir.Node{}, false, ir.InvalidInput(Format, "unknown mark type %q", m.Type)
		}
		s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, vocab.ADFPrefix+m.Type, "unknown mark dropped"))
		return ir.Node{}, false, nil
	}
}

// date renders a date node. Timestamps above 1e10 are taken as
// milliseconds, the rest as seconds.
func (s *readState) date(n Node) ir.Node {
	raw := n.GetStringAttr("timestamp", "")
	span := ir.New(vocab.Span).Prop(PropDate, raw)
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, "timestamp", "date node has an invalid timestamp"))
		return span.Child(ir.Text(raw))
	}
	if ts > 10_000_000_000 {
		ts /= 1000
	}
	return span.Child(ir.Text(time.Unix(ts, 0).UTC().Format(s.config.DateFormat)))
}

// appendMerged appends n to out, merging it into the last node when both are
// the same kind of wrapper with equal properties.
func appendMerged(out []ir.Node, n ir.Node) []ir.Node {
	last := len(out) - 1
	if last < 0 || !mergeable(out[last], n) {
		return append(out, n)
	}
	merged := out[last]
	merged.Children = slices.Clone(merged.Children)
	for _, child := range n.Children {
		merged.Children = appendMerged(merged.Children, child)
	}
	out[last] = merged
	return out
}

func mergeable(a, b ir.Node) bool {
	if a.Kind != b.Kind || !a.Props.Equal(b.Props) {
		return false
	}
	switch a.Kind {
	case vocab.Strong, vocab.Emphasis, vocab.Strikeout, vocab.Underline,
		vocab.Subscript, vocab.Superscript, vocab.Link, vocab.Span:
		// Spans standing in for ADF inline nodes are atoms.
		return !a.Props.Has(PropMention) && !a.Props.Has(PropEmoji) &&
			!a.Props.Has(PropStatus) && !a.Props.Has(PropDate)
	}
	return false
}
