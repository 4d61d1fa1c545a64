package markdown

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/util"
)

func (s *readState) convertInlineChildren(parent ast.Node) []ir.Node {
	var content []ir.Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		for _, node := range s.convertInlineNode(child) {
			content = appendInline(content, node)
		}
	}
	return content
}

func (s *readState) convertInlineNode(node ast.Node) []ir.Node {
	switch typed := node.(type) {
	case *ast.Text:
		var content []ir.Node
		if value := unescape(typed.Segment.Value(s.source), typed.IsRaw()); value != "" {
			textNode := ir.Text(value)
			if s.opts.PreserveSourceInfo {
				textNode = textNode.At(ir.Span{Start: s.offset + typed.Segment.Start, End: s.offset + typed.Segment.Stop})
			}
			content = append(content, textNode)
		}
		if typed.HardLineBreak() {
			content = append(content, ir.New(vocab.LineBreak))
		} else if typed.SoftLineBreak() {
			content = append(content, ir.New(vocab.SoftBreak))
		}
		return content

	case *ast.String:
		return []ir.Node{ir.Text(string(typed.Value))}

	case *ast.Emphasis:
		kind := ir.NodeKind(vocab.Emphasis)
		if typed.Level >= 2 {
			kind = vocab.Strong
		}
		return []ir.Node{ir.New(kind).AppendChildren(s.convertInlineChildren(typed)...)}

	case *extast.Strikethrough:
		return []ir.Node{ir.New(vocab.Strikeout).AppendChildren(s.convertInlineChildren(typed)...)}

	case *ast.CodeSpan:
		return []ir.Node{ir.New(vocab.Code).Prop(vocab.Content, s.rawText(typed))}

	case *ast.Link:
		link := ir.New(vocab.Link).Prop(vocab.URL, string(typed.Destination))
		if title := string(typed.Title); title != "" {
			link = link.Prop(vocab.Title, title)
		}
		return []ir.Node{link.AppendChildren(s.convertInlineChildren(typed)...)}

	case *ast.AutoLink:
		url := string(typed.URL(s.source))
		link := ir.New(vocab.Link).Prop(vocab.URL, url)
		return []ir.Node{link.Child(ir.Text(string(typed.Label(s.source))))}

	case *ast.Image:
		return []ir.Node{s.convertImage(typed)}

	case *ast.RawHTML:
		var raw strings.Builder
		for i := 0; i < typed.Segments.Len(); i++ {
			segment := typed.Segments.At(i)
			raw.Write(segment.Value(s.source))
		}
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, "markdown:raw_html", "inline HTML kept as raw content"))
		return []ir.Node{ir.New(vocab.RawInline).Prop(vocab.Format, html.Format).Prop(vocab.Content, raw.String())}

	case *extast.TaskCheckBox:
		return nil

	case *extast.FootnoteLink:
		label, ok := s.footnotes[typed.Index]
		if !ok {
			label = fmt.Sprint(typed.Index)
		}
		return []ir.Node{ir.New(vocab.FootnoteRef).Prop(vocab.Label, label)}

	case *extast.FootnoteBacklink:
		return nil

	default:
		if node.HasChildren() {
			return s.convertInlineChildren(node)
		}
		return s.warnUnknownInline(node)
	}
}

func (s *readState) convertImage(node *ast.Image) ir.Node {
	src := string(node.Destination)
	image := ir.New(vocab.Image)
	if alt := s.plainText(node); alt != "" {
		image = image.Prop(vocab.Alt, alt)
	}
	if title := string(node.Title); title != "" {
		image = image.Prop(vocab.Title, title)
	}

	if s.opts.EmbedResources && ir.IsDataURI(src) {
		res, err := ir.DecodeDataURI(src)
		if err != nil {
			s.warn.Add(ir.ResourceFailed(abbreviate(src), err.Error()))
			return image.Prop(vocab.URL, src)
		}
		return image.Prop(vocab.Resource, string(s.doc.Embed(res)))
	}
	return image.Prop(vocab.URL, src)
}

func (s *readState) warnUnknownInline(node ast.Node) []ir.Node {
	textValue := s.plainText(node)
	if strings.TrimSpace(textValue) == "" {
		return nil
	}
	nodeKind := node.Kind().String()
	s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, "markdown:"+nodeKind,
		fmt.Sprintf("unsupported markdown inline node: %s", nodeKind)))
	return []ir.Node{ir.Text(textValue)}
}

// plainText flattens the text below node, unescaped.
func (s *readState) plainText(node ast.Node) string {
	var sb strings.Builder
	s.writePlainText(&sb, node)
	return sb.String()
}

func (s *readState) writePlainText(sb *strings.Builder, node ast.Node) {
	switch typed := node.(type) {
	case *ast.Text:
		sb.WriteString(unescape(typed.Segment.Value(s.source), typed.IsRaw()))
		if typed.SoftLineBreak() || typed.HardLineBreak() {
			sb.WriteByte(' ')
		}
	case *ast.String:
		sb.Write(typed.Value)
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		s.writePlainText(sb, child)
	}
}

// rawText flattens code span content without unescaping.
func (s *readState) rawText(node ast.Node) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *ast.Text:
			sb.Write(typed.Segment.Value(s.source))
		case *ast.String:
			sb.Write(typed.Value)
		}
	}
	return sb.String()
}

// unescape resolves backslash escapes and character references the way a
// renderer would.
func unescape(value []byte, raw bool) string {
	if raw {
		return string(value)
	}
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	value = util.ResolveEntityNames(value)
	return string(value)
}

// appendInline appends next, merging adjacent plain text nodes.
func appendInline(content []ir.Node, next ir.Node) []ir.Node {
	if next.IsPlainText() && next.Props.StringOr(vocab.Content, "") == "" {
		return content
	}
	if len(content) == 0 {
		return append(content, next)
	}
	last := &content[len(content)-1]
	if last.IsPlainText() && next.IsPlainText() {
		merged := ir.Text(last.Props.StringOr(vocab.Content, "") + next.Props.StringOr(vocab.Content, ""))
		if last.Span != nil && next.Span != nil {
			merged = merged.At(ir.Span{Start: last.Span.Start, End: next.Span.End})
		}
		*last = merged
		return content
	}
	return append(content, next)
}

func abbreviate(ref string) string {
	if len(ref) <= 48 {
		return ref
	}
	return ref[:48] + "..."
}
