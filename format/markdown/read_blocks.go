package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

func (s *readState) convertBlockChildren(parent ast.Node) []ir.Node {
	var content []ir.Node
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		content = append(content, s.convertBlockNode(child)...)
	}
	return content
}

func (s *readState) convertBlockNode(node ast.Node) []ir.Node {
	switch typed := node.(type) {
	case *ast.Paragraph:
		return s.one(s.convertParagraph(typed), typed)
	case *ast.TextBlock:
		return s.one(s.convertParagraph(typed), typed)
	case *ast.Heading:
		return s.one(s.convertHeading(typed), typed)
	case *ast.ThematicBreak:
		return []ir.Node{ir.New(vocab.HorizontalRule)}
	case *ast.Blockquote:
		return []ir.Node{ir.New(vocab.Blockquote).AppendChildren(s.convertBlockChildren(typed)...)}
	case *ast.FencedCodeBlock:
		return s.one(s.convertFencedCodeBlock(typed), typed)
	case *ast.CodeBlock:
		code := ir.New(vocab.CodeBlock).Prop(vocab.Content, s.linesText(typed))
		return s.one(code, typed)
	case *ast.List:
		return []ir.Node{s.convertList(typed)}
	case *ast.ListItem:
		return []ir.Node{s.convertListItem(typed)}
	case *ast.HTMLBlock:
		return s.convertHTMLBlock(typed)
	case *extast.Table:
		return []ir.Node{s.convertTable(typed)}
	case *extast.DefinitionList:
		return []ir.Node{ir.New(vocab.DefinitionList).AppendChildren(s.convertBlockChildren(typed)...)}
	case *extast.DefinitionTerm:
		return []ir.Node{ir.New(vocab.DefinitionTerm).AppendChildren(s.convertInlineChildren(typed)...)}
	case *extast.DefinitionDescription:
		return []ir.Node{ir.New(vocab.DefinitionDesc).AppendChildren(s.convertBlockChildren(typed)...)}
	case *extast.FootnoteList:
		return s.convertBlockChildren(typed)
	case *extast.Footnote:
		def := ir.New(vocab.FootnoteDef).Prop(vocab.Label, string(typed.Ref))
		return []ir.Node{def.AppendChildren(s.convertBlockChildren(typed)...)}
	default:
		nodeKind := typed.Kind().String()
		textValue := strings.TrimSpace(s.plainText(node))
		if textValue == "" {
			return nil
		}
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, "markdown:"+nodeKind,
			fmt.Sprintf("unsupported markdown block node: %s", nodeKind)))
		return []ir.Node{ir.New(vocab.Paragraph).Child(ir.Text(textValue))}
	}
}

func (s *readState) one(n ir.Node, node ast.Node) []ir.Node {
	return []ir.Node{s.at(n, s.span(node))}
}

func (s *readState) convertParagraph(node ast.Node) ir.Node {
	return ir.New(vocab.Paragraph).AppendChildren(s.convertInlineChildren(node)...)
}

func (s *readState) convertHeading(node *ast.Heading) ir.Node {
	heading := ir.New(vocab.Heading).Prop(vocab.Level, node.Level)
	if id, ok := node.AttributeString("id"); ok {
		if value, ok := id.([]byte); ok && len(value) > 0 {
			heading = heading.Prop(vocab.ID, string(value))
		}
	}
	if class, ok := node.AttributeString("class"); ok {
		if value, ok := class.([]byte); ok && len(value) > 0 {
			heading = heading.Prop(vocab.Classes, string(value))
		}
	}
	return heading.AppendChildren(s.convertInlineChildren(node)...)
}

func (s *readState) convertFencedCodeBlock(node *ast.FencedCodeBlock) ir.Node {
	code := ir.New(vocab.CodeBlock)
	if language := strings.TrimSpace(string(node.Language(s.source))); language != "" {
		if mapped, ok := s.config.LanguageMap[language]; ok {
			language = mapped
		}
		code = code.Prop(vocab.Language, language)
	}
	return code.Prop(vocab.Content, s.linesText(node))
}

// linesText joins the raw lines of a leaf block.
func (s *readState) linesText(node ast.Node) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(s.source))
	}
	return buf.String()
}

func (s *readState) convertList(node *ast.List) ir.Node {
	list := ir.New(vocab.List).Prop(vocab.Ordered, node.IsOrdered()).Prop(vocab.Tight, node.IsTight)
	if node.IsOrdered() && node.Start != 1 {
		list = list.Prop(vocab.Start, node.Start)
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		list = list.AppendChildren(s.convertBlockNode(child)...)
	}
	return list
}

func (s *readState) convertListItem(node *ast.ListItem) ir.Node {
	item := ir.New(vocab.ListItem)
	if checkbox, ok := taskCheckBox(node); ok {
		item = item.Prop(vocab.Checked, checkbox.IsChecked)
	}
	return item.AppendChildren(s.convertBlockChildren(node)...)
}

// taskCheckBox returns the GFM checkbox that opens a list item, if any.
func taskCheckBox(item *ast.ListItem) (*extast.TaskCheckBox, bool) {
	container := item.FirstChild()
	if container == nil {
		return nil, false
	}
	switch container.(type) {
	case *ast.TextBlock, *ast.Paragraph:
		checkbox, ok := container.FirstChild().(*extast.TaskCheckBox)
		return checkbox, ok
	default:
		return nil, false
	}
}

// convertHTMLBlock sub-parses a raw HTML block with the HTML reader. Its
// warnings and resources become part of this document.
func (s *readState) convertHTMLBlock(node *ast.HTMLBlock) []ir.Node {
	raw := s.linesText(node)
	if node.HasClosure() {
		raw += string(node.ClosureLine.Value(s.source))
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	result, err := s.html.Parse([]byte(raw), ir.ParseOptions{EmbedResources: s.opts.EmbedResources})
	if err != nil {
		s.warn.Minor(ir.WarningFeatureLost, "markdown:html_block", "HTML block kept as raw content: %v", err)
		return s.one(ir.New(vocab.RawBlock).Prop(vocab.Format, html.Format).Prop(vocab.Content, raw), node)
	}
	sub := ir.Absorb(&s.warn, result)
	for id, res := range sub.Resources.All() {
		s.doc.Resources.Put(id, res)
	}

	children := sub.Content.Children
	allInline := len(children) > 0
	for _, child := range children {
		if vocab.IsBlock(string(child.Kind)) {
			allInline = false
			break
		}
	}
	if allInline {
		return s.one(ir.New(vocab.Paragraph).AppendChildren(children...), node)
	}
	return children
}

func (s *readState) convertTable(node *extast.Table) ir.Node {
	table := ir.New(vocab.Table)
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		cellKind := ir.NodeKind(vocab.TableCell)
		if _, ok := row.(*extast.TableHeader); ok {
			cellKind = vocab.TableHeader
		}
		tableRow := ir.New(vocab.TableRow)
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tableCell, ok := cell.(*extast.TableCell)
			if !ok {
				continue
			}
			converted := ir.New(cellKind).AppendChildren(s.convertInlineChildren(tableCell)...)
			if tableCell.Alignment != extast.AlignNone {
				converted = converted.Prop(vocab.Align, tableCell.Alignment.String())
			}
			tableRow = tableRow.Child(converted)
		}
		table = table.Child(tableRow)
	}
	return table
}
