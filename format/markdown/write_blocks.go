package markdown

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// convertBlocks renders children as blocks separated by blank lines. Runs of
// inline nodes are rendered as paragraphs.
func (s *writeState) convertBlocks(children []ir.Node) (string, error) {
	parts, err := s.blockParts(children)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n\n") + "\n\n", nil
}

// blockParts renders each block with its trailing newlines removed.
func (s *writeState) blockParts(children []ir.Node) ([]string, error) {
	var parts []string
	for i := 0; i < len(children); {
		if isInlineKind(children[i].Kind) {
			end := i
			for end < len(children) && isInlineKind(children[end].Kind) {
				end++
			}
			paragraph, err := s.convertParagraph(ir.New(vocab.Paragraph).AppendChildren(children[i:end]...))
			if err != nil {
				return nil, err
			}
			if part := strings.TrimRight(paragraph, "\n"); part != "" {
				parts = append(parts, part)
			}
			i = end
			continue
		}

		result, err := s.convertBlock(children[i])
		if err != nil {
			return nil, err
		}
		if part := strings.TrimRight(result, "\n"); part != "" {
			parts = append(parts, part)
		}
		i++
	}
	return parts, nil
}

func (s *writeState) convertBlock(n ir.Node) (string, error) {
	switch n.Kind {
	case vocab.Document:
		return s.convertBlocks(n.Children)
	case vocab.Paragraph:
		return s.convertParagraph(n)
	case vocab.Heading:
		return s.convertHeading(n)
	case vocab.CodeBlock:
		return s.convertCodeBlock(n), nil
	case vocab.Blockquote:
		return s.convertBlockquote(n)
	case vocab.List:
		return s.convertList(n)
	case vocab.ListItem:
		return s.convertList(ir.New(vocab.List).Child(n))
	case vocab.Table:
		return s.convertTable(n)
	case vocab.HorizontalRule:
		return "---\n\n", nil
	case vocab.Div:
		if !n.Props.IsEmpty() {
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, vocab.Div, "div attributes dropped"))
		}
		return s.convertBlocks(n.Children)
	case vocab.Figure, vocab.Caption, vocab.TableHead, vocab.TableBody, vocab.TableFoot,
		vocab.TableRow, vocab.TableCell, vocab.TableHeader:
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, string(n.Kind),
			fmt.Sprintf("%s rendered as its content", n.Kind)))
		return s.convertBlocks(n.Children)
	case vocab.RawBlock:
		return s.convertRaw(n, "\n\n"), nil
	case vocab.DefinitionList:
		return s.convertDefinitionList(n)
	case vocab.DefinitionTerm, vocab.DefinitionDesc:
		return s.convertBlocks(n.Children)
	case vocab.FootnoteDef:
		return s.convertFootnoteDef(n)
	case vocab.MathDisplay:
		return "$$\n" + strings.Trim(n.Props.StringOr(vocab.Content, ""), "\n") + "\n$$\n\n", nil
	default:
		return s.unknownBlock(n)
	}
}

func (s *writeState) unknownBlock(n ir.Node) (string, error) {
	switch s.config.UnknownNodes {
	case UnknownError:
		return "", ir.NewEmitError(Format, fmt.Sprintf("unknown node kind %q", n.Kind), ir.ErrInvalidInput)
	case UnknownSkip:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMajor, string(n.Kind), "node dropped: no Markdown equivalent"))
		return "", nil
	case UnknownPlaceholder:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node replaced by a placeholder"))
		return fmt.Sprintf("[Unknown node: %s]\n\n", n.Kind), nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, string(n.Kind), "node unwrapped: no Markdown equivalent"))
		return s.convertBlocks(n.Children)
	}
}

func (s *writeState) convertParagraph(n ir.Node) (string, error) {
	content, err := s.convertInlines(n.Children)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}
	return escapeLineStarts(content) + "\n\n", nil
}

func (s *writeState) convertHeading(n ir.Node) (string, error) {
	level, ok := n.Props.GetInt(vocab.Level)
	if !ok {
		level = 1
	}
	if level < 1 || level > 6 {
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, vocab.Heading,
			fmt.Sprintf("heading level %d clamped to 1-6", level)))
		level = min(max(level, 1), 6)
	}

	content, err := s.convertInlines(n.Children)
	if err != nil {
		return "", err
	}
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\\\n", " ")), " ")

	var attrs []string
	if id, ok := n.Props.GetString(vocab.ID); ok && id != "" {
		attrs = append(attrs, "#"+id)
	}
	if classes, ok := n.Props.GetString(vocab.Classes); ok {
		for _, class := range strings.Fields(classes) {
			attrs = append(attrs, "."+class)
		}
	}
	if len(attrs) > 0 {
		content += " {" + strings.Join(attrs, " ") + "}"
	}
	return strings.Repeat("#", int(level)) + " " + content + "\n\n", nil
}

func (s *writeState) convertCodeBlock(n ir.Node) string {
	content := n.Props.StringOr(vocab.Content, "")
	language := n.Props.StringOr(vocab.Language, "")
	if mapped, ok := s.config.LanguageMap[language]; ok {
		language = mapped
	}

	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}

	var result strings.Builder
	result.WriteString(fence)
	result.WriteString(language)
	result.WriteString("\n")
	result.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		result.WriteString("\n")
	}
	result.WriteString(fence)
	result.WriteString("\n\n")
	return result.String()
}

func (s *writeState) convertBlockquote(n ir.Node) (string, error) {
	content, err := s.convertBlocks(n.Children)
	if err != nil {
		return "", err
	}
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ">\n\n", nil
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n") + "\n\n", nil
}

func (s *writeState) convertList(n ir.Node) (string, error) {
	ordered, _ := n.Props.GetBool(vocab.Ordered)
	tight, ok := n.Props.GetBool(vocab.Tight)
	if !ok {
		tight = true
	}
	number, ok := n.Props.GetInt(vocab.Start)
	if !ok {
		number = 1
	}

	var items []string
	for _, item := range n.Children {
		if item.Kind != vocab.ListItem {
			item = ir.New(vocab.ListItem).Child(item)
		}
		content, err := s.convertListItemContent(item.Children, tight)
		if err != nil {
			return "", err
		}
		if checked, ok := item.Props.GetBool(vocab.Checked); ok {
			box := "[ ] "
			if checked {
				box = "[x] "
			}
			content = box + content
		}

		marker := string(s.config.BulletMarker) + " "
		if ordered {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}
		if content == "" {
			items = append(items, strings.TrimRight(marker, " "))
			continue
		}
		items = append(items, s.indent(content, marker))
	}
	if len(items) == 0 {
		return "", nil
	}

	separator := "\n"
	if !tight {
		separator = "\n\n"
	}
	return strings.Join(items, separator) + "\n\n", nil
}

// convertListItemContent joins item blocks; a tight list keeps them on
// adjacent lines so the list stays tight when read back.
func (s *writeState) convertListItemContent(children []ir.Node, tight bool) (string, error) {
	parts, err := s.blockParts(children)
	if err != nil {
		return "", err
	}
	separator := "\n\n"
	if tight {
		separator = "\n"
	}
	return strings.Join(parts, separator), nil
}

func (s *writeState) convertDefinitionList(n ir.Node) (string, error) {
	var parts []string
	for _, child := range n.Children {
		switch child.Kind {
		case vocab.DefinitionTerm:
			term, err := s.convertInlines(child.Children)
			if err != nil {
				return "", err
			}
			parts = append(parts, escapeLineStarts(strings.TrimSpace(term)))
		case vocab.DefinitionDesc:
			content, err := s.convertBlocks(child.Children)
			if err != nil {
				return "", err
			}
			if len(parts) == 0 {
				parts = append(parts, "")
			}
			parts[len(parts)-1] += "\n" + s.indent(content, ": ")
		default:
			content, err := s.convertBlock(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, strings.TrimRight(content, "\n"))
		}
	}
	return strings.Join(parts, "\n\n") + "\n\n", nil
}

func (s *writeState) convertFootnoteDef(n ir.Node) (string, error) {
	content, err := s.convertBlocks(n.Children)
	if err != nil {
		return "", err
	}
	marker := "[^" + n.Props.StringOr(vocab.Label, "") + "]: "
	if strings.TrimSpace(content) == "" {
		return strings.TrimRight(marker, " ") + "\n\n", nil
	}
	return s.indent(content, marker) + "\n\n", nil
}

// convertRaw writes raw HTML verbatim; other raw formats are dropped.
func (s *writeState) convertRaw(n ir.Node, suffix string) string {
	format := n.Props.StringOr(vocab.Format, "")
	content := n.Props.StringOr(vocab.Content, "")
	if format != html.Format && format != Format {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind),
			fmt.Sprintf("raw %q content omitted from Markdown output", format)))
		return ""
	}
	if content == "" {
		return ""
	}
	return content + suffix
}

// indent applies uniform indentation to content within a container.
// The first line is prefixed with the marker, subsequent lines with spaces matching marker length.
func (s *writeState) indent(content, marker string) string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	indentStr := strings.Repeat(" ", len(marker))

	result := make([]string, 0, len(lines))
	for i, line := range lines {
		switch {
		case i == 0:
			result = append(result, marker+line)
		case line != "":
			result = append(result, indentStr+line)
		default:
			result = append(result, "")
		}
	}
	return strings.Join(result, "\n")
}
