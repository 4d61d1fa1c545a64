package markdown

import (
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// convertTable converts a table node to a GFM pipe table. Cells are flattened
// to inline content; spans and captions cannot be represented.
func (s *writeState) convertTable(n ir.Node) (string, error) {
	var rows []ir.Node
	var captions []ir.Node
	for _, child := range n.Children {
		switch child.Kind {
		case vocab.TableHead, vocab.TableBody, vocab.TableFoot:
			rows = append(rows, child.Children...)
		case vocab.Caption:
			captions = append(captions, child)
		default:
			rows = append(rows, child)
		}
	}
	if len(rows) == 0 {
		return "", nil
	}

	var cells [][]string
	var aligns []string
	hasHeader := isHeaderRow(rows[0])
	for _, row := range rows {
		var line []string
		for col, cell := range row.Children {
			content, err := s.convertCellContent(cell)
			if err != nil {
				return "", err
			}
			line = append(line, content)
			if col >= len(aligns) {
				aligns = append(aligns, "")
			}
			if aligns[col] == "" {
				aligns[col] = cell.Props.StringOr(vocab.Align, "")
			}
		}
		cells = append(cells, line)
	}

	colCount := 0
	for _, line := range cells {
		colCount = max(colCount, len(line))
	}
	if colCount == 0 {
		return "", nil
	}

	var headerRow []string
	dataRows := cells
	if hasHeader {
		headerRow = cells[0]
		dataRows = cells[1:]
	}

	var sb strings.Builder
	writeRow(&sb, headerRow, colCount)
	sb.WriteString("|")
	for i := 0; i < colCount; i++ {
		align := ""
		if i < len(aligns) {
			align = aligns[i]
		}
		switch align {
		case "left":
			sb.WriteString(" :--- |")
		case "right":
			sb.WriteString(" ---: |")
		case "center":
			sb.WriteString(" :---: |")
		default:
			sb.WriteString(" --- |")
		}
	}
	sb.WriteString("\n")
	for _, row := range dataRows {
		writeRow(&sb, row, colCount)
	}
	sb.WriteString("\n")

	for _, caption := range captions {
		s.simplified(caption, "table caption rendered as a paragraph")
		paragraph, err := s.convertBlocks(caption.Children)
		if err != nil {
			return "", err
		}
		sb.WriteString(paragraph)
	}
	return sb.String(), nil
}

func writeRow(sb *strings.Builder, row []string, colCount int) {
	sb.WriteString("|")
	for i := 0; i < colCount; i++ {
		sb.WriteString(" ")
		if i < len(row) {
			sb.WriteString(row[i])
		}
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

func isHeaderRow(row ir.Node) bool {
	if len(row.Children) == 0 {
		return false
	}
	for _, cell := range row.Children {
		if cell.Kind != vocab.TableHeader {
			return false
		}
	}
	return true
}

// convertCellContent renders a cell on a single line.
func (s *writeState) convertCellContent(cell ir.Node) (string, error) {
	if colspan, ok := cell.Props.GetInt(vocab.Colspan); ok && colspan > 1 {
		s.simplified(cell, "colspan dropped")
	}
	if rowspan, ok := cell.Props.GetInt(vocab.Rowspan); ok && rowspan > 1 {
		s.simplified(cell, "rowspan dropped")
	}

	var parts []string
	for _, child := range cell.Children {
		content, err := s.convertInline(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, content)
	}
	content := strings.Join(parts, "")
	content = strings.ReplaceAll(content, "\\\n", "<br>")
	content = strings.ReplaceAll(content, "<br>\n", "<br>")
	return strings.Join(strings.Fields(content), " "), nil
}
