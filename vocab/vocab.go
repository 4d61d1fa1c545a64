// Package vocab defines the standard node kinds and property keys shared by
// every reader and writer.
//
// The constants are untyped so they can be used directly as ir.NodeKind values
// and as property keys. Formats are free to use additional namespaced strings
// (for example "docbook:role" or "ipynb:execution_count"); nothing in the core
// rejects a kind or key it does not know about.
package vocab

// Block-level node kinds.
const (
	// Document is the root container.
	Document = "document"
	// Paragraph is a paragraph of inline content.
	Paragraph = "paragraph"
	// Heading uses the Level property (1-6).
	Heading = "heading"
	// CodeBlock holds its text in Content and an optional Language.
	CodeBlock = "code_block"
	Blockquote = "blockquote"
	// List uses the Ordered property to distinguish numbered lists.
	List     = "list"
	ListItem = "list_item"

	Table       = "table"
	TableHead   = "table_head"
	TableBody   = "table_body"
	TableFoot   = "table_foot"
	TableRow    = "table_row"
	TableCell   = "table_cell"
	TableHeader = "table_header"

	Figure         = "figure"
	Caption        = "caption"
	HorizontalRule = "horizontal_rule"
	// Div is the generic block container used as a fallback for unknown blocks.
	Div = "div"
	// RawBlock carries format-specific content in Content, tagged with Format.
	RawBlock = "raw_block"

	DefinitionList = "definition_list"
	DefinitionTerm = "definition_term"
	DefinitionDesc = "definition_desc"

	FootnoteDef = "footnote_def"
	MathDisplay = "math_display"
)

// Inline node kinds.
const (
	// Text holds its string in the Content property.
	Text        = "text"
	Emphasis    = "emphasis"
	Strong      = "strong"
	Strikeout   = "strikeout"
	Underline   = "underline"
	Subscript   = "subscript"
	Superscript = "superscript"
	// Code is inline code; the text lives in Content.
	Code = "code"
	// Link uses URL and an optional Title.
	Link = "link"
	// Image uses URL or Resource, plus Alt and Title.
	Image      = "image"
	LineBreak  = "line_break"
	SoftBreak  = "soft_break"
	// Span is the generic inline container used as a fallback for unknown inline tags.
	Span        = "span"
	RawInline   = "raw_inline"
	FootnoteRef = "footnote_ref"
	SmallCaps   = "small_caps"
	Quoted      = "quoted"
	Cite        = "cite"
	MathInline  = "math_inline"
)

// Semantic property keys.
const (
	Level     = "level"
	Ordered   = "ordered"
	Language  = "language"
	URL       = "url"
	Title     = "title"
	Alt       = "alt"
	Content   = "content"
	Resource  = "resource"
	ID        = "id"
	Classes   = "classes"
	Start     = "start"
	Tight     = "tight"
	Format    = "format"
	QuoteType = "quote_type"
	Label     = "label"
	Align     = "align"
	Colspan   = "colspan"
	Rowspan   = "rowspan"
	Checked   = "checked"
)

// Presentational and layout property keys.
const (
	StyleFont    = "style:font"
	StyleSize    = "style:size"
	StyleColor   = "style:color"
	StyleAlign   = "style:align"
	StyleBgColor = "style:bg_color"
	StyleWeight  = "style:weight"

	LayoutPageBreak = "layout:page_break"
	LayoutColumn    = "layout:column"
	LayoutFloat     = "layout:float"
)

// Namespace prefixes for format-specific properties.
const (
	HTMLPrefix    = "html:"
	LaTeXPrefix   = "latex:"
	DocBookPrefix = "docbook:"
	IpynbPrefix   = "ipynb:"
	ADFPrefix     = "adf:"
	StylePrefix   = "style:"
	LayoutPrefix  = "layout:"
)

var blockKinds = map[string]bool{
	Document: true, Paragraph: true, Heading: true, CodeBlock: true, Blockquote: true,
	List: true, ListItem: true, Table: true, TableHead: true, TableBody: true,
	TableFoot: true, TableRow: true, TableCell: true, TableHeader: true, Figure: true,
	Caption: true, HorizontalRule: true, Div: true, RawBlock: true, DefinitionList: true,
	DefinitionTerm: true, DefinitionDesc: true, FootnoteDef: true, MathDisplay: true,
}

// IsBlock reports whether kind is one of the standard block-level kinds.
// Unknown and namespaced kinds report false.
func IsBlock(kind string) bool {
	return blockKinds[kind]
}

var inlineKinds = map[string]bool{
	Text: true, Emphasis: true, Strong: true, Strikeout: true, Underline: true,
	Subscript: true, Superscript: true, Code: true, Link: true, Image: true,
	LineBreak: true, SoftBreak: true, Span: true, RawInline: true, FootnoteRef: true,
	SmallCaps: true, Quoted: true, Cite: true, MathInline: true,
}

// IsInline reports whether kind is one of the standard inline kinds.
func IsInline(kind string) bool {
	return inlineKinds[kind]
}
