package html

// blockElements is the block-element heuristic used for tags the reader does
// not map: a listed tag becomes a div, anything else a span.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"canvas": true, "dd": true, "details": true, "dialog": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hgroup": true, "hr": true, "li": true,
	"main": true, "menu": true, "nav": true, "noscript": true, "ol": true, "p": true,
	"pre": true, "search": true, "section": true, "summary": true, "table": true,
	"tfoot": true, "ul": true, "video": true,
}

// IsBlockElement reports whether tag is treated as block-level when the
// reader has no dedicated mapping for it.
func IsBlockElement(tag string) bool {
	return blockElements[tag]
}

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

// impliedEnd lists, for a start tag, the open elements it closes implicitly
// (<li> after an unclosed <li>, <p> before a block). The lookup only checks
// the innermost open element.
var impliedEnd = map[string][]string{
	"li":     {"li"},
	"dt":     {"dt", "dd"},
	"dd":     {"dt", "dd"},
	"tr":     {"tr", "td", "th"},
	"td":     {"td", "th"},
	"th":     {"td", "th"},
	"tbody":  {"thead", "tbody", "tfoot"},
	"tfoot":  {"thead", "tbody"},
	"option": {"option"},
}

// closesParagraph reports whether a start tag ends an open <p>.
func closesParagraph(tag string) bool {
	switch tag {
	case "p", "div", "ul", "ol", "dl", "pre", "table", "blockquote", "h1", "h2",
		"h3", "h4", "h5", "h6", "hr", "section", "article", "aside", "header",
		"footer", "nav", "main", "figure", "form", "fieldset", "address", "details":
		return true
	}
	return false
}

// preformatted elements keep their whitespace.
var preformatted = map[string]bool{
	"pre": true, "textarea": true, "listing": true, "plaintext": true,
}
