package docbook

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

const infoPath = "/*/*[self::info or self::articleinfo or self::bookinfo]"

var (
	titleExpr    = xpath.MustCompile(infoPath + "/title | /*/title")
	subtitleExpr = xpath.MustCompile(infoPath + "/subtitle | /*/subtitle")
	authorExpr   = xpath.MustCompile(infoPath + "//author")
	dateExpr     = xpath.MustCompile(infoPath + "/date | " + infoPath + "/pubdate")
	keywordExpr  = xpath.MustCompile(infoPath + "/keywordset/keyword")
	abstractExpr = xpath.MustCompile(infoPath + "/abstract")
	firstExpr    = xpath.MustCompile(".//firstname | .//givenname")
	surnameExpr  = xpath.MustCompile(".//surname")
	personExpr   = xpath.MustCompile(".//personname | .//orgname")
)

// queryMetadata reads the document info block. It reports false when the
// input is not well-formed XML; the caller then keeps what the token pass
// collected.
func queryMetadata(input []byte) (ir.Properties, bool) {
	root, err := xmlquery.Parse(bytes.NewReader(input))
	if err != nil {
		return ir.Properties{}, false
	}

	var meta ir.Properties
	if n := xmlquery.QuerySelector(root, titleExpr); n != nil {
		setText(&meta, vocab.Title, n.InnerText())
	}
	if n := xmlquery.QuerySelector(root, subtitleExpr); n != nil {
		setText(&meta, "subtitle", n.InnerText())
	}

	var authors []ir.Value
	for _, n := range xmlquery.QuerySelectorAll(root, authorExpr) {
		if name := authorName(n); name != "" {
			authors = append(authors, ir.String(name))
		}
	}
	switch len(authors) {
	case 0:
	case 1:
		meta.Set("author", authors[0])
	default:
		meta.Set("author", ir.List(authors...))
	}

	if n := xmlquery.QuerySelector(root, dateExpr); n != nil {
		setText(&meta, "date", n.InnerText())
	}

	var keywords []ir.Value
	for _, n := range xmlquery.QuerySelectorAll(root, keywordExpr) {
		if kw := normalize(n.InnerText()); kw != "" {
			keywords = append(keywords, ir.String(kw))
		}
	}
	if len(keywords) > 0 {
		meta.Set("keywords", ir.List(keywords...))
	}

	if n := xmlquery.QuerySelector(root, abstractExpr); n != nil {
		setText(&meta, "abstract", n.InnerText())
	}
	return meta, true
}

func authorName(n *xmlquery.Node) string {
	var parts []string
	if first := xmlquery.QuerySelector(n, firstExpr); first != nil {
		parts = append(parts, normalize(first.InnerText()))
	}
	if last := xmlquery.QuerySelector(n, surnameExpr); last != nil {
		parts = append(parts, normalize(last.InnerText()))
	}
	if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	if person := xmlquery.QuerySelector(n, personExpr); person != nil {
		return normalize(person.InnerText())
	}
	return normalize(n.InnerText())
}

func setText(meta *ir.Properties, key, text string) {
	if text = normalize(text); text != "" {
		meta.Set(key, ir.String(text))
	}
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
