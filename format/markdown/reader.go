package markdown

import (
	"fmt"
	"unicode/utf8"

	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/ir"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Reader parses GFM Markdown into the IR. It is safe for concurrent use.
type Reader struct {
	config Config
	parser goldmark.Markdown
	html   *html.Reader
}

// NewReader creates a reader with the given config.
func NewReader(config Config) (*Reader, error) {
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	htmlReader, err := html.NewReader(cfg.HTML)
	if err != nil {
		return nil, fmt.Errorf("invalid config: html: %w", err)
	}

	return &Reader{
		config: cfg,
		parser: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.DefinitionList, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAttribute()),
		),
		html: htmlReader,
	}, nil
}

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

type readState struct {
	config    Config
	opts      ir.ParseOptions
	source    []byte
	offset    int
	html      *html.Reader
	doc       *ir.Document
	warn      ir.Collector
	footnotes map[int]string
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if !utf8.Valid(input) {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "invalid UTF-8 at byte %d", invalidUTF8(input))
	}

	frontMatter, body, offset := splitFrontMatter(input)
	s := &readState{
		config: r.config,
		opts:   opts,
		source: body,
		offset: offset,
		html:   r.html,
		doc:    ir.NewDocument(),
	}
	if frontMatter != nil {
		s.parseFrontMatter(frontMatter)
	}

	root := r.parser.Parser().Parse(text.NewReader(s.source))
	if err := s.collectFootnotes(root); err != nil {
		return ir.Result[*ir.Document]{}, ir.NewParseError(Format, "collect footnotes", err)
	}
	s.doc.Content = s.doc.Content.AppendChildren(s.convertBlockChildren(root)...)
	if opts.PreserveSourceInfo {
		s.doc.Content = s.doc.Content.At(ir.Span{Start: 0, End: len(input)})
		var meta ir.Properties
		if frontMatter != nil {
			meta.Set("markdown:front_matter", ir.Bool(true))
		}
		s.doc.Source = &ir.SourceInfo{Format: Format, Metadata: meta}
	}
	return ir.Seal(&s.warn, s.doc), nil
}

// collectFootnotes maps goldmark's footnote indexes back to their labels.
func (s *readState) collectFootnotes(root ast.Node) error {
	return ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if footnote, ok := node.(*extast.Footnote); ok && entering {
			if s.footnotes == nil {
				s.footnotes = make(map[int]string)
			}
			s.footnotes[footnote.Index] = string(footnote.Ref)
		}
		return ast.WalkContinue, nil
	})
}

// span returns the source range covered by a block's lines.
func (s *readState) span(node ast.Node) *ir.Span {
	if !s.opts.PreserveSourceInfo || node.Type() != ast.TypeBlock {
		return nil
	}
	lines := node.Lines()
	if lines == nil || lines.Len() == 0 {
		return nil
	}
	return &ir.Span{Start: s.offset + lines.At(0).Start, End: s.offset + lines.At(lines.Len()-1).Stop}
}

func (s *readState) at(n ir.Node, span *ir.Span) ir.Node {
	if span == nil {
		return n
	}
	return n.At(*span)
}

func invalidUTF8(input []byte) int {
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
