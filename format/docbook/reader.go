// Package docbook reads DocBook 4 and 5 XML into the IR. Tokens from an
// encoding/xml decoder drive a stream.Builder, so mismatched or unclosed
// elements are repaired instead of rejected. Document metadata is read from
// the info block with XPath when the input is well-formed.
package docbook

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/stream"
)

// Reader parses DocBook into the IR. It is safe for concurrent use.
type Reader struct {
	config Config
}

// NewReader creates a reader with the given config.
func NewReader(config Config) (*Reader, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Reader{config: cfg}, nil
}

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

// readState holds per-call state so Parse stays safe for concurrent use.
type readState struct {
	config    Config
	opts      ir.ParseOptions
	doc       *ir.Document
	builder   *stream.Builder
	meta      ir.Properties
	footnotes []ir.Node
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if !utf8.Valid(input) {
		i := 0
		for i < len(input) {
			c, size := utf8.DecodeRune(input[i:])
			if c == utf8.RuneError && size == 1 {
				break
			}
			i += size
		}
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "invalid UTF-8 at byte %d", i)
	}

	s := &readState{config: r.config, opts: opts, doc: ir.NewDocument()}
	s.builder = stream.NewBuilder(s.mapElement, stream.Options{
		PreserveSpans: opts.PreserveSourceInfo,
		Recovery:      r.config.Recovery,
		Lookahead:     r.config.Lookahead,
		ReportRepairs: r.config.ReportRepairs,
	})

	if err := s.tokenize(input); err != nil {
		return ir.Result[*ir.Document]{}, err
	}

	built := s.builder.Finish()
	children := dropBlankText(built.Value)
	children = append(children, s.footnotes...)
	s.doc.Content = s.doc.Content.AppendChildren(children...)

	if meta, ok := queryMetadata(input); ok {
		s.doc.Metadata = meta
	} else {
		s.doc.Metadata = s.meta
	}
	if opts.PreserveSourceInfo {
		s.doc.Content = s.doc.Content.At(ir.Span{Start: 0, End: len(input)})
		s.doc.Source = &ir.SourceInfo{Format: Format}
	}
	return ir.WithWarnings(s.doc, built.Warnings), nil
}

func (s *readState) tokenize(input []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(input))
	dec.Entity = xml.HTMLEntity

	for {
		start := int(dec.InputOffset())
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return ir.NewParseError(Format, "malformed XML", err)
		}
		span := &ir.Span{Start: start, End: int(dec.InputOffset())}

		switch t := tok.(type) {
		case xml.StartElement:
			s.builder.StartAt(t.Name.Local, attrs(t.Attr), span)
		case xml.EndElement:
			s.builder.EndAt(t.Name.Local, span)
		case xml.CharData:
			text := string(t)
			if !s.preformatted() {
				text = collapseSpace(text)
			}
			s.builder.TextAt(text, span)
		case xml.ProcInst, xml.Directive, xml.Comment:
		}
	}
}

func attrs(in []xml.Attr) stream.Attrs {
	if len(in) == 0 {
		return nil
	}
	out := make(stream.Attrs, 0, len(in))
	for _, a := range in {
		key := a.Name.Local
		if a.Name.Space != "" {
			key = a.Name.Space + ":" + key
		}
		out = append(out, stream.Attr{Key: key, Value: a.Value})
	}
	return out
}

func (s *readState) preformatted() bool {
	for _, tag := range s.builder.Open() {
		if preformatted[tag] {
			return true
		}
	}
	return false
}

func collapseSpace(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}
