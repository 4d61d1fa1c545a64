package markdown

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/ir"
)

// Writer renders the IR as GFM Markdown. It is safe for concurrent use.
type Writer struct {
	config Config
}

// NewWriter creates a writer with the given config.
func NewWriter(config Config) (*Writer, error) {
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Writer{config: cfg}, nil
}

// Formats implements ir.Emitter.
func (w *Writer) Formats() []string { return []string{Format} }

type writeState struct {
	config Config
	opts   ir.EmitOptions
	doc    *ir.Document
	warn   ir.Collector
}

// Emit implements ir.Emitter.
func (w *Writer) Emit(doc *ir.Document, opts ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}
	s := &writeState{config: w.config, opts: opts, doc: doc}

	front, err := renderFrontMatter(doc.Metadata)
	if err != nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to render metadata", err)
	}
	body, err := s.convertBlocks(doc.Content.Children)
	if err != nil {
		return ir.Result[[]byte]{}, err
	}

	// Trim right to avoid excessive newlines at the end of file, then ensure exactly one.
	body = strings.TrimRight(body, "\n")
	out := make([]byte, 0, len(front)+len(body)+1)
	out = append(out, front...)
	if body != "" {
		out = append(out, body...)
		out = append(out, '\n')
	}
	return ir.Seal(&s.warn, out), nil
}
