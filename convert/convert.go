package convert

import (
	"fmt"
	"time"

	"github.com/rgonek/rescribe/ir"
)

// Options configures one conversion.
type Options struct {
	Parse ir.ParseOptions `json:"parse" yaml:"parse"`
	Emit  ir.EmitOptions  `json:"emit" yaml:"emit"`
	// Transforms run in order between parsing and emitting.
	Transforms []ir.Transformer `json:"-" yaml:"-"`
}

// Parse reads input with the parser registered for format.
func (r *Registry) Parse(input []byte, format string, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	parser, err := r.Parser(format)
	if err != nil {
		return ir.Result[*ir.Document]{}, err
	}
	return parser.Parse(input, opts)
}

// Emit writes doc with the emitter registered for format.
func (r *Registry) Emit(doc *ir.Document, format string, opts ir.EmitOptions) (ir.Result[[]byte], error) {
	emitter, err := r.Emitter(format)
	if err != nil {
		return ir.Result[[]byte]{}, err
	}
	return emitter.Emit(doc, opts)
}

// Convert parses input as from, applies opts.Transforms and emits to. The
// result's warnings are the parse, transform and emit warnings in that order.
func (r *Registry) Convert(input []byte, from, to string, opts Options) (ir.Result[[]byte], error) {
	parser, err := r.Parser(from)
	if err != nil {
		return ir.Result[[]byte]{}, err
	}
	emitter, err := r.Emitter(to)
	if err != nil {
		return ir.Result[[]byte]{}, err
	}

	logger := r.logger.With("from", from, "to", to)
	started := time.Now()

	var warn ir.Collector
	parsed, err := parser.Parse(input, opts.Parse)
	if err != nil {
		logger.Debug("parse failed", "error", err)
		return ir.Result[[]byte]{}, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	doc := ir.Absorb(&warn, parsed)
	logger.Debug("parsed", "bytes", len(input), "nodes", doc.Content.Count(),
		"resources", doc.Resources.Len(), "warnings", len(parsed.Warnings))

	for _, t := range opts.Transforms {
		transformed, err := t.Transform(doc)
		if err != nil {
			return ir.Result[[]byte]{}, fmt.Errorf("convert %s to %s: transform %s: %w", from, to, t.Name(), err)
		}
		doc = ir.Absorb(&warn, transformed)
		logger.Debug("transformed", "transform", t.Name(), "warnings", len(transformed.Warnings))
	}

	emitted, err := emitter.Emit(doc, opts.Emit)
	if err != nil {
		logger.Debug("emit failed", "error", err)
		return ir.Result[[]byte]{}, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	out := ir.Absorb(&warn, emitted)

	result := ir.Seal(&warn, out)
	logger.Debug("converted", "bytes", len(out), "warnings", len(result.Warnings),
		"major", result.Count(ir.SeverityMajor), "duration", time.Since(started))
	return result, nil
}
