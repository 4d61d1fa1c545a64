// Package transform holds document-to-document rewrites. Every transformer
// works on a clone, so the input document is never modified.
package transform

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// MapNodes rebuilds the tree bottom-up: fn sees each node after its children
// have been rewritten and returns the replacement nodes (none to remove it,
// several to splice).
func MapNodes(n ir.Node, fn func(ir.Node) []ir.Node) []ir.Node {
	if len(n.Children) > 0 {
		children := make([]ir.Node, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, MapNodes(child, fn)...)
		}
		n.Children = children
	}
	return fn(n)
}

func mapContent(doc *ir.Document, fn func(ir.Node) []ir.Node) *ir.Document {
	out := doc.Clone()
	root := out.Content
	if len(root.Children) > 0 {
		children := make([]ir.Node, 0, len(root.Children))
		for _, child := range root.Children {
			children = append(children, MapNodes(child, fn)...)
		}
		root.Children = children
	}
	out.Content = root
	return out
}

func one(n ir.Node) []ir.Node { return []ir.Node{n} }

// ShiftHeadings adds Delta to every heading level and clamps the result to
// [Min, Max]. Zero bounds default to 1 and 6.
type ShiftHeadings struct {
	Delta int `json:"delta" yaml:"delta"`
	Min   int `json:"min,omitempty" yaml:"min,omitempty"`
	Max   int `json:"max,omitempty" yaml:"max,omitempty"`
}

func (t ShiftHeadings) applyDefaults() ShiftHeadings {
	if t.Min == 0 {
		t.Min = 1
	}
	if t.Max == 0 {
		t.Max = 6
	}
	return t
}

// Validate checks that the bounds form a non-empty range.
func (t ShiftHeadings) Validate() error {
	t = t.applyDefaults()
	if t.Min < 1 || t.Max < t.Min {
		return fmt.Errorf("heading range %d..%d is invalid", t.Min, t.Max)
	}
	return nil
}

// Name implements ir.Transformer.
func (t ShiftHeadings) Name() string { return "shift_headings" }

// Transform implements ir.Transformer. A level that has to be clamped is
// recorded as a Minor simplified warning.
func (t ShiftHeadings) Transform(doc *ir.Document) (ir.Result[*ir.Document], error) {
	if doc == nil {
		return ir.Result[*ir.Document]{}, ErrNilDocument
	}
	if err := t.Validate(); err != nil {
		return ir.Result[*ir.Document]{}, fmt.Errorf("%s: %w", t.Name(), err)
	}
	t = t.applyDefaults()

	var warn ir.Collector
	out := mapContent(doc, func(n ir.Node) []ir.Node {
		if !n.Is(vocab.Heading) {
			return one(n)
		}
		level, ok := n.Props.GetInt(vocab.Level)
		if !ok {
			level = 1
		}
		shifted := level + int64(t.Delta)
		clamped := min(max(shifted, int64(t.Min)), int64(t.Max))
		if clamped != shifted {
			w := ir.NewWarning(ir.SeverityMinor, ir.WarningSimplified, vocab.Level,
				fmt.Sprintf("heading level %d clamped to %d", shifted, clamped))
			if n.Span != nil {
				w = w.At(*n.Span)
			}
			warn.Add(w)
		}
		return one(n.Prop(vocab.Level, clamped))
	})
	return ir.Seal(&warn, out), nil
}

// StripEmpty removes whitespace-only text nodes, then paragraphs, spans and
// divs left without children.
type StripEmpty struct{}

// Name implements ir.Transformer.
func (StripEmpty) Name() string { return "strip_empty" }

// Transform implements ir.Transformer.
func (StripEmpty) Transform(doc *ir.Document) (ir.Result[*ir.Document], error) {
	if doc == nil {
		return ir.Result[*ir.Document]{}, ErrNilDocument
	}
	out := mapContent(doc, func(n ir.Node) []ir.Node {
		switch n.Kind {
		case vocab.Text:
			if strings.TrimSpace(n.Props.StringOr(vocab.Content, "")) == "" {
				return nil
			}
		case vocab.Paragraph, vocab.Span, vocab.Div:
			if len(n.Children) == 0 {
				return nil
			}
		}
		return one(n)
	})
	return ir.OK(out), nil
}

// MergeText joins adjacent plain text nodes.
type MergeText struct{}

// Name implements ir.Transformer.
func (MergeText) Name() string { return "merge_text" }

// Transform implements ir.Transformer.
func (MergeText) Transform(doc *ir.Document) (ir.Result[*ir.Document], error) {
	if doc == nil {
		return ir.Result[*ir.Document]{}, ErrNilDocument
	}
	merge := func(n ir.Node) []ir.Node {
		if len(n.Children) < 2 {
			return one(n)
		}
		merged := make([]ir.Node, 0, len(n.Children))
		for _, child := range n.Children {
			if last := len(merged) - 1; last >= 0 && child.IsPlainText() && merged[last].IsPlainText() {
				joined := merged[last].Props.StringOr(vocab.Content, "") + child.Props.StringOr(vocab.Content, "")
				merged[last] = merged[last].Prop(vocab.Content, joined)
				if a, b := merged[last].Span, child.Span; a != nil && b != nil {
					merged[last] = merged[last].At(ir.Span{Start: a.Start, End: b.End})
				}
				continue
			}
			merged = append(merged, child)
		}
		n.Children = merged
		return one(n)
	}
	out := doc.Clone()
	out.Content = MapNodes(out.Content, merge)[0]
	return ir.OK(out), nil
}

// UnwrapSingleChild replaces divs and spans that carry no properties and
// wrap exactly one child with that child.
type UnwrapSingleChild struct{}

// Name implements ir.Transformer.
func (UnwrapSingleChild) Name() string { return "unwrap_single_child" }

// Transform implements ir.Transformer.
func (UnwrapSingleChild) Transform(doc *ir.Document) (ir.Result[*ir.Document], error) {
	if doc == nil {
		return ir.Result[*ir.Document]{}, ErrNilDocument
	}
	out := mapContent(doc, func(n ir.Node) []ir.Node {
		if (n.Is(vocab.Div) || n.Is(vocab.Span)) && len(n.Children) == 1 && n.Props.IsEmpty() {
			return n.Children
		}
		return one(n)
	})
	return ir.OK(out), nil
}

// Chain applies transformers in order. Warnings are concatenated in the same
// order; the first error stops the chain.
type Chain []ir.Transformer

// Name implements ir.Transformer.
func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, t := range c {
		names = append(names, t.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Transform implements ir.Transformer.
func (c Chain) Transform(doc *ir.Document) (ir.Result[*ir.Document], error) {
	if doc == nil {
		return ir.Result[*ir.Document]{}, ErrNilDocument
	}
	var warn ir.Collector
	current := doc.Clone()
	for _, t := range c {
		result, err := t.Transform(current)
		if err != nil {
			return ir.Result[*ir.Document]{}, fmt.Errorf("transform %s: %w", t.Name(), err)
		}
		current = ir.Absorb(&warn, result)
	}
	return ir.Seal(&warn, current), nil
}

// ErrNilDocument is returned when a transformer is given no document.
var ErrNilDocument = fmt.Errorf("nil document: %w", ir.ErrInvalidInput)
