// Package stream turns a flat sequence of start/text/end events into an IR
// tree. Format readers that sit on a pull tokenizer (HTML, XML dialects) feed
// events into a Builder and supply a MapFunc that converts each closed
// element into IR nodes.
//
// The builder never fails. Mismatched end tags are repaired according to
// Options.Recovery, and frames still open at the end of the stream are closed
// innermost first, so accumulated content is never dropped.
package stream

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Recovery selects how an End event that does not match the open element is
// handled.
type Recovery string

const (
	// RecoverIgnore leaves the open element in place and drops the End event.
	RecoverIgnore Recovery = "ignore"
	// RecoverCloseAncestor implicitly closes up to Options.Lookahead
	// intervening elements when an enclosing element matches the End tag.
	// When none matches within the bound, the event is ignored.
	RecoverCloseAncestor Recovery = "close_ancestor"
)

// Validate reports an unknown recovery policy. The empty value means
// RecoverIgnore.
func (r Recovery) Validate() error {
	switch r {
	case "", RecoverIgnore, RecoverCloseAncestor:
		return nil
	default:
		return fmt.Errorf("invalid recovery policy %q", string(r))
	}
}

// DefaultLookahead bounds RecoverCloseAncestor when Options.Lookahead is zero.
const DefaultLookahead = 3

// Options configure a Builder.
type Options struct {
	// SkipWhitespace discards text runs that contain only whitespace.
	SkipWhitespace bool
	// FoldCase lower-cases tags before matching and mapping.
	FoldCase bool
	// PreserveSpans attaches event spans to text nodes and elements.
	PreserveSpans bool
	// Recovery is the mismatched End policy.
	Recovery Recovery
	// Lookahead is the maximum number of frames RecoverCloseAncestor may
	// close implicitly. Zero means DefaultLookahead.
	Lookahead int
	// ReportRepairs records a Minor structure_repaired warning for every
	// ignored End event, implicit close and unclosed element.
	ReportRepairs bool
	// TextNode overrides how buffered text becomes a node.
	TextNode func(text string, span *ir.Span) ir.Node
}

// Element is a closed element handed to a MapFunc.
type Element struct {
	Tag      string
	Attrs    Attrs
	Children []ir.Node
	Span     *ir.Span
	// Ancestors lists the tags of the still-open enclosing elements,
	// outermost first.
	Ancestors []string
	// Implicit reports that the element was closed without a matching End.
	Implicit bool
}

// Parent returns the tag of the enclosing element, or "" at top level.
func (e Element) Parent() string {
	if len(e.Ancestors) == 0 {
		return ""
	}
	return e.Ancestors[len(e.Ancestors)-1]
}

// Within reports whether any enclosing element has the given tag.
func (e Element) Within(tag string) bool {
	for _, a := range e.Ancestors {
		if a == tag {
			return true
		}
	}
	return false
}

// Attr returns the value of an attribute.
func (e Element) Attr(key string) (string, bool) {
	return e.Attrs.Get(key)
}

// TextContent concatenates the text of all children.
func (e Element) TextContent() string {
	var sb strings.Builder
	for _, child := range e.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

type outputKind int

const (
	outputNodes outputKind = iota
	outputPassthrough
	outputDrop
)

// Output is what a MapFunc produces for one element.
type Output struct {
	kind  outputKind
	nodes []ir.Node
}

// Emit produces a single node.
func Emit(node ir.Node) Output {
	return Output{kind: outputNodes, nodes: []ir.Node{node}}
}

// EmitMany produces several sibling nodes, possibly none.
func EmitMany(nodes ...ir.Node) Output {
	return Output{kind: outputNodes, nodes: nodes}
}

// Passthrough produces no node of its own; the element's children are
// spliced into the parent.
func Passthrough() Output {
	return Output{kind: outputPassthrough}
}

// Drop discards the element together with its children.
func Drop() Output {
	return Output{kind: outputDrop}
}

// MapFunc converts a closed element into IR output. Warnings about the
// conversion go into warn.
type MapFunc func(el Element, warn *ir.Collector) Output

type frame struct {
	tag      string
	attrs    Attrs
	text     strings.Builder
	textSpan *ir.Span
	children []ir.Node
	start    int
	hasStart bool
}

// Builder assembles IR nodes from events. A Builder is owned by a single
// conversion and is not safe for concurrent use.
type Builder struct {
	mapFn   MapFunc
	opts    Options
	stack   []*frame
	warn    ir.Collector
	lastEnd int
}

// NewBuilder returns a builder that converts elements with mapFn. A nil mapFn
// passes every element through.
func NewBuilder(mapFn MapFunc, opts Options) *Builder {
	if mapFn == nil {
		mapFn = func(Element, *ir.Collector) Output { return Passthrough() }
	}
	if opts.Recovery == "" {
		opts.Recovery = RecoverIgnore
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	b := &Builder{mapFn: mapFn, opts: opts}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.stack = []*frame{{}}
	b.warn = ir.Collector{}
	b.lastEnd = 0
}

// Warnings gives MapFunc-independent callers (the tokenizer loop) a place to
// record warnings in order with the builder's own.
func (b *Builder) Warnings() *ir.Collector {
	return &b.warn
}

// Depth returns the number of open elements.
func (b *Builder) Depth() int {
	return len(b.stack) - 1
}

// Open returns the tags of the open elements, outermost first.
func (b *Builder) Open() []string {
	tags := make([]string, 0, len(b.stack)-1)
	for _, f := range b.stack[1:] {
		tags = append(tags, f.tag)
	}
	return tags
}

// Current returns the tag of the innermost open element, or "".
func (b *Builder) Current() string {
	return b.top().tag
}

// Push dispatches an event.
func (b *Builder) Push(ev Event) {
	switch ev.Type {
	case StartEvent:
		b.StartAt(ev.Tag, ev.Attrs, ev.Span)
	case TextEvent:
		b.TextAt(ev.Text, ev.Span)
	case EndEvent:
		b.EndAt(ev.Tag, ev.Span)
	}
}

// Start opens an element.
func (b *Builder) Start(tag string, attrs Attrs) {
	b.StartAt(tag, attrs, nil)
}

// StartAt opens an element whose start tag occupies span.
func (b *Builder) StartAt(tag string, attrs Attrs, span *ir.Span) {
	b.track(span)
	b.flushText(b.top())
	f := &frame{tag: b.fold(tag), attrs: attrs}
	if span != nil {
		f.start = span.Start
		f.hasStart = true
	}
	b.stack = append(b.stack, f)
}

// Text buffers character data on the open element.
func (b *Builder) Text(text string) {
	b.TextAt(text, nil)
}

// TextAt buffers character data occupying span.
func (b *Builder) TextAt(text string, span *ir.Span) {
	b.track(span)
	if text == "" {
		return
	}
	top := b.top()
	top.text.WriteString(text)
	if span == nil {
		return
	}
	if top.textSpan == nil {
		s := *span
		top.textSpan = &s
		return
	}
	top.textSpan.End = span.End
}

// End closes the element named tag.
func (b *Builder) End(tag string) {
	b.EndAt(tag, nil)
}

// EndAt closes the element named tag whose end tag occupies span.
func (b *Builder) EndAt(tag string, span *ir.Span) {
	b.track(span)
	tag = b.fold(tag)
	top := b.top()
	b.flushText(top)

	if len(b.stack) == 1 {
		b.repair(span, "closing tag </%s> without an open element ignored", tag)
		return
	}
	if top.tag == tag {
		b.closeTop(span, false)
		return
	}

	if b.opts.Recovery == RecoverCloseAncestor {
		if depth := b.ancestorDepth(tag); depth > 0 {
			for range depth {
				closing := b.top()
				b.repair(span, "element <%s> implicitly closed by </%s>", closing.tag, tag)
				b.closeTop(nil, true)
			}
			b.closeTop(span, false)
			return
		}
	}
	b.repair(span, "mismatched closing tag </%s> inside <%s> ignored", tag, top.tag)
}

// Empty handles a self-closing element as an atomic Start and End.
func (b *Builder) Empty(tag string, attrs Attrs) {
	b.EmptyAt(tag, attrs, nil)
}

// EmptyAt handles a self-closing element occupying span.
func (b *Builder) EmptyAt(tag string, attrs Attrs, span *ir.Span) {
	b.StartAt(tag, attrs, span)
	b.closeTop(span, false)
}

// Finish closes every element still open, innermost first, and returns the
// top-level nodes with all warnings recorded during the build. The builder is
// reset and may be reused.
func (b *Builder) Finish() ir.Result[[]ir.Node] {
	b.flushText(b.top())
	for len(b.stack) > 1 {
		b.repair(nil, "element <%s> not closed before end of input", b.top().tag)
		b.closeTop(nil, true)
	}
	nodes := b.stack[0].children
	result := ir.Seal(&b.warn, nodes)
	b.reset()
	return result
}

func (b *Builder) top() *frame {
	return b.stack[len(b.stack)-1]
}

func (b *Builder) fold(tag string) string {
	if b.opts.FoldCase {
		return strings.ToLower(tag)
	}
	return tag
}

func (b *Builder) track(span *ir.Span) {
	if span != nil && span.End > b.lastEnd {
		b.lastEnd = span.End
	}
}

// ancestorDepth returns how many frames sit above the nearest open element
// named tag, or 0 when none is found within the lookahead.
func (b *Builder) ancestorDepth(tag string) int {
	limit := b.opts.Lookahead
	for depth := 1; depth <= limit; depth++ {
		i := len(b.stack) - 1 - depth
		if i < 1 {
			return 0
		}
		if b.stack[i].tag == tag {
			return depth
		}
	}
	return 0
}

func (b *Builder) closeTop(endSpan *ir.Span, implicit bool) {
	f := b.top()
	b.flushText(f)
	b.stack = b.stack[:len(b.stack)-1]

	el := Element{
		Tag:       f.tag,
		Attrs:     f.attrs,
		Children:  f.children,
		Ancestors: b.Open(),
		Implicit:  implicit,
	}
	if b.opts.PreserveSpans && f.hasStart {
		end := b.lastEnd
		if endSpan != nil {
			end = endSpan.End
		}
		el.Span = &ir.Span{Start: f.start, End: end}
	}

	out := b.mapFn(el, &b.warn)
	parent := b.top()
	switch out.kind {
	case outputNodes:
		for _, n := range out.nodes {
			if b.opts.PreserveSpans && n.Span == nil && el.Span != nil && len(out.nodes) == 1 {
				n = n.At(*el.Span)
			}
			b.attach(parent, n)
		}
	case outputPassthrough:
		for _, n := range el.Children {
			b.attach(parent, n)
		}
	case outputDrop:
	}
}

func (b *Builder) flushText(f *frame) {
	if f.text.Len() == 0 {
		return
	}
	text := f.text.String()
	span := f.textSpan
	f.text.Reset()
	f.textSpan = nil

	if b.opts.SkipWhitespace && strings.TrimSpace(text) == "" {
		return
	}
	if !b.opts.PreserveSpans {
		span = nil
	}
	var n ir.Node
	if b.opts.TextNode != nil {
		n = b.opts.TextNode(text, span)
	} else {
		n = ir.Text(text)
		if span != nil {
			n = n.At(*span)
		}
	}
	b.attach(f, n)
}

// attach appends n to f, merging adjacent plain text nodes.
func (b *Builder) attach(f *frame, n ir.Node) {
	if last := len(f.children) - 1; last >= 0 && n.IsPlainText() && f.children[last].IsPlainText() {
		prev := f.children[last]
		left, _ := prev.Props.GetString(vocab.Content)
		right, _ := n.Props.GetString(vocab.Content)
		merged := ir.Text(left + right)
		if prev.Span != nil && n.Span != nil {
			merged = merged.At(ir.Span{Start: prev.Span.Start, End: n.Span.End})
		}
		f.children[last] = merged
		return
	}
	f.children = append(f.children, n)
}

func (b *Builder) repair(span *ir.Span, format string, args ...any) {
	if !b.opts.ReportRepairs {
		return
	}
	w := ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, "", fmt.Sprintf(format, args...))
	if span != nil && b.opts.PreserveSpans {
		w = w.At(*span)
	}
	b.warn.Add(w)
}
