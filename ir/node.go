package ir

import (
	"slices"
	"strings"

	"github.com/rgonek/rescribe/vocab"
)

// NodeKind names what a Node represents. The set of kinds is open: the
// constants in package vocab cover the common vocabulary, and any format may
// introduce its own, conventionally namespaced ("docbook:varlistentry").
//
// Consumers must not assume they know every kind. A reader or writer that
// meets a kind it does not handle falls through to an explicit default,
// usually re-emitting the children and recording an unsupported_node warning.
type NodeKind string

func (k NodeKind) String() string { return string(k) }

// Namespace returns the part of the kind before the first ':' or "".
func (k NodeKind) Namespace() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k[:i])
	}
	return ""
}

// Span is a half-open byte range [Start, End) in the source input.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Node is an element of the document tree. A Node exclusively owns its
// children; trees are built by appending subtrees and never share nodes.
type Node struct {
	Kind     NodeKind
	Props    Properties
	Children []Node
	Span     *Span
}

// New returns an empty node of the given kind.
func New(kind NodeKind) Node {
	return Node{Kind: kind}
}

// Text returns a text node holding content.
func Text(content string) Node {
	return New(vocab.Text).Prop(vocab.Content, content)
}

// Prop returns a copy of n with key set. value is converted with ValueOf.
func (n Node) Prop(key string, value any) Node {
	n.Props = n.Props.With(key, ValueOf(value))
	return n
}

// Child returns a copy of n with child appended.
func (n Node) Child(child Node) Node {
	n.Children = append(slices.Clip(n.Children), child)
	return n
}

// AppendChildren returns a copy of n with children appended in order.
func (n Node) AppendChildren(children ...Node) Node {
	if len(children) == 0 {
		return n
	}
	n.Children = append(slices.Clip(n.Children), children...)
	return n
}

// At returns a copy of n carrying the given source span.
func (n Node) At(span Span) Node {
	n.Span = &span
	return n
}

// Is reports whether n has the given kind.
func (n Node) Is(kind NodeKind) bool {
	return n.Kind == kind
}

// IsPlainText reports whether n is a text node with no properties other
// than its content and no children. Adjacent plain text nodes can be merged
// without losing information.
func (n Node) IsPlainText() bool {
	if n.Kind != vocab.Text || len(n.Children) > 0 || n.Props.Len() != 1 {
		return false
	}
	_, ok := n.Props.GetString(vocab.Content)
	return ok
}

// TextContent concatenates the content of n and all its descendants in
// document order.
func (n Node) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n Node) writeText(sb *strings.Builder) {
	if content, ok := n.Props.GetString(vocab.Content); ok {
		sb.WriteString(content)
	}
	for _, child := range n.Children {
		child.writeText(sb)
	}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := Node{Kind: n.Kind, Props: n.Props.Clone()}
	if n.Span != nil {
		span := *n.Span
		out.Span = &span
	}
	if len(n.Children) > 0 {
		out.Children = make([]Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// Walk visits n and its descendants depth-first in document order. If fn
// returns false the children of that node are skipped.
func Walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for i := range n.Children {
		Walk(&n.Children[i], fn)
	}
}

// Count returns the number of nodes in the tree rooted at n, including n.
func (n Node) Count() int {
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}
