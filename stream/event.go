package stream

import "github.com/rgonek/rescribe/ir"

// EventType distinguishes the three event shapes a tokenizer produces.
type EventType int

const (
	StartEvent EventType = iota
	TextEvent
	EndEvent
)

func (t EventType) String() string {
	switch t {
	case StartEvent:
		return "start"
	case TextEvent:
		return "text"
	case EndEvent:
		return "end"
	default:
		return "unknown"
	}
}

// Attr is a single tag attribute.
type Attr struct {
	Key   string
	Value string
}

// Attrs keeps attributes in source order.
type Attrs []Attr

// Get returns the value of the first attribute named key.
func (a Attrs) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// GetOr returns the value of key, or fallback when absent.
func (a Attrs) GetOr(key, fallback string) string {
	if v, ok := a.Get(key); ok {
		return v
	}
	return fallback
}

// Event is one token of a tag-structured input.
type Event struct {
	Type  EventType
	Tag   string
	Attrs Attrs
	Text  string
	// Span is the byte range of the token in the source, if known.
	Span *ir.Span
}

// Start returns a start-tag event.
func Start(tag string, attrs ...Attr) Event {
	return Event{Type: StartEvent, Tag: tag, Attrs: attrs}
}

// Text returns a character-data event.
func Text(text string) Event {
	return Event{Type: TextEvent, Text: text}
}

// End returns an end-tag event.
func End(tag string) Event {
	return Event{Type: EndEvent, Tag: tag}
}

// At returns a copy of e carrying a source span.
func (e Event) At(start, end int) Event {
	e.Span = &ir.Span{Start: start, End: end}
	return e
}
