package adf

import "github.com/goccy/go-json"

// Doc is the root of an Atlassian Document Format document.
type Doc struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Content []Node `json:"content"`
}

// Node is any node of the ADF tree (paragraph, text, mediaSingle, ...).
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Mark is text formatting applied to a text node, or a block mark such as
// alignment.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func stringAttr(attrs map[string]any, key, fallback string) string {
	if s, ok := attrs[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// intAttr accepts the float64 numbers JSON decoding produces as well as
// numeric strings.
func intAttr(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}

// GetStringAttr returns a string attribute or fallback when it is missing
// or empty.
func (n Node) GetStringAttr(key, fallback string) string {
	return stringAttr(n.Attrs, key, fallback)
}

// GetIntAttr returns an integer attribute or fallback.
func (n Node) GetIntAttr(key string, fallback int) int {
	return intAttr(n.Attrs, key, fallback)
}

// GetStringAttr returns a string attribute or fallback.
func (m Mark) GetStringAttr(key, fallback string) string {
	return stringAttr(m.Attrs, key, fallback)
}

func (n *Node) setAttr(key string, value any) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	n.Attrs[key] = value
}
