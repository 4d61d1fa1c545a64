// Package irjson is a lossless JSON encoding of the IR. Unlike the native
// text format it keeps spans, and it tags every property value with its type
// so integers and floats stay distinct and non-finite floats survive.
package irjson

import (
	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
)

// Format is the registry name of the codec.
const Format = "irjson"

// Version is the schema version written by the encoder.
const Version = 1

// Value type tags.
const (
	typeString = "string"
	typeInt    = "int"
	typeFloat  = "float"
	typeBool   = "bool"
	typeList   = "list"
	typeMap    = "map"
)

type documentJSON struct {
	Version   int            `json:"version"`
	Metadata  []propertyJSON `json:"metadata,omitempty"`
	Source    *sourceJSON    `json:"source,omitempty"`
	Resources []resourceJSON `json:"resources,omitempty"`
	Content   nodeJSON       `json:"content"`
}

type sourceJSON struct {
	Format   string         `json:"format"`
	Metadata []propertyJSON `json:"metadata,omitempty"`
}

type resourceJSON struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	MIMEType string         `json:"mime_type"`
	Data     []byte         `json:"data"`
	Metadata []propertyJSON `json:"metadata,omitempty"`
}

type nodeJSON struct {
	Kind     string         `json:"kind"`
	Props    []propertyJSON `json:"props,omitempty"`
	Children []nodeJSON     `json:"children,omitempty"`
	Span     *ir.Span       `json:"span,omitempty"`
}

// valueJSON holds the encoded value as raw JSON; its shape depends on Type.
// Lists hold []valueJSON, maps hold []propertyJSON and non-finite floats are
// the strings "NaN", "+Inf" and "-Inf".
type valueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type propertyJSON struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (p propertyJSON) value() valueJSON { return valueJSON{Type: p.Type, Value: p.Value} }
