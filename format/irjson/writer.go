package irjson

import (
	"math"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
)

// Writer encodes documents. It is safe for concurrent use.
type Writer struct{}

// NewWriter creates a writer.
func NewWriter() *Writer { return &Writer{} }

// Formats implements ir.Emitter.
func (w *Writer) Formats() []string { return []string{Format} }

type writeState struct {
	warn ir.Collector
	err  error
}

// Emit implements ir.Emitter. Resources are always written in full;
// opts.Pretty indents the output.
func (w *Writer) Emit(doc *ir.Document, opts ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}

	s := &writeState{}
	out := documentJSON{
		Version:  Version,
		Metadata: s.properties(doc.Metadata),
		Content:  s.node(doc.Content),
	}
	if doc.Source != nil {
		out.Source = &sourceJSON{Format: doc.Source.Format, Metadata: s.properties(doc.Source.Metadata)}
	}
	for id, res := range doc.Resources.All() {
		data := res.Data
		if data == nil {
			data = []byte{}
		}
		out.Resources = append(out.Resources, resourceJSON{
			ID:       string(id),
			Name:     res.Name,
			MIMEType: res.MIMEType,
			Data:     data,
			Metadata: s.properties(res.Metadata),
		})
	}
	if s.err != nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to encode property", s.err)
	}

	var (
		encoded []byte
		err     error
	)
	if opts.Pretty {
		encoded, err = json.MarshalIndent(out, "", "  ")
	} else {
		encoded, err = json.Marshal(out)
	}
	if err != nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to encode document", err)
	}
	return ir.Seal(&s.warn, append(encoded, '\n')), nil
}

func (s *writeState) node(n ir.Node) nodeJSON {
	out := nodeJSON{Kind: string(n.Kind), Props: s.properties(n.Props)}
	if n.Span != nil {
		span := *n.Span
		out.Span = &span
	}
	if len(n.Children) > 0 {
		out.Children = make([]nodeJSON, 0, len(n.Children))
		for _, child := range n.Children {
			out.Children = append(out.Children, s.node(child))
		}
	}
	return out
}

func (s *writeState) properties(props ir.Properties) []propertyJSON {
	if props.IsEmpty() {
		return nil
	}
	out := make([]propertyJSON, 0, props.Len())
	for key, value := range props.All() {
		encoded := s.value(key, value)
		out = append(out, propertyJSON{Key: key, Type: encoded.Type, Value: encoded.Value})
	}
	return out
}

func (s *writeState) value(key string, v ir.Value) valueJSON {
	switch v.Kind() {
	case ir.KindString:
		text, _ := v.AsString()
		return valueJSON{Type: typeString, Value: s.marshal(text)}
	case ir.KindInt:
		i, _ := v.AsInt()
		return valueJSON{Type: typeInt, Value: json.RawMessage(strconv.FormatInt(i, 10))}
	case ir.KindFloat:
		f, _ := v.AsFloat()
		return valueJSON{Type: typeFloat, Value: encodeFloat(f)}
	case ir.KindBool:
		b, _ := v.AsBool()
		return valueJSON{Type: typeBool, Value: json.RawMessage(strconv.FormatBool(b))}
	case ir.KindList:
		items, _ := v.AsList()
		encoded := make([]valueJSON, 0, len(items))
		for _, item := range items {
			encoded = append(encoded, s.value(key, item))
		}
		return valueJSON{Type: typeList, Value: s.marshal(encoded)}
	case ir.KindMap:
		m, _ := v.AsMap()
		entries := s.properties(m)
		if entries == nil {
			entries = []propertyJSON{}
		}
		return valueJSON{Type: typeMap, Value: s.marshal(entries)}
	default:
		s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, key, "property without a value written as an empty string"))
		return valueJSON{Type: typeString, Value: json.RawMessage(`""`)}
	}
}

func encodeFloat(f float64) json.RawMessage {
	switch {
	case math.IsNaN(f):
		return json.RawMessage(`"NaN"`)
	case math.IsInf(f, 1):
		return json.RawMessage(`"+Inf"`)
	case math.IsInf(f, -1):
		return json.RawMessage(`"-Inf"`)
	}
	return json.RawMessage(strconv.FormatFloat(f, 'g', -1, 64))
}

// marshal keeps the first encoding error for Emit to report.
func (s *writeState) marshal(v any) json.RawMessage {
	encoded, err := json.Marshal(v)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return json.RawMessage("null")
	}
	return encoded
}
