package irjson

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Reader decodes documents. It is safe for concurrent use.
type Reader struct{}

// NewReader creates a reader.
func NewReader() *Reader { return &Reader{} }

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

type readState struct {
	warn ir.Collector
}

// Parse implements ir.Parser. Spans are restored as recorded; opts does not
// change the result.
func (r *Reader) Parse(input []byte, _ ir.ParseOptions) (ir.Result[*ir.Document], error) {
	var in documentJSON
	if err := json.Unmarshal(input, &in); err != nil {
		return ir.Result[*ir.Document]{}, ir.NewParseError(Format, "invalid JSON", err)
	}
	if in.Version != Version {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "unsupported version %d", in.Version)
	}

	s := &readState{}
	doc := &ir.Document{}
	var err error
	if doc.Metadata, err = s.properties(in.Metadata); err != nil {
		return ir.Result[*ir.Document]{}, err
	}
	if in.Source != nil {
		doc.Source = &ir.SourceInfo{Format: in.Source.Format}
		if doc.Source.Metadata, err = s.properties(in.Source.Metadata); err != nil {
			return ir.Result[*ir.Document]{}, err
		}
	}
	for _, res := range in.Resources {
		if res.ID == "" {
			return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "resource without id")
		}
		meta, err := s.properties(res.Metadata)
		if err != nil {
			return ir.Result[*ir.Document]{}, err
		}
		doc.Resources.Put(ir.ResourceID(res.ID), ir.Resource{
			Name:     res.Name,
			MIMEType: res.MIMEType,
			Data:     res.Data,
			Metadata: meta,
		})
	}
	if doc.Content, err = s.node(in.Content); err != nil {
		return ir.Result[*ir.Document]{}, err
	}
	if doc.Content.Kind == "" {
		doc.Content.Kind = vocab.Document
	}
	return ir.Seal(&s.warn, doc), nil
}

func (s *readState) node(in nodeJSON) (ir.Node, error) {
	out := ir.New(ir.NodeKind(in.Kind))
	props, err := s.properties(in.Props)
	if err != nil {
		return ir.Node{}, err
	}
	out.Props = props
	if in.Span != nil {
		out = out.At(*in.Span)
	}
	if len(in.Children) > 0 {
		out.Children = make([]ir.Node, 0, len(in.Children))
		for _, child := range in.Children {
			c, err := s.node(child)
			if err != nil {
				return ir.Node{}, err
			}
			out.Children = append(out.Children, c)
		}
	}
	return out, nil
}

func (s *readState) properties(entries []propertyJSON) (ir.Properties, error) {
	var props ir.Properties
	for _, entry := range entries {
		value, ok, err := s.value(entry.Key, entry.value())
		if err != nil {
			return ir.Properties{}, err
		}
		if ok {
			props.Set(entry.Key, value)
		}
	}
	return props, nil
}

// value decodes one typed value. An unknown type tag drops the entry with a
// warning; a payload that does not match its tag is an error.
func (s *readState) value(key string, in valueJSON) (ir.Value, bool, error) {
	bad := func(err error) (ir.Value, bool, error) {
		return ir.Value{}, false, ir.NewParseError(Format, fmt.Sprintf("invalid %s value for %q", in.Type, key), err)
	}

	switch in.Type {
	case typeString:
		var text string
		if err := json.Unmarshal(in.Value, &text); err != nil {
			return bad(err)
		}
		return ir.String(text), true, nil
	case typeInt:
		var i int64
		if err := json.Unmarshal(in.Value, &i); err != nil {
			return bad(err)
		}
		return ir.Int(i), true, nil
	case typeFloat:
		f, err := decodeFloat(in.Value)
		if err != nil {
			return bad(err)
		}
		return ir.Float(f), true, nil
	case typeBool:
		var b bool
		if err := json.Unmarshal(in.Value, &b); err != nil {
			return bad(err)
		}
		return ir.Bool(b), true, nil
	case typeList:
		var raw []valueJSON
		if err := json.Unmarshal(in.Value, &raw); err != nil {
			return bad(err)
		}
		items := make([]ir.Value, 0, len(raw))
		for _, item := range raw {
			v, ok, err := s.value(key, item)
			if err != nil {
				return ir.Value{}, false, err
			}
			if ok {
				items = append(items, v)
			}
		}
		return ir.List(items...), true, nil
	case typeMap:
		var raw []propertyJSON
		if err := json.Unmarshal(in.Value, &raw); err != nil {
			return bad(err)
		}
		m, err := s.properties(raw)
		if err != nil {
			return ir.Value{}, false, err
		}
		return ir.Map(m), true, nil
	default:
		s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, key,
			fmt.Sprintf("unknown value type %q dropped", in.Type)))
		return ir.Value{}, false, nil
	}
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		switch name {
		case "NaN":
			return math.NaN(), nil
		case "+Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unknown float name %q", name)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
