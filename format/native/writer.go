package native

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Writer renders documents in the native format. It is safe for concurrent
// use.
type Writer struct {
	config Config
}

// NewWriter creates a writer with the given config.
func NewWriter(config Config) (*Writer, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Writer{config: cfg}, nil
}

// Formats implements ir.Emitter.
func (w *Writer) Formats() []string { return []string{Format} }

type writeState struct {
	config Config
	buf    bytes.Buffer
	warn   ir.Collector
}

// Emit implements ir.Emitter. Resources are always written with their data;
// the output is a complete dump of the document.
func (w *Writer) Emit(doc *ir.Document, _ ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}
	s := &writeState{config: w.config}

	if !doc.Metadata.IsEmpty() {
		s.buf.WriteString("metadata ")
		s.block(doc.Metadata, 0)
		s.buf.WriteByte('\n')
	}
	if doc.Source != nil {
		s.buf.WriteString("source ")
		s.buf.WriteString(strconv.Quote(doc.Source.Format))
		if !doc.Source.Metadata.IsEmpty() {
			s.buf.WriteByte(' ')
			s.block(doc.Source.Metadata, 0)
		}
		s.buf.WriteByte('\n')
	}
	for id, res := range doc.Resources.All() {
		s.buf.WriteString("resource ")
		s.buf.WriteString(strconv.Quote(string(id)))
		s.buf.WriteByte(' ')
		s.block(resourceFields(res), 0)
		s.buf.WriteByte('\n')
	}

	content := doc.Content
	if content.Kind == "" {
		content = ir.New(vocab.Document)
	}
	s.buf.WriteString("content ")
	s.node(content, 0)
	s.buf.WriteByte('\n')
	return ir.Seal(&s.warn, s.buf.Bytes()), nil
}

func resourceFields(res ir.Resource) ir.Properties {
	var fields ir.Properties
	if res.Name != "" {
		fields.Set(fieldName, ir.String(res.Name))
	}
	fields.Set(fieldMIME, ir.String(res.MIMEType))
	fields.Set(fieldData, ir.String(base64.StdEncoding.EncodeToString(res.Data)))
	if !res.Metadata.IsEmpty() {
		fields.Set(fieldMetadata, ir.Map(res.Metadata))
	}
	return fields
}

func (s *writeState) indent(depth int) {
	s.buf.WriteString(strings.Repeat(s.config.Indent, depth))
}

// block writes one entry per line.
func (s *writeState) block(props ir.Properties, depth int) {
	s.buf.WriteString("{\n")
	for key, value := range props.All() {
		s.indent(depth + 1)
		s.key(key)
		s.buf.WriteString(": ")
		s.value(key, value)
		s.buf.WriteByte('\n')
	}
	s.indent(depth)
	s.buf.WriteByte('}')
}

// node writes n on the current line and its children on the following ones.
// A leading string content property is written as `kind "content"`.
func (s *writeState) node(n ir.Node, depth int) {
	kind := string(n.Kind)
	if identRe.MatchString(kind) {
		s.buf.WriteString(kind)
	} else {
		s.buf.WriteByte('@')
		s.buf.WriteString(strconv.Quote(kind))
	}

	props := n.Props
	if keys := props.Keys(); len(keys) > 0 && keys[0] == vocab.Content {
		if content, ok := props.GetString(vocab.Content); ok {
			s.buf.WriteByte(' ')
			s.buf.WriteString(strconv.Quote(content))
			props = props.Clone()
			props.Delete(vocab.Content)
		}
	}
	if !props.IsEmpty() {
		s.buf.WriteByte(' ')
		s.inline(props)
	}

	if len(n.Children) == 0 {
		return
	}
	s.buf.WriteString(" [\n")
	for _, child := range n.Children {
		s.indent(depth + 1)
		s.node(child, depth+1)
		s.buf.WriteByte('\n')
	}
	s.indent(depth)
	s.buf.WriteByte(']')
}

// inline writes a property map on one line.
func (s *writeState) inline(props ir.Properties) {
	s.buf.WriteString("{ ")
	first := true
	for key, value := range props.All() {
		if !first {
			s.buf.WriteString(", ")
		}
		first = false
		s.key(key)
		s.buf.WriteString(": ")
		s.value(key, value)
	}
	s.buf.WriteString(" }")
}

func (s *writeState) key(key string) {
	if identRe.MatchString(key) {
		s.buf.WriteString(key)
		return
	}
	s.buf.WriteString(strconv.Quote(key))
}

func (s *writeState) value(key string, v ir.Value) {
	switch v.Kind() {
	case ir.KindString:
		text, _ := v.AsString()
		s.buf.WriteString(strconv.Quote(text))
	case ir.KindInt:
		i, _ := v.AsInt()
		s.buf.WriteString(strconv.FormatInt(i, 10))
	case ir.KindFloat:
		f, _ := v.AsFloat()
		s.buf.WriteString(s.float(key, f))
	case ir.KindBool:
		b, _ := v.AsBool()
		s.buf.WriteString(strconv.FormatBool(b))
	case ir.KindList:
		items, _ := v.AsList()
		s.buf.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				s.buf.WriteString(", ")
			}
			s.value(key, item)
		}
		s.buf.WriteByte(']')
	case ir.KindMap:
		m, _ := v.AsMap()
		if m.IsEmpty() {
			s.buf.WriteString("{}")
			return
		}
		s.inline(m)
	default:
		s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, key, "property without a value written as an empty string"))
		s.buf.WriteString(`""`)
	}
}

// float always carries a '.' or an exponent so it reads back as a float.
// NaN and the infinities have no literal and are written as strings.
func (s *writeState) float(key string, f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, key,
			fmt.Sprintf("float %v has no native literal; written as a string", f)))
		return strconv.Quote(strconv.FormatFloat(f, 'g', -1, 64))
	}
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(text, ".e") {
		text += ".0"
	}
	return text
}
