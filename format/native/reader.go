// Package native reads and writes a human-readable text rendition of the IR.
// It is meant for inspecting and diffing documents; every node, property and
// resource survives a round trip, spans excepted.
//
//	metadata { title: "Guide" }
//	source "markdown"
//	resource "res_1" { mime: "image/png", data: "iVBORw0KGgo=" }
//	content document [
//	  heading { level: 1 } [ text "Guide" ]
//	]
package native

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Resource field names.
const (
	fieldName     = "name"
	fieldMIME     = "mime"
	fieldData     = "data"
	fieldMetadata = "metadata"
)

// Reader parses the native format. It is safe for concurrent use.
type Reader struct{}

// NewReader creates a reader.
func NewReader() *Reader { return &Reader{} }

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

type readState struct {
	opts ir.ParseOptions
	warn ir.Collector
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if !utf8.Valid(input) {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "input is not valid UTF-8")
	}
	ast, err := nativeParser.ParseBytes("", input)
	if err != nil {
		return ir.Result[*ir.Document]{}, ir.NewParseError(Format, "syntax error", err)
	}

	s := &readState{opts: opts}
	doc := &ir.Document{}
	if ast.Metadata != nil {
		if doc.Metadata, err = s.properties(ast.Metadata); err != nil {
			return ir.Result[*ir.Document]{}, err
		}
	}
	if ast.Source != nil {
		if doc.Source, err = s.source(ast.Source); err != nil {
			return ir.Result[*ir.Document]{}, err
		}
	} else if opts.PreserveSourceInfo {
		doc.Source = &ir.SourceInfo{Format: Format}
	}
	for _, res := range ast.Resources {
		id, resource, err := s.resource(res)
		if err != nil {
			return ir.Result[*ir.Document]{}, err
		}
		if _, exists := doc.Resources.Get(id); exists {
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, string(id),
				fmt.Sprintf("duplicate resource %q; the later declaration wins", id)))
		}
		doc.Resources.Put(id, resource)
	}
	if doc.Content, err = s.node(ast.Content); err != nil {
		return ir.Result[*ir.Document]{}, err
	}
	if !doc.Content.Is(vocab.Document) {
		s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, string(doc.Content.Kind),
			"content root is not a document; wrapped"))
		doc.Content = ir.New(vocab.Document).Child(doc.Content)
	}
	return ir.Seal(&s.warn, doc), nil
}

func (s *readState) source(src *sourceAST) (*ir.SourceInfo, error) {
	format, err := unquote(src.Format)
	if err != nil {
		return nil, err
	}
	info := &ir.SourceInfo{Format: format}
	if src.Metadata != nil {
		if info.Metadata, err = s.properties(src.Metadata); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func (s *readState) resource(res *resourceAST) (ir.ResourceID, ir.Resource, error) {
	raw, err := unquote(res.ID)
	if err != nil {
		return "", ir.Resource{}, err
	}
	fields, err := s.properties(res.Fields)
	if err != nil {
		return "", ir.Resource{}, err
	}

	var resource ir.Resource
	for key, value := range fields.All() {
		switch key {
		case fieldName:
			resource.Name, _ = value.AsString()
		case fieldMIME:
			resource.MIMEType, _ = value.AsString()
		case fieldData:
			encoded, _ := value.AsString()
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return "", ir.Resource{}, ir.NewParseError(Format,
					fmt.Sprintf("resource %q at %s has invalid base64 data", raw, res.Pos), err)
			}
			resource.Data = data
		case fieldMetadata:
			resource.Metadata, _ = value.AsMap()
		default:
			s.warn.Add(ir.UnsupportedProperty(ir.SeverityMinor, key,
				fmt.Sprintf("unknown resource field %q ignored", key)))
		}
	}
	return ir.ResourceID(raw), resource, nil
}

func (s *readState) node(n *nodeAST) (ir.Node, error) {
	kind := n.Kind
	if len(kind) > 0 && kind[0] == '"' {
		var err error
		if kind, err = unquote(kind); err != nil {
			return ir.Node{}, err
		}
	}

	out := ir.New(ir.NodeKind(kind))
	if n.Content != nil {
		content, err := unquote(*n.Content)
		if err != nil {
			return ir.Node{}, err
		}
		out.Props.Set(vocab.Content, ir.String(content))
	}
	if n.Props != nil {
		props, err := s.properties(n.Props)
		if err != nil {
			return ir.Node{}, err
		}
		for key, value := range props.All() {
			out.Props.Set(key, value)
		}
	}
	if n.Children != nil && len(n.Children.Nodes) > 0 {
		out.Children = make([]ir.Node, 0, len(n.Children.Nodes))
		for _, child := range n.Children.Nodes {
			c, err := s.node(child)
			if err != nil {
				return ir.Node{}, err
			}
			out.Children = append(out.Children, c)
		}
	}
	if s.opts.PreserveSourceInfo {
		out = out.At(nodeSpan(n))
	}
	return out, nil
}

// nodeSpan covers the node's tokens, from its kind to its last bracket.
func nodeSpan(n *nodeAST) ir.Span {
	span := ir.Span{Start: n.Pos.Offset, End: n.Pos.Offset}
	if len(n.Tokens) > 0 {
		last := n.Tokens[len(n.Tokens)-1]
		span.End = last.Pos.Offset + len(last.Value)
	}
	return span
}

func (s *readState) properties(p *propsAST) (ir.Properties, error) {
	var props ir.Properties
	for _, entry := range p.Entries {
		key := entry.Key
		if len(key) > 0 && key[0] == '"' {
			var err error
			if key, err = unquote(key); err != nil {
				return ir.Properties{}, err
			}
		}
		if props.Has(key) {
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningStructureRepaired, key,
				fmt.Sprintf("duplicate key %q at %s; the later value wins", key, entry.Pos)))
		}
		value, err := s.value(entry.Value)
		if err != nil {
			return ir.Properties{}, err
		}
		props.Set(key, value)
	}
	return props, nil
}

func (s *readState) value(v *valueAST) (ir.Value, error) {
	switch {
	case v.String != nil:
		text, err := unquote(*v.String)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.String(text), nil
	case v.Float != nil:
		return ir.Float(*v.Float), nil
	case v.Int != nil:
		return ir.Int(*v.Int), nil
	case v.Bool != nil:
		return ir.Bool(bool(*v.Bool)), nil
	case v.List != nil:
		items := make([]ir.Value, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			value, err := s.value(item)
			if err != nil {
				return ir.Value{}, err
			}
			items = append(items, value)
		}
		return ir.List(items...), nil
	case v.Map != nil:
		props, err := s.properties(v.Map)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Map(props), nil
	}
	return ir.Value{}, ir.InvalidInput(Format, "empty value")
}

func unquote(quoted string) (string, error) {
	text, err := strconv.Unquote(quoted)
	if err != nil {
		return "", ir.NewParseError(Format, fmt.Sprintf("invalid string literal %s", quoted), err)
	}
	return text, nil
}
