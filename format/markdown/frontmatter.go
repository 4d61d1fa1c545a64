package markdown

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/rgonek/rescribe/ir"
	"gopkg.in/yaml.v3"
)

var frontMatterFence = []byte("---")

// splitFrontMatter separates a leading "---" YAML block from the body. The
// returned offset is the byte position where the body starts.
func splitFrontMatter(input []byte) (frontMatter, body []byte, offset int) {
	first, rest, ok := bytes.Cut(input, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimRight(first, " \r"), frontMatterFence) {
		return nil, input, 0
	}
	pos := len(first) + 1
	for len(rest) > 0 {
		line, next, _ := bytes.Cut(rest, []byte("\n"))
		trimmed := bytes.TrimRight(line, " \r")
		if bytes.Equal(trimmed, frontMatterFence) || bytes.Equal(trimmed, []byte("...")) {
			end := pos + len(line) + 1
			end = min(end, len(input))
			return input[len(first)+1 : pos], input[end:], end
		}
		pos += len(line) + 1
		rest = next
	}
	return nil, input, 0
}

// parseFrontMatter decodes a YAML mapping into metadata, keeping key order.
func (s *readState) parseFrontMatter(frontMatter []byte) {
	var root yaml.Node
	if err := yaml.Unmarshal(frontMatter, &root); err != nil {
		s.warn.Minor(ir.WarningFeatureLost, "markdown:front_matter", "front matter is not valid YAML: %v", err)
		return
	}
	if len(root.Content) == 0 {
		return
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		s.warn.Minor(ir.WarningFeatureLost, "markdown:front_matter", "front matter is not a mapping")
		return
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		s.doc.Metadata.Set(mapping.Content[i].Value, yamlValue(mapping.Content[i+1]))
	}
}

func yamlValue(node *yaml.Node) ir.Value {
	switch node.Kind {
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.SequenceNode:
		items := make([]ir.Value, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, yamlValue(item))
		}
		return ir.List(items...)
	case yaml.MappingNode:
		var props ir.Properties
		for i := 0; i+1 < len(node.Content); i += 2 {
			props.Set(node.Content[i].Value, yamlValue(node.Content[i+1]))
		}
		return ir.Map(props)
	}
	switch node.ShortTag() {
	case "!!int":
		if i, err := strconv.ParseInt(node.Value, 0, 64); err == nil {
			return ir.Int(i)
		}
	case "!!float":
		var f float64
		if err := node.Decode(&f); err == nil {
			return ir.Float(f)
		}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			return ir.Bool(b)
		}
	}
	return ir.String(node.Value)
}

// renderFrontMatter encodes metadata as a YAML block, or nil when empty.
func renderFrontMatter(meta ir.Properties) ([]byte, error) {
	if meta.IsEmpty() {
		return nil, nil
	}
	var buf bytes.Buffer
	buf.Write(frontMatterFence)
	buf.WriteByte('\n')
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(propertiesNode(meta)); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}
	buf.Write(frontMatterFence)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func propertiesNode(props ir.Properties) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for key, value := range props.All() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			valueNode(value))
	}
	return node
}

func valueNode(v ir.Value) *yaml.Node {
	switch v.Kind() {
	case ir.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
	case ir.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
	case ir.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
	case ir.KindList:
		items, _ := v.AsList()
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range items {
			node.Content = append(node.Content, valueNode(item))
		}
		return node
	case ir.KindMap:
		props, _ := v.AsMap()
		return propertiesNode(props)
	default:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}
}
