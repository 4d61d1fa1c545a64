// Package ipynb reads and writes Jupyter notebooks (nbformat 4). Markdown
// cells go through the Markdown reader and writer; code cells and their
// outputs map to code blocks, images and raw blocks marked with ipynb:
// properties so the writer can rebuild the cells.
package ipynb

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/rgonek/rescribe/format/markdown"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Property keys recorded on cell and output nodes.
const (
	PropExecutionCount = vocab.IpynbPrefix + "execution_count"
	PropOutputType     = vocab.IpynbPrefix + "output_type"
	PropStreamName     = vocab.IpynbPrefix + "stream_name"
	PropCellID         = vocab.IpynbPrefix + "cell_id"
	PropEName          = vocab.IpynbPrefix + "ename"
	PropEValue         = vocab.IpynbPrefix + "evalue"
)

// Reader parses notebooks into the IR. It is safe for concurrent use.
type Reader struct {
	config   Config
	markdown *markdown.Reader
}

// NewReader creates a reader with the given config.
func NewReader(config Config) (*Reader, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	md, err := markdown.NewReader(cfg.Markdown)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Reader{config: cfg, markdown: md}, nil
}

// Formats implements ir.Parser.
func (r *Reader) Formats() []string { return []string{Format} }

type readState struct {
	config   Config
	opts     ir.ParseOptions
	markdown *markdown.Reader
	doc      *ir.Document
	warn     ir.Collector
	language string
}

// Parse implements ir.Parser.
func (r *Reader) Parse(input []byte, opts ir.ParseOptions) (ir.Result[*ir.Document], error) {
	if !utf8.Valid(input) {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "notebook is not valid UTF-8")
	}
	var nb notebook
	if err := json.Unmarshal(input, &nb); err != nil {
		return ir.Result[*ir.Document]{}, ir.NewParseError(Format, "invalid notebook JSON", err)
	}
	if nb.NBFormat == 0 {
		nb.NBFormat = 4
	}
	if nb.NBFormat < 4 {
		return ir.Result[*ir.Document]{}, ir.InvalidInput(Format, "unsupported nbformat %d", nb.NBFormat)
	}

	s := &readState{
		config:   r.config,
		opts:     opts,
		markdown: r.markdown,
		doc:      ir.NewDocument(),
		language: notebookLanguage(nb.Metadata, r.config.Language),
	}
	s.doc.Metadata = notebookProperties(nb)

	for i, c := range nb.Cells {
		nodes, err := s.convertCell(i, c)
		if err != nil {
			return ir.Result[*ir.Document]{}, err
		}
		s.doc.Content = s.doc.Content.AppendChildren(nodes...)
	}

	if opts.PreserveSourceInfo {
		s.doc.Source = &ir.SourceInfo{Format: Format}
	}
	return ir.Seal(&s.warn, s.doc), nil
}

func notebookLanguage(meta notebookMetadata, fallback string) string {
	if meta.LanguageInfo != nil && meta.LanguageInfo.Name != "" {
		return meta.LanguageInfo.Name
	}
	if meta.KernelSpec != nil && meta.KernelSpec.Language != "" {
		return meta.KernelSpec.Language
	}
	return fallback
}

func notebookProperties(nb notebook) ir.Properties {
	var meta ir.Properties
	meta.Set("nbformat", ir.Int(int64(nb.NBFormat)))
	meta.Set("nbformat_minor", ir.Int(int64(nb.NBFormatMinor)))
	if k := nb.Metadata.KernelSpec; k != nil {
		if k.Name != "" {
			meta.Set("kernel_name", ir.String(k.Name))
		}
		if k.DisplayName != "" {
			meta.Set("kernel_display_name", ir.String(k.DisplayName))
		}
		if k.Language != "" {
			meta.Set("language", ir.String(k.Language))
		}
	}
	if l := nb.Metadata.LanguageInfo; l != nil {
		if l.Name != "" {
			meta.Set("language", ir.String(l.Name))
		}
		if l.Version != "" {
			meta.Set("language_version", ir.String(l.Version))
		}
	}
	return meta
}

func (s *readState) convertCell(index int, c cell) ([]ir.Node, error) {
	switch c.CellType {
	case "markdown":
		return s.convertMarkdown(index, string(c.Source))
	case "code":
		return s.convertCode(c), nil
	case "raw":
		return []ir.Node{ir.New(vocab.RawBlock).
			Prop(vocab.Format, rawFormat(c.Metadata)).
			Prop(vocab.Content, string(c.Source))}, nil
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, vocab.IpynbPrefix+c.CellType,
			fmt.Sprintf("cell %d has unknown type %q and was dropped", index, c.CellType)))
		return nil, nil
	}
}

// convertMarkdown sub-parses a markdown cell; its warnings and resources
// join the notebook's in cell order.
func (s *readState) convertMarkdown(index int, source string) ([]ir.Node, error) {
	result, err := s.markdown.Parse([]byte(source), ir.ParseOptions{EmbedResources: s.opts.EmbedResources})
	if err != nil {
		return nil, ir.NewParseError(Format, fmt.Sprintf("failed to parse markdown cell %d", index), err)
	}
	sub := ir.Absorb(&s.warn, result)
	for id, res := range sub.Resources.All() {
		s.doc.Resources.Put(id, res)
	}
	return sub.Content.Children, nil
}

func (s *readState) convertCode(c cell) []ir.Node {
	block := ir.New(vocab.CodeBlock).
		Prop(vocab.Language, s.language).
		Prop(vocab.Content, string(c.Source))
	if n, ok := c.executionCount(); ok {
		block = block.Prop(PropExecutionCount, n)
	}
	if c.ID != "" {
		block = block.Prop(PropCellID, c.ID)
	}

	nodes := []ir.Node{block}
	if s.config.SkipOutputs {
		return nodes
	}
	for _, out := range c.outputs() {
		if n, ok := s.convertOutput(out); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (s *readState) convertOutput(out output) (ir.Node, bool) {
	switch out.OutputType {
	case "stream":
		name := out.Name
		if name == "" {
			name = "stdout"
		}
		text := ""
		if out.Text != nil {
			text = string(*out.Text)
		}
		return ir.New(vocab.CodeBlock).
			Prop(PropOutputType, out.OutputType).
			Prop(PropStreamName, name).
			Prop(vocab.Content, text), true
	case "error":
		var sb strings.Builder
		if out.EName != "" {
			sb.WriteString(out.EName)
			sb.WriteString(": ")
		}
		sb.WriteString(out.EValue)
		if len(out.Traceback) > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Join(out.Traceback, "\n"))
		}
		return ir.New(vocab.CodeBlock).
			Prop(PropOutputType, out.OutputType).
			Prop(PropEName, out.EName).
			Prop(PropEValue, out.EValue).
			Prop(vocab.Content, stripANSI(sb.String())), true
	case "execute_result", "display_data":
		n, ok := s.convertDisplay(out)
		if !ok {
			return ir.Node{}, false
		}
		n = n.Prop(PropOutputType, out.OutputType)
		if out.ExecutionCount != nil {
			n = n.Prop(PropExecutionCount, *out.ExecutionCount)
		}
		return n, true
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, vocab.IpynbPrefix+out.OutputType,
			fmt.Sprintf("output type %q dropped", out.OutputType)))
		return ir.Node{}, false
	}
}

// convertDisplay picks the richest MIME type of a display bundle.
func (s *readState) convertDisplay(out output) (ir.Node, bool) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/gif"} {
		if data, ok := out.dataText(mime); ok {
			return ir.New(vocab.Paragraph).Child(s.image(mime, data)), true
		}
	}
	if svg, ok := out.dataText("image/svg+xml"); ok {
		return ir.New(vocab.RawBlock).Prop(vocab.Format, "svg").Prop(vocab.Content, svg), true
	}
	if html, ok := out.dataText("text/html"); ok {
		return ir.New(vocab.RawBlock).Prop(vocab.Format, "html").Prop(vocab.Content, html), true
	}
	if latex, ok := out.dataText("text/latex"); ok {
		return ir.New(vocab.RawBlock).Prop(vocab.Format, "latex").Prop(vocab.Content, latex), true
	}
	if text, ok := out.dataText("text/plain"); ok {
		return ir.New(vocab.CodeBlock).Prop(vocab.Content, text), true
	}
	if len(out.Data) > 0 {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, vocab.IpynbPrefix+out.OutputType,
			"display output has no supported MIME type"))
	}
	return ir.Node{}, false
}

// image decodes a base64 payload into a resource. A payload that does not
// decode stays in the document as a data URI reference.
func (s *readState) image(mime, data string) ir.Node {
	img := ir.New(vocab.Image).Prop(vocab.Alt, "Output image")
	payload := strings.Join(strings.Fields(data), "")
	if !s.opts.EmbedResources {
		return img.Prop(vocab.URL, "data:"+mime+";base64,"+payload)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.warn.Add(ir.ResourceFailed(mime, fmt.Sprintf("invalid base64 image data: %v", err)))
		return img.Prop(vocab.URL, "data:"+mime+";base64,"+payload)
	}
	id := s.doc.Embed(ir.NewResource(mime, decoded))
	return img.Prop(vocab.Resource, string(id))
}

func rawFormat(metadata json.RawMessage) string {
	var meta struct {
		Format      string `json:"format"`
		RawMimetype string `json:"raw_mimetype"`
	}
	if len(metadata) > 0 && json.Unmarshal(metadata, &meta) != nil {
		return "text"
	}
	if meta.Format != "" {
		return meta.Format
	}
	switch meta.RawMimetype {
	case "text/html":
		return "html"
	case "text/latex":
		return "latex"
	case "text/markdown":
		return "markdown"
	case "text/restructuredtext":
		return "rst"
	default:
		return "text"
	}
}

// stripANSI removes terminal color escapes from tracebacks.
func stripANSI(text string) string {
	if !strings.Contains(text, "\x1b[") {
		return text
	}
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != 0x1b || i+1 >= len(text) || text[i+1] != '[' {
			sb.WriteByte(text[i])
			continue
		}
		i += 2
		for i < len(text) && !isASCIILetter(text[i]) {
			i++
		}
	}
	return sb.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
