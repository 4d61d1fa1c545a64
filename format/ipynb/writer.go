package ipynb

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rgonek/rescribe/format/markdown"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/vocab"
)

// Writer renders the IR as an nbformat 4 notebook. It is safe for concurrent
// use.
type Writer struct {
	config   Config
	markdown *markdown.Writer
}

// NewWriter creates a writer with the given config.
func NewWriter(config Config) (*Writer, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	md, err := markdown.NewWriter(cfg.Markdown)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Writer{config: cfg, markdown: md}, nil
}

// Formats implements ir.Emitter.
func (w *Writer) Formats() []string { return []string{Format} }

type writeState struct {
	config   Config
	markdown *markdown.Writer
	doc      *ir.Document
	warn     ir.Collector
	cells    []cell
	pending  []ir.Node
	withIDs  bool
}

// Emit implements ir.Emitter.
func (w *Writer) Emit(doc *ir.Document, _ ir.EmitOptions) (ir.Result[[]byte], error) {
	if doc == nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "nil document", ir.ErrInvalidInput)
	}

	nb := notebook{
		NBFormat:      int(metaInt(doc.Metadata, "nbformat", 4)),
		NBFormatMinor: int(metaInt(doc.Metadata, "nbformat_minor", 5)),
		Metadata:      writeMetadata(doc.Metadata, w.config.Language),
	}
	s := &writeState{
		config:   w.config,
		markdown: w.markdown,
		doc:      doc,
		withIDs:  nb.NBFormat > 4 || nb.NBFormatMinor >= 5,
	}
	if err := s.convertBlocks(doc.Content.Children); err != nil {
		return ir.Result[[]byte]{}, err
	}
	nb.Cells = s.cells
	if nb.Cells == nil {
		nb.Cells = []cell{}
	}

	out, err := json.MarshalIndent(nb, "", s.config.Indent)
	if err != nil {
		return ir.Result[[]byte]{}, ir.NewEmitError(Format, "failed to encode notebook", err)
	}
	out = append(out, '\n')
	return ir.Seal(&s.warn, out), nil
}

func metaInt(meta ir.Properties, key string, fallback int64) int64 {
	if v, ok := meta.GetInt(key); ok {
		return v
	}
	return fallback
}

func writeMetadata(meta ir.Properties, fallback string) notebookMetadata {
	language := meta.StringOr("language", fallback)
	return notebookMetadata{
		KernelSpec: &kernelSpec{
			Name:        meta.StringOr("kernel_name", language),
			DisplayName: meta.StringOr("kernel_display_name", language),
			Language:    language,
		},
		LanguageInfo: &languageInfo{
			Name:    language,
			Version: meta.StringOr("language_version", ""),
		},
	}
}

// convertBlocks groups top-level nodes into cells. Code blocks start code
// cells, output-marked nodes attach to the preceding code cell, raw blocks
// become raw cells and everything else accumulates into markdown cells.
func (s *writeState) convertBlocks(nodes []ir.Node) error {
	for _, n := range nodes {
		if _, isOutput := n.Props.GetString(PropOutputType); isOutput {
			if last := len(s.cells) - 1; last >= 0 && len(s.pending) == 0 && s.cells[last].CellType == "code" {
				if out, ok := s.convertOutput(n); ok {
					outputs := append(s.cells[last].outputs(), out)
					s.cells[last].Outputs = &outputs
				}
				continue
			}
			s.warn.Add(ir.FeatureLost(ir.SeverityMinor, PropOutputType,
				"output found outside a code cell; written as markdown"))
			s.pending = append(s.pending, n)
			continue
		}

		switch n.Kind {
		case vocab.CodeBlock:
			if err := s.flushMarkdown(); err != nil {
				return err
			}
			s.cells = append(s.cells, s.codeCell(n))
		case vocab.RawBlock:
			if err := s.flushMarkdown(); err != nil {
				return err
			}
			s.cells = append(s.cells, s.rawCell(n))
		default:
			s.pending = append(s.pending, n)
		}
	}
	return s.flushMarkdown()
}

// flushMarkdown writes the accumulated nodes as one markdown cell through the
// Markdown writer, absorbing its warnings.
func (s *writeState) flushMarkdown() error {
	if len(s.pending) == 0 {
		return nil
	}
	sub := &ir.Document{
		Content:   ir.New(vocab.Document).AppendChildren(s.pending...),
		Resources: s.doc.Resources,
	}
	s.pending = nil

	result, err := s.markdown.Emit(sub, ir.EmitOptions{EmbedResources: true})
	if err != nil {
		return ir.NewEmitError(Format, "failed to write markdown cell", err)
	}
	source := strings.TrimRight(string(ir.Absorb(&s.warn, result)), "\n")
	if source == "" {
		return nil
	}
	s.cells = append(s.cells, cell{
		ID:       s.cellID(ir.Node{}),
		CellType: "markdown",
		Metadata: emptyObject,
		Source:   multiline(source),
	})
	return nil
}

func (s *writeState) codeCell(n ir.Node) cell {
	c := cell{
		ID:             s.cellID(n),
		CellType:       "code",
		Metadata:       emptyObject,
		Source:         multiline(strings.TrimSuffix(n.Props.StringOr(vocab.Content, ""), "\n")),
		Outputs:        &[]output{},
		ExecutionCount: json.RawMessage("null"),
	}
	if count, ok := n.Props.GetInt(PropExecutionCount); ok {
		c.ExecutionCount = json.RawMessage(strconv.FormatInt(count, 10))
	}
	notebookLang := s.doc.Metadata.StringOr("language", s.config.Language)
	if lang, ok := n.Props.GetString(vocab.Language); ok && lang != "" && lang != notebookLang {
		s.warn.Add(ir.FeatureLost(ir.SeverityMinor, vocab.Language,
			fmt.Sprintf("code cell language %q differs from the notebook language", lang)))
	}
	return c
}

var rawMimetypes = map[string]string{
	"html":     "text/html",
	"latex":    "text/latex",
	"markdown": "text/markdown",
	"rst":      "text/restructuredtext",
}

func (s *writeState) rawCell(n ir.Node) cell {
	meta := emptyObject
	if format := n.Props.StringOr(vocab.Format, ""); format != "" && format != "text" {
		entry := map[string]string{"format": format}
		if mime, ok := rawMimetypes[format]; ok {
			entry = map[string]string{"raw_mimetype": mime}
		}
		if encoded, err := json.Marshal(entry); err == nil {
			meta = encoded
		}
	}
	return cell{
		ID:       s.cellID(n),
		CellType: "raw",
		Metadata: meta,
		Source:   multiline(n.Props.StringOr(vocab.Content, "")),
	}
}

// cellID reuses a recorded id; nbformat 4.5 and later require one per cell.
func (s *writeState) cellID(n ir.Node) string {
	if !s.withIDs {
		return ""
	}
	if id, ok := n.Props.GetString(PropCellID); ok && id != "" {
		return id
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func (s *writeState) convertOutput(n ir.Node) (output, bool) {
	kind := n.Props.StringOr(PropOutputType, "")
	switch kind {
	case "stream":
		text := multiline(n.Props.StringOr(vocab.Content, ""))
		return output{
			OutputType: kind,
			Name:       n.Props.StringOr(PropStreamName, "stdout"),
			Text:       &text,
		}, true
	case "error":
		content := n.Props.StringOr(vocab.Content, "")
		out := output{
			OutputType: kind,
			EName:      n.Props.StringOr(PropEName, ""),
			EValue:     n.Props.StringOr(PropEValue, ""),
			Traceback:  []string{},
		}
		if _, rest, ok := strings.Cut(content, "\n"); ok && rest != "" {
			out.Traceback = strings.Split(rest, "\n")
		}
		return out, true
	case "execute_result", "display_data":
		data, ok := s.displayData(n)
		if !ok {
			return output{}, false
		}
		out := output{OutputType: kind, Data: data, Metadata: emptyObject}
		if kind == "execute_result" {
			count := int(metaInt(n.Props, PropExecutionCount, 0))
			out.ExecutionCount = &count
		}
		return out, true
	default:
		s.warn.Add(ir.UnsupportedNode(ir.SeverityMinor, vocab.IpynbPrefix+kind,
			fmt.Sprintf("output type %q dropped", kind)))
		return output{}, false
	}
}

func (s *writeState) displayData(n ir.Node) (map[string]json.RawMessage, bool) {
	text := func(mime, content string) (map[string]json.RawMessage, bool) {
		encoded, err := multiline(content).MarshalJSON()
		if err != nil {
			return nil, false
		}
		return map[string]json.RawMessage{mime: encoded}, true
	}

	switch n.Kind {
	case vocab.CodeBlock:
		return text("text/plain", n.Props.StringOr(vocab.Content, ""))
	case vocab.RawBlock:
		switch n.Props.StringOr(vocab.Format, "") {
		case "html":
			return text("text/html", n.Props.StringOr(vocab.Content, ""))
		case "svg":
			return text("image/svg+xml", n.Props.StringOr(vocab.Content, ""))
		case "latex":
			return text("text/latex", n.Props.StringOr(vocab.Content, ""))
		}
	case vocab.Paragraph:
		if len(n.Children) == 1 && n.Children[0].Is(vocab.Image) {
			return s.imageData(n.Children[0])
		}
	}
	s.warn.Add(ir.FeatureLost(ir.SeverityMinor, string(n.Kind), "display output could not be encoded"))
	return nil, false
}

func (s *writeState) imageData(img ir.Node) (map[string]json.RawMessage, bool) {
	var res ir.Resource
	if id, found, ok := s.doc.ResolveResource(img); ok {
		res = found
	} else if id != "" {
		s.warn.Add(ir.ResourceFailed(string(id), "resource not found in document"))
		return nil, false
	} else {
		decoded, err := ir.DecodeDataURI(img.Props.StringOr(vocab.URL, ""))
		if err != nil {
			s.warn.Add(ir.ResourceFailed(img.Props.StringOr(vocab.URL, ""), "image output is neither a resource nor a data URI"))
			return nil, false
		}
		res = decoded
	}

	var buf bytes.Buffer
	buf.WriteByte('"')
	buf.WriteString(base64.StdEncoding.EncodeToString(res.Data))
	buf.WriteByte('"')
	return map[string]json.RawMessage{res.MIMEType: buf.Bytes()}, true
}
