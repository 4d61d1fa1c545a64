package convert

import (
	"fmt"

	"github.com/rgonek/rescribe/format/adf"
	"github.com/rgonek/rescribe/format/docbook"
	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/format/ipynb"
	"github.com/rgonek/rescribe/format/irjson"
	"github.com/rgonek/rescribe/format/markdown"
	"github.com/rgonek/rescribe/format/native"
)

// FormatConfig holds the per-format configuration of the built-in formats.
type FormatConfig struct {
	HTML     html.Config     `json:"html,omitempty" yaml:"html,omitempty"`
	Markdown markdown.Config `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	DocBook  docbook.Config  `json:"docbook,omitempty" yaml:"docbook,omitempty"`
	Ipynb    ipynb.Config    `json:"ipynb,omitempty" yaml:"ipynb,omitempty"`
	Native   native.Config   `json:"native,omitempty" yaml:"native,omitempty"`
	ADF      adf.Config      `json:"adf,omitempty" yaml:"adf,omitempty"`
}

var defaultExtensions = map[string][]string{
	html.Format:     {".html", ".htm", ".xhtml"},
	markdown.Format: {".md", ".markdown", ".mdown"},
	docbook.Format:  {".dbk", ".docbook", ".xml"},
	ipynb.Format:    {".ipynb"},
	native.Format:   {".native"},
	irjson.Format:   {".irjson", ".ir.json"},
	adf.Format:      {".adf", ".adf.json"},
}

// Default returns a registry holding every built-in format with default
// configuration.
func Default(opts ...Option) *Registry {
	r, err := New(FormatConfig{}, opts...)
	if err != nil {
		// Zero configs always validate.
		panic(err)
	}
	return r
}

// New returns a registry holding every built-in format configured by cfg.
func New(cfg FormatConfig, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)

	htmlReader, err := html.NewReader(cfg.HTML)
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	htmlWriter, err := html.NewWriter(cfg.HTML)
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	mdReader, err := markdown.NewReader(cfg.Markdown)
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	mdWriter, err := markdown.NewWriter(cfg.Markdown)
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	dbReader, err := docbook.NewReader(cfg.DocBook)
	if err != nil {
		return nil, fmt.Errorf("docbook: %w", err)
	}
	nbReader, err := ipynb.NewReader(cfg.Ipynb)
	if err != nil {
		return nil, fmt.Errorf("ipynb: %w", err)
	}
	nbWriter, err := ipynb.NewWriter(cfg.Ipynb)
	if err != nil {
		return nil, fmt.Errorf("ipynb: %w", err)
	}
	nativeWriter, err := native.NewWriter(cfg.Native)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}
	adfReader, err := adf.NewReader(cfg.ADF)
	if err != nil {
		return nil, fmt.Errorf("adf: %w", err)
	}
	adfWriter, err := adf.NewWriter(cfg.ADF)
	if err != nil {
		return nil, fmt.Errorf("adf: %w", err)
	}

	r.RegisterParser(htmlReader)
	r.RegisterEmitter(htmlWriter)
	r.RegisterParser(mdReader)
	r.RegisterEmitter(mdWriter)
	r.RegisterParser(dbReader)
	r.RegisterParser(nbReader)
	r.RegisterEmitter(nbWriter)
	r.RegisterParser(native.NewReader())
	r.RegisterEmitter(nativeWriter)
	r.RegisterParser(irjson.NewReader())
	r.RegisterEmitter(irjson.NewWriter())
	r.RegisterParser(adfReader)
	r.RegisterEmitter(adfWriter)

	for format, exts := range defaultExtensions {
		for _, ext := range exts {
			r.RegisterExtension(ext, format)
		}
	}
	return r, nil
}
