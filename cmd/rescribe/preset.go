package main

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/convert"
	"github.com/rgonek/rescribe/format/html"
	"github.com/rgonek/rescribe/format/markdown"
	"github.com/rgonek/rescribe/stream"
)

const (
	presetBalanced = "balanced"
	presetStrict   = "strict"
	presetReadable = "readable"
	presetLossy    = "lossy"
)

// presetConfig returns the format configuration a preset stands for. The
// balanced preset is the zero config, so every reader and writer applies its
// own defaults.
func presetConfig(preset string) (convert.FormatConfig, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", presetBalanced:
		return convert.FormatConfig{}, nil
	case presetStrict:
		return convert.FormatConfig{
			HTML: html.Config{
				Recovery:      stream.RecoverIgnore,
				ReportRepairs: true,
			},
			Markdown: markdown.Config{
				UnknownNodes:   markdown.UnknownError,
				ResolutionMode: markdown.ResolutionStrict,
			},
		}, nil
	case presetReadable:
		return convert.FormatConfig{
			HTML: html.Config{UnknownNodes: html.UnknownUnwrap},
			Markdown: markdown.Config{
				UnderlineStyle: markdown.UnderlineBold,
				SubSupStyle:    markdown.SubSupLaTeX,
				HardBreakStyle: markdown.HardBreakBackslash,
				UnknownNodes:   markdown.UnknownUnwrap,
			},
		}, nil
	case presetLossy:
		return convert.FormatConfig{
			HTML: html.Config{UnknownNodes: html.UnknownSkip},
			Markdown: markdown.Config{
				UnderlineStyle: markdown.UnderlineIgnore,
				SubSupStyle:    markdown.SubSupIgnore,
				UnknownNodes:   markdown.UnknownSkip,
			},
		}, nil
	default:
		return convert.FormatConfig{}, fmt.Errorf("unknown preset %q (allowed: balanced, strict, readable, lossy)", preset)
	}
}

// resolveConfig applies the HTML toggle on top of a preset.
func resolveConfig(preset string, allowHTML bool) (convert.FormatConfig, error) {
	cfg, err := presetConfig(preset)
	if err != nil {
		return convert.FormatConfig{}, err
	}
	if allowHTML {
		cfg.Markdown.UnderlineStyle = markdown.UnderlineHTML
		cfg.Markdown.SubSupStyle = markdown.SubSupHTML
		cfg.Markdown.HardBreakStyle = markdown.HardBreakHTML
	}
	return cfg, nil
}
