package markdown

import (
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/format/html"
)

// Format is the registry name of the Markdown reader and writer.
const Format = "markdown"

// UnderlineStyle controls how underline nodes are rendered.
type UnderlineStyle string

const (
	UnderlineIgnore UnderlineStyle = "ignore"
	UnderlineBold   UnderlineStyle = "bold"
	UnderlineHTML   UnderlineStyle = "html"
)

// SubSupStyle controls how subscript/superscript nodes are rendered.
type SubSupStyle string

const (
	SubSupIgnore SubSupStyle = "ignore"
	SubSupHTML   SubSupStyle = "html"
	SubSupLaTeX  SubSupStyle = "latex"
)

// HardBreakStyle controls how hard line breaks are rendered.
type HardBreakStyle string

const (
	HardBreakBackslash HardBreakStyle = "backslash"
	HardBreakHTML      HardBreakStyle = "html"
)

// UnknownPolicy controls behavior for node kinds the writer does not know.
type UnknownPolicy string

const (
	// UnknownError fails the emit.
	UnknownError UnknownPolicy = "error"
	// UnknownSkip drops the node with a Major warning.
	UnknownSkip UnknownPolicy = "skip"
	// UnknownPlaceholder writes "[Unknown node: kind]" with a Minor warning.
	UnknownPlaceholder UnknownPolicy = "placeholder"
	// UnknownUnwrap writes the children with a Minor warning.
	UnknownUnwrap UnknownPolicy = "unwrap"
)

// Config holds Markdown reader and writer options.
type Config struct {
	UnderlineStyle UnderlineStyle    `json:"underlineStyle,omitempty" yaml:"underline_style,omitempty"`
	SubSupStyle    SubSupStyle       `json:"subSupStyle,omitempty" yaml:"sub_sup_style,omitempty"`
	HardBreakStyle HardBreakStyle    `json:"hardBreakStyle,omitempty" yaml:"hard_break_style,omitempty"`
	BulletMarker   rune              `json:"bulletMarker,omitempty" yaml:"bullet_marker,omitempty"`
	UnknownNodes   UnknownPolicy     `json:"unknownNodes,omitempty" yaml:"unknown_nodes,omitempty"`
	ResolutionMode ResolutionMode    `json:"resolutionMode,omitempty" yaml:"resolution_mode,omitempty"`
	LanguageMap    map[string]string `json:"languageMap,omitempty" yaml:"language_map,omitempty"`
	// HTML configures the reader used for raw HTML blocks.
	HTML         html.Config  `json:"html,omitempty" yaml:"html,omitempty"`
	ResourceHook ResourceHook `json:"-" yaml:"-"`
}

func (c Config) applyDefaults() Config {
	if c.UnderlineStyle == "" {
		c.UnderlineStyle = UnderlineHTML
	}
	if c.SubSupStyle == "" {
		c.SubSupStyle = SubSupHTML
	}
	if c.HardBreakStyle == "" {
		c.HardBreakStyle = HardBreakBackslash
	}
	if c.BulletMarker == 0 {
		c.BulletMarker = '-'
	}
	if c.UnknownNodes == "" {
		c.UnknownNodes = UnknownUnwrap
	}
	if c.ResolutionMode == "" {
		c.ResolutionMode = ResolutionBestEffort
	}
	return c
}

// clone returns a deep copy of Config for map-backed fields.
func (c Config) clone() Config {
	cloned := c
	if c.LanguageMap != nil {
		cloned.LanguageMap = make(map[string]string, len(c.LanguageMap))
		for from, to := range c.LanguageMap {
			cloned.LanguageMap[from] = to
		}
	}
	return cloned
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	if c.UnderlineStyle != UnderlineIgnore && c.UnderlineStyle != UnderlineBold && c.UnderlineStyle != UnderlineHTML {
		return fmt.Errorf("invalid underlineStyle %q", c.UnderlineStyle)
	}
	if c.SubSupStyle != SubSupIgnore && c.SubSupStyle != SubSupHTML && c.SubSupStyle != SubSupLaTeX {
		return fmt.Errorf("invalid subSupStyle %q", c.SubSupStyle)
	}
	if c.HardBreakStyle != HardBreakBackslash && c.HardBreakStyle != HardBreakHTML {
		return fmt.Errorf("invalid hardBreakStyle %q", c.HardBreakStyle)
	}
	if c.BulletMarker != '-' && c.BulletMarker != '*' && c.BulletMarker != '+' {
		return fmt.Errorf("invalid bulletMarker %q: must be one of -, *, +", c.BulletMarker)
	}
	switch c.UnknownNodes {
	case UnknownError, UnknownSkip, UnknownPlaceholder, UnknownUnwrap:
	default:
		return fmt.Errorf("invalid unknownNodes policy %q", c.UnknownNodes)
	}
	if c.ResolutionMode != ResolutionBestEffort && c.ResolutionMode != ResolutionStrict {
		return fmt.Errorf("invalid resolutionMode %q", c.ResolutionMode)
	}
	for from, to := range c.LanguageMap {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("languageMap keys and values must be non-empty")
		}
	}
	return nil
}
