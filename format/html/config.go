package html

import (
	"fmt"

	"github.com/rgonek/rescribe/stream"
)

// Format is the registry name of the HTML reader and writer.
const Format = "html"

// UnknownPolicy controls what the writer does with node kinds it does not
// know.
type UnknownPolicy string

const (
	// UnknownUnwrap re-emits the children of an unknown node and records a
	// Minor warning.
	UnknownUnwrap UnknownPolicy = "unwrap"
	// UnknownSkip drops the node and its children and records a Major warning.
	UnknownSkip UnknownPolicy = "skip"
	// UnknownComment renders an HTML comment naming the kind, then the
	// children, and records a Minor warning.
	UnknownComment UnknownPolicy = "comment"
)

// Config holds HTML reader and writer options.
type Config struct {
	// Recovery is the mismatched end tag policy of the reader.
	Recovery stream.Recovery `json:"recovery,omitempty" yaml:"recovery,omitempty"`
	// Lookahead bounds stream.RecoverCloseAncestor.
	Lookahead int `json:"lookahead,omitempty" yaml:"lookahead,omitempty"`
	// ReportRepairs records a warning for every repaired tag.
	ReportRepairs bool `json:"reportRepairs,omitempty" yaml:"report_repairs,omitempty"`
	// FullDocument makes the writer produce <!DOCTYPE html><html><head>...
	// instead of a body fragment.
	FullDocument bool `json:"fullDocument,omitempty" yaml:"full_document,omitempty"`
	// UnknownNodes is the writer's fallback for unrecognized kinds.
	UnknownNodes UnknownPolicy `json:"unknownNodes,omitempty" yaml:"unknown_nodes,omitempty"`
	// Indent is the per-level indentation used when EmitOptions.Pretty is set.
	Indent string `json:"indent,omitempty" yaml:"indent,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.Recovery == "" {
		c.Recovery = stream.RecoverCloseAncestor
	}
	if c.Lookahead == 0 {
		c.Lookahead = stream.DefaultLookahead
	}
	if c.UnknownNodes == "" {
		c.UnknownNodes = UnknownUnwrap
	}
	if c.Indent == "" {
		c.Indent = "  "
	}
	return c
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	if err := c.Recovery.Validate(); err != nil {
		return err
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("lookahead must not be negative, got %d", c.Lookahead)
	}
	if c.UnknownNodes != UnknownUnwrap && c.UnknownNodes != UnknownSkip && c.UnknownNodes != UnknownComment {
		return fmt.Errorf("invalid unknownNodes policy %q", c.UnknownNodes)
	}
	return nil
}
