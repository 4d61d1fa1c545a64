package docbook

import (
	"fmt"

	"github.com/rgonek/rescribe/stream"
)

// Format is the registry name of the DocBook reader.
const Format = "docbook"

// Config holds DocBook reader options.
type Config struct {
	// Recovery is the mismatched end tag policy.
	Recovery stream.Recovery `json:"recovery,omitempty" yaml:"recovery,omitempty"`
	// Lookahead bounds stream.RecoverCloseAncestor.
	Lookahead int `json:"lookahead,omitempty" yaml:"lookahead,omitempty"`
	// ReportRepairs records a warning for every repaired tag.
	ReportRepairs bool `json:"reportRepairs,omitempty" yaml:"report_repairs,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.Recovery == "" {
		c.Recovery = stream.RecoverCloseAncestor
	}
	if c.Lookahead == 0 {
		c.Lookahead = stream.DefaultLookahead
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
	return nil
}
