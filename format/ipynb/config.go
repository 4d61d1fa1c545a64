package ipynb

import (
	"fmt"

	"github.com/rgonek/rescribe/format/markdown"
)

// Format is the registry name of the notebook reader and writer.
const Format = "ipynb"

// Config holds notebook reader and writer options.
type Config struct {
	// Language is used for code cells when the notebook metadata names none.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	// SkipOutputs drops code cell outputs on read.
	SkipOutputs bool `json:"skipOutputs,omitempty" yaml:"skip_outputs,omitempty"`
	// Indent is the JSON indentation of written notebooks.
	Indent string `json:"indent,omitempty" yaml:"indent,omitempty"`
	// Markdown configures the reader and writer used for markdown cells.
	Markdown markdown.Config `json:"markdown,omitempty" yaml:"markdown,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.Language == "" {
		c.Language = "python"
	}
	if c.Indent == "" {
		c.Indent = " "
	}
	return c
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	for _, r := range c.Indent {
		if r != ' ' && r != '\t' {
			return fmt.Errorf("indent must contain only spaces or tabs, got %q", c.Indent)
		}
	}
	return nil
}
