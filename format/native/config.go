package native

import "fmt"

// Format is the registry name of the native reader and writer.
const Format = "native"

// Config holds native writer options. The reader has none.
type Config struct {
	// Indent is repeated once per nesting level.
	Indent string `json:"indent,omitempty" yaml:"indent,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.Indent == "" {
		c.Indent = "  "
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
