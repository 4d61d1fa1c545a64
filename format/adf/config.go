package adf

import (
	"fmt"
	"strings"
	"time"
)

// Format is the registry name of the ADF reader and writer.
const Format = "adf"

// UnknownPolicy controls behavior for node and mark types outside the
// supported ADF schema.
type UnknownPolicy string

const (
	// UnknownUnwrap keeps the children of an unknown node with a Minor warning.
	UnknownUnwrap UnknownPolicy = "unwrap"
	// UnknownSkip drops the node and its children with a Major warning.
	UnknownSkip UnknownPolicy = "skip"
	// UnknownError fails the call.
	UnknownError UnknownPolicy = "error"
)

// ExtensionMode controls how the reader maps extension, inlineExtension and
// bodiedExtension nodes.
type ExtensionMode string

const (
	// ExtensionRaw keeps the node as an adf raw block or raw inline holding
	// its JSON, so the writer can restore it.
	ExtensionRaw ExtensionMode = "raw"
	// ExtensionText keeps the body of bodied extensions and the text
	// parameter of the others.
	ExtensionText ExtensionMode = "text"
	// ExtensionStrip drops the node with a Minor warning.
	ExtensionStrip ExtensionMode = "strip"
)

// Config holds ADF reader and writer options.
type Config struct {
	UnknownNodes UnknownPolicy `json:"unknownNodes,omitempty" yaml:"unknown_nodes,omitempty"`
	UnknownMarks UnknownPolicy `json:"unknownMarks,omitempty" yaml:"unknown_marks,omitempty"`
	Extensions   ExtensionMode `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	// DateFormat is the Go layout used for the text of date nodes.
	DateFormat string `json:"dateFormat,omitempty" yaml:"date_format,omitempty"`
	// MediaBaseURL resolves file media ids to URLs ("<base>/<id>"). Without
	// it file media keep only their id.
	MediaBaseURL string `json:"mediaBaseURL,omitempty" yaml:"media_base_url,omitempty"`
	// Indent is the JSON indentation used when EmitOptions.Pretty is set.
	Indent string `json:"indent,omitempty" yaml:"indent,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.UnknownNodes == "" {
		c.UnknownNodes = UnknownUnwrap
	}
	if c.UnknownMarks == "" {
		c.UnknownMarks = UnknownSkip
	}
	if c.Extensions == "" {
		c.Extensions = ExtensionRaw
	}
	if c.DateFormat == "" {
		c.DateFormat = time.DateOnly
	}
	if c.Indent == "" {
		c.Indent = "  "
	}
	c.MediaBaseURL = strings.TrimRight(c.MediaBaseURL, "/")
	return c
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	switch c.UnknownNodes {
	case UnknownUnwrap, UnknownSkip, UnknownError:
	default:
		return fmt.Errorf("invalid unknownNodes policy %q", c.UnknownNodes)
	}
	switch c.UnknownMarks {
	case UnknownSkip, UnknownError:
	default:
		return fmt.Errorf("invalid unknownMarks policy %q (allowed: skip, error)", c.UnknownMarks)
	}
	switch c.Extensions {
	case ExtensionRaw, ExtensionText, ExtensionStrip:
	default:
		return fmt.Errorf("invalid extensions mode %q", c.Extensions)
	}
	for _, r := range c.Indent {
		if r != ' ' && r != '\t' {
			return fmt.Errorf("indent must contain only spaces or tabs, got %q", c.Indent)
		}
	}
	return nil
}
