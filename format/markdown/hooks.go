package markdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rgonek/rescribe/ir"
)

// ErrUnresolved indicates that a resource could not be resolved by a hook.
var ErrUnresolved = errors.New("unresolved resource reference")

// ResolutionMode controls how unresolved hook results are handled.
type ResolutionMode string

const (
	// ResolutionBestEffort continues and falls back to built-in behavior.
	ResolutionBestEffort ResolutionMode = "best_effort"
	// ResolutionStrict fails the emit when a hook returns ErrUnresolved.
	ResolutionStrict ResolutionMode = "strict"
)

// ResourceHook maps an embedded resource to an external URL, for example
// after uploading it or writing it next to the output file.
type ResourceHook func(in ResourceInput) (ResourceOutput, error)

// ResourceInput describes the image being rendered.
type ResourceInput struct {
	ID       ir.ResourceID
	Resource ir.Resource
	Alt      string
	Title    string
}

// ResourceOutput contains the hook-provided URL.
type ResourceOutput struct {
	URL     string
	Handled bool
}

// applyResourceHook returns the hook URL, or handled=false when the built-in
// rendering should be used.
func (s *writeState) applyResourceHook(input ResourceInput) (string, bool, error) {
	if s.config.ResourceHook == nil {
		return "", false, nil
	}

	output, err := s.config.ResourceHook(input)
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			if s.config.ResolutionMode == ResolutionStrict {
				return "", false, ir.NewEmitError(Format, fmt.Sprintf("unresolved resource %q", input.ID), err)
			}
			s.warn.Add(ir.NewWarning(ir.SeverityMinor, ir.WarningResourceFailed, string(input.ID),
				"unresolved resource; using fallback rendering"))
			return "", false, nil
		}
		return "", false, ir.NewEmitError(Format, "resource hook failed", err)
	}

	if !output.Handled {
		return "", false, nil
	}
	url := strings.TrimSpace(output.URL)
	if url == "" {
		return "", false, ir.NewEmitError(Format, "invalid resource hook output",
			errors.New("handled resource output requires non-empty url"))
	}
	return url, true, nil
}
