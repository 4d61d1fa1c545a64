// Package convert wires readers, transformers and writers into conversions
// between named formats.
package convert

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rgonek/rescribe/internal/logging"
	"github.com/rgonek/rescribe/ir"
)

// Registry maps format names to parsers and emitters. Registration takes a
// write lock; lookups and conversions only read, so one registry can serve
// many concurrent conversions.
type Registry struct {
	mu         sync.RWMutex
	parsers    map[string]ir.Parser
	emitters   map[string]ir.Emitter
	extensions map[string]string
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for conversion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.OrDiscard(logger)
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		parsers:    make(map[string]ir.Parser),
		emitters:   make(map[string]ir.Emitter),
		extensions: make(map[string]string),
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterParser registers p under every name it reports. A later
// registration replaces an earlier one.
func (r *Registry) RegisterParser(p ir.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range p.Formats() {
		r.parsers[normalize(name)] = p
	}
}

// RegisterEmitter registers e under every name it reports.
func (r *Registry) RegisterEmitter(e ir.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range e.Formats() {
		r.emitters[normalize(name)] = e
	}
}

// RegisterExtension maps a file extension (with or without the dot) to a
// format name for DetectFormat.
func (r *Registry) RegisterExtension(ext, format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[normalizeExt(ext)] = normalize(format)
}

func normalizeExt(ext string) string {
	ext = normalize(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Parser returns the parser registered under name.
func (r *Registry) Parser(name string) (ir.Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for %q", ir.ErrUnsupportedFormat, name)
	}
	return p, nil
}

// Emitter returns the emitter registered under name.
func (r *Registry) Emitter(name string) (ir.Emitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.emitters[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: no writer for %q", ir.ErrUnsupportedFormat, name)
	}
	return e, nil
}

// DetectFormat guesses a format from a file name. Compound extensions such
// as ".adf.json" are tried before the last extension.
func (r *Registry) DetectFormat(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := strings.ToLower(filepath.Base(path))
	for i := strings.IndexByte(base, '.'); i >= 0; {
		if format, ok := r.extensions[base[i:]]; ok {
			return format, true
		}
		next := strings.IndexByte(base[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", false
}

// FormatInfo describes one registered format.
type FormatInfo struct {
	Name       string   `json:"name" yaml:"name"`
	CanRead    bool     `json:"canRead" yaml:"can_read"`
	CanWrite   bool     `json:"canWrite" yaml:"can_write"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Formats lists every registered format sorted by name.
func (r *Registry) Formats() []FormatInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName := make(map[string]*FormatInfo)
	info := func(name string) *FormatInfo {
		if f, ok := byName[name]; ok {
			return f
		}
		f := &FormatInfo{Name: name}
		byName[name] = f
		return f
	}
	for name := range r.parsers {
		info(name).CanRead = true
	}
	for name := range r.emitters {
		info(name).CanWrite = true
	}
	for ext, name := range r.extensions {
		f := info(name)
		f.Extensions = append(f.Extensions, ext)
	}

	out := make([]FormatInfo, 0, len(byName))
	for _, f := range byName {
		slices.Sort(f.Extensions)
		out = append(out, *f)
	}
	slices.SortFunc(out, func(a, b FormatInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}
