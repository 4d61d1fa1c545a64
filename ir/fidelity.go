package ir

import "fmt"

// Severity grades how much information a warning describes as lost.
type Severity int

const (
	// SeverityInfo notes a transformation that lost nothing.
	SeverityInfo Severity = iota
	// SeverityMinor is presentational or stylistic loss.
	SeverityMinor
	// SeverityMajor is structural or semantic loss.
	SeverityMajor
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses "info", "minor" or "major".
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "minor":
		return SeverityMinor, nil
	case "major":
		return SeverityMajor, nil
	default:
		return 0, fmt.Errorf("invalid severity %q", name)
	}
}

// WarningKind categorizes fidelity warnings.
type WarningKind string

const (
	// WarningUnsupportedNode: a node kind or source element had no exact
	// equivalent and a fallback was used. Subject names the node.
	WarningUnsupportedNode WarningKind = "unsupported_node"
	// WarningUnsupportedProperty: a property could not be represented.
	WarningUnsupportedProperty WarningKind = "unsupported_property"
	// WarningFeatureLost: a format-specific feature was dropped.
	WarningFeatureLost WarningKind = "feature_lost"
	// WarningSimplified: a complex structure was flattened.
	WarningSimplified WarningKind = "simplified"
	// WarningResourceFailed: a resource could not be decoded or embedded.
	// Subject holds the resource id or reference.
	WarningResourceFailed WarningKind = "resource_failed"
	// WarningStructureRepaired: malformed nesting was repaired.
	WarningStructureRepaired WarningKind = "structure_repaired"
)

// Warning is a non-fatal record of information loss or approximation.
type Warning struct {
	Severity Severity    `json:"severity"`
	Kind     WarningKind `json:"kind"`
	Subject  string      `json:"subject,omitempty"`
	Message  string      `json:"message"`
	Span     *Span       `json:"span,omitempty"`
}

// NewWarning returns a warning of the given severity and kind.
func NewWarning(severity Severity, kind WarningKind, subject, message string) Warning {
	return Warning{Severity: severity, Kind: kind, Subject: subject, Message: message}
}

// UnsupportedNode reports a node that was approximated by a fallback.
func UnsupportedNode(severity Severity, name, message string) Warning {
	return NewWarning(severity, WarningUnsupportedNode, name, message)
}

// UnsupportedProperty reports a property the target could not carry.
func UnsupportedProperty(severity Severity, key, message string) Warning {
	return NewWarning(severity, WarningUnsupportedProperty, key, message)
}

// FeatureLost reports a dropped feature.
func FeatureLost(severity Severity, feature, message string) Warning {
	return NewWarning(severity, WarningFeatureLost, feature, message)
}

// ResourceFailed reports a resource that could not be decoded or embedded.
// Resource failures are always Major.
func ResourceFailed(ref, message string) Warning {
	return NewWarning(SeverityMajor, WarningResourceFailed, ref, message)
}

// At returns a copy of w carrying a source span.
func (w Warning) At(span Span) Warning {
	w.Span = &span
	return w
}

func (w Warning) String() string {
	if w.Subject != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", w.Severity, w.Kind, w.Subject, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Severity, w.Kind, w.Message)
}

// Result is the outcome of every parse and emit call: a usable value plus
// the ordered warnings collected while producing it.
type Result[T any] struct {
	Value    T
	Warnings []Warning
}

// OK returns a result with no warnings.
func OK[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// WithWarnings returns a result carrying the given warnings.
func WithWarnings[T any](value T, warnings []Warning) Result[T] {
	return Result[T]{Value: value, Warnings: warnings}
}

// Warn appends a warning.
func (r *Result[T]) Warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// HasWarnings reports whether any warning was recorded.
func (r Result[T]) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HighFidelity reports whether no Major warning was recorded.
func (r Result[T]) HighFidelity() bool {
	return countSeverity(r.Warnings, SeverityMajor) == 0
}

// Count returns the number of warnings with exactly the given severity.
func (r Result[T]) Count(severity Severity) int {
	return countSeverity(r.Warnings, severity)
}

// MaxSeverity returns the highest severity recorded and false when there
// are no warnings.
func (r Result[T]) MaxSeverity() (Severity, bool) {
	return maxSeverity(r.Warnings)
}

func countSeverity(warnings []Warning, severity Severity) int {
	count := 0
	for _, w := range warnings {
		if w.Severity == severity {
			count++
		}
	}
	return count
}

func maxSeverity(warnings []Warning) (Severity, bool) {
	if len(warnings) == 0 {
		return SeverityInfo, false
	}
	highest := warnings[0].Severity
	for _, w := range warnings[1:] {
		if w.Severity > highest {
			highest = w.Severity
		}
	}
	return highest, true
}

// Collector accumulates warnings across one conversion, including nested
// sub-conversions. It is passed explicitly and is owned by a single
// conversion call; it is not safe for concurrent use.
type Collector struct {
	warnings []Warning
}

// Add appends a warning.
func (c *Collector) Add(w Warning) {
	c.warnings = append(c.warnings, w)
}

// Minor appends a Minor warning.
func (c *Collector) Minor(kind WarningKind, subject, format string, args ...any) {
	c.Add(NewWarning(SeverityMinor, kind, subject, fmt.Sprintf(format, args...)))
}

// Major appends a Major warning.
func (c *Collector) Major(kind WarningKind, subject, format string, args ...any) {
	c.Add(NewWarning(SeverityMajor, kind, subject, fmt.Sprintf(format, args...)))
}

// Merge appends warnings in their original order.
func (c *Collector) Merge(warnings []Warning) {
	c.warnings = append(c.warnings, warnings...)
}

// Len returns the number of collected warnings.
func (c *Collector) Len() int { return len(c.warnings) }

// Warnings returns a copy of the collected warnings.
func (c *Collector) Warnings() []Warning {
	if len(c.warnings) == 0 {
		return nil
	}
	return append([]Warning(nil), c.warnings...)
}

// Absorb appends the warnings of a sub-conversion to c and returns its value.
func Absorb[T any](c *Collector, sub Result[T]) T {
	c.Merge(sub.Warnings)
	return sub.Value
}

// Seal wraps value together with the collected warnings.
func Seal[T any](c *Collector, value T) Result[T] {
	return Result[T]{Value: value, Warnings: c.Warnings()}
}
