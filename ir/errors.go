package ir

import (
	"errors"
	"fmt"
)

// Sentinel causes for hard conversion failures.
var (
	// ErrInvalidInput indicates input that could not be tokenized at all.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat indicates an unknown or unregistered format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrIO indicates a read or write failure.
	ErrIO = errors.New("io error")
)

// ParseError is returned when a reader cannot produce any document.
type ParseError struct {
	Format string // Reader format name
	Reason string // Human-readable description
	Err    error  // Underlying cause, if any
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Format != "" {
		return fmt.Sprintf("parse %s: %s", e.Format, msg)
	}
	return "parse: " + msg
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NewParseError builds a ParseError wrapping err.
func NewParseError(format, reason string, err error) *ParseError {
	return &ParseError{Format: format, Reason: reason, Err: err}
}

// InvalidInput builds a ParseError for input that could not be tokenized.
func InvalidInput(format, reasonFormat string, args ...any) *ParseError {
	return &ParseError{Format: format, Reason: fmt.Sprintf(reasonFormat, args...), Err: ErrInvalidInput}
}

// EmitError is returned when a writer cannot produce any output.
type EmitError struct {
	Format string
	Reason string
	Err    error
}

func (e *EmitError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Format != "" {
		return fmt.Sprintf("emit %s: %s", e.Format, msg)
	}
	return "emit: " + msg
}

func (e *EmitError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NewEmitError builds an EmitError wrapping err.
func NewEmitError(format, reason string, err error) *EmitError {
	return &EmitError{Format: format, Reason: reason, Err: err}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsEmitError reports whether err is or wraps an EmitError.
func IsEmitError(err error) bool {
	var target *EmitError
	return errors.As(err, &target)
}
