package ir

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedWarningsAccumulateInOrder(t *testing.T) {
	inner := WithWarnings("cell", []Warning{
		FeatureLost(SeverityMinor, "inner-1", "first"),
		FeatureLost(SeverityMajor, "inner-2", "second"),
	})

	var outer Collector
	outer.Minor(WarningUnsupportedNode, "outer-0", "before")
	value := Absorb(&outer, inner)

	result := Seal(&outer, value)
	require.Len(t, result.Warnings, 3)
	assert.Equal(t, "cell", result.Value)
	assert.Equal(t, []string{"outer-0", "inner-1", "inner-2"}, []string{
		result.Warnings[0].Subject,
		result.Warnings[1].Subject,
		result.Warnings[2].Subject,
	})
}

func TestHighFidelityIsDerived(t *testing.T) {
	r := OK(42)
	assert.True(t, r.HighFidelity())
	assert.False(t, r.HasWarnings())
	_, ok := r.MaxSeverity()
	assert.False(t, ok)

	r.Warn(UnsupportedNode(SeverityMinor, "blink", "approximated"))
	assert.True(t, r.HighFidelity())

	r.Warn(ResourceFailed("res_1", "could not decode"))
	assert.False(t, r.HighFidelity())
	assert.Equal(t, 1, r.Count(SeverityMajor))
	assert.Equal(t, 1, r.Count(SeverityMinor))
	highest, ok := r.MaxSeverity()
	require.True(t, ok)
	assert.Equal(t, SeverityMajor, highest)
}

func TestSeverityText(t *testing.T) {
	for _, sev := range []Severity{SeverityInfo, SeverityMinor, SeverityMajor} {
		text, err := sev.MarshalText()
		require.NoError(t, err)
		var parsed Severity
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, sev, parsed)
	}
	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestWarningString(t *testing.T) {
	w := UnsupportedNode(SeverityMinor, "html:blink", "Unknown HTML element: blink")
	assert.Equal(t, "[minor] unsupported_node (html:blink): Unknown HTML element: blink", w.String())

	spanned := w.At(Span{Start: 3, End: 9})
	require.NotNil(t, spanned.Span)
	assert.Nil(t, w.Span)
}

func TestParseErrorUnwrapsToSentinels(t *testing.T) {
	err := InvalidInput("html", "invalid UTF-8 at byte %d", 12)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "parse html: invalid UTF-8 at byte 12: invalid input", err.Error())

	wrapped := NewParseError("ipynb", "read failed", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.True(t, IsParseError(wrapped))
	assert.False(t, IsEmitError(wrapped))

	emitErr := NewEmitError("irjson", "", ErrUnsupportedFormat)
	assert.True(t, errors.Is(emitErr, ErrUnsupportedFormat))
	assert.Equal(t, "emit irjson: unsupported format", emitErr.Error())
}
