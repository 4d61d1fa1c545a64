package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgonek/rescribe/convert"
	"github.com/rgonek/rescribe/format/markdown"
)

// widgetDoc holds a node kind no writer knows.
const widgetDoc = `content document [
  widget [
    paragraph [ text "inside" ]
  ]
]
`

func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	s := &streams{In: strings.NewReader(stdin), Out: &out, Err: &errOut}

	var cli CLI
	parser, err := newParser(&cli, s, kong.Exit(func(int) { t.Fatalf("unexpected exit: %s", errOut.String()) }))
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err == nil {
		err = ctx.Run()
	}
	return out.String(), errOut.String(), err
}

func TestConvertStdin(t *testing.T) {
	out, _, err := runCLI(t, "# Title\n\nBody\n", "convert", "--from", "markdown", "--to", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<p>Body</p>")
}

func TestConvertDetectsFormatsFromPaths(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.md")
	outPath := filepath.Join(dir, "notes.html")
	require.NoError(t, os.WriteFile(in, []byte("*hi*\n"), 0o644))

	stdout, _, err := runCLI(t, "", "convert", in, "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<em>hi</em>")
}

func TestConvertRequiresFormatForStreams(t *testing.T) {
	_, _, err := runCLI(t, "x", "convert", "--to", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")

	_, _, err = runCLI(t, "x", "convert", "--from", "markdown", "-o", "out.unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect format")
}

func TestConvertTransforms(t *testing.T) {
	out, _, err := runCLI(t, "# Title\n", "convert", "-f", "markdown", "-t", "markdown", "--shift-headings", "2")
	require.NoError(t, err)
	assert.Equal(t, "### Title\n", out)
}

func TestConvertPrintsWarnings(t *testing.T) {
	out, stderr, err := runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "inside\n", out)
	assert.Contains(t, stderr, "warning: [minor] unsupported_node (widget)")
	assert.Contains(t, stderr, "1 warning(s), 0 major")

	_, stderr, err = runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "-q")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestConvertFailOn(t *testing.T) {
	_, _, err := runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--fail-on", "major")
	assert.NoError(t, err, "minor warnings stay below a major threshold")

	_, _, err = runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--fail-on", "minor")
	var fe *fidelityError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.count)

	_, _, err = runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--preset", "lossy", "--fail-on", "major")
	require.ErrorAs(t, err, &fe)
}

func TestConvertConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rescribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("markdown:\n  unknown_nodes: placeholder\n"), 0o644))

	out, _, err := runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[Unknown node: widget]")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("markdown:\n  colour: red\n"), 0o644))
	_, _, err = runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--config", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("markdown:\n  unknown_nodes: explode\n"), 0o644))
	_, _, err = runCLI(t, widgetDoc, "convert", "-f", "native", "-t", "markdown", "--config", invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestConvertDebugLogging(t *testing.T) {
	_, stderr, err := runCLI(t, "x\n", "--log-level", "debug", "--log-format", "json",
		"convert", "-f", "markdown", "-t", "html")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"converted"`)
}

func TestFormatsCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "FORMAT")
	assert.Regexp(t, `docbook\s+yes\s+no`, out)

	out, _, err = runCLI(t, "", "formats", "--json")
	require.NoError(t, err)
	var formats []convert.FormatInfo
	require.NoError(t, json.Unmarshal([]byte(out), &formats))
	assert.NotEmpty(t, formats)
}

func TestPresetConfig(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		cfg, err := presetConfig(presetBalanced)
		require.NoError(t, err)
		assert.Equal(t, convert.FormatConfig{}, cfg)
	})

	t.Run("empty defaults to balanced", func(t *testing.T) {
		cfg, err := presetConfig("")
		require.NoError(t, err)
		assert.Equal(t, convert.FormatConfig{}, cfg)
	})

	t.Run("strict", func(t *testing.T) {
		cfg, err := presetConfig(presetStrict)
		require.NoError(t, err)
		assert.Equal(t, markdown.UnknownError, cfg.Markdown.UnknownNodes)
		assert.Equal(t, markdown.ResolutionStrict, cfg.Markdown.ResolutionMode)
		assert.True(t, cfg.HTML.ReportRepairs)
	})

	t.Run("lossy", func(t *testing.T) {
		cfg, err := presetConfig(presetLossy)
		require.NoError(t, err)
		assert.Equal(t, markdown.UnknownSkip, cfg.Markdown.UnknownNodes)
		assert.Equal(t, markdown.SubSupIgnore, cfg.Markdown.SubSupStyle)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := presetConfig("fancy")
		assert.Error(t, err)
	})

	t.Run("every preset builds a registry", func(t *testing.T) {
		for _, preset := range []string{presetBalanced, presetStrict, presetReadable, presetLossy} {
			cfg, err := presetConfig(preset)
			require.NoError(t, err, preset)
			_, err = convert.New(cfg)
			assert.NoError(t, err, preset)
		}
	})
}

func TestResolveConfigAllowHTML(t *testing.T) {
	cfg, err := resolveConfig(presetLossy, true)
	require.NoError(t, err)
	assert.Equal(t, markdown.UnderlineHTML, cfg.Markdown.UnderlineStyle)
	assert.Equal(t, markdown.HardBreakHTML, cfg.Markdown.HardBreakStyle)
	assert.Equal(t, markdown.UnknownSkip, cfg.Markdown.UnknownNodes)
}
