// Command rescribe converts documents between the formats of the rescribe
// registry.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rgonek/rescribe/convert"
	"github.com/rgonek/rescribe/internal/logging"
	"github.com/rgonek/rescribe/ir"
	"github.com/rgonek/rescribe/transform"
)

var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel  string           `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	LogFormat string           `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)."`
	Version   kong.VersionFlag `help:"Print the version and exit."`
}

func (g *Globals) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

// CLI is the command tree.
type CLI struct {
	Globals

	Convert ConvertCmd `cmd:"" help:"Convert a document between formats."`
	Formats FormatsCmd `cmd:"" help:"List the supported formats."`
}

type streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// ConvertCmd converts one document.
type ConvertCmd struct {
	Input  string `arg:"" optional:"" default:"-" help:"Input file, or - for stdin."`
	Output string `short:"o" help:"Output file (default stdout)."`
	From   string `short:"f" help:"Input format; detected from the input file name when empty."`
	To     string `short:"t" help:"Output format; detected from the output file name when empty."`

	Preset    string `default:"balanced" enum:"balanced,strict,readable,lossy" help:"Format configuration preset (balanced, strict, readable, lossy)."`
	AllowHTML bool   `name:"allow-html" help:"Let Markdown output fall back to inline HTML."`
	Config    string `type:"existingfile" help:"YAML file with per-format configuration, applied over the preset."`

	EmbedResources bool `name:"embed-resources" help:"Decode inline payloads into resources and inline them on output."`
	PreserveSource bool `name:"preserve-source" help:"Record source spans and source info while parsing."`
	Pretty         bool `help:"Indent output where the format allows it."`

	ShiftHeadings int  `name:"shift-headings" help:"Add this delta to every heading level."`
	StripEmpty    bool `name:"strip-empty" help:"Remove empty paragraphs, spans and divs."`
	MergeText     bool `name:"merge-text" help:"Merge adjacent text nodes."`

	FailOn string `name:"fail-on" default:"never" enum:"never,minor,major" help:"Exit with an error when a warning of this severity or worse is reported."`
	Quiet  bool   `short:"q" help:"Do not print warnings."`
}

// fidelityError reports a conversion whose warnings crossed --fail-on.
type fidelityError struct {
	threshold ir.Severity
	count     int
}

func (e *fidelityError) Error() string {
	return fmt.Sprintf("%d warning(s) at or above %s severity", e.count, e.threshold)
}

func (c *ConvertCmd) Run(g *Globals, s *streams) error {
	logger, err := g.logger(s.Err)
	if err != nil {
		return err
	}
	cfg, err := c.formatConfig()
	if err != nil {
		return err
	}
	registry, err := convert.New(cfg, convert.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	from, err := pickFormat(registry, c.From, c.Input, "--from")
	if err != nil {
		return err
	}
	to, err := pickFormat(registry, c.To, c.Output, "--to")
	if err != nil {
		return err
	}

	input, err := c.readInput(s.In)
	if err != nil {
		return err
	}

	result, err := registry.Convert(input, from, to, convert.Options{
		Parse: ir.ParseOptions{
			EmbedResources:     c.EmbedResources,
			PreserveSourceInfo: c.PreserveSource,
		},
		Emit: ir.EmitOptions{
			Pretty:         c.Pretty,
			EmbedResources: c.EmbedResources,
			UseSourceInfo:  c.PreserveSource,
		},
		Transforms: c.transforms(),
	})
	if err != nil {
		return err
	}

	if err := c.writeOutput(s.Out, result.Value); err != nil {
		return err
	}
	if !c.Quiet {
		printWarnings(s.Err, result.Warnings)
	}
	return c.checkFidelity(result)
}

func (c *ConvertCmd) formatConfig() (convert.FormatConfig, error) {
	cfg, err := resolveConfig(c.Preset, c.AllowHTML)
	if err != nil {
		return convert.FormatConfig{}, err
	}
	if c.Config == "" {
		return cfg, nil
	}
	if err := loadConfigFile(c.Config, &cfg); err != nil {
		return convert.FormatConfig{}, err
	}
	return cfg, nil
}

// loadConfigFile decodes a YAML file over cfg. Keys the file omits keep their
// preset values; unknown keys are rejected.
func loadConfigFile(path string, cfg *convert.FormatConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func pickFormat(registry *convert.Registry, explicit, path, flag string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if path == "" || path == "-" {
		return "", fmt.Errorf("%s is required when reading stdin or writing stdout", flag)
	}
	format, ok := registry.DetectFormat(path)
	if !ok {
		return "", fmt.Errorf("cannot detect format of %q; pass %s", path, flag)
	}
	return format, nil
}

func (c *ConvertCmd) readInput(stdin io.Reader) ([]byte, error) {
	if c.Input == "" || c.Input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func (c *ConvertCmd) writeOutput(stdout io.Writer, data []byte) error {
	if c.Output == "" || c.Output == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (c *ConvertCmd) transforms() []ir.Transformer {
	var out []ir.Transformer
	if c.ShiftHeadings != 0 {
		out = append(out, transform.ShiftHeadings{Delta: c.ShiftHeadings})
	}
	if c.StripEmpty {
		out = append(out, transform.StripEmpty{})
	}
	if c.MergeText {
		out = append(out, transform.MergeText{})
	}
	return out
}

func (c *ConvertCmd) checkFidelity(result ir.Result[[]byte]) error {
	var threshold ir.Severity
	switch c.FailOn {
	case "", "never":
		return nil
	case "minor":
		threshold = ir.SeverityMinor
	case "major":
		threshold = ir.SeverityMajor
	default:
		return fmt.Errorf("invalid --fail-on %q", c.FailOn)
	}

	count := 0
	for _, w := range result.Warnings {
		if w.Severity >= threshold {
			count++
		}
	}
	if count > 0 {
		return &fidelityError{threshold: threshold, count: count}
	}
	return nil
}

func printWarnings(w io.Writer, warnings []ir.Warning) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if len(warnings) > 0 {
		major := 0
		for _, warning := range warnings {
			if warning.Severity == ir.SeverityMajor {
				major++
			}
		}
		fmt.Fprintf(w, "%d warning(s), %d major\n", len(warnings), major)
	}
}

// FormatsCmd lists the registry's formats.
type FormatsCmd struct {
	JSON bool `help:"Print the list as JSON."`
}

func (c *FormatsCmd) Run(s *streams) error {
	formats := convert.Default().Formats()
	if c.JSON {
		enc := json.NewEncoder(s.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(formats)
	}

	tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tREAD\tWRITE\tEXTENSIONS")
	for _, f := range formats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, yesNo(f.CanRead), yesNo(f.CanWrite), strings.Join(f.Extensions, " "))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newParser(cli *CLI, s *streams, opts ...kong.Option) (*kong.Kong, error) {
	base := []kong.Option{
		kong.Name("rescribe"),
		kong.Description("Convert documents between formats through a shared document tree."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
		kong.Writers(s.Out, s.Err),
		kong.Bind(&cli.Globals, s),
	}
	return kong.New(cli, append(base, opts...)...)
}

func main() {
	var cli CLI
	s := &streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	parser, err := newParser(&cli, s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(); err != nil {
		var fe *fidelityError
		if errors.As(err, &fe) {
			fmt.Fprintf(os.Stderr, "rescribe: %v\n", err)
			os.Exit(2)
		}
		ctx.FatalIfErrorf(err)
	}
}
