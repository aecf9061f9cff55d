// Command xus2xml converts XUS string tables to XML documents and back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/xus2xml/core/convert"
	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
	"github.com/FocuswithJustin/xus2xml/internal/logging"
)

const version = "0.2.0"

// defaultConfig is read when present; flags on the command line win.
const defaultConfig = "~/.config/xus2xml/config.json"

// exitCodes maps error kinds to process exit statuses. Other failures exit 1.
var exitCodes = map[apperrors.Kind]int{
	apperrors.UnrecognizedMagic: 3,
	apperrors.TruncatedRecord:   4,
	apperrors.InvalidText:       5,
	apperrors.MissingOriginal:   6,
	apperrors.MalformedDocument: 7,
	apperrors.IOFailure:         8,
}

func exitCode(err error) int {
	if code, ok := exitCodes[apperrors.KindOf(err)]; ok {
		return code
	}
	return 1
}

// CLI defines the command-line interface for xus2xml.
type CLI struct {
	// Global flags
	Config    kong.ConfigFlag `help:"JSON file with flag defaults"`
	LogLevel  string          `name:"log-level" help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"warn"`
	LogFormat string          `name:"log-format" help:"Log format (text, json)" enum:"text,json" default:"text"`

	Decode  DecodeCmd  `cmd:"" help:"Convert an XUS table to an XML document"`
	Encode  EncodeCmd  `cmd:"" help:"Convert an XML document back to an XUS table"`
	Info    InfoCmd    `cmd:"" help:"Show the header of an XUS table"`
	Verify  VerifyCmd  `cmd:"" help:"Check that a table survives a round trip unchanged"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// DecodeCmd writes the document for one table.
type DecodeCmd struct {
	Path string `arg:"" help:"XUS file to decode" type:"path"`
	Out  string `help:"Output document (default: input with .xml)" type:"path" short:"o"`
}

func (c *DecodeCmd) Run(ctx context.Context, out io.Writer) error {
	res, err := convert.XUSToXML(ctx, c.Path, c.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (%d items, dialect %s, blake3 %s)\n", res.Output, res.Items, res.Dialect, res.BLAKE3)
	return nil
}

// EncodeCmd writes a new table for one document.
type EncodeCmd struct {
	Path     string `arg:"" help:"XML document to encode" type:"path"`
	Original string `help:"Original XUS file supplying the tag (default: input with .xus)" type:"path"`
	Out      string `help:"Output table (default: input with _novo.xus)" type:"path" short:"o"`
	Strict   bool   `help:"Fail when the original's tag is not a known dialect"`
}

func (c *EncodeCmd) Run(ctx context.Context, out io.Writer) error {
	res, err := convert.XMLToXUS(ctx, c.Path, convert.EncodeOptions{
		Original: c.Original,
		Output:   c.Out,
		Strict:   c.Strict,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (%d items, dialect %s, %d bytes, blake3 %s)\n",
		res.Output, res.Items, res.Dialect, res.Size, res.BLAKE3)
	return nil
}

// InfoCmd prints a table's header.
type InfoCmd struct {
	Path string `arg:"" help:"XUS file to inspect" type:"path"`
	JSON bool   `name:"json" help:"Output as JSON"`
}

// infoReport is the JSON form of InfoCmd output.
type infoReport struct {
	Path        string `json:"path"`
	Magic       string `json:"magic"`
	Dialect     string `json:"dialect"`
	Items       int    `json:"items"`
	RawCount    uint16 `json:"raw_count"`
	FileSize    uint32 `json:"file_size"`
	ActualSize  int64  `json:"actual_size"`
	SizeFieldOK bool   `json:"size_field_ok"`
}

func (c *InfoCmd) Run(out io.Writer) error {
	info, err := convert.Inspect(c.Path)
	if err != nil {
		return err
	}
	report := infoReport{
		Path:        info.Path,
		Magic:       info.Header.Magic.String(),
		Dialect:     info.Header.Dialect.String(),
		Items:       info.Items,
		RawCount:    info.Header.RawCount,
		FileSize:    info.Header.FileSize,
		ActualSize:  info.ActualSize,
		SizeFieldOK: info.SizeFieldOK(),
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	sizeNote := ""
	if !report.SizeFieldOK {
		sizeNote = fmt.Sprintf(" (file is %d bytes)", report.ActualSize)
	}
	fmt.Fprintf(out, "%s: dialect %s, %d items, size field %d%s\n",
		report.Path, report.Dialect, report.Items, report.FileSize, sizeNote)
	return nil
}

// VerifyCmd checks a table against its own round trip.
type VerifyCmd struct {
	Path string `arg:"" help:"XUS file to verify" type:"path"`
}

func (c *VerifyCmd) Run(ctx context.Context, out io.Writer) error {
	res, err := convert.Verify(ctx, c.Path)
	if err != nil {
		return err
	}
	if res.Problem != "" {
		return fmt.Errorf("%s: round trip failed: %s", c.Path, res.Problem)
	}
	if !res.RoundTrip {
		return fmt.Errorf("%s: round trip differs at byte %d", c.Path, res.FirstDiff)
	}
	fmt.Fprintf(out, "OK %s (%d items, dialect %s)\n", c.Path, res.Items, res.Header.Dialect)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "xus2xml version %s\n", version)
	return nil
}

// configureLogging applies the global log flags.
func (c *CLI) configureLogging(w io.Writer) error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLoggerTo(w, level, format)
	return nil
}

// jsonConfig loads a JSON config file. Keys may spell flag names with dashes
// or underscores.
func jsonConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.Marshal(snakeKeys(values))
	if err != nil {
		return nil, err
	}
	return kong.JSON(bytes.NewReader(data))
}

// snakeKeys rewrites dashes in keys to underscores, which is the spelling
// kong's JSON resolver looks up.
func snakeKeys(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[strings.ReplaceAll(k, "-", "_")] = v
	}
	return out
}

// newParser builds the kong parser. Command output goes to stdout and logs
// to stderr.
func newParser(cli *CLI, stdout, stderr io.Writer, configPaths ...string) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("xus2xml"),
		kong.Description("XUS string table converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(jsonConfig, configPaths...),
		kong.Writers(stdout, stderr),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
}

// parse parses args and configures logging, leaving the selected command
// ready to run.
func parse(cli *CLI, args []string, stdout, stderr io.Writer, configPaths ...string) (*kong.Kong, *kong.Context, error) {
	parser, err := newParser(cli, stdout, stderr, configPaths...)
	if err != nil {
		return nil, nil, err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return parser, nil, err
	}
	if err := cli.configureLogging(stderr); err != nil {
		return parser, nil, err
	}
	return parser, kctx, nil
}

func main() {
	var cli CLI
	parser, kctx, err := parse(&cli, os.Args[1:], os.Stdout, os.Stderr, defaultConfig)
	if parser == nil {
		fmt.Fprintf(os.Stderr, "xus2xml: %v\n", err)
		os.Exit(1)
	}
	parser.FatalIfErrorf(err)
	if err := kctx.Run(); err != nil {
		parser.Errorf("%s", err)
		parser.Exit(exitCode(err))
	}
}
