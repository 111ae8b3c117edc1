// Command ply decodes binary property lists and prints them as a typed text
// dump, JSON or YAML.
package main

import (
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zdypro888/bplist"
)

type options struct {
	Format     string `short:"f" long:"format" choice:"dump" choice:"json" choice:"yaml" default:"dump" description:"output format"`
	Keyed      bool   `short:"k" long:"keyed" description:"resolve the document as an NSKeyedArchiver archive"`
	Indent     string `short:"i" long:"indent" default:"  " description:"JSON indentation (empty for compact output)"`
	Verbose    bool   `short:"v" long:"verbose" description:"log decoder diagnostics"`
	MaxObjects int    `long:"max-objects" env:"PLY_MAX_OBJECTS" default:"32768" description:"largest object count accepted"`
	MaxPayload int    `long:"max-payload" env:"PLY_MAX_PAYLOAD" default:"100000000" description:"largest single payload accepted, in bytes"`

	Args struct {
		Files []string `positional-arg-name:"FILE" description:"property list to read, - for stdin" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, "ply:", err)
		return 2
	}

	logger := newLogger(opts.Verbose, stderr)
	defer logger.Sync()

	decodeOpts := []bplist.Option{
		bplist.WithLogger(logger),
		bplist.WithDebug(opts.Verbose),
		bplist.WithMaxObjectCount(opts.MaxObjects),
		bplist.WithMaxPayloadSize(opts.MaxPayload),
	}

	status := 0
	for _, name := range opts.Args.Files {
		if err := convert(name, stdin, stdout, &opts, decodeOpts); err != nil {
			logger.Error("cannot convert property list", zap.String("file", name), zap.Error(err))
			status = 1
		}
	}
	return status
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func convert(name string, stdin io.Reader, stdout io.Writer, opts *options, decodeOpts []bplist.Option) error {
	data, err := readInput(name, stdin)
	if err != nil {
		return err
	}

	var val bplist.Value
	if opts.Keyed {
		// archives are often stored gzip compressed
		var archive *bplist.KeyedArchive
		if archive, err = bplist.ReadKeyedArchive(data, decodeOpts...); err != nil {
			return err
		}
		val, err = archive.Resolve()
	} else {
		val, err = bplist.Parse(data, decodeOpts...)
	}
	if err != nil {
		return err
	}

	var out []byte
	switch opts.Format {
	case "json":
		out, err = bplist.ToJSON(val, opts.Indent)
		out = append(out, '\n')
	case "yaml":
		out, err = bplist.ToYAML(val)
	default:
		return bplist.Dump(stdout, val)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
