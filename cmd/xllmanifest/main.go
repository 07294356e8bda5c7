// Command xllmanifest checks add-in manifests and inspects WebAssembly
// function modules.
//
//	xllmanifest validate addin.yaml other.toml
//	xllmanifest schema > manifest.schema.json
//	xllmanifest list addin.yaml
//	xllmanifest wasm -prefix WASM. math.wasm
//	xllmanifest call math.wasm add 1 2
//
// list and wasm print a table on a terminal and JSON otherwise.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	xlllog "github.com/reglet-dev/reglet-xll/log"
	"github.com/reglet-dev/reglet-xll/manifest"
	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
	"github.com/reglet-dev/reglet-xll/wasmudf"
	"github.com/reglet-dev/reglet-xll/xll"
	"github.com/reglet-dev/reglet-xll/xll/xlltest"
)

const usage = `usage: xllmanifest <command> [flags] [args]

commands:
  validate FILE...             check manifests against the schema and rules
  schema                       print the manifest JSON schema
  list [-json] FILE            list the functions of a manifest
  wasm [flags] FILE.wasm       list the functions a WebAssembly module exports
  call [flags] FILE.wasm NAME [ARG...]
                               call an exported function through an in-memory host
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage reports bad command-line input; run prints the usage text.
var errUsage = errors.New("invalid usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "validate":
		err = runValidate(rest, stdout)
	case "schema":
		err = runSchema(stdout)
	case "list":
		err = runList(rest, stdout)
	case "wasm":
		err = runWasm(ctx, rest, stdout)
	case "call":
		err = runCall(ctx, rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(stderr, "xllmanifest: %v\n%s", err, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "xllmanifest: %v\n", err)
		return 1
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runValidate(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: validate needs at least one file", errUsage)
	}
	failed := 0
	for _, path := range args {
		if err := validateFile(path); err != nil {
			fmt.Fprintf(stdout, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d manifests invalid", failed, len(args))
	}
	return nil
}

func validateFile(path string) error {
	format, err := manifest.FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := manifest.ValidateDocument(data, format); err != nil {
		return err
	}
	_, err = manifest.Parse(data, format)
	return err
}

func runSchema(stdout io.Writer) error {
	schema, err := manifest.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", schema)
	return err
}

func runList(args []string, stdout io.Writer) error {
	fs := newFlagSet("list")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: list needs exactly one file", errUsage)
	}
	m, err := manifest.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	return printDefinitions(stdout, m.Definitions(), *asJSON)
}

func runWasm(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("wasm")
	prefix := fs.String("prefix", "", "worksheet name prefix")
	category := fs.String("category", wasmudf.DefaultCategory, "function category")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: wasm needs exactly one module", errUsage)
	}

	mod, err := loadModule(ctx, fs.Arg(0), wasmudf.WithPrefix(*prefix), wasmudf.WithCategory(*category))
	if err != nil {
		return err
	}
	defer mod.Close(ctx)
	return printDefinitions(stdout, mod.Definitions(), *asJSON)
}

func runCall(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("call")
	prefix := fs.String("prefix", "", "worksheet name prefix")
	verbose := fs.Bool("v", false, "log host traffic to stderr")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: call needs a module and a function name", errUsage)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := xlllog.New(xlllog.WithWriter(stderr), xlllog.WithLevel(level))

	mod, err := loadModule(ctx, fs.Arg(0), wasmudf.WithPrefix(*prefix), wasmudf.WithLogger(logger))
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	opts := append(mod.Options(), udf.WithMiddleware(
		udf.PanicRecoveryMiddleware(logger),
		udf.LoggingMiddleware(logger),
	))
	reg, err := udf.NewRegistry(opts...)
	if err != nil {
		return err
	}

	addin, err := xll.New(xlltest.New(), xll.WithRegistry(reg), xll.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := addin.AutoOpen(); err != nil {
		return err
	}
	defer addin.AutoClose()

	callArgs := make([]*oper.Value, 0, fs.NArg()-2)
	for _, a := range fs.Args()[2:] {
		callArgs = append(callArgs, parseArg(a))
	}
	defer func() {
		for _, v := range callArgs {
			v.Free()
		}
	}()

	res := addin.Call(ctx, fs.Arg(1), callArgs...)
	defer addin.AutoFree(res)
	_, err = fmt.Fprintln(stdout, formatResult(res))
	return err
}

func loadModule(ctx context.Context, path string, opts ...wasmudf.Option) (*wasmudf.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mod, err := wasmudf.Load(ctx, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}

// parseArg reads a command-line argument as a worksheet value: numbers,
// TRUE/FALSE, error tokens, an empty string as a missing argument, and text
// otherwise.
func parseArg(s string) *oper.Value {
	if s == "" {
		return oper.Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return oper.Number(f)
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return oper.Bool(true)
	case "FALSE":
		return oper.Bool(false)
	}
	if code, ok := oper.ParseErrorCode(s); ok {
		return oper.Error(code)
	}
	return oper.Text(s)
}

func formatResult(v *oper.Value) string {
	if code, ok := v.ErrCode(); ok {
		return code.String()
	}
	return fmt.Sprint(v.Interface())
}

type listing struct {
	Name      string   `json:"name"`
	Procedure string   `json:"procedure"`
	Signature string   `json:"signature"`
	Type      string   `json:"type"`
	Category  string   `json:"category,omitempty"`
	Args      []string `json:"args,omitempty"`
	Help      string   `json:"help,omitempty"`
}

func printDefinitions(w io.Writer, defs []udf.Definition, asJSON bool) error {
	rows := make([]listing, len(defs))
	for i, d := range defs {
		rows[i] = listing{
			Name:      d.WorksheetName(),
			Procedure: d.Procedure,
			Signature: d.Signature,
			Type:      d.MacroType.String(),
			Category:  d.Category,
			Help:      d.Help,
		}
		if d.ArgNames != "" {
			rows[i].Args = strings.Split(d.ArgNames, ",")
		}
	}

	if asJSON || !isTerminal(w) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROCEDURE\tSIGNATURE\tTYPE\tCATEGORY\tARGS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Procedure, r.Signature, r.Type, r.Category, strings.Join(r.Args, ","))
	}
	return tw.Flush()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
