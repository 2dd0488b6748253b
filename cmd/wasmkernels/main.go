package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/experimental/logging"

	"github.com/wasmkernels/wasmkernels"
	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/internal/config"
	"github.com/wasmkernels/wasmkernels/internal/kernelwasm"
	"github.com/wasmkernels/wasmkernels/internal/otel"
	"github.com/wasmkernels/wasmkernels/internal/version"
)

const serviceName = "wasmkernels"

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	env, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdErr, "invalid environment: %v\n", err)
		exit(1)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "call":
		doCall(flag.Args()[1:], env, stdOut, stdErr, exit)
	case "emit":
		doEmit(flag.Args()[1:], stdErr, exit)
	case "version":
		fmt.Fprintf(stdOut, "%s (wazero %s)\n", version.GetVersion(), version.GetWazeroVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

type callOptions struct {
	wasmPath    string
	native      bool
	interp      bool
	cacheDir    string
	hostlogging bool
}

func doCall(args []string, env config.Env, stdOut io.Writer, stdErr logging.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("call", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var opts callOptions
	flags.StringVar(&opts.wasmPath, "wasm", env.Wasm,
		"Path to a kernels guest. Defaults to the built-in reference guest.")
	flags.BoolVar(&opts.native, "native", false, "call the kernels natively instead of in WebAssembly")
	flags.BoolVar(&opts.interp, "interp", env.Interpreter, "force interpreter")
	flags.StringVar(&opts.cacheDir, "cachedir", env.CacheDir, "Writeable directory for native code compiled from wasm. "+
		"Contents are re-used for the same version of wazero.")
	flags.BoolVar(&opts.hostlogging, "hostlogging", false, "log every guest function call to stderr")

	_ = flags.Parse(args)

	if help {
		printCallUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() != 2 {
		fmt.Fprintln(stdErr, "expected a function name and an argument")
		printCallUsage(stdErr, flags)
		exit(1)
	}

	ctx := context.Background()
	shutdown, err := otel.Setup(ctx, serviceName, otel.Options{
		Endpoint:       env.OTelEndpoint,
		Enabled:        env.OTelEnabled,
		ServiceVersion: version.GetVersion(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "error setting up tracing: %v\n", err)
		exit(1)
	}

	err = call(ctx, opts, flags.Arg(0), flags.Arg(1), stdOut, stdErr)
	if shutdownErr := shutdown(ctx); err == nil && shutdownErr != nil {
		err = fmt.Errorf("error flushing spans: %w", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(stdErr, err)
		exit(1)
	}
	exit(0)
}

// call runs one kernel and prints its result.
func call(ctx context.Context, opts callOptions, fn, arg string, stdOut io.Writer, stdErr logging.Writer) error {
	k, err := newKernels(ctx, opts, stdOut, stdErr)
	if err != nil {
		return err
	}
	return runAndClose(ctx, k, fn, arg, stdOut)
}

// runAndClose runs the kernel named fn on k and then closes k. An error
// running the kernel takes precedence over one closing k.
func runAndClose(ctx context.Context, k wasmkernels.Kernels, fn, arg string, stdOut io.Writer) (err error) {
	defer func() {
		if closeErr := k.Close(ctx); err == nil && closeErr != nil {
			err = fmt.Errorf("error closing kernels: %w", closeErr)
		}
	}()

	switch fn {
	case api.ExportFibonacci:
		n, err := parseInt32(arg)
		if err != nil {
			return err
		}
		fib, err := k.Fibonacci(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdOut, fib)
	case api.ExportIsPrime:
		n, err := parseInt32(arg)
		if err != nil {
			return err
		}
		prime, err := k.IsPrime(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdOut, prime)
	case api.ExportMatrixMultiply:
		size, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid matrix size %q: %w", arg, errors.Unwrap(err))
		}
		m, err := k.MatrixMultiply(ctx, uint32(size))
		if err != nil {
			return err
		}
		printMatrix(stdOut, m, int(size))
	default:
		return fmt.Errorf("invalid function %q, expected one of %s, %s or %s",
			fn, api.ExportFibonacci, api.ExportIsPrime, api.ExportMatrixMultiply)
	}
	return nil
}

// newKernels returns the native kernels or a guest in a Runtime closed with it.
func newKernels(ctx context.Context, opts callOptions, stdOut io.Writer, stdErr logging.Writer) (wasmkernels.Kernels, error) {
	if opts.native {
		return wasmkernels.Native(), nil
	}

	wasm := kernelwasm.Module()
	if opts.wasmPath != "" {
		var err error
		if wasm, err = os.ReadFile(opts.wasmPath); err != nil {
			return nil, fmt.Errorf("error reading wasm binary: %w", err)
		}
	}

	rc := wasmkernels.NewRuntimeConfig().
		WithInterpreter(opts.interp).
		WithCompilationCacheDir(opts.cacheDir).
		WithStdout(stdOut).
		WithStderr(stdErr)
	if opts.hostlogging {
		rc = rc.WithFunctionLogging(stdErr)
	}

	r, err := wasmkernels.NewRuntime(ctx, rc)
	if err != nil {
		return nil, err
	}
	mod, err := r.Instantiate(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return &guest{Module: mod, r: r}, nil
}

// guest closes its Runtime along with the Module.
type guest struct {
	*wasmkernels.Module
	r *wasmkernels.Runtime
}

func (g *guest) Close(ctx context.Context) error {
	return g.r.Close(ctx)
}

func parseInt32(arg string) (int32, error) {
	n, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid argument %q: %w", arg, errors.Unwrap(err))
	}
	return int32(n), nil
}

// printMatrix writes one row per line with space-separated values.
func printMatrix(w io.Writer, m []float64, size int) {
	row := make([]string, size)
	for i := 0; i < size; i++ {
		for j := range row {
			row[j] = strconv.FormatFloat(m[i*size+j], 'g', -1, 64)
		}
		fmt.Fprintln(w, strings.Join(row, " "))
	}
}

func doEmit(args []string, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("emit", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	_ = flags.Parse(args)

	if help {
		printEmitUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printEmitUsage(stdErr, flags)
		exit(1)
	}

	if err := os.WriteFile(flags.Arg(0), kernelwasm.Module(), 0o644); err != nil {
		fmt.Fprintf(stdErr, "error writing wasm binary: %v\n", err)
		exit(1)
	}
	exit(0)
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "wasmkernels CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasmkernels <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  call\t\tCalls a kernel and prints its result")
	fmt.Fprintln(stdErr, "  emit\t\tWrites the reference WebAssembly guest")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of wasmkernels CLI")
}

func printCallUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "wasmkernels CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasmkernels call <options> <fibonacci|is_prime|matrix_multiply> <argument>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printEmitUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "wasmkernels CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasmkernels emit <path to wasm file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
