package wasmkernels

import (
	"io"

	"github.com/tetratelabs/wazero/experimental/logging"
	"go.opentelemetry.io/otel/trace"
)

// RuntimeConfig controls how a Runtime compiles and runs kernels guests, with
// the default implementation as NewRuntimeConfig.
//
// Each With* method returns a modified copy, so a config can be shared.
//
//	config := wasmkernels.NewRuntimeConfig().WithInterpreter(true)
//	r, err := wasmkernels.NewRuntime(ctx, config)
type RuntimeConfig struct {
	interpreter      bool
	cacheDir         string
	memoryLimitPages uint32
	functionLog      logging.Writer
	tracerProvider   trace.TracerProvider
	stdout, stderr   io.Writer
}

// NewRuntimeConfig returns a RuntimeConfig using the wazero compiler where
// supported, no compilation cache and no function logging.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{}
}

// clone ensures all fields are copied even if nil.
func (c *RuntimeConfig) clone() *RuntimeConfig {
	ret := *c
	return &ret
}

// WithInterpreter forces the wazero interpreter instead of the compiler.
func (c *RuntimeConfig) WithInterpreter(interpreter bool) *RuntimeConfig {
	ret := c.clone()
	ret.interpreter = interpreter
	return ret
}

// WithCompilationCacheDir persists compiled guests to dir, re-used across
// processes running the same wazero version. The directory is created if it
// doesn't exist.
//
// Note: The directory must not be shared by concurrently open Runtimes.
func (c *RuntimeConfig) WithCompilationCacheDir(dir string) *RuntimeConfig {
	ret := c.clone()
	ret.cacheDir = dir
	return ret
}

// WithMemoryLimitPages limits the linear memory of each guest to the given
// number of 64KiB pages. Zero keeps the wazero default of 65536 pages (4GiB).
//
// A matrix_multiply that needs more memory than this fails with a trap.
func (c *RuntimeConfig) WithMemoryLimitPages(pages uint32) *RuntimeConfig {
	ret := c.clone()
	ret.memoryLimitPages = pages
	return ret
}

// WithFunctionLogging writes a line to w on entry and exit of every guest
// function that has a name, including internal calls such as the recursion of
// fibonacci. Nil disables logging.
//
// Note: This is slow and meant for debugging.
func (c *RuntimeConfig) WithFunctionLogging(w logging.Writer) *RuntimeConfig {
	ret := c.clone()
	ret.functionLog = w
	return ret
}

// WithTracerProvider sets the provider of the spans recorded around each
// kernel call. Defaults to otel.GetTracerProvider.
func (c *RuntimeConfig) WithTracerProvider(tp trace.TracerProvider) *RuntimeConfig {
	ret := c.clone()
	ret.tracerProvider = tp
	return ret
}

// WithStdout sets where a WASI guest writes its standard output. Defaults to
// io.Discard.
func (c *RuntimeConfig) WithStdout(w io.Writer) *RuntimeConfig {
	ret := c.clone()
	ret.stdout = w
	return ret
}

// WithStderr sets where a WASI guest writes its standard error. Defaults to
// io.Discard.
func (c *RuntimeConfig) WithStderr(w io.Writer) *RuntimeConfig {
	ret := c.clone()
	ret.stderr = w
	return ret
}
