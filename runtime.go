package wasmkernels

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wasmkernels/wasmkernels/api"
)

// tracerName is the instrumentation scope of spans recorded by Module.
const tracerName = "github.com/wasmkernels/wasmkernels"

// defaultModuleName prefixes instance names of guests without a name section.
const defaultModuleName = "kernels"

// Start functions run on instantiation, in order of preference.
const (
	startReactor = "_initialize"
	startCommand = "_start"
)

// Runtime compiles and instantiates kernels guests. It is safe for
// concurrent use.
type Runtime struct {
	config *RuntimeConfig
	rt     wazero.Runtime
	cache  wazero.CompilationCache
	tracer trace.Tracer

	// seq makes instance names unique within rt.
	seq atomic.Uint32

	wasiMu sync.Mutex
	wasi   bool
}

// NewRuntime returns a Runtime configured by config, or NewRuntimeConfig if nil.
//
// This only returns an error if the compilation cache directory can't be used.
func NewRuntime(ctx context.Context, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = NewRuntimeConfig()
	}

	var rtc wazero.RuntimeConfig
	if config.interpreter {
		rtc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rtc = wazero.NewRuntimeConfig()
	}
	if pages := config.memoryLimitPages; pages != 0 {
		rtc = rtc.WithMemoryLimitPages(pages)
	}

	var cache wazero.CompilationCache
	if dir := config.cacheDir; dir != "" {
		var err error
		if cache, err = wazero.NewCompilationCacheWithDir(dir); err != nil {
			return nil, fmt.Errorf("invalid compilation cache dir %q: %w", dir, err)
		}
		rtc = rtc.WithCompilationCache(cache)
	}

	tp := config.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Runtime{
		config: config,
		rt:     wazero.NewRuntimeWithConfig(ctx, rtc),
		cache:  cache,
		tracer: tp.Tracer(tracerName),
	}, nil
}

// Instantiate compiles the wasm binary and instantiates it as a Module.
//
// A guest importing "wasi_snapshot_preview1" gets the wazero implementation.
// A reactor's "_initialize" or, failing that, a command's "_start" runs before
// this returns.
//
// The error wraps ErrMissingExport or ErrSignatureMismatch when the guest
// doesn't define the exports in package api.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := r.rt.CompileModule(r.listenerContext(ctx), wasm)
	if err != nil {
		return nil, fmt.Errorf("compile kernels: %w", err)
	}

	if needsWASI(compiled.ImportedFunctions()) {
		if err = r.ensureWASI(ctx); err != nil {
			_ = compiled.Close(ctx)
			return nil, err
		}
	}

	mod, err := r.rt.InstantiateModule(ctx, compiled, r.moduleConfig(compiled))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate kernels: %w", err)
	}

	ret, err := newModule(mod, compiled, r.tracer)
	if err != nil {
		_ = mod.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, err
	}
	return ret, nil
}

// listenerContext returns ctx with the function listener of the Runtime, if
// any. wazero reads it during compilation.
func (r *Runtime) listenerContext(ctx context.Context) context.Context {
	if w := r.config.functionLog; w != nil {
		return experimental.WithFunctionListenerFactory(ctx, logging.NewLoggingListenerFactory(w))
	}
	return ctx
}

func (r *Runtime) moduleConfig(compiled wazero.CompiledModule) wazero.ModuleConfig {
	name := compiled.Name()
	if name == "" {
		name = defaultModuleName
	}

	conf := wazero.NewModuleConfig().
		WithName(fmt.Sprintf("%s-%d", name, r.seq.Add(1))).
		WithStartFunctions(startFunctions(compiled.ExportedFunctions())...)
	if r.config.stdout != nil {
		conf = conf.WithStdout(r.config.stdout)
	}
	if r.config.stderr != nil {
		conf = conf.WithStderr(r.config.stderr)
	}
	return conf
}

func startFunctions(exports map[string]wazeroapi.FunctionDefinition) []string {
	for _, name := range []string{startReactor, startCommand} {
		if _, ok := exports[name]; ok {
			return []string{name}
		}
	}
	return nil
}

func needsWASI(imports []wazeroapi.FunctionDefinition) bool {
	for _, f := range imports {
		if moduleName, _, _ := f.Import(); moduleName == wasi_snapshot_preview1.ModuleName {
			return true
		}
	}
	return false
}

// ensureWASI instantiates the WASI host module the first time a guest needs it.
func (r *Runtime) ensureWASI(ctx context.Context) error {
	r.wasiMu.Lock()
	defer r.wasiMu.Unlock()

	if r.wasi {
		return nil
	}
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.rt); err != nil {
		return fmt.Errorf("instantiate %s: %w", wasi_snapshot_preview1.ModuleName, err)
	}
	r.wasi = true
	return nil
}

// Close closes every Module instantiated by this Runtime, then releases the
// compilation cache, if any.
func (r *Runtime) Close(ctx context.Context) (err error) {
	err = r.rt.Close(ctx)
	if r.cache != nil {
		if cacheErr := r.cache.Close(ctx); err == nil {
			err = cacheErr
		}
	}
	return
}

// newModule resolves the exports of mod and checks them against package api.
func newModule(mod wazeroapi.Module, compiled wazero.CompiledModule, tracer trace.Tracer) (*Module, error) {
	fns := make(map[string]wazeroapi.Function, len(api.FunctionExports))
	for _, name := range api.FunctionExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, fmt.Errorf("%w: function %q", ErrMissingExport, name)
		}
		def := fn.Definition()
		got := api.Signature{Params: def.ParamTypes(), Results: def.ResultTypes()}
		if want := api.Signatures[name]; !got.Equal(want) {
			return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrSignatureMismatch, name, got, want)
		}
		fns[name] = fn
	}

	mem := mod.ExportedMemory(api.ExportMemory)
	if mem == nil {
		return nil, fmt.Errorf("%w: memory %q", ErrMissingExport, api.ExportMemory)
	}

	return &Module{
		mod:            mod,
		compiled:       compiled,
		tracer:         tracer,
		memory:         mem,
		fibonacci:      fns[api.ExportFibonacci],
		isPrime:        fns[api.ExportIsPrime],
		matrixMultiply: fns[api.ExportMatrixMultiply],
		releaseBuffer:  fns[api.ExportReleaseBuffer],
	}, nil
}
