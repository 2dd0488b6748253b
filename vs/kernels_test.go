//go:build amd64 && cgo && !windows

// Wasmtime can only be used in amd64 with CGO
// Wasmer doesn't link on Windows
package vs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/birros/go-wasm3"
	"github.com/bytecodealliance/wasmtime-go"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/wasmkernels/wasmkernels"
	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/internal/kernelwasm"
)

// kernels adapts each runtime's calling convention to the same shape.
type kernels struct {
	fibonacci func(n int32) (int32, error)
	isPrime   func(n int32) (bool, error)
	// matrixMultiply is nil when the runtime can't run it.
	matrixMultiply func(size uint32) ([]float64, error)
	close          func()
}

type engine struct {
	name string
	new  func() (*kernels, error)
}

// engines are compared in the order listed.
var engines = []engine{
	{name: "native", new: newNative},
	{name: "wazero-interpreter", new: newWazero(true)},
	{name: "wazero-compiler", new: newWazero(false)},
	{name: "wasmer-go", new: newWasmer},
	{name: "wasmtime-go", new: newWasmtime},
	{name: "go-wasm3", new: newGoWasm3},
}

func newNative() (*kernels, error) {
	return fromKernels(wasmkernels.Native()), nil
}

func newWazero(interpreter bool) func() (*kernels, error) {
	return func() (*kernels, error) {
		ctx := context.Background()
		r, err := wasmkernels.NewRuntime(ctx, wasmkernels.NewRuntimeConfig().WithInterpreter(interpreter))
		if err != nil {
			return nil, err
		}
		mod, err := r.Instantiate(ctx, kernelwasm.Module())
		if err != nil {
			_ = r.Close(ctx)
			return nil, err
		}
		ret := fromKernels(mod)
		ret.close = func() { _ = r.Close(ctx) }
		return ret, nil
	}
}

func fromKernels(k wasmkernels.Kernels) *kernels {
	ctx := context.Background()
	return &kernels{
		fibonacci:      func(n int32) (int32, error) { return k.Fibonacci(ctx, n) },
		isPrime:        func(n int32) (bool, error) { return k.IsPrime(ctx, n) },
		matrixMultiply: func(size uint32) ([]float64, error) { return k.MatrixMultiply(ctx, size) },
		close:          func() { _ = k.Close(ctx) },
	}
}

func newWasmer() (*kernels, error) {
	store := wasmer.NewStore(wasmer.NewEngine())
	module, err := wasmer.NewModule(store, kernelwasm.Module())
	if err != nil {
		store.Close()
		return nil, err
	}
	instance, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		store.Close()
		return nil, err
	}
	closeAll := func() {
		instance.Close()
		store.Close()
	}

	var fns [4]wasmer.NativeFunction
	for i, name := range api.FunctionExports {
		if fns[i], err = instance.Exports.GetFunction(name); err != nil {
			closeAll()
			return nil, err
		}
	}
	fib, isPrime, matrix, release := fns[0], fns[1], fns[2], fns[3]
	mem, err := instance.Exports.GetMemory(api.ExportMemory)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &kernels{
		fibonacci: func(n int32) (int32, error) {
			res, err := fib(n)
			if err != nil {
				return 0, err
			}
			return res.(int32), nil
		},
		isPrime: func(n int32) (bool, error) {
			res, err := isPrime(n)
			if err != nil {
				return false, err
			}
			return res.(int32) != 0, nil
		},
		matrixMultiply: func(size uint32) ([]float64, error) {
			res, err := matrix(int32(size))
			if err != nil {
				return nil, err
			}
			ptr := uint32(res.(int32))
			defer release(int32(ptr)) //nolint:errcheck
			return decodeMatrix(mem.Data(), ptr, size)
		},
		close: closeAll,
	}, nil
}

func newWasmtime() (*kernels, error) {
	store := wasmtime.NewStore(wasmtime.NewEngine())
	module, err := wasmtime.NewModule(store.Engine, kernelwasm.Module())
	if err != nil {
		return nil, err
	}
	instance, err := wasmtime.NewInstance(store, module, nil)
	if err != nil {
		return nil, err
	}

	var fns [4]*wasmtime.Func
	for i, name := range api.FunctionExports {
		if fns[i] = instance.GetFunc(store, name); fns[i] == nil {
			return nil, fmt.Errorf("%s is not a function", name)
		}
	}
	fib, isPrime, matrix, release := fns[0], fns[1], fns[2], fns[3]
	export := instance.GetExport(store, api.ExportMemory)
	if export == nil || export.Memory() == nil {
		return nil, errors.New("memory is not exported")
	}
	mem := export.Memory()

	return &kernels{
		fibonacci: func(n int32) (int32, error) {
			res, err := fib.Call(store, n)
			if err != nil {
				return 0, err
			}
			return res.(int32), nil
		},
		isPrime: func(n int32) (bool, error) {
			res, err := isPrime.Call(store, n)
			if err != nil {
				return false, err
			}
			return res.(int32) != 0, nil
		},
		matrixMultiply: func(size uint32) ([]float64, error) {
			res, err := matrix.Call(store, int32(size))
			if err != nil {
				return nil, err
			}
			ptr := uint32(res.(int32))
			defer release.Call(store, int32(ptr)) //nolint:errcheck
			return decodeMatrix(mem.UnsafeData(store), ptr, size)
		},
		close: func() {},
	}, nil
}

// newGoWasm3 only covers the scalar kernels.
func newGoWasm3() (*kernels, error) {
	env := wasm3.NewEnvironment()
	runtime := wasm3.NewRuntime(&wasm3.Config{
		Environment: env,
		StackSize:   64 * 1024, // from example
	})
	closeAll := func() {
		runtime.Destroy()
		env.Destroy()
	}

	module, err := runtime.ParseModule(kernelwasm.Module())
	if err != nil {
		closeAll()
		return nil, err
	}
	if _, err = runtime.LoadModule(module); err != nil {
		closeAll()
		return nil, err
	}

	fib, err := runtime.FindFunction(api.ExportFibonacci)
	if err != nil {
		closeAll()
		return nil, err
	}
	isPrime, err := runtime.FindFunction(api.ExportIsPrime)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &kernels{
		// go-wasm3 only maps the int type
		fibonacci: func(n int32) (int32, error) {
			res, err := fib(int(n))
			if err != nil {
				return 0, err
			}
			return res[0].(int32), nil
		},
		isPrime: func(n int32) (bool, error) {
			res, err := isPrime(int(n))
			if err != nil {
				return false, err
			}
			return res[0].(int32) != 0, nil
		},
		close: closeAll,
	}, nil
}

func decodeMatrix(mem []byte, ptr, size uint32) ([]float64, error) {
	count := int(size * size)
	end := int(ptr) + count*api.Float64Size
	if end > len(mem) {
		return nil, fmt.Errorf("%d floats at %d out of range of memory size %d", count, ptr, len(mem))
	}
	ret := make([]float64, count)
	for i := range ret {
		ret[i] = math.Float64frombits(binary.LittleEndian.Uint64(mem[int(ptr)+i*api.Float64Size:]))
	}
	return ret, nil
}
