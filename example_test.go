package wasmkernels_test

import (
	"context"
	"fmt"
	"log"

	"github.com/wasmkernels/wasmkernels"
	"github.com/wasmkernels/wasmkernels/internal/kernelwasm"
)

// This is an example of running the kernels in WebAssembly and natively.
func Example() {
	// Choose the context to use for function calls.
	ctx := context.Background()

	// Create a new Runtime, using the compiler where supported.
	r, err := wasmkernels.NewRuntime(ctx, wasmkernels.NewRuntimeConfig())
	if err != nil {
		log.Panicln(err)
	}
	defer r.Close(ctx) // This closes everything this Runtime created.

	mod, err := r.Instantiate(ctx, kernelwasm.Module())
	if err != nil {
		log.Panicln(err)
	}

	for _, k := range []wasmkernels.Kernels{mod, wasmkernels.Native()} {
		fib, err := k.Fibonacci(ctx, 10)
		if err != nil {
			log.Panicln(err)
		}
		prime, err := k.IsPrime(ctx, 97)
		if err != nil {
			log.Panicln(err)
		}
		m, err := k.MatrixMultiply(ctx, 3)
		if err != nil {
			log.Panicln(err)
		}
		fmt.Println(fib, prime, m[0], len(m))
	}

	// Output:
	// 55 true 6 9
	// 55 true 6 9
}

// This shows matrix sizes are bounded when calling a guest.
func ExampleModule_MatrixMultiply() {
	ctx := context.Background()

	r, err := wasmkernels.NewRuntime(ctx, wasmkernels.NewRuntimeConfig().WithInterpreter(true))
	if err != nil {
		log.Panicln(err)
	}
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, kernelwasm.Module())
	if err != nil {
		log.Panicln(err)
	}

	_, err = mod.MatrixMultiply(ctx, 10000)
	fmt.Println(err)

	// Output:
	// wasmkernels: matrix too large: size 10000 exceeds 8192
}
