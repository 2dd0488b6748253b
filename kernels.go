// Package wasmkernels runs the fibonacci, is_prime and matrix_multiply
// kernels, either natively or inside a WebAssembly guest hosted by wazero.
//
// Both ways implement Kernels, so callers can compare them:
//
//	ctx := context.Background()
//	r, err := wasmkernels.NewRuntime(ctx, wasmkernels.NewRuntimeConfig())
//	if err != nil {
//		log.Panicln(err)
//	}
//	defer r.Close(ctx)
//
//	mod, err := r.Instantiate(ctx, wasm)
//	if err != nil {
//		log.Panicln(err)
//	}
//	fib, err := mod.Fibonacci(ctx, 10) // 55
//
// See package api for the exports a guest must define.
package wasmkernels

import (
	"context"

	"github.com/wasmkernels/wasmkernels/kernel"
)

// Kernels is the set of numeric kernels.
type Kernels interface {
	// Fibonacci returns the n-th Fibonacci number by naive recursion. Inputs
	// of one or less, negative values included, return n.
	Fibonacci(ctx context.Context, n int32) (int32, error)

	// IsPrime reports whether n is prime by trial division.
	IsPrime(ctx context.Context, n int32) (bool, error)

	// MatrixMultiply returns the row-major size*size product of a matrix of
	// ones and a matrix of twos. Every cell is 2*size.
	MatrixMultiply(ctx context.Context, size uint32) ([]float64, error)

	// Close releases any resources held. Further calls are undefined.
	Close(ctx context.Context) error
}

// Native returns Kernels that call package kernel directly. It never returns
// an error.
func Native() Kernels {
	return native{}
}

type native struct{}

// Fibonacci implements the same method as documented on Kernels.
func (native) Fibonacci(_ context.Context, n int32) (int32, error) {
	return kernel.Fibonacci(n), nil
}

// IsPrime implements the same method as documented on Kernels.
func (native) IsPrime(_ context.Context, n int32) (bool, error) {
	return kernel.IsPrime(n), nil
}

// MatrixMultiply implements the same method as documented on Kernels.
func (native) MatrixMultiply(_ context.Context, size uint32) ([]float64, error) {
	return kernel.MatrixMultiply(size), nil
}

// Close implements the same method as documented on Kernels.
func (native) Close(context.Context) error {
	return nil
}
