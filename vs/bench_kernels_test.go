//go:build amd64 && cgo && !windows

// Wasmtime can only be used in amd64 with CGO
// Wasmer doesn't link on Windows
package vs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkernels/wasmkernels/kernel"
)

const (
	fibonacciArgument      = int32(20)
	isPrimeArgument        = int32(math.MaxInt32) // prime, so every divisor is tried
	matrixMultiplyArgument = uint32(64)
)

// TestKernels ensures every engine agrees with package kernel.
func TestKernels(t *testing.T) {
	for _, e := range engines {
		e := e
		t.Run(e.name, func(t *testing.T) {
			k, err := e.new()
			require.NoError(t, err)
			defer k.close()

			for _, n := range []int32{math.MinInt32, -1, 0, 1, 2, 10, fibonacciArgument} {
				res, err := k.fibonacci(n)
				require.NoError(t, err)
				require.Equal(t, kernel.Fibonacci(n), res, "fibonacci(%d)", n)
			}

			for _, n := range []int32{math.MinInt32, -5, 0, 1, 2, 9, 7919, 2147483646, isPrimeArgument} {
				res, err := k.isPrime(n)
				require.NoError(t, err)
				require.Equal(t, kernel.IsPrime(n), res, "is_prime(%d)", n)
			}

			if k.matrixMultiply == nil {
				return
			}
			for _, size := range []uint32{matrixMultiplyArgument, 0, 1, 2, 10} {
				res, err := k.matrixMultiply(size)
				require.NoError(t, err)
				require.Equal(t, kernel.MatrixMultiply(size), res, "matrix_multiply(%d)", size)
			}
		})
	}
}

// BenchmarkKernels_Init tracks the time spent readying the kernels for use.
func BenchmarkKernels_Init(b *testing.B) {
	for _, e := range engines {
		e := e
		b.Run(e.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				k, err := e.new()
				if err != nil {
					b.Fatal(err)
				}
				k.close()
			}
		})
	}
}

// BenchmarkFibonacci_Invoke benchmarks the naive recursion.
func BenchmarkFibonacci_Invoke(b *testing.B) {
	benchmarkInvoke(b, func(b *testing.B, k *kernels) {
		for i := 0; i < b.N; i++ {
			if _, err := k.fibonacci(fibonacciArgument); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkIsPrime_Invoke benchmarks trial division of a large prime.
func BenchmarkIsPrime_Invoke(b *testing.B) {
	benchmarkInvoke(b, func(b *testing.B, k *kernels) {
		for i := 0; i < b.N; i++ {
			if _, err := k.isPrime(isPrimeArgument); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkMatrixMultiply_Invoke benchmarks the triple loop, including the
// copy out of linear memory.
func BenchmarkMatrixMultiply_Invoke(b *testing.B) {
	benchmarkInvoke(b, func(b *testing.B, k *kernels) {
		if k.matrixMultiply == nil {
			b.Skip("not supported")
		}
		for i := 0; i < b.N; i++ {
			if _, err := k.matrixMultiply(matrixMultiplyArgument); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchmarkInvoke(b *testing.B, invoke func(*testing.B, *kernels)) {
	for _, e := range engines {
		e := e
		b.Run(e.name, func(b *testing.B) {
			k, err := e.new()
			if err != nil {
				b.Fatal(err)
			}
			defer k.close()
			b.ResetTimer()
			invoke(b, k)
		})
	}
}
