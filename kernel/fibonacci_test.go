package kernel

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFibonacci(t *testing.T) {
	tests := []struct {
		n, expected int32
	}{
		{n: 0, expected: 0},
		{n: 1, expected: 1},
		{n: 2, expected: 1},
		{n: 5, expected: 5},
		{n: 10, expected: 55},
		{n: 20, expected: 6765},
		{n: 30, expected: 832040},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(fmt.Sprintf("fib(%d)", tc.n), func(t *testing.T) {
			require.Equal(t, tc.expected, Fibonacci(tc.n))
		})
	}
}

// TestFibonacci_NonPositive ensures inputs <= 1 are returned as-is.
func TestFibonacci_NonPositive(t *testing.T) {
	for _, n := range []int32{1, 0, -1, -2, -10, -2147483648} {
		require.Equal(t, n, Fibonacci(n), "n=%d", n)
	}
}

func TestFibonacci_Recurrence(t *testing.T) {
	for n := int32(2); n <= 25; n++ {
		require.Equal(t, Fibonacci(n-1)+Fibonacci(n-2), Fibonacci(n), "n=%d", n)
	}
}

// TestFibonacci_MatchesBig compares against an iterative math/big sequence
// truncated to two's complement int32.
func TestFibonacci_MatchesBig(t *testing.T) {
	mod := new(big.Int).Lsh(big.NewInt(1), 32)
	a, b := big.NewInt(0), big.NewInt(1)
	for n := int32(0); n <= 27; n++ {
		wrapped := int32(uint32(new(big.Int).Mod(a, mod).Uint64()))
		require.Equal(t, wrapped, Fibonacci(n), "n=%d", n)
		a, b = b, new(big.Int).Add(a, b)
	}
}

func BenchmarkFibonacci(b *testing.B) {
	for _, n := range []int32{10, 20, 25} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				Fibonacci(n)
			}
		})
	}
}
