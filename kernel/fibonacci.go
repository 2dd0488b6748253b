package kernel

// Fibonacci returns the n-th Fibonacci number, where Fibonacci(0) = 0 and
// Fibonacci(1) = 1.
//
// Any n <= 1 is returned unchanged, negative values included. The recursion is
// intentionally naive (exponential time): guests are compared by how long this
// takes, so it must not be memoized.
func Fibonacci(n int32) int32 {
	if n <= 1 {
		return n
	}
	return Fibonacci(n-1) + Fibonacci(n-2)
}
