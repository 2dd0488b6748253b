package kernel

const (
	// MatrixA is the value of every entry of the left operand.
	MatrixA = 1.0
	// MatrixB is the value of every entry of the right operand.
	MatrixB = 2.0
)

// MatrixMultiply multiplies two size x size matrices, one filled with MatrixA
// and one with MatrixB, and returns the row-major product.
//
// The product is computed with the textbook i, j, k loop, so every entry equals
// MatrixA * MatrixB * size. A zero size returns an empty, non-nil slice.
func MatrixMultiply(size uint32) []float64 {
	n := int(size)
	result := make([]float64, n*n)
	a := filled(n*n, MatrixA)
	b := filled(n*n, MatrixB)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				result[i*n+j] += a[i*n+k] * b[k*n+j]
			}
		}
	}
	return result
}

func filled(count int, v float64) []float64 {
	s := make([]float64, count)
	for i := range s {
		s[i] = v
	}
	return s
}
