//go:build wasip1

package main

import (
	"unsafe"

	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/kernel"
)

// buffers holds matrix_multiply results until release_buffer, keyed by their
// address in linear memory. The Go collector doesn't move objects, so a
// buffer stays at its address while referenced here.
var buffers = map[uint32][]float64{}

//go:wasmexport fibonacci
func fibonacci(n int32) int32 {
	return kernel.Fibonacci(n)
}

//go:wasmexport is_prime
func isPrime(n int32) int32 {
	return int32(api.EncodeBool(kernel.IsPrime(n)))
}

//go:wasmexport matrix_multiply
func matrixMultiply(size uint32) uint32 {
	result := kernel.MatrixMultiply(size)
	if len(result) == 0 {
		return 0
	}
	ptr := uint32(uintptr(unsafe.Pointer(&result[0])))
	buffers[ptr] = result
	return ptr
}

//go:wasmexport release_buffer
func releaseBuffer(ptr uint32) {
	delete(buffers, ptr)
}
