package wasmkernels

import "errors"

var (
	// ErrMissingExport is returned by Runtime.Instantiate when a guest lacks
	// one of the exports in api.FunctionExports or api.ExportMemory.
	ErrMissingExport = errors.New("wasmkernels: missing export")

	// ErrSignatureMismatch is returned by Runtime.Instantiate when an export
	// doesn't have the signature in api.Signatures.
	ErrSignatureMismatch = errors.New("wasmkernels: signature mismatch")

	// ErrMatrixTooLarge is returned when a matrix size exceeds api.MaxMatrixSize.
	ErrMatrixTooLarge = errors.New("wasmkernels: matrix too large")

	// ErrBufferOutOfRange is returned when matrix_multiply returns a pointer
	// whose buffer isn't inside linear memory.
	ErrBufferOutOfRange = errors.New("wasmkernels: buffer out of range")
)
