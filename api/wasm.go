// Package api defines the ABI shared by every kernels guest and host.
//
// A guest is a WebAssembly 1.0 module exporting a memory and the functions
// named below. Hosts look exports up by name and check their signatures
// against Signatures before the first call.
package api

import "fmt"

// Export names of the kernels ABI.
const (
	// ExportMemory is the linear memory holding matrix_multiply results.
	ExportMemory = "memory"
	// ExportFibonacci is (i32 n) -> (i32).
	ExportFibonacci = "fibonacci"
	// ExportIsPrime is (i32 n) -> (i32 bool).
	ExportIsPrime = "is_prime"
	// ExportMatrixMultiply is (i32 size) -> (i32 ptr). The result is size*size
	// little-endian f64 values starting at ptr.
	ExportMatrixMultiply = "matrix_multiply"
	// ExportReleaseBuffer is (i32 ptr) -> (). It tells the guest the host no
	// longer reads the buffer at ptr.
	ExportReleaseBuffer = "release_buffer"
)

// MaxMatrixSize is the largest size a host passes to matrix_multiply.
//
// The reference guest keeps three size*size f64 buffers in memory and
// computes offsets with 32-bit arithmetic, so their total must stay below 2GiB.
const MaxMatrixSize = 8192

// Float64Size is the byte width of one matrix entry in linear memory.
const Float64Size = 8

// ValueType is a WebAssembly 1.0 value type in its binary encoding.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType as a string.
// These type names match the names used in the WebAssembly text format.
//
// Note: This returns "unknown", if an undefined ValueType value is passed.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// Signature is the parameter and result types of an exported function.
type Signature struct {
	Params, Results []ValueType
}

// String returns the text-format like "(i32) -> (i32)".
func (s Signature) String() string {
	return fmt.Sprintf("%s -> %s", typeList(s.Params), typeList(s.Results))
}

// Equal reports whether both signatures have the same types in the same order.
func (s Signature) Equal(o Signature) bool {
	return equalTypes(s.Params, o.Params) && equalTypes(s.Results, o.Results)
}

var (
	i32ToI32  = Signature{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}}
	i32ToVoid = Signature{Params: []ValueType{ValueTypeI32}}
)

// Signatures maps each exported function of the ABI to its signature.
var Signatures = map[string]Signature{
	ExportFibonacci:      i32ToI32,
	ExportIsPrime:        i32ToI32,
	ExportMatrixMultiply: i32ToI32,
	ExportReleaseBuffer:  i32ToVoid,
}

// FunctionExports lists the function exports in a stable order.
var FunctionExports = []string{
	ExportFibonacci,
	ExportIsPrime,
	ExportMatrixMultiply,
	ExportReleaseBuffer,
}

// EncodeI32 encodes the input as a ValueTypeI32 parameter.
func EncodeI32(input int32) uint64 {
	return uint64(uint32(input))
}

// DecodeI32 decodes the input as a ValueTypeI32 result.
func DecodeI32(input uint64) int32 {
	return int32(input)
}

// EncodeU32 encodes the input as a ValueTypeI32 parameter.
func EncodeU32(input uint32) uint64 {
	return uint64(input)
}

// DecodeU32 decodes the input as a ValueTypeI32 result.
func DecodeU32(input uint64) uint32 {
	return uint32(input)
}

// EncodeBool encodes the input as a ValueTypeI32 of 1 or 0. Guests use it for
// the is_prime result.
func EncodeBool(input bool) uint64 {
	if input {
		return 1
	}
	return 0
}

// DecodeBool decodes a ValueTypeI32 result. Any non-zero value is true.
func DecodeBool(input uint64) bool {
	return uint32(input) != 0
}

func typeList(types []ValueType) string {
	ret := "("
	for i, t := range types {
		if i > 0 {
			ret += ", "
		}
		ret += ValueTypeName(t)
	}
	return ret + ")"
}

func equalTypes(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
