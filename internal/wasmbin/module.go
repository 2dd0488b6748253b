// Package wasmbin encodes the subset of the WebAssembly 1.0 (20191205) binary
// format needed to hand-assemble small guests.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
package wasmbin

import (
	"github.com/wasmkernels/wasmkernels/api"
)

// SectionID identifies the sections of a Module in the WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
type SectionID = byte

const (
	SectionIDCustom   SectionID = 0
	SectionIDType     SectionID = 1
	SectionIDFunction SectionID = 3
	SectionIDMemory   SectionID = 5
	SectionIDExport   SectionID = 7
	SectionIDCode     SectionID = 10
)

// ExternType classifies exports.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#export-section%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeMemory ExternType = 0x02
)

// Module is the encodable form of a guest with no imports.
type Module struct {
	// Types are the function signatures, referenced by index from Functions.
	Types []api.Signature
	// Functions holds the type index of each function defined in Codes.
	Functions []uint32
	// Memory is the optional single linear memory.
	Memory *Memory
	// Exports are encoded in the given order.
	Exports []Export
	// Codes are the function bodies, in the same order as Functions.
	Codes []Code
	// Names is encoded as the custom "name" section when non-nil.
	Names *NameSection
}

// Memory describes the limits of a linear memory in pages of 64KiB.
type Memory struct {
	Min uint32
	// Max is nil when the memory can grow up to the host limit.
	Max *uint32
}

// Export associates a name with a function or memory index.
type Export struct {
	Name  string
	Type  ExternType
	Index uint32
}

// Code is a function body.
type Code struct {
	// LocalTypes are the types of locals following the parameters.
	LocalTypes []api.ValueType
	// Body is the instruction sequence, ending with OpcodeEnd.
	Body []byte
}

// NameSection is the custom section mapping indices to names for debugging.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#name-section%E2%91%A0
type NameSection struct {
	ModuleName string
	// FunctionNames is indexed by function index.
	FunctionNames []string
}
