package wasmbin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkernels/wasmkernels/api"
)

var i32ToI32 = api.Signature{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}

func TestEncodeModule(t *testing.T) {
	maxPages := uint32(2)
	tests := []struct {
		name     string
		input    *Module
		expected []byte
	}{
		{
			name:     "empty",
			input:    &Module{},
			expected: append(append([]byte{}, magic...), version...),
		},
		{
			name: "identity function", // e.g. (module (func (param i32) (result i32) local.get 0) (export "id" (func 0)))
			input: &Module{
				Types:     []api.Signature{i32ToI32},
				Functions: []uint32{0},
				Exports:   []Export{{Name: "id", Type: ExternTypeFunc, Index: 0}},
				Codes:     []Code{{Body: new(Expr).LocalGet(0).End().Bytes()}},
			},
			expected: append(append(append([]byte{}, magic...), version...),
				SectionIDType, 0x06, // 6 bytes in this section
				0x01,                                  // 1 type
				0x60, 0x01, api.ValueTypeI32, 0x01, api.ValueTypeI32,
				SectionIDFunction, 0x02, // 2 bytes in this section
				0x01, 0x00, // 1 function of type 0
				SectionIDExport, 0x06, // 6 bytes in this section
				0x01,           // 1 export
				0x02, 'i', 'd', // size of "id", "id"
				ExternTypeFunc, 0x00,
				SectionIDCode, 0x06, // 6 bytes in this section
				0x01,       // 1 function
				0x04, 0x00, // 4 bytes, no locals
				OpcodeLocalGet, 0x00, OpcodeEnd,
			),
		},
		{
			name:  "memory without max",
			input: &Module{Memory: &Memory{Min: 1}},
			expected: append(append(append([]byte{}, magic...), version...),
				SectionIDMemory, 0x03, 0x01, 0x00, 0x01,
			),
		},
		{
			name:  "memory with max",
			input: &Module{Memory: &Memory{Min: 1, Max: &maxPages}},
			expected: append(append(append([]byte{}, magic...), version...),
				SectionIDMemory, 0x04, 0x01, 0x01, 0x01, 0x02,
			),
		},
		{
			name:  "names",
			input: &Module{Names: &NameSection{ModuleName: "m", FunctionNames: []string{"f"}}},
			expected: append(append(append([]byte{}, magic...), version...),
				SectionIDCustom, 0x0f, // 15 bytes in this section
				0x04, 'n', 'a', 'm', 'e',
				subsectionIDModuleName, 0x02, 0x01, 'm',
				subsectionIDFunctionNames, 0x04, 0x01, 0x00, 0x01, 'f',
			),
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, EncodeModule(tc.input))
		})
	}
}

func TestEncodeCode_Locals(t *testing.T) {
	c := Code{
		LocalTypes: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeF64, api.ValueTypeI32},
		Body:       []byte{OpcodeEnd},
	}
	require.Equal(t, []byte{
		0x08,                       // 8 bytes
		0x03,                       // 3 groups of locals
		0x02, api.ValueTypeI32,     // 2 x i32
		0x01, api.ValueTypeF64,     // 1 x f64
		0x01, api.ValueTypeI32,     // 1 x i32
		OpcodeEnd,
	}, encodeCode(c))
}

func TestEncodeExport(t *testing.T) {
	require.Equal(t, []byte{
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		ExternTypeMemory, 0x00,
	}, encodeExport(Export{Name: "memory", Type: ExternTypeMemory}))

	require.Equal(t, []byte{
		0x02, 'p', 'i',
		ExternTypeFunc, 0x80, 0x01, // index 128
	}, encodeExport(Export{Name: "pi", Type: ExternTypeFunc, Index: 128}))
}
