package wasmbin

import (
	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/internal/leb128"
)

var (
	// magic is the 4 byte preamble (literally "\0asm") of the binary format
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-magic
	magic = []byte{0x00, 0x61, 0x73, 0x6D}
	// version is format version and doesn't change between known specification versions
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-version
	version = []byte{0x01, 0x00, 0x00, 0x00}

	sizePrefixedName = []byte{4, 'n', 'a', 'm', 'e'}
)

const (
	// subsectionIDModuleName contains only the module name.
	subsectionIDModuleName = uint8(0)
	// subsectionIDFunctionNames is a map of indices to function names, in ascending order by function index
	subsectionIDFunctionNames = uint8(1)

	functionTypeMarker = 0x60
)

// EncodeModule returns m encoded in the WebAssembly 1.0 (20191205) Binary Format.
//
// Note: If saving to a file, the conventional extension is wasm
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func EncodeModule(m *Module) (bytes []byte) {
	bytes = append(append([]byte{}, magic...), version...)
	if len(m.Types) > 0 {
		bytes = append(bytes, encodeTypeSection(m.Types)...)
	}
	if len(m.Functions) > 0 {
		bytes = append(bytes, encodeFunctionSection(m.Functions)...)
	}
	if m.Memory != nil {
		bytes = append(bytes, encodeMemorySection(m.Memory)...)
	}
	if len(m.Exports) > 0 {
		bytes = append(bytes, encodeExportSection(m.Exports)...)
	}
	if len(m.Codes) > 0 {
		bytes = append(bytes, encodeCodeSection(m.Codes)...)
	}
	// >> The name section should appear only once in a module, and only after the data section.
	// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
	if m.Names != nil {
		nameSection := append(append([]byte{}, sizePrefixedName...), encodeNameSectionData(m.Names)...)
		bytes = append(bytes, encodeSection(SectionIDCustom, nameSection)...)
	}
	return
}

// encodeSection encodes the sectionID, the size of its contents in bytes, followed by the contents.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func encodeSection(sectionID SectionID, contents []byte) []byte {
	return append([]byte{sectionID}, encodeSizePrefixed(contents)...)
}

// encodeTypeSection encodes a SectionIDType for the given signatures.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#type-section%E2%91%A0
func encodeTypeSection(types []api.Signature) []byte {
	contents := leb128.EncodeUint32(uint32(len(types)))
	for _, t := range types {
		contents = append(contents, encodeFunctionType(t)...)
	}
	return encodeSection(SectionIDType, contents)
}

// encodeFunctionType returns the signature encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-functype
func encodeFunctionType(t api.Signature) []byte {
	data := []byte{functionTypeMarker}
	data = append(data, encodeValTypes(t.Params)...)
	return append(data, encodeValTypes(t.Results)...)
}

func encodeValTypes(vt []api.ValueType) []byte {
	count := leb128.EncodeUint32(uint32(len(vt)))
	return append(count, vt...)
}

// encodeFunctionSection encodes a SectionIDFunction for the type indices associated with module-defined functions.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-section%E2%91%A0
func encodeFunctionSection(typeIndices []uint32) []byte {
	contents := leb128.EncodeUint32(uint32(len(typeIndices)))
	for _, index := range typeIndices {
		contents = append(contents, leb128.EncodeUint32(index)...)
	}
	return encodeSection(SectionIDFunction, contents)
}

// encodeMemorySection encodes a SectionIDMemory holding one memory.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-section%E2%91%A0
func encodeMemorySection(mem *Memory) []byte {
	contents := append(leb128.EncodeUint32(1), encodeLimitsType(mem.Min, mem.Max)...)
	return encodeSection(SectionIDMemory, contents)
}

// encodeLimitsType returns the `limitsType` (min, max) encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func encodeLimitsType(min uint32, max *uint32) []byte {
	if max == nil {
		return append(leb128.EncodeUint32(0x00), leb128.EncodeUint32(min)...)
	}
	return append(leb128.EncodeUint32(0x01), append(leb128.EncodeUint32(min), leb128.EncodeUint32(*max)...)...)
}

// encodeExportSection encodes a SectionIDExport for the given exports.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#export-section%E2%91%A0
func encodeExportSection(exports []Export) []byte {
	contents := leb128.EncodeUint32(uint32(len(exports)))
	for _, e := range exports {
		contents = append(contents, encodeExport(e)...)
	}
	return encodeSection(SectionIDExport, contents)
}

// encodeExport returns the Export encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-export
func encodeExport(e Export) []byte {
	data := encodeSizePrefixed([]byte(e.Name))
	data = append(data, e.Type)
	return append(data, leb128.EncodeUint32(e.Index)...)
}

// encodeCodeSection encodes a SectionIDCode for the module-defined functions.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#code-section%E2%91%A0
func encodeCodeSection(code []Code) []byte {
	contents := leb128.EncodeUint32(uint32(len(code)))
	for _, c := range code {
		contents = append(contents, encodeCode(c)...)
	}
	return encodeSection(SectionIDCode, contents)
}

// encodeCode returns the Code encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
func encodeCode(c Code) []byte {
	// local blocks compress locals while preserving index order by grouping locals of the same type.
	// https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#code-section%E2%91%A0
	var blocks []byte
	var blockCount uint32
	for i := 0; i < len(c.LocalTypes); {
		vt := c.LocalTypes[i]
		run := 1
		for i+run < len(c.LocalTypes) && c.LocalTypes[i+run] == vt {
			run++
		}
		blocks = append(blocks, leb128.EncodeUint32(uint32(run))...)
		blocks = append(blocks, vt)
		blockCount++
		i += run
	}
	code := append(leb128.EncodeUint32(blockCount), blocks...)
	code = append(code, c.Body...)
	return encodeSizePrefixed(code)
}

// encodeNameSectionData serializes the data for the "name" key in SectionIDCustom.
//
// Note: The result can be nil because this does not encode empty subsections
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
func encodeNameSectionData(n *NameSection) (data []byte) {
	if n.ModuleName != "" {
		data = append(data, encodeNameSubsection(subsectionIDModuleName, encodeSizePrefixed([]byte(n.ModuleName)))...)
	}
	if len(n.FunctionNames) > 0 {
		fd := leb128.EncodeUint32(uint32(len(n.FunctionNames)))
		for i, name := range n.FunctionNames {
			fd = append(fd, leb128.EncodeUint32(uint32(i))...)
			fd = append(fd, encodeSizePrefixed([]byte(name))...)
		}
		data = append(data, encodeNameSubsection(subsectionIDFunctionNames, fd)...)
	}
	return
}

// encodeNameSubsection returns a buffer encoding the given subsection
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#subsections%E2%91%A0
func encodeNameSubsection(subsectionID uint8, content []byte) []byte {
	return append([]byte{subsectionID}, encodeSizePrefixed(content)...)
}

// encodeSizePrefixed encodes the data prefixed by their size.
func encodeSizePrefixed(data []byte) []byte {
	size := leb128.EncodeUint32(uint32(len(data)))
	return append(size, data...)
}
