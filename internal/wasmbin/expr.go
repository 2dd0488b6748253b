package wasmbin

import (
	"encoding/binary"
	"math"

	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/internal/leb128"
)

// Opcode is the binary Opcode of an instruction.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-instr
type Opcode = byte

const (
	// OpcodeUnreachable causes an unconditional trap.
	OpcodeUnreachable Opcode = 0x00
	// OpcodeBlock brackets a sequence of instructions. A branch instruction on a block label breaks out to after its
	// OpcodeEnd.
	OpcodeBlock Opcode = 0x02
	// OpcodeLoop brackets a sequence of instructions. A branch instruction on a loop label will jump back to the
	// beginning of its block.
	OpcodeLoop Opcode = 0x03
	// OpcodeIf brackets a sequence of instructions. When the top of the stack evaluates to 1, the block is executed.
	// Zero jumps to the optional OpcodeElse.
	OpcodeIf Opcode = 0x04
	// OpcodeElse brackets a sequence of instructions enclosed by an OpcodeIf.
	OpcodeElse Opcode = 0x05
	// OpcodeEnd terminates a control instruction OpcodeBlock, OpcodeLoop or OpcodeIf.
	OpcodeEnd Opcode = 0x0b
	// OpcodeBr performs an unconditional branch to the label at the given depth.
	OpcodeBr Opcode = 0x0c
	// OpcodeBrIf performs a conditional branch to the label at the given depth.
	OpcodeBrIf Opcode = 0x0d
	// OpcodeReturn returns from the function.
	OpcodeReturn Opcode = 0x0f
	// OpcodeCall calls the function at the given index.
	OpcodeCall Opcode = 0x10

	OpcodeLocalGet Opcode = 0x20
	OpcodeLocalSet Opcode = 0x21

	OpcodeF64Load  Opcode = 0x2b
	OpcodeF64Store Opcode = 0x39

	OpcodeMemorySize Opcode = 0x3f
	OpcodeMemoryGrow Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Eqz Opcode = 0x45
	OpcodeI32Eq  Opcode = 0x46
	OpcodeI32LeS Opcode = 0x4c
	OpcodeI32GtS Opcode = 0x4a
	OpcodeI32GtU Opcode = 0x4b
	OpcodeI32GeU Opcode = 0x4f

	OpcodeI32Add  Opcode = 0x6a
	OpcodeI32Sub  Opcode = 0x6b
	OpcodeI32Mul  Opcode = 0x6c
	OpcodeI32DivS Opcode = 0x6d
	OpcodeI32RemS Opcode = 0x6f
	OpcodeI32Shl  Opcode = 0x74
	OpcodeI32ShrU Opcode = 0x76

	OpcodeF64Add Opcode = 0xa0
	OpcodeF64Mul Opcode = 0xa2
)

// BlockTypeEmpty is the block type of a block, loop or if that yields nothing.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-blocktype
const BlockTypeEmpty = 0x40

// alignF64 is log2 of the natural alignment of an f64 access.
const alignF64 = 3

// Expr accumulates an instruction sequence. Each method appends one
// instruction and returns the receiver so calls can be chained.
type Expr struct {
	b []byte
}

// Bytes returns the encoded instructions.
func (e *Expr) Bytes() []byte {
	return e.b
}

func (e *Expr) op(o Opcode, immediates ...[]byte) *Expr {
	e.b = append(e.b, o)
	for _, imm := range immediates {
		e.b = append(e.b, imm...)
	}
	return e
}

func (e *Expr) Unreachable() *Expr { return e.op(OpcodeUnreachable) }

// Block opens a block yielding nothing.
func (e *Expr) Block() *Expr { return e.op(OpcodeBlock, []byte{BlockTypeEmpty}) }

// Loop opens a loop yielding nothing.
func (e *Expr) Loop() *Expr { return e.op(OpcodeLoop, []byte{BlockTypeEmpty}) }

// If opens an if yielding nothing.
func (e *Expr) If() *Expr { return e.op(OpcodeIf, []byte{BlockTypeEmpty}) }

// IfResult opens an if whose branches each yield one value of type vt.
func (e *Expr) IfResult(vt api.ValueType) *Expr { return e.op(OpcodeIf, []byte{vt}) }

func (e *Expr) Else() *Expr { return e.op(OpcodeElse) }

func (e *Expr) End() *Expr { return e.op(OpcodeEnd) }

// Br branches to the label depth blocks out.
func (e *Expr) Br(depth uint32) *Expr { return e.op(OpcodeBr, leb128.EncodeUint32(depth)) }

// BrIf pops an i32 and branches to the label depth blocks out when it is non-zero.
func (e *Expr) BrIf(depth uint32) *Expr { return e.op(OpcodeBrIf, leb128.EncodeUint32(depth)) }

func (e *Expr) Return() *Expr { return e.op(OpcodeReturn) }

func (e *Expr) Call(funcIndex uint32) *Expr { return e.op(OpcodeCall, leb128.EncodeUint32(funcIndex)) }

func (e *Expr) LocalGet(index uint32) *Expr { return e.op(OpcodeLocalGet, leb128.EncodeUint32(index)) }

func (e *Expr) LocalSet(index uint32) *Expr { return e.op(OpcodeLocalSet, leb128.EncodeUint32(index)) }

// F64Load loads the f64 at the address on the stack plus offset.
func (e *Expr) F64Load(offset uint32) *Expr {
	return e.op(OpcodeF64Load, leb128.EncodeUint32(alignF64), leb128.EncodeUint32(offset))
}

// F64Store stores an f64 to the address below it on the stack plus offset.
func (e *Expr) F64Store(offset uint32) *Expr {
	return e.op(OpcodeF64Store, leb128.EncodeUint32(alignF64), leb128.EncodeUint32(offset))
}

// MemorySize pushes the current memory size in pages.
func (e *Expr) MemorySize() *Expr { return e.op(OpcodeMemorySize, []byte{0x00}) }

// MemoryGrow pops a page delta and pushes the previous size, or -1 on failure.
func (e *Expr) MemoryGrow() *Expr { return e.op(OpcodeMemoryGrow, []byte{0x00}) }

func (e *Expr) I32Const(v int32) *Expr { return e.op(OpcodeI32Const, leb128.EncodeInt32(v)) }

func (e *Expr) F64Const(v float64) *Expr {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return e.op(OpcodeF64Const, buf[:])
}

func (e *Expr) I32Eqz() *Expr { return e.op(OpcodeI32Eqz) }
func (e *Expr) I32Eq() *Expr  { return e.op(OpcodeI32Eq) }
func (e *Expr) I32LeS() *Expr { return e.op(OpcodeI32LeS) }
func (e *Expr) I32GtS() *Expr { return e.op(OpcodeI32GtS) }
func (e *Expr) I32GtU() *Expr { return e.op(OpcodeI32GtU) }
func (e *Expr) I32GeU() *Expr { return e.op(OpcodeI32GeU) }

func (e *Expr) I32Add() *Expr  { return e.op(OpcodeI32Add) }
func (e *Expr) I32Sub() *Expr  { return e.op(OpcodeI32Sub) }
func (e *Expr) I32Mul() *Expr  { return e.op(OpcodeI32Mul) }
func (e *Expr) I32DivS() *Expr { return e.op(OpcodeI32DivS) }
func (e *Expr) I32RemS() *Expr { return e.op(OpcodeI32RemS) }
func (e *Expr) I32Shl() *Expr  { return e.op(OpcodeI32Shl) }
func (e *Expr) I32ShrU() *Expr { return e.op(OpcodeI32ShrU) }

func (e *Expr) F64Add() *Expr { return e.op(OpcodeF64Add) }
func (e *Expr) F64Mul() *Expr { return e.op(OpcodeF64Mul) }
