// Package kernelwasm assembles the reference kernels guest: a WebAssembly 1.0
// binary with no imports that implements the api ABI.
//
// The functions mirror package kernel instruction for instruction, so the
// reference guest is bit-identical to the native kernels and can be run on any
// engine without a wasm toolchain.
package kernelwasm

import (
	"sync"

	"github.com/wasmkernels/wasmkernels/api"
	"github.com/wasmkernels/wasmkernels/internal/wasmbin"
	"github.com/wasmkernels/wasmkernels/kernel"
)

// ModuleName is recorded in the name section.
const ModuleName = "kernels"

// HeapBase is the offset of the first matrix_multiply buffer. Memory below it
// is unused.
const HeapBase = 1024

const pageSize = 65536

// Function indices, in the order they are defined.
const (
	funcFibonacci uint32 = iota
	funcIsPrime
	funcMatrixMultiply
	funcReleaseBuffer
)

const (
	typeI32ToI32 uint32 = iota
	typeI32ToVoid
)

var (
	once    sync.Once
	encoded []byte
)

// Module returns the encoded reference guest. Callers must not modify it.
func Module() []byte {
	once.Do(func() {
		encoded = wasmbin.EncodeModule(module())
	})
	return encoded
}

func module() *wasmbin.Module {
	return &wasmbin.Module{
		Types: []api.Signature{
			typeI32ToI32:  api.Signatures[api.ExportFibonacci],
			typeI32ToVoid: api.Signatures[api.ExportReleaseBuffer],
		},
		Functions: []uint32{
			funcFibonacci:      typeI32ToI32,
			funcIsPrime:        typeI32ToI32,
			funcMatrixMultiply: typeI32ToI32,
			funcReleaseBuffer:  typeI32ToVoid,
		},
		Memory: &wasmbin.Memory{Min: 1},
		Exports: []wasmbin.Export{
			{Name: api.ExportMemory, Type: wasmbin.ExternTypeMemory, Index: 0},
			{Name: api.ExportFibonacci, Type: wasmbin.ExternTypeFunc, Index: funcFibonacci},
			{Name: api.ExportIsPrime, Type: wasmbin.ExternTypeFunc, Index: funcIsPrime},
			{Name: api.ExportMatrixMultiply, Type: wasmbin.ExternTypeFunc, Index: funcMatrixMultiply},
			{Name: api.ExportReleaseBuffer, Type: wasmbin.ExternTypeFunc, Index: funcReleaseBuffer},
		},
		Codes: []wasmbin.Code{
			funcFibonacci:      fibonacci(),
			funcIsPrime:        isPrime(),
			funcMatrixMultiply: matrixMultiply(),
			funcReleaseBuffer:  releaseBuffer(),
		},
		Names: &wasmbin.NameSection{
			ModuleName: ModuleName,
			FunctionNames: []string{
				funcFibonacci:      api.ExportFibonacci,
				funcIsPrime:        api.ExportIsPrime,
				funcMatrixMultiply: api.ExportMatrixMultiply,
				funcReleaseBuffer:  api.ExportReleaseBuffer,
			},
		},
	}
}

// fibonacci is kernel.Fibonacci:
//
//	(if (result i32) (i32.le_s (local.get $n) (i32.const 1))
//	  (then (local.get $n))
//	  (else (i32.add (call $fib (i32.sub (local.get $n) (i32.const 1)))
//	                 (call $fib (i32.sub (local.get $n) (i32.const 2))))))
func fibonacci() wasmbin.Code {
	const n = 0
	e := new(wasmbin.Expr).
		LocalGet(n).I32Const(1).I32LeS().
		IfResult(api.ValueTypeI32).
		LocalGet(n).
		Else().
		LocalGet(n).I32Const(1).I32Sub().Call(funcFibonacci).
		LocalGet(n).I32Const(2).I32Sub().Call(funcFibonacci).
		I32Add().
		End().
		End()
	return wasmbin.Code{Body: e.Bytes()}
}

// isPrime is kernel.IsPrime. The loop exits once i > n/i.
func isPrime() wasmbin.Code {
	const (
		n = iota
		i
	)
	e := new(wasmbin.Expr).
		LocalGet(n).I32Const(1).I32LeS().
		If().I32Const(0).Return().End().
		I32Const(2).LocalSet(i).
		Block().
		Loop().
		// break when i > n/i
		LocalGet(i).LocalGet(n).LocalGet(i).I32DivS().I32GtS().BrIf(1).
		// return 0 when n%i == 0
		LocalGet(n).LocalGet(i).I32RemS().I32Eqz().
		If().I32Const(0).Return().End().
		LocalGet(i).I32Const(1).I32Add().LocalSet(i).
		Br(0).
		End().
		End().
		I32Const(1).
		End()
	return wasmbin.Code{LocalTypes: []api.ValueType{api.ValueTypeI32}, Body: e.Bytes()}
}

// matrixMultiply is kernel.MatrixMultiply. Memory is laid out as
// [result | a | b] from HeapBase, each size*size f64s, and grown on demand.
// Each result entry is accumulated from 0.0 in k order, like the native loop.
func matrixMultiply() wasmbin.Code {
	const (
		size = iota // param
		count
		bytes
		a
		b
		out
		i
		j
		k
		acc
		p
	)
	locals := []api.ValueType{
		api.ValueTypeI32, // count
		api.ValueTypeI32, // bytes
		api.ValueTypeI32, // a
		api.ValueTypeI32, // b
		api.ValueTypeI32, // out
		api.ValueTypeI32, // i
		api.ValueTypeI32, // j
		api.ValueTypeI32, // k
		api.ValueTypeF64, // acc
		api.ValueTypeI32, // p
	}

	e := new(wasmbin.Expr)

	// count = size*size; bytes = count*8
	e.LocalGet(size).LocalGet(size).I32Mul().LocalSet(count)
	e.LocalGet(count).I32Const(3).I32Shl().LocalSet(bytes)

	// out = HeapBase; a = out+bytes; b = a+bytes
	e.I32Const(HeapBase).LocalSet(out)
	e.LocalGet(out).LocalGet(bytes).I32Add().LocalSet(a)
	e.LocalGet(a).LocalGet(bytes).I32Add().LocalSet(b)

	// p = pages needed to hold b+bytes
	e.LocalGet(b).LocalGet(bytes).I32Add().I32Const(pageSize - 1).I32Add().I32Const(16).I32ShrU().LocalSet(p)
	e.LocalGet(p).MemorySize().I32GtU().
		If().
		LocalGet(p).MemorySize().I32Sub().MemoryGrow().I32Const(-1).I32Eq().
		If().Unreachable().End().
		End()

	// fill a and b, one f64 per 8 bytes
	e.I32Const(0).LocalSet(p)
	e.Block().Loop().
		LocalGet(p).LocalGet(bytes).I32GeU().BrIf(1).
		LocalGet(a).LocalGet(p).I32Add().F64Const(kernel.MatrixA).F64Store(0).
		LocalGet(b).LocalGet(p).I32Add().F64Const(kernel.MatrixB).F64Store(0).
		LocalGet(p).I32Const(api.Float64Size).I32Add().LocalSet(p).
		Br(0).
		End().End()

	// for i
	e.I32Const(0).LocalSet(i)
	e.Block().Loop().
		LocalGet(i).LocalGet(size).I32GeU().BrIf(1)

	// for j
	e.I32Const(0).LocalSet(j)
	e.Block().Loop().
		LocalGet(j).LocalGet(size).I32GeU().BrIf(1)

	e.F64Const(0).LocalSet(acc)

	// for k: acc += a[i*size+k] * b[k*size+j]
	e.I32Const(0).LocalSet(k)
	e.Block().Loop().
		LocalGet(k).LocalGet(size).I32GeU().BrIf(1).
		LocalGet(acc)
	elementAddr(e, a, i, size, k)
	e.F64Load(0)
	elementAddr(e, b, k, size, j)
	e.F64Load(0).
		F64Mul().F64Add().LocalSet(acc).
		LocalGet(k).I32Const(1).I32Add().LocalSet(k).
		Br(0).
		End().End()

	// out[i*size+j] = acc
	elementAddr(e, out, i, size, j)
	e.LocalGet(acc).F64Store(0)

	e.LocalGet(j).I32Const(1).I32Add().LocalSet(j).
		Br(0).
		End().End()

	e.LocalGet(i).I32Const(1).I32Add().LocalSet(i).
		Br(0).
		End().End()

	e.LocalGet(out).End()
	return wasmbin.Code{LocalTypes: locals, Body: e.Bytes()}
}

// elementAddr pushes base + (row*stride + col) * 8.
func elementAddr(e *wasmbin.Expr, base, row, stride, col uint32) {
	e.LocalGet(base).
		LocalGet(row).LocalGet(stride).I32Mul().LocalGet(col).I32Add().
		I32Const(3).I32Shl().
		I32Add()
}

// releaseBuffer does nothing: buffers are reused by the next matrix_multiply.
func releaseBuffer() wasmbin.Code {
	return wasmbin.Code{Body: new(wasmbin.Expr).End().Bytes()}
}
