package wasmkernels

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wasmkernels/wasmkernels/api"
)

// Module is an instantiated kernels guest. It implements Kernels.
//
// Calls are serialized, as a WebAssembly instance runs one call at a time.
// Instantiate more than one Module to run kernels in parallel.
type Module struct {
	mu sync.Mutex

	mod      wazeroapi.Module
	compiled wazero.CompiledModule
	tracer   trace.Tracer
	memory   wazeroapi.Memory

	fibonacci, isPrime, matrixMultiply, releaseBuffer wazeroapi.Function
}

var _ Kernels = (*Module)(nil)

// Name is the instance name, unique within the Runtime.
func (m *Module) Name() string {
	return m.mod.Name()
}

// Fibonacci implements the same method as documented on Kernels.
func (m *Module) Fibonacci(ctx context.Context, n int32) (_ int32, err error) {
	ctx, span := m.tracer.Start(ctx, api.ExportFibonacci, trace.WithAttributes(attribute.Int("kernels.n", int(n))))
	defer func() { endSpan(span, err) }()

	results, err := m.call(ctx, api.ExportFibonacci, m.fibonacci, api.EncodeI32(n))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(results[0]), nil
}

// IsPrime implements the same method as documented on Kernels.
func (m *Module) IsPrime(ctx context.Context, n int32) (_ bool, err error) {
	ctx, span := m.tracer.Start(ctx, api.ExportIsPrime, trace.WithAttributes(attribute.Int("kernels.n", int(n))))
	defer func() { endSpan(span, err) }()

	results, err := m.call(ctx, api.ExportIsPrime, m.isPrime, api.EncodeI32(n))
	if err != nil {
		return false, err
	}
	return api.DecodeBool(results[0]), nil
}

// MatrixMultiply implements the same method as documented on Kernels.
//
// The result is copied out of linear memory, then the guest buffer is
// released. This returns ErrMatrixTooLarge without calling the guest when size
// exceeds api.MaxMatrixSize.
func (m *Module) MatrixMultiply(ctx context.Context, size uint32) (ret []float64, err error) {
	ctx, span := m.tracer.Start(ctx, api.ExportMatrixMultiply, trace.WithAttributes(attribute.Int64("kernels.size", int64(size))))
	defer func() { endSpan(span, err) }()

	if size > api.MaxMatrixSize {
		return nil, fmt.Errorf("%w: size %d exceeds %d", ErrMatrixTooLarge, size, api.MaxMatrixSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	results, err := m.matrixMultiply.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", api.ExportMatrixMultiply, err)
	}
	ptr := api.DecodeU32(results[0])
	defer func() {
		if _, releaseErr := m.releaseBuffer.Call(ctx, api.EncodeU32(ptr)); releaseErr != nil && err == nil {
			ret, err = nil, fmt.Errorf("%s: %w", api.ExportReleaseBuffer, releaseErr)
		}
	}()

	count := size * size
	ret = make([]float64, count)
	if count == 0 {
		return ret, nil
	}

	byteCount := count * api.Float64Size
	buf, ok := m.memory.Read(ptr, byteCount)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes at %d, memory size %d", ErrBufferOutOfRange, byteCount, ptr, m.memory.Size())
	}
	for i := range ret {
		ret[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*api.Float64Size:]))
	}
	return ret, nil
}

// call invokes fn under the lock, prefixing any error with the export name.
func (m *Module) call(ctx context.Context, name string, fn wazeroapi.Function, params ...uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return results, nil
}

// Close implements the same method as documented on Kernels.
func (m *Module) Close(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err = m.mod.Close(ctx)
	if compileErr := m.compiled.Close(ctx); err == nil {
		err = compileErr
	}
	return
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
