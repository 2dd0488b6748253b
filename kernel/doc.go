// Package kernel holds the numeric kernels exported by the kernels guest.
//
// Each function is pure and allocates nothing that outlives the call, so they
// are safe for concurrent use. Integer arithmetic is 32-bit and wraps on
// overflow exactly like WebAssembly i32 instructions, which keeps native and
// guest results identical.
//
// The package has no dependencies outside the standard library because it is
// compiled into the guest for GOOS=wasip1 and TinyGo.
package kernel
