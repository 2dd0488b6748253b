// Command kernels is the Go guest of the kernels ABI in package api.
//
// Build it as a WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o kernels.wasm ./cmd/kernels
//
// The host calls "_initialize" once, then the exports in any order. Natively,
// this builds to a program that does nothing.
package main

func main() {}
