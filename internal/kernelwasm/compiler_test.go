package kernelwasm

import "runtime"

// platformCompilerSupported mirrors the platforms where wazero ships its
// optimizing compiler.
func platformCompilerSupported() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		switch runtime.GOOS {
		case "linux", "darwin", "freebsd", "netbsd", "dragonfly", "windows":
			return true
		}
	}
	return false
}
