// Package version reports the version of this module and of wazero from the
// build info of the running binary.
package version

import "runtime/debug"

// Default is the default version value used when none was found.
const Default = "dev"

const (
	modulePath = "github.com/wasmkernels/wasmkernels"
	wazeroPath = "github.com/tetratelabs/wazero"
)

// version can be set by ldflag, for example:
//
//	go build -ldflags "-X github.com/wasmkernels/wasmkernels/internal/version.version=v1.0.0" ./cmd/wasmkernels
var version string

// GetVersion returns the version set by ldflag, or else the version of this
// module in the build info. When this module is a dependency, that is the
// version in the require statement of the main module.
func GetVersion() string {
	if len(version) != 0 {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return find(info, modulePath)
}

// GetWazeroVersion returns the version of wazero linked into the binary.
func GetWazeroVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return find(info, wazeroPath)
}

// find returns the version of the module at path, whether it is the main
// module or a dependency.
func find(info *debug.BuildInfo, path string) (ret string) {
	if info.Main.Path == path {
		ret = info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		ret = dep.Version
		if dep.Replace != nil && !versionMissing(dep.Replace.Version) {
			ret = dep.Replace.Version
		}
	}
	if versionMissing(ret) {
		return Default // don't return parens
	}
	return ret
}

func versionMissing(ret string) bool {
	return ret == "" || ret == "(devel)"
}
