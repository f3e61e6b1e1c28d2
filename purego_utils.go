// Shared helpers for locating the native driver libraries.

package hwcodec

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// nativeLibName returns the platform file name for a library base name.
func nativeLibName(base string) string {
	switch runtime.GOOS {
	case "darwin":
		return "lib" + base + ".dylib"
	case "windows":
		return base + ".dll"
	default:
		return "lib" + base + ".so"
	}
}

// nativeLibPaths returns the candidate paths for a driver library, highest
// priority first.
func nativeLibPaths(d Driver) []string {
	var paths []string

	libName := nativeLibName(driverInfo[d].Library)

	// Environment variable overrides (highest priority)
	envName := "HWCODEC_" + strings.ToUpper(d.String()) + "_LIB_PATH"
	if envPath := os.Getenv(envName); envPath != "" {
		paths = append(paths, envPath)
	}
	if envPath := os.Getenv("HWCODEC_SDK_LIB_PATH"); envPath != "" {
		paths = append(paths, filepath.Join(envPath, libName))
	}

	// Search relative to executable location
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	// Search relative to working directory
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, "build", libName),
			filepath.Join(wd, "..", "build", libName),
			filepath.Join(wd, "..", "..", "build", libName),
		)
	}

	if moduleRoot := findModuleRoot(); moduleRoot != "" {
		paths = append(paths, filepath.Join(moduleRoot, "build", libName))
	}

	// System paths (lowest priority). The bare name lets the dynamic loader
	// apply its own search order.
	paths = append(paths, libName)
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			filepath.Join("/usr/local/lib", libName),
			filepath.Join("/opt/homebrew/lib", libName),
		)
	case "linux":
		paths = append(paths,
			filepath.Join("/usr/local/lib", libName),
			filepath.Join("/usr/lib", libName),
		)
	}

	return paths
}

// findModuleRoot walks up the directory tree from the current working directory
// to find the module root (directory containing go.mod).
func findModuleRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
