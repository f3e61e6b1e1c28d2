//go:build !((darwin || linux || windows) && (amd64 || arm64))

package hwcodec

import (
	"fmt"
	"runtime"
)

// LoadErrors returns the aggregated errors of drivers whose native library
// could not be loaded. Native drivers are not supported on this platform.
func LoadErrors() error {
	return fmt.Errorf("native drivers not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}
