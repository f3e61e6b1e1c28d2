//go:build (darwin || linux || windows) && (amd64 || arm64)

// Native driver call tables loaded at runtime with purego.

package hwcodec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/hashicorp/go-multierror"
)

var (
	nativeOnce    sync.Once
	nativeLoadErr error

	frameCallbackOnce sync.Once
	frameCallback     uintptr
)

// nativeCalls is the purego binding of one driver library.
type nativeCalls struct {
	driver Driver
	handle uintptr

	newDecoder     func(device uintptr, luid int64, api int32, dataFormat int32, outputSharedHandle bool) uintptr
	decode         func(decoder uintptr, data *byte, length int32, callback uintptr, obj uintptr) int32
	destroyDecoder func(decoder uintptr) int32
	testDecode     func(outDescs *AdapterDesc, maxDescNum int32, outDescNum *int32, api int32, dataFormat int32, outputSharedHandle bool, data *byte, length int32) int32
	driverSupport  func() int32
}

// initFrameCallback creates the process-wide decode callback once.
// purego callbacks are a finite resource and are never freed.
func initFrameCallback() {
	frameCallbackOnce.Do(func() {
		frameCallback = purego.NewCallback(frameCallbackHandler)
	})
}

// frameCallbackHandler is called by native code for every decoded frame.
// The result is ignored by the native side; Windows callbacks must return
// a uintptr-sized value.
func frameCallbackHandler(texture uintptr, obj uintptr) uintptr {
	if !frameSinks.dispatch(obj, Texture(texture)) {
		nativeLog.Debugf("dropped frame callback for stale key %d", obj)
	}
	return 0
}

func loadNativeDrivers() error {
	nativeOnce.Do(func() {
		var result *multierror.Error
		for _, d := range Drivers {
			calls, err := loadNativeDriver(d)
			if err != nil {
				nativeLog.Debugf("%s driver not loaded: %v", d, err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", d, err))
				continue
			}
			defaultRegistry.Register(d, calls)
			nativeLog.Infof("%s driver loaded", d)
		}
		nativeLoadErr = result.ErrorOrNil()
	})
	return nativeLoadErr
}

func loadNativeDriver(d Driver) (*nativeCalls, error) {
	var lastErr, bindErr error
	for _, path := range nativeLibPaths(d) {
		handle, err := openLibrary(path)
		if err != nil {
			lastErr = err
			continue
		}
		calls, err := bindNativeSymbols(d, handle)
		if err != nil {
			closeLibrary(handle)
			// The first incomplete library wins over later missing paths.
			if bindErr == nil {
				bindErr = fmt.Errorf("%s: %w", path, err)
			}
			continue
		}
		if calls.driverSupport != nil {
			if ret := calls.driverSupport(); ret != 0 {
				closeLibrary(handle)
				return nil, fmt.Errorf("%s support check returned %d: %w", driverInfo[d].Vendor, ret, ErrDriverNotInstalled)
			}
		}
		nativeLog.Debugf("%s driver library %s", d, path)
		return calls, nil
	}

	if bindErr != nil {
		lastErr = bindErr
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to load %s: %w", nativeLibName(driverInfo[d].Library), lastErr)
	}
	return nil, errors.New("library not found in any standard location")
}

func bindNativeSymbols(d Driver, handle uintptr) (*nativeCalls, error) {
	prefix := driverInfo[d].Prefix
	calls := &nativeCalls{driver: d, handle: handle}

	// RegisterLibFunc panics on a missing symbol; resolve first so a partial
	// library is reported as a load error.
	bind := func(fptr any, name string) error {
		sym, err := lookupSymbol(handle, name)
		if err != nil {
			return fmt.Errorf("symbol %s: %w", name, err)
		}
		purego.RegisterFunc(fptr, sym)
		return nil
	}

	required := []struct {
		fptr any
		name string
	}{
		{&calls.newDecoder, prefix + "_new_decoder"},
		{&calls.decode, prefix + "_decode"},
		{&calls.destroyDecoder, prefix + "_destroy_decoder"},
		{&calls.testDecode, prefix + "_test_decode"},
	}
	for _, sym := range required {
		if err := bind(sym.fptr, sym.name); err != nil {
			return nil, err
		}
	}

	// Only some drivers export a support check, and it is optional even there.
	if name := driverInfo[d].SupportSymbol; name != "" {
		if err := bind(&calls.driverSupport, name); err != nil {
			nativeLog.Debugf("%s has no %s: %v", d, name, err)
			calls.driverSupport = nil
		}
	}

	return calls, nil
}

// New implements CallTable.
func (c *nativeCalls) New(device Device, luid LUID, api API, format DataFormat, outputSharedHandle bool) CodecHandle {
	return CodecHandle(c.newDecoder(uintptr(device), int64(luid), int32(api), int32(format), outputSharedHandle))
}

// Decode implements CallTable.
func (c *nativeCalls) Decode(codec CodecHandle, packet []byte, sink FrameSink) int32 {
	if len(packet) == 0 {
		return -1
	}
	initFrameCallback()

	key := frameSinks.register(sink)
	defer frameSinks.unregister(key)

	// Typed pointers, not uintptr: purego keeps them valid for the call.
	return c.decode(uintptr(codec), &packet[0], int32(len(packet)), frameCallback, key)
}

// Destroy implements CallTable.
func (c *nativeCalls) Destroy(codec CodecHandle) {
	if ret := c.destroyDecoder(uintptr(codec)); ret != 0 {
		nativeLog.Warnf("%s destroy returned %d", c.driver, ret)
	}
}

// Test implements CallTable.
func (c *nativeCalls) Test(descs []AdapterDesc, api API, format DataFormat, outputSharedHandle bool, sample []byte) (int32, int32) {
	if len(descs) == 0 || len(sample) == 0 {
		return 0, -1
	}
	var count int32
	status := c.testDecode(
		&descs[0],
		int32(len(descs)),
		&count,
		int32(api),
		int32(format),
		outputSharedHandle,
		&sample[0],
		int32(len(sample)),
	)
	return count, status
}

// LoadErrors returns the aggregated errors of drivers whose native library
// could not be loaded. Drivers that loaded are registered in DefaultRegistry.
func LoadErrors() error {
	return loadNativeDrivers()
}

func init() {
	_ = loadNativeDrivers()
}
