package hwcodec

import (
	"fmt"
	"strings"
)

// Driver identifies one vendor's hardware decode SDK.
type Driver int32

const (
	DriverNV  Driver = iota // NVIDIA Video Codec SDK
	DriverAMF               // AMD Advanced Media Framework
	DriverVPL               // Intel oneVPL / Media SDK
	driverCount
)

// Drivers lists every supported driver in default preference order.
var Drivers = []Driver{DriverNV, DriverAMF, DriverVPL}

func (d Driver) String() string {
	if d < 0 || d >= driverCount {
		return "unknown"
	}
	return driverInfo[d].Name
}

// Valid reports whether d names a supported driver.
func (d Driver) Valid() bool { return d >= 0 && d < driverCount }

// ParseDriver converts a driver name ("nv", "amf", "vpl") back to a Driver.
func ParseDriver(s string) (Driver, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Drivers {
		if d.String() == s {
			return d, nil
		}
	}
	// Accept the vendor SDK names too.
	switch s {
	case "nvidia", "nvdec", "cuda":
		return DriverNV, nil
	case "amd":
		return DriverAMF, nil
	case "intel", "mfx", "qsv", "onevpl":
		return DriverVPL, nil
	}
	return 0, fmt.Errorf("unknown driver %q", s)
}

// DataFormat identifies the codec bitstream syntax. The numeric values are
// passed unchanged to the native libraries.
type DataFormat int32

const (
	DataFormatH264 DataFormat = iota
	DataFormatH265
	DataFormatVP8
	DataFormatVP9
	DataFormatAV1

	DataFormatUnknown DataFormat = -1
)

func (f DataFormat) String() string {
	switch f {
	case DataFormatH264:
		return "H264"
	case DataFormatH265:
		return "H265"
	case DataFormatVP8:
		return "VP8"
	case DataFormatVP9:
		return "VP9"
	case DataFormatAV1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// ParseDataFormat accepts the String form as well as common aliases
// ("avc", "hevc").
func ParseDataFormat(s string) (DataFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h264", "h.264", "avc":
		return DataFormatH264, nil
	case "h265", "h.265", "hevc":
		return DataFormatH265, nil
	case "vp8":
		return DataFormatVP8, nil
	case "vp9":
		return DataFormatVP9, nil
	case "av1":
		return DataFormatAV1, nil
	}
	return DataFormatUnknown, fmt.Errorf("unknown data format %q", s)
}

// API selects the native acceleration interop layer. It is opaque to this
// package and forwarded to the native calls as-is.
type API int32

const (
	APIDX11 API = 0 // Direct3D 11
)

func (a API) String() string {
	switch a {
	case APIDX11:
		return "DX11"
	default:
		return fmt.Sprintf("API(%d)", int32(a))
	}
}

// LUID is the locally-unique identifier of a GPU adapter.
type LUID int64

// AdapterDesc describes one adapter that accepted a trial decode.
// The layout matches the native AdapterDesc struct (a single int64_t).
type AdapterDesc struct {
	LUID LUID
}

// Device is an external device handle (e.g. an ID3D11Device*). A session
// borrows it and never releases it. Zero means no device; the adapter is
// then selected by LUID.
type Device uintptr

// Texture is a decoded GPU surface. It is not owned by this package.
type Texture uintptr

// CodecHandle is a native decoder instance. Zero is the null handle.
type CodecHandle uintptr

// DecodeContext fully describes one constructible decode session.
// Contexts are plain values and compare equal only when every field matches.
type DecodeContext struct {
	Device             Device
	Driver             Driver
	DataFormat         DataFormat
	API                API
	OutputSharedHandle bool
	LUID               LUID
}

func (c DecodeContext) String() string {
	return fmt.Sprintf("%s/%s/%s luid=%d shared=%t", c.Driver, c.DataFormat, c.API, c.LUID, c.OutputSharedHandle)
}

// Candidate is a (format, API) pair a driver might support. Candidates are
// static; only a trial decode proves support.
type Candidate struct {
	DataFormat DataFormat
	API        API
}
