package hwcodec

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrCreateFailed       = errors.New("native decoder creation failed")
	ErrDriverNotAvailable = errors.New("driver not available")
	ErrDriverNotInstalled = errors.New("vendor runtime not installed")
	ErrDecoderClosed      = errors.New("decoder closed")
	ErrEmptyPacket        = errors.New("empty packet")
	ErrUnknownFormat      = errors.New("unknown data format")
	ErrNoContext          = errors.New("no decode context for format")
)

// DecodeError reports a nonzero status from a native decode call. Frames
// produced before the failure are still returned alongside it.
type DecodeError struct {
	Driver Driver
	Status int32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode failed: status %d", e.Driver, e.Status)
}
