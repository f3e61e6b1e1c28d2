package hwcodec

import (
	"fmt"
	"sync"
)

// DecoderStats provides decoding metrics.
type DecoderStats struct {
	PacketsDecoded uint64 // Packets submitted to the backend
	FramesDecoded  uint64 // Frames delivered through the callback
	FailedPackets  uint64 // Packets for which the backend reported an error
	LastStatus     int32  // Status of the most recent decode call
}

// Decoder is one live hardware decode session. It exclusively owns its native
// handle and frame buffer; the call table is shared and read-only.
//
// Decoder methods are serialized; the handle is never used concurrently.
type Decoder struct {
	ctx    DecodeContext
	calls  CallTable
	codec  CodecHandle
	frames *FrameBuffer

	stats DecoderStats
	mu    sync.Mutex
}

// NewDecoder creates a session from ctx using the default registry.
func NewDecoder(ctx DecodeContext) (*Decoder, error) {
	return defaultRegistry.NewDecoder(ctx)
}

// NewDecoder creates a session from ctx. It fails with ErrDriverNotAvailable
// when the driver is not registered and with ErrCreateFailed when the native
// backend rejects the context. A rejected context will not succeed on retry.
func (r *Registry) NewDecoder(ctx DecodeContext) (*Decoder, error) {
	calls, ok := r.calls(ctx.Driver)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDriverNotAvailable, ctx.Driver)
	}

	codec := calls.New(ctx.Device, ctx.LUID, ctx.API, ctx.DataFormat, ctx.OutputSharedHandle)
	if codec == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCreateFailed, ctx)
	}
	decoderLog.Debugf("decoder created: %s", ctx)

	return &Decoder{
		ctx:    ctx,
		calls:  calls,
		codec:  codec,
		frames: NewFrameBuffer(4),
	}, nil
}

// Decode feeds one compressed packet and returns the frames it produced, in
// output order. The returned slice is owned by the decoder and is only valid
// until the next Decode or Close.
//
// If the backend reports a failure, Decode returns a *DecodeError together
// with whatever frames were delivered before the failure. The session stays
// usable.
func (d *Decoder) Decode(packet []byte) ([]DecodeFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.codec == 0 {
		return nil, ErrDecoderClosed
	}
	if len(packet) == 0 {
		return nil, ErrEmptyPacket
	}

	d.frames.Reset()
	ret := d.calls.Decode(d.codec, packet, d.frames)

	d.stats.PacketsDecoded++
	d.stats.FramesDecoded += uint64(d.frames.Len())
	d.stats.LastStatus = ret

	if ret != 0 {
		d.stats.FailedPackets++
		decoderLog.Errorf("%s decode failed: %d (%d partial frames)", d.ctx.Driver, ret, d.frames.Len())
		return d.frames.Frames(), &DecodeError{Driver: d.ctx.Driver, Status: ret}
	}

	decoderLog.Tracef("%s decoded %d bytes into %d frames", d.ctx.Driver, len(packet), d.frames.Len())
	return d.frames.Frames(), nil
}

// Context returns the context the session was built from.
func (d *Decoder) Context() DecodeContext {
	return d.ctx
}

// Stats returns decoding statistics.
func (d *Decoder) Stats() DecoderStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close destroys the native handle. It is safe to call more than once and
// after a failed Decode; the handle is destroyed exactly once.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.codec != 0 {
		d.calls.Destroy(d.codec)
		d.codec = 0
		d.frames.Reset()
		decoderLog.Tracef("decoder destroyed: %s", d.ctx)
	}

	return nil
}
