package hwcodec

// DecodeFrame is one decoded surface. Texture is a reference into GPU memory
// owned by the native backend; it is valid until the next Decode or Close on
// the session that produced it.
type DecodeFrame struct {
	Texture Texture
}

// FrameSink receives frames from a native decode call. AppendFrame may be
// invoked zero or more times, synchronously, before the call returns, and
// never concurrently with itself for one call. Implementations must not be
// retained by the backend past the call.
type FrameSink interface {
	AppendFrame(texture Texture)
}

// FrameBuffer is the reusable frame list owned by a Decoder.
// Reset invalidates every slice previously returned by Frames.
type FrameBuffer struct {
	frames []DecodeFrame
}

// NewFrameBuffer returns a buffer with room for capacity frames.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &FrameBuffer{frames: make([]DecodeFrame, 0, capacity)}
}

// AppendFrame implements FrameSink.
func (b *FrameBuffer) AppendFrame(texture Texture) {
	b.frames = append(b.frames, DecodeFrame{Texture: texture})
}

// Reset clears the buffer, keeping its storage.
func (b *FrameBuffer) Reset() {
	clear(b.frames)
	b.frames = b.frames[:0]
}

// Frames returns the buffered frames in append order. The slice aliases the
// buffer and is only valid until the next Reset.
func (b *FrameBuffer) Frames() []DecodeFrame {
	return b.frames
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	return len(b.frames)
}
