package hwcodec

// MaxAdaptersPerVendor is the capacity of the adapter descriptor buffer
// handed to a trial decode.
const MaxAdaptersPerVendor = 4

// CallTable is the fixed set of native entry points one driver exposes.
// Implementations are stateless with respect to sessions and safe to call
// from multiple goroutines on distinct handles.
type CallTable interface {
	// New creates a decoder bound to an adapter (by device, or by luid when
	// device is zero). It reports failure only by returning a zero handle.
	New(device Device, luid LUID, api API, format DataFormat, outputSharedHandle bool) CodecHandle

	// Decode feeds one compressed packet. For every decoded frame it calls
	// sink.AppendFrame synchronously, before returning. Zero is success.
	Decode(codec CodecHandle, packet []byte, sink FrameSink) int32

	// Destroy releases a handle returned by New. It is called exactly once
	// per handle.
	Destroy(codec CodecHandle)

	// Test runs a trial decode of sample without creating a session. It
	// writes up to len(descs) adapter descriptors and returns the count the
	// backend reported, which callers must clamp to len(descs).
	Test(descs []AdapterDesc, api API, format DataFormat, outputSharedHandle bool, sample []byte) (count int32, status int32)
}
