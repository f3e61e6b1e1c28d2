package hwcodec

import (
	"sync"
)

// fakeCalls is a scriptable CallTable. Unset hooks succeed: New hands out
// sequential handles, Decode produces no frames and Test finds no adapter.
type fakeCalls struct {
	mu        sync.Mutex
	next      CodecHandle
	live      map[CodecHandle]bool
	destroyed map[CodecHandle]int
	packets   [][]byte

	newFn    func(device Device, luid LUID, api API, format DataFormat, shared bool) CodecHandle
	decodeFn func(codec CodecHandle, packet []byte, sink FrameSink) int32
	testFn   func(descs []AdapterDesc, api API, format DataFormat, shared bool, sample []byte) (int32, int32)
}

func newFakeCalls() *fakeCalls {
	return &fakeCalls{
		live:      make(map[CodecHandle]bool),
		destroyed: make(map[CodecHandle]int),
	}
}

func (f *fakeCalls) New(device Device, luid LUID, api API, format DataFormat, shared bool) CodecHandle {
	if f.newFn != nil {
		if h := f.newFn(device, luid, api, format, shared); h == 0 {
			return 0
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.live[f.next] = true
	return f.next
}

func (f *fakeCalls) Decode(codec CodecHandle, packet []byte, sink FrameSink) int32 {
	f.mu.Lock()
	f.packets = append(f.packets, append([]byte(nil), packet...))
	f.mu.Unlock()
	if f.decodeFn != nil {
		return f.decodeFn(codec, packet, sink)
	}
	return 0
}

func (f *fakeCalls) Destroy(codec CodecHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, codec)
	f.destroyed[codec]++
}

func (f *fakeCalls) Test(descs []AdapterDesc, api API, format DataFormat, shared bool, sample []byte) (int32, int32) {
	if f.testFn != nil {
		return f.testFn(descs, api, format, shared, sample)
	}
	return 0, 0
}

func (f *fakeCalls) destroyCount(codec CodecHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed[codec]
}

func (f *fakeCalls) decodedPackets() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.packets...)
}

// emitFrames returns a decode hook that delivers textures in order and then
// returns status.
func emitFrames(status int32, textures ...Texture) func(CodecHandle, []byte, FrameSink) int32 {
	return func(_ CodecHandle, _ []byte, sink FrameSink) int32 {
		for _, t := range textures {
			sink.AppendFrame(t)
		}
		return status
	}
}

// acceptLUIDs returns a test hook that reports the given adapters.
func acceptLUIDs(luids ...LUID) func([]AdapterDesc, API, DataFormat, bool, []byte) (int32, int32) {
	return func(descs []AdapterDesc, _ API, _ DataFormat, _ bool, _ []byte) (int32, int32) {
		n := 0
		for _, l := range luids {
			if n < len(descs) {
				descs[n] = AdapterDesc{LUID: l}
			}
			n++
		}
		return int32(n), 0
	}
}

// testRegistry registers calls for each driver in a fresh registry.
func testRegistry(calls map[Driver]CallTable) *Registry {
	r := NewRegistry()
	for d, c := range calls {
		r.Register(d, c)
	}
	return r
}

// testSamples returns a sample set with small H.264 and H.265 streams.
func testSamples() *SampleSet {
	s := NewSampleSet()
	s.Set(DataFormatH264, h264Sample)
	s.Set(DataFormatH265, h265Sample)
	return s
}

var (
	h264SPS = []byte{0x67, 0x42, 0xc0, 0x1e, 0xda, 0x02, 0x80, 0xbf, 0xe5, 0x84}
	h264PPS = []byte{0x68, 0xce, 0x3c, 0x80}
	h264IDR = []byte{0x65, 0x88, 0x84, 0x00, 0x33, 0xff}
	h264P   = []byte{0x41, 0x9a, 0x02, 0x03}

	h265VPS = []byte{0x40, 0x01, 0x0c, 0x01, 0xff, 0xff}
	h265SPS = []byte{0x42, 0x01, 0x01, 0x01, 0x60, 0x90}
	h265PPS = []byte{0x44, 0x01, 0xc1, 0x72, 0xb4}
	h265IDR = []byte{0x26, 0x01, 0xaf, 0x06, 0xb8, 0x63}
	h265TRL = []byte{0x02, 0x01, 0xd0, 0x09, 0x7e}

	h264Sample = appendAnnexB(nil, h264SPS, h264PPS, h264IDR)
	h265Sample = appendAnnexB(nil, h265VPS, h265SPS, h265PPS, h265IDR)
)
