package main

import (
	"sync"

	"github.com/thesyncim/hwcodec"
)

var (
	h264Sample = []byte{
		0, 0, 0, 1, 0x67, 0x42, 0xc0, 0x1e, 0xda, 0x02, 0x80, 0xbf, 0xe5, 0x84,
		0, 0, 0, 1, 0x68, 0xce, 0x3c, 0x80,
		0, 0, 0, 1, 0x65, 0x88, 0x84, 0x00, 0x33, 0xff,
	}
	h264P = []byte{0, 0, 0, 1, 0x41, 0x9a, 0x02, 0x03}

	h265Sample = []byte{
		0, 0, 0, 1, 0x40, 0x01, 0x0c, 0x01, 0xff, 0xff,
		0, 0, 0, 1, 0x42, 0x01, 0x01, 0x01, 0x60, 0x90,
		0, 0, 0, 1, 0x44, 0x01, 0xc1, 0x72, 0xb4,
		0, 0, 0, 1, 0x26, 0x01, 0xaf, 0x06, 0xb8, 0x63,
	}
)

// fakeDriver accepts every trial on one adapter and decodes each packet
// into a fixed number of frames.
type fakeDriver struct {
	luid   hwcodec.LUID
	frames int

	mu     sync.Mutex
	next   hwcodec.CodecHandle
	opened []hwcodec.DataFormat
}

func (f *fakeDriver) New(_ hwcodec.Device, _ hwcodec.LUID, _ hwcodec.API, format hwcodec.DataFormat, _ bool) hwcodec.CodecHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.opened = append(f.opened, format)
	return f.next
}

func (f *fakeDriver) Decode(_ hwcodec.CodecHandle, _ []byte, sink hwcodec.FrameSink) int32 {
	for i := 0; i < f.frames; i++ {
		sink.AppendFrame(hwcodec.Texture(i + 1))
	}
	return 0
}

func (f *fakeDriver) Destroy(hwcodec.CodecHandle) {}

func (f *fakeDriver) Test(descs []hwcodec.AdapterDesc, _ hwcodec.API, _ hwcodec.DataFormat, _ bool, _ []byte) (int32, int32) {
	if f.luid == 0 {
		return 0, 0
	}
	descs[0] = hwcodec.AdapterDesc{LUID: f.luid}
	return 1, 0
}
