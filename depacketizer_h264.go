package hwcodec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/pion/rtp"
)

// RTP payload types from RFC 6184.
const (
	h264STAPA = 24 // Single-time aggregation packet
	h264FUA   = 28 // Fragmentation unit A
)

// H264Depacketizer reassembles H.264 access units from RTP packets
// (RFC 6184 single NAL unit, STAP-A and FU-A).
type H264Depacketizer struct {
	au          accessUnitBuilder
	fuaBuffer   []byte // FU-A fragments of the NAL being assembled
	fragmenting bool
	mu          sync.Mutex
}

// NewH264Depacketizer creates a new H.264 RTP depacketizer.
func NewH264Depacketizer() *H264Depacketizer {
	return &H264Depacketizer{}
}

// Depacketize processes an RTP packet and returns a complete access unit if available.
func (d *H264Depacketizer) Depacketize(pkt *rtp.Packet) (*AccessUnit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pkt.Payload) == 0 {
		return nil, nil
	}

	if changed, dropped := d.au.begin(pkt.Timestamp); changed {
		if dropped || d.fragmenting {
			ingestLog.Debugf("h264: dropped incomplete access unit before ts %d", pkt.Timestamp)
		}
		d.fuaBuffer = d.fuaBuffer[:0]
		d.fragmenting = false
	}

	nalType := pkt.Payload[0] & 0x1F
	switch {
	case nalType >= 1 && nalType <= 23:
		d.au.appendNALU(pkt.Payload, avc.GetNaluType(pkt.Payload[0]) == avc.NALU_IDR)

	case nalType == h264STAPA:
		d.depacketizeSTAPA(pkt.Payload)

	case nalType == h264FUA:
		if err := d.depacketizeFUA(pkt.Payload); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported H264 NAL type: %d", nalType)
	}

	if pkt.Marker {
		return d.au.finish(), nil
	}
	return nil, nil
}

func (d *H264Depacketizer) depacketizeSTAPA(payload []byte) {
	// Skip STAP-A header
	offset := 1

	for offset+2 <= len(payload) {
		naluSize := int(binary.BigEndian.Uint16(payload[offset:]))
		offset += 2

		if naluSize == 0 || offset+naluSize > len(payload) {
			break
		}
		nalu := payload[offset : offset+naluSize]
		d.au.appendNALU(nalu, avc.GetNaluType(nalu[0]) == avc.NALU_IDR)
		offset += naluSize
	}
}

func (d *H264Depacketizer) depacketizeFUA(payload []byte) error {
	if len(payload) < 2 {
		return fmt.Errorf("FU-A packet too short")
	}

	fuIndicator := payload[0]
	fuHeader := payload[1]

	isStart := fuHeader&0x80 != 0
	isEnd := fuHeader&0x40 != 0
	nalType := fuHeader & 0x1F

	if isStart {
		// Reconstruct NAL header from the indicator's F/NRI bits
		d.fuaBuffer = append(d.fuaBuffer[:0], (fuIndicator&0xE0)|nalType)
		d.fragmenting = true
	}

	if !d.fragmenting {
		return nil
	}

	d.fuaBuffer = append(d.fuaBuffer, payload[2:]...)

	if isEnd {
		d.au.appendNALU(d.fuaBuffer, avc.NaluType(nalType) == avc.NALU_IDR)
		d.fuaBuffer = d.fuaBuffer[:0]
		d.fragmenting = false
	}

	return nil
}

// DepacketizeBytes processes raw RTP packet bytes.
func (d *H264Depacketizer) DepacketizeBytes(data []byte) (*AccessUnit, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return d.Depacketize(&pkt)
}

// Reset clears any buffered partial access unit.
func (d *H264Depacketizer) Reset() {
	d.mu.Lock()
	d.au.reset()
	d.fuaBuffer = d.fuaBuffer[:0]
	d.fragmenting = false
	d.mu.Unlock()
}

// DataFormat returns DataFormatH264.
func (d *H264Depacketizer) DataFormat() DataFormat {
	return DataFormatH264
}

func init() {
	RegisterDepacketizer(DataFormatH264, func() Depacketizer {
		return NewH264Depacketizer()
	})
}
