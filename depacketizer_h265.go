package hwcodec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/pion/rtp"
)

// RTP payload types from RFC 7798.
const (
	h265AP = 48 // Aggregation packet
	h265FU = 49 // Fragmentation unit
)

// H265Depacketizer reassembles H.265 access units from RTP packets
// (RFC 7798 single NAL unit, AP and FU; DONL is not supported).
type H265Depacketizer struct {
	au          accessUnitBuilder
	fuBuffer    []byte
	fragmenting bool
	mu          sync.Mutex
}

// NewH265Depacketizer creates a new H.265 RTP depacketizer.
func NewH265Depacketizer() *H265Depacketizer {
	return &H265Depacketizer{}
}

func h265NaluType(b byte) byte { return (b >> 1) & 0x3F }

func isH265IRAP(nalu []byte) bool {
	if len(nalu) == 0 {
		return false
	}
	// BLA, IDR, CRA and the reserved IRAP types 22-23
	t := hevc.GetNaluType(nalu[0])
	return t >= 16 && t <= 23
}

// Depacketize processes an RTP packet and returns a complete access unit if available.
func (d *H265Depacketizer) Depacketize(pkt *rtp.Packet) (*AccessUnit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pkt.Payload) < 2 {
		return nil, nil
	}

	if changed, dropped := d.au.begin(pkt.Timestamp); changed {
		if dropped || d.fragmenting {
			ingestLog.Debugf("h265: dropped incomplete access unit before ts %d", pkt.Timestamp)
		}
		d.fuBuffer = d.fuBuffer[:0]
		d.fragmenting = false
	}

	switch t := h265NaluType(pkt.Payload[0]); {
	case t < h265AP:
		d.au.appendNALU(pkt.Payload, isH265IRAP(pkt.Payload))

	case t == h265AP:
		d.depacketizeAP(pkt.Payload)

	case t == h265FU:
		if err := d.depacketizeFU(pkt.Payload); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported H265 NAL type: %d", t)
	}

	if pkt.Marker {
		return d.au.finish(), nil
	}
	return nil, nil
}

func (d *H265Depacketizer) depacketizeAP(payload []byte) {
	// Skip the two-byte payload header
	offset := 2

	for offset+2 <= len(payload) {
		naluSize := int(binary.BigEndian.Uint16(payload[offset:]))
		offset += 2

		if naluSize < 2 || offset+naluSize > len(payload) {
			break
		}
		nalu := payload[offset : offset+naluSize]
		d.au.appendNALU(nalu, isH265IRAP(nalu))
		offset += naluSize
	}
}

func (d *H265Depacketizer) depacketizeFU(payload []byte) error {
	if len(payload) < 3 {
		return fmt.Errorf("FU packet too short")
	}

	fuHeader := payload[2]
	isStart := fuHeader&0x80 != 0
	isEnd := fuHeader&0x40 != 0
	fuType := fuHeader & 0x3F

	if isStart {
		// Original header: payload header with the type field replaced
		d.fuBuffer = append(d.fuBuffer[:0], (payload[0]&0x81)|fuType<<1, payload[1])
		d.fragmenting = true
	}

	if !d.fragmenting {
		return nil
	}

	d.fuBuffer = append(d.fuBuffer, payload[3:]...)

	if isEnd {
		d.au.appendNALU(d.fuBuffer, isH265IRAP(d.fuBuffer))
		d.fuBuffer = d.fuBuffer[:0]
		d.fragmenting = false
	}

	return nil
}

// DepacketizeBytes processes raw RTP packet bytes.
func (d *H265Depacketizer) DepacketizeBytes(data []byte) (*AccessUnit, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return d.Depacketize(&pkt)
}

// Reset clears any buffered partial access unit.
func (d *H265Depacketizer) Reset() {
	d.mu.Lock()
	d.au.reset()
	d.fuBuffer = d.fuBuffer[:0]
	d.fragmenting = false
	d.mu.Unlock()
}

// DataFormat returns DataFormatH265.
func (d *H265Depacketizer) DataFormat() DataFormat {
	return DataFormatH265
}

func init() {
	RegisterDepacketizer(DataFormatH265, func() Depacketizer {
		return NewH265Depacketizer()
	})
}
