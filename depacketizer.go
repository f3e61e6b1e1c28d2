package hwcodec

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
)

// AccessUnit is one reassembled Annex-B access unit, ready for Decoder.Decode.
type AccessUnit struct {
	Data      []byte // Annex-B NAL units with 4-byte start codes
	Timestamp uint32 // RTP timestamp
	Keyframe  bool   // Contains a random access point
}

// Depacketizer reassembles RTP packets into access units.
type Depacketizer interface {
	// Depacketize processes an RTP packet and returns a complete access unit
	// when the packet carries the marker bit. Returns nil while incomplete.
	Depacketize(pkt *rtp.Packet) (*AccessUnit, error)

	// DepacketizeBytes processes raw RTP packet bytes.
	DepacketizeBytes(data []byte) (*AccessUnit, error)

	// Reset clears any buffered partial access unit.
	Reset()

	// DataFormat returns the bitstream format produced.
	DataFormat() DataFormat
}

// DepacketizerFactory creates a Depacketizer.
type DepacketizerFactory func() Depacketizer

var depacketizers = struct {
	mu        sync.RWMutex
	factories map[DataFormat]DepacketizerFactory
}{factories: make(map[DataFormat]DepacketizerFactory)}

// RegisterDepacketizer registers a depacketizer factory for format.
func RegisterDepacketizer(format DataFormat, factory DepacketizerFactory) {
	depacketizers.mu.Lock()
	defer depacketizers.mu.Unlock()
	depacketizers.factories[format] = factory
}

// NewDepacketizer creates a depacketizer for format.
func NewDepacketizer(format DataFormat) (Depacketizer, error) {
	depacketizers.mu.RLock()
	factory, ok := depacketizers.factories[format]
	depacketizers.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("depacketizer not available: %v", format)
	}
	return factory(), nil
}

// accessUnitBuilder accumulates Annex-B NAL units for one RTP timestamp.
type accessUnitBuilder struct {
	data      []byte
	timestamp uint32
	started   bool
	keyframe  bool
}

// begin starts a new access unit when the timestamp changes, discarding any
// unterminated one. It reports whether the timestamp changed and whether
// buffered NAL units were discarded.
func (b *accessUnitBuilder) begin(ts uint32) (changed, dropped bool) {
	if b.started && b.timestamp != ts {
		changed = true
		dropped = len(b.data) > 0
		b.clear()
	}
	b.timestamp = ts
	b.started = true
	return changed, dropped
}

func (b *accessUnitBuilder) appendNALU(nalu []byte, keyframe bool) {
	b.data = appendAnnexB(b.data, nalu)
	b.keyframe = b.keyframe || keyframe
}

// finish returns the buffered access unit and clears the builder.
func (b *accessUnitBuilder) finish() *AccessUnit {
	if len(b.data) == 0 {
		return nil
	}
	au := &AccessUnit{
		Data:      make([]byte, len(b.data)),
		Timestamp: b.timestamp,
		Keyframe:  b.keyframe,
	}
	copy(au.Data, b.data)
	b.clear()
	return au
}

func (b *accessUnitBuilder) clear() {
	b.data = b.data[:0]
	b.keyframe = false
}

func (b *accessUnitBuilder) reset() {
	b.clear()
	b.timestamp = 0
	b.started = false
}
