package hwcodec

import (
	"sync"

	"github.com/pion/rtp"
)

// RTPDecoderStats counts what an RTPDecoder did with its input.
type RTPDecoderStats struct {
	Packets         uint64 // RTP packets written
	AccessUnits     uint64 // Access units reassembled
	DroppedUntilKey uint64 // Access units dropped while waiting for a keyframe
	DecodeErrors    uint64 // Access units the decoder rejected
}

// RTPDecoder feeds RTP packets through a depacketizer into a Decoder.
// Access units before the first keyframe are dropped.
type RTPDecoder struct {
	dec    *Decoder
	depack Depacketizer
	synced bool
	stats  RTPDecoderStats
	mu     sync.Mutex
}

// NewRTPDecoder wraps dec with a depacketizer for the decoder's format.
// The RTPDecoder does not own dec; the caller still closes it.
func NewRTPDecoder(dec *Decoder) (*RTPDecoder, error) {
	depack, err := NewDepacketizer(dec.Context().DataFormat)
	if err != nil {
		return nil, err
	}
	return &RTPDecoder{dec: dec, depack: depack}, nil
}

// WriteRTP processes one packet. When the packet completes an access unit,
// it is decoded and the resulting frames are returned with the decoder's
// error, if any. The frames are valid until the next WriteRTP.
func (r *RTPDecoder) WriteRTP(pkt *rtp.Packet) ([]DecodeFrame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Packets++
	au, err := r.depack.Depacketize(pkt)
	if err != nil {
		return nil, err
	}
	if au == nil {
		return nil, nil
	}
	r.stats.AccessUnits++

	if !r.synced {
		if !au.Keyframe {
			r.stats.DroppedUntilKey++
			return nil, nil
		}
		r.synced = true
		ingestLog.Debugf("rtp: first keyframe at ts %d", au.Timestamp)
	}

	frames, err := r.dec.Decode(au.Data)
	if err != nil {
		r.stats.DecodeErrors++
	}
	return frames, err
}

// WriteRTPBytes processes raw RTP packet bytes.
func (r *RTPDecoder) WriteRTPBytes(data []byte) ([]DecodeFrame, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return r.WriteRTP(&pkt)
}

// Resync drops buffered data and waits for the next keyframe, e.g. after
// packet loss.
func (r *RTPDecoder) Resync() {
	r.mu.Lock()
	r.depack.Reset()
	r.synced = false
	r.mu.Unlock()
}

// Stats returns ingest statistics.
func (r *RTPDecoder) Stats() RTPDecoderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
