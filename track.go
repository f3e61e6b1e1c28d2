package hwcodec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RTPReader is a source of RTP packets. *webrtc.TrackRemote implements it.
type RTPReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// deadlineReader is implemented by sources whose reads can be interrupted.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// FrameHandler receives the frames decoded from one access unit. The slice
// is only valid during the call. Returning an error stops DecodeTrack.
type FrameHandler func(frames []DecodeFrame, timestamp uint32) error

// DataFormatFromMimeType maps a WebRTC codec MIME type to a DataFormat.
func DataFormatFromMimeType(mimeType string) DataFormat {
	switch {
	case strings.EqualFold(mimeType, webrtc.MimeTypeH264):
		return DataFormatH264
	case strings.EqualFold(mimeType, webrtc.MimeTypeH265):
		return DataFormatH265
	case strings.EqualFold(mimeType, webrtc.MimeTypeVP8):
		return DataFormatVP8
	case strings.EqualFold(mimeType, webrtc.MimeTypeVP9):
		return DataFormatVP9
	case strings.EqualFold(mimeType, webrtc.MimeTypeAV1):
		return DataFormatAV1
	default:
		return DataFormatUnknown
	}
}

// DecodeTrack reads RTP from src and decodes every completed access unit
// with dec until src reports io.EOF, ctx ends, or fn returns an error.
// Native decode failures are logged and skipped; the session stays usable.
// If src supports read deadlines, cancelling ctx interrupts a blocked read.
func DecodeTrack(ctx context.Context, src RTPReader, dec *Decoder, fn FrameHandler) error {
	rd, err := NewRTPDecoder(dec)
	if err != nil {
		return err
	}

	if dl, ok := src.(deadlineReader); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = dl.SetReadDeadline(time.Now())
		})
		defer stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt, _, err := src.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read rtp: %w", err)
		}

		frames, err := rd.WriteRTP(pkt)
		if err != nil {
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				ingestLog.Warnf("track: %v", err)
				continue
			}
			ingestLog.Debugf("track: %v", err)
		}
		if len(frames) == 0 || fn == nil {
			continue
		}
		if err := fn(frames, pkt.Timestamp); err != nil {
			return err
		}
	}
}

// DecodeRemoteTrack opens a decoder for track's codec from contexts, using
// SelectContext with luid and prefer, and runs DecodeTrack until the track
// ends. The decoder is closed on return.
func DecodeRemoteTrack(ctx context.Context, track *webrtc.TrackRemote, contexts []DecodeContext, luid LUID, prefer []Driver, fn FrameHandler) error {
	mimeType := track.Codec().MimeType
	format := DataFormatFromMimeType(mimeType)
	if format == DataFormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, mimeType)
	}

	dc, ok := SelectContext(contexts, format, luid, prefer)
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoContext, format)
	}

	dec, err := NewDecoder(dc)
	if err != nil {
		return err
	}
	defer dec.Close()

	ingestLog.Infof("decoding track %s (%s) with %s", track.ID(), mimeType, dc)
	return DecodeTrack(ctx, track, dec, fn)
}
