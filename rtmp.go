package hwcodec

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/yutopp/go-rtmp"
	rtmpmsg "github.com/yutopp/go-rtmp/message"
)

// FLV video codec IDs. 12 is the widely deployed HEVC extension.
const (
	flvCodecAVC  = 7
	flvCodecHEVC = 12
)

// FLV AVC packet types.
const (
	flvSequenceHeader = 0
	flvNALU           = 1
)

// RTMPHandlerConfig configures an RTMPHandler.
type RTMPHandlerConfig struct {
	Registry *Registry       // Registry to open decoders from (nil = DefaultRegistry)
	Contexts []DecodeContext // Probed contexts to choose from
	LUID     LUID            // Adapter to decode on (0 = any)
	Prefer   []Driver        // Driver preference (nil = default order)
	OnFrames FrameHandler    // Called with each decoded access unit's frames
}

// RTMPHandler decodes the video of one published RTMP stream. The decoder
// is opened when the first sequence header arrives and closed with the
// connection.
type RTMPHandler struct {
	rtmp.DefaultHandler

	config    RTMPHandlerConfig
	dec       *Decoder
	format    DataFormat
	paramSets []byte // Annex-B parameter sets from the sequence header
	mu        sync.Mutex
}

// NewRTMPHandler creates a handler for one connection.
func NewRTMPHandler(config RTMPHandlerConfig) *RTMPHandler {
	if config.Registry == nil {
		config.Registry = defaultRegistry
	}
	return &RTMPHandler{config: config, format: DataFormatUnknown}
}

// NewRTMPServer returns a go-rtmp server that gives every connection its
// own RTMPHandler built from config.
func NewRTMPServer(config RTMPHandlerConfig) *rtmp.Server {
	return rtmp.NewServer(&rtmp.ServerConfig{
		OnConnect: func(conn net.Conn) (io.ReadWriteCloser, *rtmp.ConnConfig) {
			return conn, &rtmp.ConnConfig{
				Handler: NewRTMPHandler(config),
				ControlState: rtmp.StreamControlStateConfig{
					DefaultBandwidthWindowSize: 6 * 1024 * 1024,
				},
			}
		},
	})
}

func (h *RTMPHandler) OnPublish(_ *rtmp.StreamContext, _ uint32, cmd *rtmpmsg.NetStreamPublish) error {
	ingestLog.Infof("rtmp: publishing %s", cmd.PublishingName)
	return nil
}

func (h *RTMPHandler) OnVideo(timestamp uint32, payload io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, payload); err != nil {
		return err
	}
	data := buf.Bytes()
	if len(data) < 5 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// FLV video tag header
	frameType := (data[0] >> 4) & 0x0F
	var format DataFormat
	switch data[0] & 0x0F {
	case flvCodecAVC:
		format = DataFormatH264
	case flvCodecHEVC:
		format = DataFormatH265
	default:
		return nil
	}

	packetType := data[1]
	body := data[5:]

	switch packetType {
	case flvSequenceHeader:
		return h.handleSequenceHeader(format, body)

	case flvNALU:
		if h.dec == nil || format != h.format {
			return nil
		}
		isKey := frameType == 1

		var au []byte
		if isKey {
			au = append(au, h.paramSets...)
		}
		au = append(au, avccToAnnexB(body)...)
		if len(au) == 0 {
			return nil
		}

		frames, err := h.dec.Decode(au)
		if err != nil {
			// Decode failures are per packet; keep the stream alive.
			ingestLog.Debugf("rtmp: %v", err)
		}
		if len(frames) > 0 && h.config.OnFrames != nil {
			// Convert ms to 90kHz
			return h.config.OnFrames(frames, timestamp*90)
		}
	}
	return nil
}

func (h *RTMPHandler) handleSequenceHeader(format DataFormat, body []byte) error {
	var paramSets []byte
	switch format {
	case DataFormatH264:
		rec, err := avc.DecodeAVCDecConfRec(body)
		if err != nil {
			return fmt.Errorf("rtmp: avc sequence header: %w", err)
		}
		paramSets = appendAnnexB(nil, rec.SPSnalus...)
		paramSets = appendAnnexB(paramSets, rec.PPSnalus...)
	case DataFormatH265:
		rec, err := hevc.DecodeHEVCDecConfRec(body)
		if err != nil {
			return fmt.Errorf("rtmp: hevc sequence header: %w", err)
		}
		for _, t := range []hevc.NaluType{hevc.NALU_VPS, hevc.NALU_SPS, hevc.NALU_PPS} {
			paramSets = appendAnnexB(paramSets, rec.GetNalusForType(t)...)
		}
	}
	h.paramSets = paramSets

	if h.dec != nil && h.format == format {
		return nil
	}
	h.closeDecoder()

	dc, ok := SelectContext(h.config.Contexts, format, h.config.LUID, h.config.Prefer)
	if !ok {
		return fmt.Errorf("rtmp: %w %s", ErrNoContext, format)
	}
	dec, err := h.config.Registry.NewDecoder(dc)
	if err != nil {
		return fmt.Errorf("rtmp: %w", err)
	}
	h.dec = dec
	h.format = format
	ingestLog.Infof("rtmp: decoding %s with %s", format, dc)
	return nil
}

// Decoder returns the decoder opened for the stream, or nil.
func (h *RTMPHandler) Decoder() *Decoder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dec
}

func (h *RTMPHandler) OnClose() {
	h.mu.Lock()
	h.closeDecoder()
	h.mu.Unlock()
	ingestLog.Info("rtmp: disconnected")
}

func (h *RTMPHandler) closeDecoder() {
	if h.dec != nil {
		_ = h.dec.Close()
		h.dec = nil
		h.format = DataFormatUnknown
	}
}
