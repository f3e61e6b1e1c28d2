// Package hwcodec decodes compressed video with GPU hardware decoders from
// three vendors behind one session type, and discovers at runtime which
// (driver, codec, adapter) combinations actually work.
//
// Key pieces include:
//   - Decoder: one native decode session built from a DecodeContext
//   - Available/Prober: parallel trial decodes that yield usable contexts
//   - SelectContext: pick a context by format, adapter and driver preference
//   - H.264/H.265 RTP depacketizers, WebRTC track and RTMP ingest helpers
//
// # Architecture
//
//	Probe:  Registry -> candidates x samples -> CallTable.Test (one goroutine each) -> []DecodeContext
//	Decode: DecodeContext -> NewDecoder -> Decode(packet) -> []DecodeFrame (GPU textures)
//	Ingest: RTPReader / RTMP -> Depacketizer -> Decoder -> FrameHandler
//
// # Native Libraries
//
// Each driver is a shared library loaded with purego (CGO_ENABLED=0):
// libhwcodec_nv, libhwcodec_amf and libhwcodec_vpl. Set
// HWCODEC_<DRIVER>_LIB_PATH or HWCODEC_SDK_LIB_PATH to the directory that
// contains them. Drivers whose library is missing are simply not
// registered; LoadErrors reports why.
//
// # Samples
//
// Probing decodes a short bitstream per codec. Point HWCODEC_SAMPLES_DIR at
// a directory of H.264/H.265 Annex-B or MP4 files, or install a SampleSet
// with SetDefaultSamples or ProberConfig.Samples.
//
// Decoded textures are owned by the native library and are only valid until
// the next Decode or Close on the session that produced them.
package hwcodec
