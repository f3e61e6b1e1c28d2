package hwcodec

import (
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
)

// DetectDataFormat detects the codec of an Annex-B elementary stream from
// its leading NAL units. Supports:
//   - H.265/HEVC: ITU-T H.265 two-byte NAL header (parameter sets, AUD, SEI, slices)
//   - H.264/AVC: ITU-T H.264 one-byte NAL header
//
// Many header bytes are valid in both codecs, so NAL units are examined until
// one fits only a single codec. Returns DataFormatUnknown if the format cannot
// be determined.
func DetectDataFormat(data []byte) DataFormat {
	if !isAnnexBStartCode(data) {
		return DataFormatUnknown
	}
	nalus := splitAnnexB(data)
	if len(nalus) == 0 {
		return DataFormatUnknown
	}

	for i, nalu := range nalus[:min(len(nalus), maxDetectNalus)] {
		h265, h264 := isH265Header(nalu), isH264Header(nalu)
		switch {
		case h265 && !h264:
			return DataFormatH265
		case h264 && !h265:
			return DataFormatH264
		case !h265 && !h264:
			if i == 0 {
				return DataFormatUnknown
			}
			return resolveAmbiguousHeader(nalus[0])
		}
	}
	return resolveAmbiguousHeader(nalus[0])
}

// maxDetectNalus bounds how far DetectDataFormat looks into a stream.
const maxDetectNalus = 16

// resolveAmbiguousHeader picks a codec for a NAL header valid in both.
// H.265 parameter sets, AUD, SEI and IRAP slices win. Otherwise H.264 wins
// unless its reading is a data partition, which only the Extended profile
// uses.
func resolveAmbiguousHeader(nalu []byte) DataFormat {
	switch hevc.GetNaluType(nalu[0]) {
	case hevc.NALU_VPS, hevc.NALU_SPS, hevc.NALU_PPS, hevc.NALU_AUD, hevc.NALU_SEI_PREFIX,
		hevc.NALU_IDR_W_RADL, hevc.NALU_IDR_N_LP, hevc.NALU_CRA:
		return DataFormatH265
	}
	switch avc.GetNaluType(nalu[0]) {
	case 2, 3, 4:
		return DataFormatH265
	}
	return DataFormatH264
}

// isAnnexBStartCode checks for H.264/H.265 Annex-B start codes.
// Per ITU-T H.264 Annex B, NAL units are prefixed with:
//   - 4-byte start code: 0x00000001
//   - 3-byte start code: 0x000001
func isAnnexBStartCode(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return true
	}
	return data[0] == 0 && data[1] == 0 && data[2] == 1
}

// splitAnnexB splits an Annex-B byte stream into NAL units without start codes.
func splitAnnexB(data []byte) [][]byte {
	return avc.ExtractNalusFromByteStream(data)
}

// isH264Header checks the forbidden bit and that the NAL type is valid H.264.
// Per ITU-T H.264 Table 7-1, valid types are 1-12 and 19-21.
func isH264Header(nalu []byte) bool {
	if len(nalu) < 1 || nalu[0]&0x80 != 0 {
		return false
	}
	t := avc.GetNaluType(nalu[0])
	return (t >= 1 && t <= 12) || (t >= 19 && t <= 21)
}

// isH265Header checks the two-byte H.265 NAL header (Section 7.3.1.2):
// forbidden_zero_bit, nuh_layer_id = 0 for base-layer streams,
// nuh_temporal_id_plus1 != 0 and a non-reserved nal_unit_type (Table 7-1).
func isH265Header(nalu []byte) bool {
	if len(nalu) < 2 || nalu[0]&0x80 != 0 {
		return false
	}
	layerID := (nalu[0]&0x01)<<5 | nalu[1]>>3
	if layerID != 0 || nalu[1]&0x07 == 0 {
		return false
	}
	t := hevc.GetNaluType(nalu[0])
	switch {
	case t <= 9, t >= 16 && t <= 21: // VCL
		return true
	case t >= 32 && t <= 35, t == 39, t == 40: // VPS, SPS, PPS, AUD, SEI
		return true
	}
	return false
}

// IsKeyframe reports whether an Annex-B access unit contains a random access
// point for format: an IDR slice for H.264, an IRAP slice for H.265.
func IsKeyframe(data []byte, format DataFormat) bool {
	for _, nalu := range splitAnnexB(data) {
		if len(nalu) == 0 {
			continue
		}
		switch format {
		case DataFormatH264:
			if avc.GetNaluType(nalu[0]) == avc.NALU_IDR {
				return true
			}
		case DataFormatH265:
			switch hevc.GetNaluType(nalu[0]) {
			case hevc.NALU_IDR_W_RADL, hevc.NALU_IDR_N_LP, hevc.NALU_CRA:
				return true
			}
		}
	}
	return false
}

// avccToAnnexB converts length-prefixed NAL units (4-byte lengths) to
// Annex-B. Truncated trailing data is dropped.
func avccToAnnexB(data []byte) []byte {
	var out []byte
	for offset := 0; offset+4 <= len(data); {
		n := int(data[offset])<<24 | int(data[offset+1])<<16 | int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if n <= 0 || offset+n > len(data) {
			break
		}
		out = append(out, 0, 0, 0, 1)
		out = append(out, data[offset:offset+n]...)
		offset += n
	}
	return out
}

// appendAnnexB appends each NAL unit to dst with a 4-byte start code.
func appendAnnexB(dst []byte, nalus ...[]byte) []byte {
	for _, nalu := range nalus {
		dst = append(dst, 0, 0, 0, 1)
		dst = append(dst, nalu...)
	}
	return dst
}

// SplitAccessUnits groups the NAL units of an Annex-B stream into access
// units. A unit ends before a parameter set, AUD or SEI that follows a
// slice, or before a slice that starts a new picture.
func SplitAccessUnits(data []byte, format DataFormat) [][]byte {
	var (
		units    [][]byte
		cur      []byte
		hasSlice bool
	)
	flush := func() {
		if len(cur) > 0 {
			units = append(units, cur)
		}
		cur = nil
		hasSlice = false
	}

	for _, nalu := range splitAnnexB(data) {
		if len(nalu) == 0 {
			continue
		}
		vcl, firstSlice := classifyNALU(nalu, format)
		switch {
		case vcl && firstSlice && hasSlice:
			flush()
		case !vcl && hasSlice:
			flush()
		}
		if vcl {
			hasSlice = true
		}
		cur = appendAnnexB(cur, nalu)
	}
	flush()
	return units
}

// classifyNALU reports whether nalu is a slice and, if so, whether it is the
// first slice of a picture.
func classifyNALU(nalu []byte, format DataFormat) (vcl, firstSlice bool) {
	switch format {
	case DataFormatH264:
		t := avc.GetNaluType(nalu[0])
		if t < 1 || t > 5 {
			return false, false
		}
		// first_mb_in_slice == 0 is coded as a single 1 bit
		return true, len(nalu) > 1 && nalu[1]&0x80 != 0
	case DataFormatH265:
		if hevc.GetNaluType(nalu[0]) > 31 {
			return false, false
		}
		// first_slice_segment_in_pic_flag
		return true, len(nalu) > 2 && nalu[2]&0x80 != 0
	}
	return false, false
}
