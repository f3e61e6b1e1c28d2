package hwcodec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Eyevinn/mp4ff/hevc"
	"github.com/Eyevinn/mp4ff/mp4"
)

// maxSampleFrames bounds how many access units are taken from an MP4 file
// for a probing sample, starting at the first sync sample.
const maxSampleFrames = 8

// SampleSet holds one small Annex-B bitstream per data format, used by the
// prober for trial decodes. It is safe for concurrent use.
type SampleSet struct {
	mu      sync.RWMutex
	samples map[DataFormat][]byte
}

// NewSampleSet returns an empty sample set.
func NewSampleSet() *SampleSet {
	return &SampleSet{samples: make(map[DataFormat][]byte)}
}

// Set stores the sample for format, replacing any previous one.
func (s *SampleSet) Set(format DataFormat, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples == nil {
		s.samples = make(map[DataFormat][]byte)
	}
	s.samples[format] = data
}

// Get returns the sample for format, or nil.
func (s *SampleSet) Get(format DataFormat) []byte {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples[format]
}

// Formats returns the formats that have a sample, in ascending order.
func (s *SampleSet) Formats() []DataFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DataFormat, 0, len(s.samples))
	for f := range s.samples {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Add loads a sample file and stores it under its detected format.
func (s *SampleSet) Add(path string) (DataFormat, error) {
	format, data, err := LoadSampleFile(path)
	if err != nil {
		return DataFormatUnknown, err
	}
	s.Set(format, data)
	return format, nil
}

// SampleSetFromFiles loads each file into a new set. A later file replaces an
// earlier one of the same format.
func SampleSetFromFiles(paths ...string) (*SampleSet, error) {
	set := NewSampleSet()
	for _, p := range paths {
		if _, err := set.Add(p); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadSampleDir loads every regular file in dir that holds a recognizable
// H.264 or H.265 stream. Unrecognized files are skipped.
func LoadSampleDir(dir string) (*SampleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sample dir: %w", err)
	}
	set := NewSampleSet()
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := set.Add(path); err != nil {
			proberLog.Debugf("skipping sample %s: %v", path, err)
		}
	}
	return set, nil
}

var (
	defaultSamplesMu sync.Mutex
	defaultSamples   *SampleSet
)

// DefaultSamples returns the process-wide sample set used by Available. On
// first use it is loaded from the directory named by HWCODEC_SAMPLES_DIR.
func DefaultSamples() *SampleSet {
	defaultSamplesMu.Lock()
	defer defaultSamplesMu.Unlock()
	if defaultSamples != nil {
		return defaultSamples
	}

	defaultSamples = NewSampleSet()
	if dir := os.Getenv("HWCODEC_SAMPLES_DIR"); dir != "" {
		set, err := LoadSampleDir(dir)
		if err != nil {
			proberLog.Warnf("loading default samples: %v", err)
		} else {
			defaultSamples = set
		}
	}
	if len(defaultSamples.Formats()) == 0 {
		proberLog.Warn("no probing samples configured; set HWCODEC_SAMPLES_DIR or call SetDefaultSamples")
	}
	return defaultSamples
}

// SetDefaultSamples replaces the process-wide sample set. A nil set makes the
// next DefaultSamples call reload from the environment.
func SetDefaultSamples(set *SampleSet) {
	defaultSamplesMu.Lock()
	defaultSamples = set
	defaultSamplesMu.Unlock()
}

// LoadSampleFile reads a sample bitstream. Files ending in .mp4/.m4v/.mov are
// demuxed; anything else is read as an Annex-B elementary stream.
func LoadSampleFile(path string) (DataFormat, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DataFormatUnknown, nil, fmt.Errorf("read sample: %w", err)
	}

	data := raw
	if isMP4Path(path) {
		data, err = ExtractMP4Sample(bytes.NewReader(raw))
		if err != nil {
			return DataFormatUnknown, nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	format := DetectDataFormat(data)
	if format == DataFormatUnknown {
		return DataFormatUnknown, nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	return format, data, nil
}

// ReadAccessUnits reads a whole stream file and splits it into access units
// for decoding: MP4 files by sample, Annex-B files with SplitAccessUnits.
func ReadAccessUnits(path string) (DataFormat, [][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DataFormatUnknown, nil, fmt.Errorf("read stream: %w", err)
	}

	if isMP4Path(path) {
		units, err := ExtractMP4AccessUnits(bytes.NewReader(raw), 0)
		if err != nil {
			return DataFormatUnknown, nil, fmt.Errorf("%s: %w", path, err)
		}
		format := DetectDataFormat(units[0])
		if format == DataFormatUnknown {
			return DataFormatUnknown, nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
		}
		return format, units, nil
	}

	format := DetectDataFormat(raw)
	if format == DataFormatUnknown {
		return DataFormatUnknown, nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	return format, SplitAccessUnits(raw, format), nil
}

func isMP4Path(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return true
	}
	return false
}

// ExtractMP4Sample builds an Annex-B sample from the first video track of an
// MP4 file: the decoder configuration's parameter sets followed by up to
// maxSampleFrames access units starting at the first sync sample.
func ExtractMP4Sample(reader io.ReadSeeker) ([]byte, error) {
	units, err := ExtractMP4AccessUnits(reader, maxSampleFrames)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, u := range units {
		out = append(out, u...)
	}
	return out, nil
}

// ExtractMP4AccessUnits returns up to limit Annex-B access units (0 = all)
// of the first video track, starting at the first sync sample. The first
// unit is prefixed with the track's parameter sets.
func ExtractMP4AccessUnits(reader io.ReadSeeker, limit int) ([][]byte, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if mp4File.IsFragmented() {
		return extractFragmentedUnits(mp4File, limit)
	}
	return extractProgressiveUnits(mp4File, reader, limit)
}

func findVideoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	if moov == nil {
		return nil
	}
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// parameterSets returns the Annex-B parameter sets from the track's avcC or
// hvcC box.
func parameterSets(trak *mp4.TrakBox) ([]byte, error) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil, fmt.Errorf("no sample description")
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		entry, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		if entry.AvcC != nil {
			out := appendAnnexB(nil, entry.AvcC.SPSnalus...)
			return appendAnnexB(out, entry.AvcC.PPSnalus...), nil
		}
		if entry.HvcC != nil {
			var out []byte
			for _, t := range []hevc.NaluType{hevc.NALU_VPS, hevc.NALU_SPS, hevc.NALU_PPS} {
				out = appendAnnexB(out, entry.HvcC.GetNalusForType(t)...)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: no avcC or hvcC box", ErrUnknownFormat)
}

func extractFragmentedUnits(mp4File *mp4.File, limit int) ([][]byte, error) {
	if mp4File.Init == nil {
		return nil, fmt.Errorf("no init segment")
	}
	trak := findVideoTrack(mp4File.Init.Moov)
	if trak == nil {
		return nil, fmt.Errorf("no video track found")
	}
	paramSets, err := parameterSets(trak)
	if err != nil {
		return nil, err
	}

	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if mp4File.Init.Moov.Mvex != nil {
		for _, t := range mp4File.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var units [][]byte
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return nil, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				if len(units) == 0 && !s.IsSync() {
					continue
				}
				units = appendUnit(units, paramSets, s.Data)
				if len(units) == limit {
					return units, nil
				}
			}
		}
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no sync sample found")
	}
	return units, nil
}

// appendUnit converts one length-prefixed sample to Annex-B. The first unit
// carries the parameter sets.
func appendUnit(units [][]byte, paramSets, sample []byte) [][]byte {
	var au []byte
	if len(units) == 0 {
		au = append(au, paramSets...)
	}
	return append(units, append(au, avccToAnnexB(sample)...))
}

func extractProgressiveUnits(mp4File *mp4.File, reader io.ReadSeeker, limit int) ([][]byte, error) {
	trak := findVideoTrack(mp4File.Moov)
	if trak == nil {
		return nil, fmt.Errorf("no video track found")
	}
	paramSets, err := parameterSets(trak)
	if err != nil {
		return nil, err
	}

	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil {
		return nil, fmt.Errorf("no stsz box found")
	}
	sampleCount := stbl.Stsz.SampleNumber

	first := uint32(1)
	if stbl.Stss != nil && len(stbl.Stss.SampleNumber) > 0 {
		first = stbl.Stss.SampleNumber[0]
	}

	var units [][]byte
	for nr := first; nr <= sampleCount; nr++ {
		data, err := readProgressiveSample(stbl, reader, nr)
		if err != nil {
			return nil, err
		}
		units = appendUnit(units, paramSets, data)
		if len(units) == limit {
			break
		}
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no samples found")
	}
	return units, nil
}

// readProgressiveSample reads sample data from a progressive MP4 file.
func readProgressiveSample(stbl *mp4.StblBox, reader io.ReadSeeker, sampleNr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	size := stbl.Stsz.GetSampleSize(int(sampleNr))

	if _, err := reader.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}
