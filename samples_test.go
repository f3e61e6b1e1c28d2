package hwcodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSampleSet(t *testing.T) {
	s := NewSampleSet()
	assert.Empty(t, s.Formats())
	assert.Nil(t, s.Get(DataFormatH264))

	s.Set(DataFormatH265, h265Sample)
	s.Set(DataFormatH264, []byte{1})
	s.Set(DataFormatH264, h264Sample)

	assert.Equal(t, h264Sample, s.Get(DataFormatH264))
	assert.Equal(t, h265Sample, s.Get(DataFormatH265))
	assert.Equal(t, []DataFormat{DataFormatH264, DataFormatH265}, s.Formats())

	var nilSet *SampleSet
	assert.Nil(t, nilSet.Get(DataFormatH264))

	var zero SampleSet
	zero.Set(DataFormatH264, h264Sample)
	assert.Equal(t, h264Sample, zero.Get(DataFormatH264))
}

func TestLoadSampleFile(t *testing.T) {
	dir := t.TempDir()

	format, data, err := LoadSampleFile(writeFile(t, dir, "clip.h264", h264Sample))
	require.NoError(t, err)
	assert.Equal(t, DataFormatH264, format)
	assert.Equal(t, h264Sample, data)

	format, _, err = LoadSampleFile(writeFile(t, dir, "clip.hevc", h265Sample))
	require.NoError(t, err)
	assert.Equal(t, DataFormatH265, format)

	_, _, err = LoadSampleFile(writeFile(t, dir, "notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = LoadSampleFile(filepath.Join(dir, "missing.h264"))
	assert.Error(t, err)

	_, _, err = LoadSampleFile(writeFile(t, dir, "broken.mp4", []byte{0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e'}))
	assert.Error(t, err)
}

func TestLoadSampleDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.264", h264Sample)
	writeFile(t, dir, "b.265", h265Sample)
	writeFile(t, dir, "readme.txt", []byte("not a stream"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	set, err := LoadSampleDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []DataFormat{DataFormatH264, DataFormatH265}, set.Formats())

	_, err = LoadSampleDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSampleSetFromFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.264", h264Sample)
	b := writeFile(t, dir, "b.265", h265Sample)

	set, err := SampleSetFromFiles(a, b)
	require.NoError(t, err)
	assert.Len(t, set.Formats(), 2)

	_, err = SampleSetFromFiles(a, writeFile(t, dir, "bad.bin", []byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Error(t, err)
}

func TestDefaultSamples_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.264", h264Sample)

	t.Setenv("HWCODEC_SAMPLES_DIR", dir)
	SetDefaultSamples(nil)
	t.Cleanup(func() { SetDefaultSamples(nil) })

	got := DefaultSamples()
	assert.Equal(t, []DataFormat{DataFormatH264}, got.Formats())
	assert.Same(t, got, DefaultSamples())

	custom := testSamples()
	SetDefaultSamples(custom)
	assert.Same(t, custom, DefaultSamples())
}

func TestReadAccessUnits(t *testing.T) {
	dir := t.TempDir()
	stream := appendAnnexB(nil, h264SPS, h264PPS, h264IDR, h264P, h264P)

	format, units, err := ReadAccessUnits(writeFile(t, dir, "stream.h264", stream))
	require.NoError(t, err)
	assert.Equal(t, DataFormatH264, format)
	assert.Equal(t, [][]byte{
		h264Sample,
		appendAnnexB(nil, h264P),
		appendAnnexB(nil, h264P),
	}, units)

	format, units, err = ReadAccessUnits(writeFile(t, dir, "trail.bin", appendAnnexB(nil, h265TRL, h265TRL)))
	require.NoError(t, err)
	assert.Equal(t, DataFormatH265, format)
	assert.Len(t, units, 2)

	_, _, err = ReadAccessUnits(writeFile(t, dir, "junk.bin", []byte("junk")))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = ReadAccessUnits(writeFile(t, dir, "junk.mov", []byte("junk")))
	assert.Error(t, err)
}
