package hwcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var probed = []DecodeContext{
	{Driver: DriverVPL, DataFormat: DataFormatH264, LUID: 1},
	{Driver: DriverAMF, DataFormat: DataFormatH264, LUID: 2},
	{Driver: DriverNV, DataFormat: DataFormatH265, LUID: 3},
	{Driver: DriverNV, DataFormat: DataFormatH264, LUID: 3},
}

func TestContextsFor(t *testing.T) {
	assert.Equal(t, []DecodeContext{probed[0], probed[1], probed[3]}, ContextsFor(probed, DataFormatH264))
	assert.Equal(t, []DecodeContext{probed[2]}, ContextsFor(probed, DataFormatH265))
	assert.Empty(t, ContextsFor(probed, DataFormatVP9))
	assert.Empty(t, ContextsFor(nil, DataFormatH264))
}

func TestSelectContext(t *testing.T) {
	tests := []struct {
		name   string
		format DataFormat
		luid   LUID
		prefer []Driver
		want   DecodeContext
		ok     bool
	}{
		{"default order", DataFormatH264, 0, nil, probed[3], true},
		{"preference", DataFormatH264, 0, []Driver{DriverVPL, DriverNV}, probed[0], true},
		{"adapter", DataFormatH264, 2, nil, probed[1], true},
		{"adapter and preference disagree", DataFormatH264, 2, []Driver{DriverNV}, DecodeContext{}, false},
		{"empty preference", DataFormatH264, 0, []Driver{}, DecodeContext{}, false},
		{"format", DataFormatH265, 0, nil, probed[2], true},
		{"no context", DataFormatAV1, 0, nil, DecodeContext{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectContext(probed, tt.format, tt.luid, tt.prefer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDrivers(t *testing.T) {
	got, err := ParseDrivers([]string{"vpl", "NVIDIA", "amd"})
	require.NoError(t, err)
	assert.Equal(t, []Driver{DriverVPL, DriverNV, DriverAMF}, got)

	got, err = ParseDrivers(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseDrivers([]string{"nv", "3dfx"})
	assert.Error(t, err)
}
