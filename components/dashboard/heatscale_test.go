package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeatScaleEmptyCell(t *testing.T) {
	for _, peak := range []float64{0, 1, 100, 1e9} {
		assert.Equal(t, CallVolumeScale.Empty, CallVolumeScale.Color(0, peak))
		assert.Equal(t, 0, CallVolumeScale.Bucket(0, peak))
	}
}

func TestHeatScaleHottestBucket(t *testing.T) {
	top := CallVolumeScale.Palette[len(CallVolumeScale.Palette)-1]
	assert.Equal(t, top, CallVolumeScale.Color(80, 100))
	assert.Equal(t, 4, CallVolumeScale.Bucket(80, 100))
	assert.Equal(t, top, CallVolumeScale.Color(250, 100), "values above max clamp to the last bucket")
}

func TestHeatScaleBoundariesAreExclusive(t *testing.T) {
	cases := []struct {
		value float64
		want  int
	}{
		{1, 1},
		{25, 1},
		{26, 2},
		{50, 2},
		{51, 3},
		{75, 3},
		{76, 4},
		{100, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FrictionScale.Bucket(tc.value, 100), "value %v", tc.value)
	}
}

func TestHeatScaleMonotonic(t *testing.T) {
	for _, name := range HeatScaleNames() {
		scale, ok := HeatScaleByName(name)
		require.True(t, ok)
		require.NoError(t, scale.Validate(), name)
		prev := 0
		for v := 0.0; v <= 120; v += 0.5 {
			b := scale.Bucket(v, 120)
			assert.GreaterOrEqual(t, b, prev, "%s at %v", name, v)
			prev = b
		}
	}
	assert.Less(t, CallVolumeScale.Bucket(26, 100), CallVolumeScale.Bucket(76, 100))
}

func TestHeatScaleDegenerateMax(t *testing.T) {
	assert.Equal(t, 1, CallHeatmapScale.Bucket(5, 0), "non-zero value with no max is the faintest bucket")
	assert.Zero(t, Intensity(5, 0))
	assert.Zero(t, Intensity(math.NaN(), 10))
	assert.Zero(t, Intensity(5, math.Inf(1)))
}

func TestHeatScaleValidate(t *testing.T) {
	bad := HeatScale{Name: "short", Thresholds: []float64{0.5}, Palette: []string{"#000"}}
	assert.ErrorIs(t, bad.Validate(), errInvalidHeatScale)

	unordered := HeatScale{Name: "unordered", Thresholds: []float64{0.5, 0.4}, Palette: []string{"a", "b", "c"}}
	assert.ErrorIs(t, unordered.Validate(), errInvalidHeatScale)
}

func TestHeatScaleLabelContrast(t *testing.T) {
	assert.Equal(t, FrictionScale.LabelDark, FrictionScale.LabelColor(0, 10))
	assert.Equal(t, FrictionScale.LabelDark, FrictionScale.LabelColor(5, 10))
	assert.Equal(t, FrictionScale.LabelLight, FrictionScale.LabelColor(6, 10))
}

func TestHeatScaleCellAndLegend(t *testing.T) {
	cell := ActivityScale.Cell("Mon", "09:00", 30, 40)
	assert.Equal(t, HeatCell{
		Row:       "Mon",
		Column:    "09:00",
		Value:     30,
		Intensity: 0.75,
		Bucket:    3,
		Color:     ActivityScale.Palette[2],
		Label:     ActivityScale.LabelLight,
	}, cell)

	legend := ActivityScale.Legend(40, 5)
	require.Len(t, legend, 5)
	assert.Equal(t, ActivityScale.Empty, legend[0].Color)
	assert.Equal(t, ActivityScale.Palette[3], legend[4].Color)
	assert.Len(t, ActivityScale.Legend(40, 0), 2)
}

func TestMaxValueSkipsNonFinite(t *testing.T) {
	assert.Equal(t, 0.0, MaxValue())
	assert.Equal(t, 9.0, MaxValue(3, math.NaN(), 9, math.Inf(1), -4))
}
