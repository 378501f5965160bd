package dashboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// HeatScale maps a value and the dataset maximum onto a discrete color bucket.
// Bucket 0 is reserved for empty cells; buckets 1..len(Palette) follow the
// palette from lowest to highest intensity.
type HeatScale struct {
	Name       string
	Empty      string
	Thresholds []float64
	Palette    []string
	LabelDark  string
	LabelLight string
	ContrastAt float64
}

// HeatCell is a single rendered heatmap cell.
type HeatCell struct {
	Row       string  `json:"row"`
	Column    string  `json:"column"`
	Value     float64 `json:"value"`
	Intensity float64 `json:"intensity"`
	Bucket    int     `json:"bucket"`
	Color     string  `json:"color"`
	Label     string  `json:"label_color"`
}

var errInvalidHeatScale = errors.New("dashboard: invalid heat scale")

// Built-in scales used by the heatmap widgets.
var (
	CallVolumeScale = HeatScale{
		Name:       "call_volume",
		Empty:      "#F5F5F5",
		Thresholds: []float64{0.25, 0.5, 0.75},
		Palette:    []string{"#39d353", "#26a641", "#006d32", "#0e4429"},
		LabelDark:  "#171717",
		LabelLight: "#FFFFFF",
		ContrastAt: 0.45,
	}
	CallHeatmapScale = HeatScale{
		Name:       "call_heatmap",
		Empty:      "#ebedf0",
		Thresholds: []float64{0.25, 0.5, 0.75},
		Palette:    []string{"#39d353", "#26a641", "#006d32", "#0e4429"},
		LabelDark:  "#171717",
		LabelLight: "#FFFFFF",
		ContrastAt: 0.45,
	}
	FrictionScale = HeatScale{
		Name:       "friction",
		Empty:      "#F5F5F5",
		Thresholds: []float64{0.25, 0.5, 0.75},
		Palette:    []string{"#86efac", "#fbbf24", "#f97316", "#dc2626"},
		LabelDark:  "#171717",
		LabelLight: "#FFFFFF",
		ContrastAt: 0.5,
	}
	ActivityScale = HeatScale{
		Name:       "activity",
		Empty:      "#F5F5F5",
		Thresholds: []float64{0.25, 0.5, 0.75},
		Palette:    []string{"#d1f4e0", "#7ee3b0", "#2fc97a", "#0ea55c"},
		LabelDark:  "#171717",
		LabelLight: "#FFFFFF",
		ContrastAt: 0.5,
	}
	BarrierScale = HeatScale{
		Name:       "barrier",
		Empty:      "#F5F5F5",
		Thresholds: []float64{0.25, 0.5, 0.75},
		Palette:    []string{"#fef3c7", "#fbbf24", "#f97316", "#dc2626"},
		LabelDark:  "#171717",
		LabelLight: "#FFFFFF",
		ContrastAt: 0.5,
	}
)

var heatScales = map[string]HeatScale{
	CallVolumeScale.Name:  CallVolumeScale,
	CallHeatmapScale.Name: CallHeatmapScale,
	FrictionScale.Name:    FrictionScale,
	ActivityScale.Name:    ActivityScale,
	BarrierScale.Name:     BarrierScale,
}

// HeatScaleByName returns a built-in scale.
func HeatScaleByName(name string) (HeatScale, bool) {
	scale, ok := heatScales[name]
	return scale, ok
}

// HeatScaleNames lists the built-in scale names in sorted order.
func HeatScaleNames() []string {
	names := make([]string, 0, len(heatScales))
	for name := range heatScales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Intensity returns value/peak, or 0 when the ratio is undefined.
func Intensity(value, peak float64) float64 {
	if peak <= 0 || math.IsNaN(value) || math.IsInf(value, 0) || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return 0
	}
	return value / peak
}

// Validate checks that thresholds ascend within (0,1) and the palette has one
// more entry than there are thresholds.
func (s HeatScale) Validate() error {
	if len(s.Palette) != len(s.Thresholds)+1 {
		return fmt.Errorf("%w: %s has %d colors for %d thresholds", errInvalidHeatScale, s.Name, len(s.Palette), len(s.Thresholds))
	}
	prev := 0.0
	for i, t := range s.Thresholds {
		if t <= prev || t >= 1 {
			return fmt.Errorf("%w: %s threshold %d (%v) out of order", errInvalidHeatScale, s.Name, i, t)
		}
		prev = t
	}
	return nil
}

// Bucket returns 0 for an empty cell, otherwise 1 plus the number of
// thresholds the intensity strictly exceeds.
func (s HeatScale) Bucket(value, peak float64) int {
	if value == 0 {
		return 0
	}
	if len(s.Palette) == 0 {
		return 0
	}
	intensity := Intensity(value, peak)
	bucket := 1
	for _, t := range s.Thresholds {
		if intensity > t {
			bucket++
		}
	}
	if bucket > len(s.Palette) {
		bucket = len(s.Palette)
	}
	return bucket
}

// Color resolves the fill color for a cell.
func (s HeatScale) Color(value, peak float64) string {
	bucket := s.Bucket(value, peak)
	if bucket == 0 {
		return s.Empty
	}
	return s.Palette[bucket-1]
}

// LabelColor picks a readable text color for the cell fill.
func (s HeatScale) LabelColor(value, peak float64) string {
	if value != 0 && Intensity(value, peak) > s.ContrastAt {
		return s.LabelLight
	}
	return s.LabelDark
}

// Cell renders a single heatmap cell.
func (s HeatScale) Cell(row, column string, value, peak float64) HeatCell {
	return HeatCell{
		Row:       row,
		Column:    column,
		Value:     value,
		Intensity: Intensity(value, peak),
		Bucket:    s.Bucket(value, peak),
		Color:     s.Color(value, peak),
		Label:     s.LabelColor(value, peak),
	}
}

// Legend returns evenly spaced swatches from 0 to peak.
func (s HeatScale) Legend(peak float64, steps int) []HeatCell {
	if steps < 2 {
		steps = 2
	}
	out := make([]HeatCell, steps)
	for i := 0; i < steps; i++ {
		value := peak * float64(i) / float64(steps-1)
		out[i] = s.Cell("legend", fmt.Sprintf("%d", i), value, peak)
	}
	return out
}

// MaxValue returns the largest finite value, or 0 for an empty set.
func MaxValue(values ...float64) float64 {
	peak := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
