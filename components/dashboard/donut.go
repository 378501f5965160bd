package dashboard

import (
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	donutStartAngle   = -90.0
	defaultDonutSize  = 300.0
	defaultInnerRatio = 0.6
)

var (
	// ErrEmptyChart is returned when no segments are supplied.
	ErrEmptyChart = errors.New("dashboard: chart has no segments")
	// ErrZeroTotal is returned when the segment values sum to zero.
	ErrZeroTotal = errors.New("dashboard: chart total must be positive")
	// ErrNegativeValue is returned for negative or non-finite segment values.
	ErrNegativeValue = errors.New("dashboard: chart values must be finite and non-negative")
)

// DefaultDonutPalette is cycled through for segments without an explicit color.
var DefaultDonutPalette = []string{
	"#3B82F6",
	"#22C55E",
	"#D946EF",
	"#10B981",
	"#F59E0B",
	"#EF4444",
	"#737373",
}

// SegmentInput is one labelled value fed into the donut geometry.
type SegmentInput struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// ChartSegment is a wedge of the donut. Angles are in degrees, start at -90
// and grow clockwise.
type ChartSegment struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Color      string  `json:"color"`
}

// Span returns the angular width of the segment.
func (s ChartSegment) Span() float64 {
	return s.EndAngle - s.StartAngle
}

// ComputeSegments partitions the circle proportionally to the input values.
func ComputeSegments(inputs []SegmentInput, palette []string) ([]ChartSegment, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyChart
	}
	if len(palette) == 0 {
		palette = DefaultDonutPalette
	}
	total := 0.0
	for _, in := range inputs {
		if in.Value < 0 || math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
			return nil, fmt.Errorf("%w: %s=%v", ErrNegativeValue, in.Label, in.Value)
		}
		total += in.Value
	}
	if total <= 0 {
		return nil, ErrZeroTotal
	}

	segments := make([]ChartSegment, len(inputs))
	current := donutStartAngle
	for i, in := range inputs {
		pct := in.Value / total * 100
		end := current + pct/100*360
		if i == len(inputs)-1 {
			end = donutStartAngle + 360
		}
		color := in.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		segments[i] = ChartSegment{
			Label:      in.Label,
			Value:      in.Value,
			Percentage: pct,
			StartAngle: current,
			EndAngle:   end,
			Color:      color,
		}
		current = end
	}
	return segments, nil
}

// DonutGeometry positions the annulus in SVG user space.
type DonutGeometry struct {
	CX         float64
	CY         float64
	Radius     float64
	InnerRatio float64
}

// GeometryForSize centres a donut in a square viewport of the given size,
// leaving a 20px margin around the outer ring.
func GeometryForSize(size, innerRatio float64) DonutGeometry {
	if size <= 0 {
		size = defaultDonutSize
	}
	if innerRatio <= 0 || innerRatio >= 1 {
		innerRatio = defaultInnerRatio
	}
	return DonutGeometry{
		CX:         size / 2,
		CY:         size / 2,
		Radius:     size/2 - 20,
		InnerRatio: innerRatio,
	}
}

// InnerRadius returns the hole radius.
func (g DonutGeometry) InnerRadius() float64 {
	return g.Radius * g.InnerRatio
}

// Point converts a segment angle to SVG coordinates on a ring of the given
// radius. Angles are rotated by -90 degrees before projection.
func (g DonutGeometry) Point(angle, radius float64) (float64, float64) {
	rad := (angle - 90) * math.Pi / 180
	return g.CX + radius*math.Cos(rad), g.CY + radius*math.Sin(rad)
}

// Path returns the SVG path data for the wedge.
func (g DonutGeometry) Path(seg ChartSegment) string {
	span := seg.Span()
	if span >= 360 {
		mid := seg.StartAngle + 180
		first := seg
		first.EndAngle = mid
		second := seg
		second.StartAngle = mid
		return g.Path(first) + " " + g.Path(second)
	}
	outer := g.Radius
	inner := g.InnerRadius()
	largeArc := 0
	if span > 180 {
		largeArc = 1
	}
	sx, sy := g.Point(seg.StartAngle, outer)
	ex, ey := g.Point(seg.EndAngle, outer)
	ix, iy := g.Point(seg.EndAngle, inner)
	jx, jy := g.Point(seg.StartAngle, inner)

	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s ", num(sx), num(sy))
	fmt.Fprintf(&b, "A %s %s 0 %d 1 %s %s ", num(outer), num(outer), largeArc, num(ex), num(ey))
	fmt.Fprintf(&b, "L %s %s ", num(ix), num(iy))
	fmt.Fprintf(&b, "A %s %s 0 %d 0 %s %s Z", num(inner), num(inner), largeArc, num(jx), num(jy))
	return b.String()
}

// DonutOptions controls SVG output.
type DonutOptions struct {
	Size        float64
	InnerRatio  float64
	CenterLabel string
	CenterValue string
}

// RenderDonutSVG writes a standalone SVG document for the segments.
func RenderDonutSVG(w io.Writer, o DonutOptions, segments []ChartSegment) error {
	if len(segments) == 0 {
		return ErrEmptyChart
	}
	g := GeometryForSize(o.Size, o.InnerRatio)
	size := g.CX * 2

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(size), num(size), num(size), num(size))
	b.WriteString("\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, `  <path d="%s" fill="%s" stroke="#FFFFFF" stroke-width="2"><title>%s</title></path>`,
			g.Path(seg), html.EscapeString(seg.Color), html.EscapeString(segmentTitle(seg)))
		b.WriteString("\n")
	}
	if o.CenterValue != "" {
		fmt.Fprintf(&b, `  <text x="%s" y="%s" text-anchor="middle" font-size="28" font-weight="bold" fill="#171717">%s</text>`,
			num(g.CX), num(g.CY), html.EscapeString(o.CenterValue))
		b.WriteString("\n")
	}
	if o.CenterLabel != "" {
		fmt.Fprintf(&b, `  <text x="%s" y="%s" text-anchor="middle" font-size="12" fill="#737373">%s</text>`,
			num(g.CX), num(g.CY+20), html.EscapeString(o.CenterLabel))
		b.WriteString("\n")
	}
	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func segmentTitle(seg ChartSegment) string {
	return fmt.Sprintf("%s: %s (%.1f%%)", seg.Label, strconv.FormatFloat(seg.Value, 'f', -1, 64), seg.Percentage)
}

func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
