package causal

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"OracleDash/internal/domain/models"
)

const (
	intensityBase  = 80
	intensityRange = 175
	// channel value of the two non-dominant components
	mutedChannel = 60

	minThickness     = 1.0
	maxThickness     = 4.0
	minOpacity       = 0.2
	animateThreshold = 0.7

	markerSize = 15
)

// Node border colors by type.
const (
	BorderSignal  = "#6366f1"
	BorderDerived = "#737373"
	BorderTarget  = "#eab308"

	nodeBackground = "#1a1a1a"
	nodeForeground = "#ededed"
	labelColor     = "#a1a1a1"
)

// EdgeStyle is the visual weight of one edge.
type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Opacity     float64 `json:"opacity"`
	LabelColor  string  `json:"label_color"`
}

// Marker is the arrow head drawn at the target end.
type Marker struct {
	Type   string `json:"type"`
	Color  string `json:"color"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type NodeStyle struct {
	Background  string `json:"background"`
	Color       string `json:"color"`
	Border      string `json:"border"`
	BorderWidth int    `json:"border_width"`
	Width       int    `json:"width"`
}

// ClampWeight maps w into [0,1]; NaN becomes 0.
func ClampWeight(w float64) float64 {
	switch {
	case math.IsNaN(w) || w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}

// Intensity is the dominant color channel for weight w.
func Intensity(w float64) int {
	i := int(math.Round(intensityBase + ClampWeight(w)*intensityRange))
	if i < 0 {
		return 0
	}
	if i > 255 {
		return 255
	}
	return i
}

// EdgeColor is green for positive influence and red for negative.
func EdgeColor(w float64, direction string) string {
	i := Intensity(w)
	if direction == models.DirectionNegative {
		return fmt.Sprintf("rgb(%d, %d, %d)", i, mutedChannel, mutedChannel)
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", mutedChannel, i, mutedChannel)
}

// Thickness is the stroke width in [1,4].
func Thickness(w float64) float64 {
	return math.Max(minThickness, ClampWeight(w)*maxThickness)
}

// Opacity is in [0.2,1].
func Opacity(w float64) float64 {
	return math.Max(minOpacity, ClampWeight(w))
}

// Animated marks strong edges.
func Animated(w float64) bool {
	return ClampWeight(w) > animateThreshold
}

// WeightLabel formats w to two decimals. The exact binary value is rounded,
// so 0.015 (stored just below the tie) gives "0.01" and only exact ties such
// as 0.125 round away from zero.
func WeightLabel(w float64) string {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return strconv.FormatFloat(w, 'f', 2, 64)
	}
	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(w))
	x.Mul(x, big.NewFloat(100))
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	digits := n.String()
	for len(digits) < 3 {
		digits = "0" + digits
	}
	label := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if w < 0 {
		label = "-" + label
	}
	return label
}

func styleEdge(w float64, direction string) (EdgeStyle, Marker) {
	color := EdgeColor(w, direction)
	style := EdgeStyle{
		Stroke:      color,
		StrokeWidth: Thickness(w),
		Opacity:     Opacity(w),
		LabelColor:  labelColor,
	}
	marker := Marker{
		Type:   "arrowclosed",
		Color:  color,
		Width:  markerSize,
		Height: markerSize,
	}
	return style, marker
}

func styleNode(nodeType string) NodeStyle {
	s := NodeStyle{
		Background:  nodeBackground,
		Color:       nodeForeground,
		BorderWidth: 1,
		Width:       NodeWidth,
	}
	switch nodeType {
	case models.NodeTarget:
		s.Border = BorderTarget
		s.BorderWidth = 2
	case models.NodeDerived:
		s.Border = BorderDerived
	default:
		s.Border = BorderSignal
	}
	return s
}
