package analytics

// ChartSpec tells a generic chart renderer how to draw prepared rows.
type ChartSpec struct {
	XKey       string     `json:"x_key"`
	Axes       []AxisSpec `json:"axes"`
	Lines      []LineSpec `json:"lines"`
	Bars       []BarSpec  `json:"bars,omitempty"`
	References []RefLine  `json:"references,omitempty"`
}

type AxisSpec struct {
	ID          string        `json:"id"`
	Orientation string        `json:"orientation"`
	Domain      []interface{} `json:"domain,omitempty"`
}

// LineSpec is one line series. ConnectNulls false leaves a gap at null
// points instead of interpolating across them.
type LineSpec struct {
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Axis         string  `json:"axis,omitempty"`
	Color        string  `json:"color"`
	Width        float64 `json:"width"`
	Dash         string  `json:"dash,omitempty"`
	ConnectNulls bool    `json:"connect_nulls"`
}

type BarSpec struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Size    int     `json:"size"`
}

// RefLine is a horizontal marker at a fixed Y value.
type RefLine struct {
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Dash  string  `json:"dash,omitempty"`
	Label string  `json:"label,omitempty"`
}
