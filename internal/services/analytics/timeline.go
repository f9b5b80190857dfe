package analytics

import (
	"math"

	"OracleDash/internal/domain/models"
)

// TimelineRow is one evaluated-or-pending prediction. Actual, Error and
// Correct stay nil until a later cycle evaluates the prediction.
type TimelineRow struct {
	Cycle     int      `json:"cycle"`
	Predicted float64  `json:"predicted"`
	Actual    *float64 `json:"actual"`
	Error     *float64 `json:"error"`
	Correct   *bool    `json:"correct"`
}

// PredictionTimeline turns the most-recent-first history into chronological rows.
func PredictionTimeline(h *models.PredictionHistoryResponse) []TimelineRow {
	if h == nil {
		return []TimelineRow{}
	}
	n := len(h.Predictions)
	rows := make([]TimelineRow, n)
	for i, item := range h.Predictions {
		rows[n-1-i] = TimelineRow{
			Cycle:     item.Cycle,
			Predicted: item.PredictedPrice1h,
			Actual:    item.ActualPrice1h,
			Error:     item.Error1h,
			Correct:   item.DirectionCorrect,
		}
	}
	return rows
}

// TimelineSummary aggregates the evaluated rows of a timeline.
type TimelineSummary struct {
	Total     int `json:"total"`
	Evaluated int `json:"evaluated"`
	Pending   int `json:"pending"`
	// MeanAbsError is over rows with a reported error; nil when none.
	MeanAbsError *float64 `json:"mean_abs_error"`
	// HitRate is the share of rows with a known direction that were correct.
	HitRate *float64 `json:"hit_rate"`
}

func SummarizeTimeline(rows []TimelineRow) TimelineSummary {
	s := TimelineSummary{Total: len(rows)}
	var (
		errSum         float64
		errN, hit, dir int
	)
	for _, r := range rows {
		if r.Actual != nil {
			s.Evaluated++
		}
		if r.Error != nil {
			errSum += math.Abs(*r.Error)
			errN++
		}
		if r.Correct != nil {
			dir++
			if *r.Correct {
				hit++
			}
		}
	}
	s.Pending = s.Total - s.Evaluated
	if errN > 0 {
		v := errSum / float64(errN)
		s.MeanAbsError = &v
	}
	if dir > 0 {
		v := float64(hit) / float64(dir)
		s.HitRate = &v
	}
	return s
}

// TimelineChart draws predicted as a dashed line, actual as a solid line
// that breaks at pending rows, and error as faint bars.
func TimelineChart(currentPrice float64) ChartSpec {
	return ChartSpec{
		XKey: "cycle",
		Axes: []AxisSpec{{ID: "price", Orientation: "left", Domain: []interface{}{"auto", "auto"}}},
		Lines: []LineSpec{
			{Key: "predicted", Name: "Predicted", Axis: "price", Color: "#6366f1", Width: 2, Dash: "5 5"},
			{Key: "actual", Name: "Actual", Axis: "price", Color: "#ededed", Width: 2, ConnectNulls: false},
		},
		Bars:       []BarSpec{{Key: "error", Name: "Error", Color: "#ef4444", Opacity: 0.3, Size: 8}},
		References: []RefLine{{Y: currentPrice, Color: "#6366f1", Dash: "3 3", Label: "current"}},
	}
}
