package analytics

import (
	"fmt"

	"OracleDash/internal/domain/models"
)

// CurveRow is one cycle of the learning curve. Accuracy is a percentage.
type CurveRow struct {
	Cycle    int     `json:"cycle"`
	MAE      float64 `json:"mae"`
	Accuracy float64 `json:"accuracy"`
}

// HistoryMismatchError reports learning histories whose lengths disagree
// with each other or with the reported cycle count.
type HistoryMismatchError struct {
	MAE         int
	Accuracy    int
	TotalCycles int
}

func (e *HistoryMismatchError) Error() string {
	return fmt.Sprintf("learning history mismatch: mae_history=%d directional_accuracy_history=%d total_cycles=%d",
		e.MAE, e.Accuracy, e.TotalCycles)
}

// LearningCurve zips the MAE and accuracy histories into rows numbered from 1.
// On a length mismatch the rows are truncated to the shorter history and a
// *HistoryMismatchError is returned alongside them.
func LearningCurve(m *models.LearningMetricsResponse) ([]CurveRow, error) {
	if m == nil {
		return []CurveRow{}, nil
	}
	n := min(len(m.MAEHistory), len(m.DirectionalAccuracyHistory))
	rows := make([]CurveRow, n)
	for i := 0; i < n; i++ {
		rows[i] = CurveRow{
			Cycle:    i + 1,
			MAE:      m.MAEHistory[i],
			Accuracy: m.DirectionalAccuracyHistory[i] * 100,
		}
	}
	if len(m.MAEHistory) != len(m.DirectionalAccuracyHistory) || len(m.MAEHistory) != m.TotalCycles {
		return rows, &HistoryMismatchError{
			MAE:         len(m.MAEHistory),
			Accuracy:    len(m.DirectionalAccuracyHistory),
			TotalCycles: m.TotalCycles,
		}
	}
	return rows, nil
}

// LearningCurveChart describes how the learning curve is drawn: MAE on the
// left axis, accuracy percent on the right.
func LearningCurveChart() ChartSpec {
	return ChartSpec{
		XKey: "cycle",
		Axes: []AxisSpec{
			{ID: "left", Orientation: "left"},
			{ID: "right", Orientation: "right", Domain: []interface{}{0, 100}},
		},
		Lines: []LineSpec{
			{Key: "mae", Name: "MAE", Axis: "left", Color: "#ef4444", Width: 2},
			{Key: "accuracy", Name: "Accuracy %", Axis: "right", Color: "#22c55e", Width: 2},
		},
	}
}
