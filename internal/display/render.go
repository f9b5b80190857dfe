// Package display renders dashboard panels for a terminal.
package display

import (
	"fmt"
	"strings"
	"time"

	"OracleDash/internal/domain/models"
	"OracleDash/internal/services/analytics"
	"OracleDash/internal/services/causal"
	"OracleDash/internal/usecase"

	"github.com/charmbracelet/lipgloss"
)

// DefaultWidth is the panel width when the terminal size is unknown.
const DefaultWidth = 78

// maxRows caps list panels so one screen stays readable.
const maxRows = 8

// Render draws every panel, one box per panel, stacked in page order.
func Render(panels []usecase.Panel, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	boxes := make([]string, 0, len(panels))
	for _, p := range panels {
		boxes = append(boxes, RenderPanel(p, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

// RenderPanel draws one panel: a title, its status line and its body.
func RenderPanel(p usecase.Panel, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(p.Name)))
	b.WriteString(" ")
	b.WriteString(statusLine(p))
	b.WriteString("\n")
	if p.Status == usecase.StatusReady {
		b.WriteString(body(p.Data))
	}
	return panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func statusLine(p usecase.Panel) string {
	switch {
	case p.Status == usecase.StatusError:
		return errorStyle.Render("error") + " " + mutedStyle.Render(p.Error)
	case p.Status == usecase.StatusLoading:
		return mutedStyle.Render("loading...")
	case p.Stale:
		return staleStyle.Render("stale") + " " + mutedStyle.Render(p.Error)
	}
	s := readyStyle.Render("ready")
	if p.UpdatedAt != nil {
		s += " " + mutedStyle.Render("updated "+p.UpdatedAt.Format(time.TimeOnly))
	}
	return s
}

func body(data interface{}) string {
	switch v := data.(type) {
	case usecase.SignalsView:
		return signalsBody(v)
	case usecase.PredictionView:
		return predictionBody(v)
	case usecase.TimelineView:
		return timelineBody(v)
	case causal.Diagram:
		return graphBody(v)
	case usecase.LearningView:
		return learningBody(v)
	case *models.LearningLogResponse:
		return logBody(v)
	case usecase.SchedulerView:
		return schedulerBody(v)
	case []models.FactorDetail:
		return factorsBody(v)
	case []models.SourceStatus:
		return sourcesBody(v)
	}
	return mutedStyle.Render(fmt.Sprintf("%v", data))
}

func signalsBody(v usecase.SignalsView) string {
	var b strings.Builder
	for _, g := range v.Groups {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(string(g.Source)))
		for _, s := range g.Signals {
			fmt.Fprintf(&b, "  %-28s %12.4f %-8s %s\n", s.Name, s.Value, s.Unit, change(s.ChangePct))
		}
	}
	return b.String()
}

func change(pct *float64) string {
	switch {
	case pct == nil:
		return mutedStyle.Render("n/a")
	case *pct > 0:
		return upStyle.Render(fmt.Sprintf("+%.2f%%", *pct))
	case *pct < 0:
		return downStyle.Render(fmt.Sprintf("%.2f%%", *pct))
	default:
		return "0.00%"
	}
}

func predictionBody(v usecase.PredictionView) string {
	if v.AwaitingFirstCycle || v.PredictionResponse == nil {
		return mutedStyle.Render("awaiting first cycle") + "\n"
	}
	p := v.PredictionResponse
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %d  %s  current $%.4f\n", p.Cycle, p.Target, p.CurrentPrice)
	for _, h := range p.Predictions {
		dir := h.Direction
		switch dir {
		case "up":
			dir = upStyle.Render("up")
		case "down":
			dir = downStyle.Render("down")
		}
		fmt.Fprintf(&b, "  %-4s $%.4f %-6s conf %.0f%%\n", h.Horizon, h.PredictedPrice, dir, h.Confidence*100)
	}
	if p.CausalExplanation != "" {
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(p.CausalExplanation))
	}
	return b.String()
}

func timelineBody(v usecase.TimelineView) string {
	var b strings.Builder
	s := v.Summary
	fmt.Fprintf(&b, "%d predictions, %d evaluated", s.Total, s.Evaluated)
	if s.MeanAbsError != nil {
		fmt.Fprintf(&b, ", MAE %.4f", *s.MeanAbsError)
	}
	if s.HitRate != nil {
		fmt.Fprintf(&b, ", hit rate %.0f%%", *s.HitRate*100)
	}
	b.WriteString("\n")
	for _, r := range tail(v.Rows, maxRows) {
		actual := mutedStyle.Render("pending")
		if r.Actual != nil {
			actual = fmt.Sprintf("%.4f", *r.Actual)
		}
		fmt.Fprintf(&b, "  #%-4d predicted %.4f actual %s\n", r.Cycle, r.Predicted, actual)
	}
	return b.String()
}

func tail[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[len(rows)-n:]
	}
	return rows
}

func graphBody(d causal.Diagram) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.Header)
	for _, e := range d.Edges {
		arrow := upStyle.Render("->")
		if e.Direction == models.DirectionNegative {
			arrow = downStyle.Render("-|")
		}
		fmt.Fprintf(&b, "  %s %s %s  %s\n", e.From, arrow, e.To, e.Label)
	}
	if n := len(d.Report.DroppedEdges); n > 0 {
		fmt.Fprintf(&b, "%s\n", staleStyle.Render(fmt.Sprintf("%d links skipped: missing nodes", n)))
	}
	return b.String()
}

func learningBody(v usecase.LearningView) string {
	var b strings.Builder
	if m := v.LearningMetricsResponse; m != nil {
		fmt.Fprintf(&b, "%d cycles, MAE %.4f, direction %.0f%%, graph v%d\n",
			m.TotalCycles, m.OverallMAE, m.DirectionalAccuracy*100, m.GraphVersions)
	}
	b.WriteString(sparkline(v.Curve))
	if v.Mismatch != "" {
		fmt.Fprintf(&b, "%s\n", staleStyle.Render(v.Mismatch))
	}
	return b.String()
}

var ticks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the MAE column of the curve, lower is better.
func sparkline(rows []analytics.CurveRow) string {
	if len(rows) == 0 {
		return ""
	}
	lo, hi := rows[0].MAE, rows[0].MAE
	for _, r := range rows {
		lo, hi = min(lo, r.MAE), max(hi, r.MAE)
	}
	var b strings.Builder
	b.WriteString("  MAE ")
	for _, r := range rows {
		i := 0
		if hi > lo {
			i = int((r.MAE - lo) / (hi - lo) * float64(len(ticks)-1))
		}
		b.WriteRune(ticks[i])
	}
	b.WriteString("\n")
	return b.String()
}

func logBody(l *models.LearningLogResponse) string {
	var b strings.Builder
	for _, ev := range tail(l.Events, maxRows) {
		fmt.Fprintf(&b, "  #%-4d %-16s %s\n", ev.Cycle, ev.Type, ev.Description)
	}
	if b.Len() == 0 {
		return mutedStyle.Render("no learning events yet") + "\n"
	}
	return b.String()
}

func schedulerBody(v usecase.SchedulerView) string {
	var b strings.Builder
	s := v.Summary
	fmt.Fprintf(&b, "%s saved, %s, %d workloads, now %s\n", s.TotalUSD, s.VsNaive, s.WorkloadsOptimized, s.CurrentPrice)
	if v.SchedulerResponse != nil {
		for i, w := range v.Windows {
			mark := " "
			if i == s.BestWindow {
				mark = readyStyle.Render("*")
			}
			fmt.Fprintf(&b, " %s %s - %s  $%.4f  -%.1f%%\n", mark,
				w.Start.Format("Jan 2 15:04"), w.End.Format("15:04"), w.PredictedAvgPrice, w.SavingsPct)
		}
		if v.Recommendation != "" {
			fmt.Fprintf(&b, "%s\n", mutedStyle.Render(v.Recommendation))
		}
	}
	return b.String()
}

func factorsBody(fs []models.FactorDetail) string {
	var b strings.Builder
	for _, f := range tail(fs, maxRows) {
		fmt.Fprintf(&b, "  %2d. %-28s %.3f %s\n", f.ContributionRank, f.ID, f.CurrentWeight, f.Direction)
	}
	return b.String()
}

func sourcesBody(ss []models.SourceStatus) string {
	var b strings.Builder
	for _, s := range ss {
		st := readyStyle.Render(s.Status)
		switch s.Status {
		case "error":
			st = errorStyle.Render(s.Status)
		case "inactive":
			st = mutedStyle.Render(s.Status)
		}
		last := "never"
		if s.LastUpdate != nil {
			last = s.LastUpdate.Format(time.DateTime)
		}
		fmt.Fprintf(&b, "  %-20s %-10s %s\n", s.Name, st, mutedStyle.Render(last))
	}
	return b.String()
}
