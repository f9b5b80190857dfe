package display

import (
	"fmt"
	"sort"
	"strings"

	"OracleDash/internal/usecase"
)

// RenderCycle draws the result of a manual cycle and the refresh after it.
func RenderCycle(o *usecase.CycleOutcome, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("CYCLE"))
	if o == nil || o.Result == nil {
		return panelStyle.Width(width).Render(b.String() + " " + errorStyle.Render("no result"))
	}
	r := o.Result
	fmt.Fprintf(&b, " %s\n", readyStyle.Render(fmt.Sprintf("#%d complete", r.Cycle)))
	fmt.Fprintf(&b, "prediction %s from %d signals\n", r.PredictionID, r.SignalCount)
	if r.PredictedPrice1h != nil {
		fmt.Fprintf(&b, "1h forecast $%.4f\n", *r.PredictedPrice1h)
	}
	if ev := r.Evaluation; ev != nil {
		fmt.Fprintf(&b, "evaluated %s", ev.PreviousPredictionID)
		if ev.AbsoluteError != nil {
			fmt.Fprintf(&b, ", error %.4f", *ev.AbsoluteError)
		}
		if ev.DirectionCorrect != nil {
			if *ev.DirectionCorrect {
				b.WriteString(", " + upStyle.Render("direction correct"))
			} else {
				b.WriteString(", " + downStyle.Render("direction missed"))
			}
		}
		b.WriteString("\n")
	}
	if l := r.Learning; l != nil {
		fmt.Fprintf(&b, "%d learning events", l.EventsCount)
		if l.GraphVersion != nil {
			fmt.Fprintf(&b, ", graph v%d", *l.GraphVersion)
		}
		b.WriteString("\n")
	}
	b.WriteString(refreshLine(o.Refresh))
	return panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func refreshLine(s usecase.RefreshSummary) string {
	if s.OK {
		return mutedStyle.Render(fmt.Sprintf("refreshed in %dms", s.ElapsedMS))
	}
	names := make([]string, 0, len(s.Failed))
	for name := range s.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return staleStyle.Render("refresh failed: " + strings.Join(names, ", "))
}
