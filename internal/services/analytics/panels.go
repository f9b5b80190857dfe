package analytics

import (
	"fmt"
	"sort"

	"OracleDash/internal/domain/models"
)

// SignalGroup is every signal of one source.
type SignalGroup struct {
	Source  models.SignalSource `json:"source"`
	Signals []models.Signal     `json:"signals"`
}

// GroupSignals groups by source in the canonical source order. Unknown
// sources follow, alphabetically. Order within a group is preserved and
// empty groups are omitted.
func GroupSignals(signals []models.Signal) []SignalGroup {
	bySource := make(map[models.SignalSource][]models.Signal)
	for _, s := range signals {
		bySource[s.Source] = append(bySource[s.Source], s)
	}

	out := make([]SignalGroup, 0, len(bySource))
	known := make(map[models.SignalSource]bool, len(models.SignalSources))
	for _, src := range models.SignalSources {
		known[src] = true
		if list, ok := bySource[src]; ok {
			out = append(out, SignalGroup{Source: src, Signals: list})
		}
	}
	var extra []models.SignalSource
	for src := range bySource {
		if !known[src] {
			extra = append(extra, src)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, src := range extra {
		out = append(out, SignalGroup{Source: src, Signals: bySource[src]})
	}
	return out
}

// RankFactors orders factors by contribution rank, then id.
func RankFactors(f *models.FactorsResponse) []models.FactorDetail {
	if f == nil {
		return []models.FactorDetail{}
	}
	out := append([]models.FactorDetail{}, f.Factors...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContributionRank != out[j].ContributionRank {
			return out[i].ContributionRank < out[j].ContributionRank
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SavingsSummary is the scheduler panel's headline.
type SavingsSummary struct {
	TotalUSD           string `json:"total_usd"`
	VsNaive            string `json:"vs_naive"`
	WorkloadsOptimized int    `json:"workloads_optimized"`
	CurrentPrice       string `json:"current_price"`
	Windows            int    `json:"windows"`
	// BestWindow is the index of the window with the highest savings, -1 when none.
	BestWindow int `json:"best_window"`
}

func SummarizeSavings(s *models.SchedulerResponse) SavingsSummary {
	if s == nil {
		return SavingsSummary{TotalUSD: "$0.00", VsNaive: "0% vs naive scheduling", CurrentPrice: "$0.000/hr", BestWindow: -1}
	}
	best := -1
	for i, w := range s.Windows {
		if best < 0 || w.SavingsPct > s.Windows[best].SavingsPct {
			best = i
		}
	}
	return SavingsSummary{
		TotalUSD:           fmt.Sprintf("$%.2f", s.CumulativeSavings.TotalUSD),
		VsNaive:            fmt.Sprintf("%g%% vs naive scheduling", s.CumulativeSavings.VsNaivePct),
		WorkloadsOptimized: s.CumulativeSavings.WorkloadsOptimized,
		CurrentPrice:       fmt.Sprintf("$%.3f/hr", s.CurrentPrice),
		Windows:            len(s.Windows),
		BestWindow:         best,
	}
}
