package main

import (
	"math"
	"sort"

	"github.com/filomancini00/blackjack-bible/server/store"
)

type AdvisorStat struct {
	Advisor  string  `json:"advisor"`
	Good     int     `json:"agreed"`
	Total    int     `json:"graded"`
	Accuracy float64 `json:"accuracy"`
	Low      float64 `json:"ci95_low"`
	High     float64 `json:"ci95_high"`
}

// WilsonCI95 for a Bernoulli agreement rate.
func WilsonCI95(good, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := float64(good) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return math.Max(0, (center-half)/den), math.Min(1, (center+half)/den)
}

func advisorStats(acc map[string]store.JudgeAccuracy) []AdvisorStat {
	out := make([]AdvisorStat, 0, len(acc))
	for name, a := range acc {
		lo, hi := WilsonCI95(a.Good, a.Total)
		out = append(out, AdvisorStat{Advisor: name, Good: a.Good, Total: a.Total, Accuracy: a.Ratio(), Low: lo, High: hi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Advisor < out[j].Advisor })
	return out
}
