package cfb

import (
	"math"
	"sort"
	"time"
)

// Form is a team's record over the trailing window ending at one game.  Nil means no completed
// game fell inside the window.
type Form struct {
	Mean     *float64
	Weighted *float64
}

// TrailingForm computes, for every row, the team's win rate over games kicking off in
// (t - window, t], where t is the row's kickoff.  Rows are grouped by team and walked in kickoff
// order; rows sharing a kickoff keep their input order, and a row only sees the rows before it.
// Games without a final score are skipped.
func TrailingForm(tgs []TeamGame, opts FeatureOptions) []Form {
	byTeam := make(map[string][]int)
	for i, tg := range tgs {
		byTeam[tg.Team] = append(byTeam[tg.Team], i)
	}

	out := make([]Form, len(tgs))
	for _, idx := range byTeam {
		sort.SliceStable(idx, func(a, b int) bool {
			return tgs[idx[a]].DateTime.Before(tgs[idx[b]].DateTime)
		})

		// prefix counts of completed games and wins
		played := make([]int, len(idx)+1)
		won := make([]int, len(idx)+1)
		for k, i := range idx {
			played[k+1] = played[k]
			won[k+1] = won[k]
			if tgs[i].Complete() {
				played[k+1]++
				won[k+1] += tgs[i].Win
			}
		}

		lo := 0
		for k, i := range idx {
			start := tgs[i].DateTime.Add(-opts.Window)
			for !tgs[idx[lo]].DateTime.After(start) {
				lo++
			}
			n := played[k+1] - played[lo]
			if n == 0 {
				continue
			}
			out[i].Mean = floatPtr(float64(won[k+1]-won[lo]) / float64(n))
			if opts.Weighting != Unweighted {
				out[i].Weighted = weightedWinPct(tgs, idx[lo:k+1], tgs[i].DateTime, opts)
			}
		}
	}
	return out
}

func weightedWinPct(tgs []TeamGame, window []int, end time.Time, opts FeatureOptions) *float64 {
	var sw, swin float64
	for _, j := range window {
		if !tgs[j].Complete() {
			continue
		}
		age := float64(end.Sub(tgs[j].DateTime)) / float64(2*opts.Halflife)
		var w float64
		switch opts.Weighting {
		case Exponential:
			w = math.Exp(-age)
		case Linear:
			w = math.Max(0, 1-age)
		}
		sw += w
		swin += w * float64(tgs[j].Win)
	}
	if sw == 0 {
		return nil
	}
	return floatPtr(swin / sw)
}
