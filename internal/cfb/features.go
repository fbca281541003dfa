package cfb

import (
	"fmt"
	"strings"
	"time"
)

// Weighting selects how games inside the trailing window are weighted by age.
type Weighting int

const (
	// Unweighted computes no weighted form.
	Unweighted Weighting = iota
	// Exponential weights a game exp(-age / (2 * halflife)).
	Exponential
	// Linear weights a game 1 - age / (2 * halflife).
	Linear
)

// ParseWeighting reads a weighting policy by name.
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return Unweighted, nil
	case "exponential", "exp":
		return Exponential, nil
	case "linear", "lin":
		return Linear, nil
	}
	return Unweighted, fmt.Errorf("weighting %q not understood", s)
}

func (w Weighting) String() string {
	switch w {
	case Exponential:
		return "exponential"
	case Linear:
		return "linear"
	default:
		return "none"
	}
}

// FeatureOptions control the trailing-window form features.
type FeatureOptions struct {
	Window    time.Duration
	Halflife  time.Duration
	Weighting Weighting
}

// DefaultFeatureOptions looks back one year with a one-year halflife and no weighted form.
var DefaultFeatureOptions = FeatureOptions{
	Window:    365 * 24 * time.Hour,
	Halflife:  365 * 24 * time.Hour,
	Weighting: Unweighted,
}

// Perspectives lists every game once from the home team's side and then once from the away team's side.
// The home side wins when it scored more points than its opponent.
func Perspectives(games []Game) []TeamGame {
	home := make([]TeamGame, len(games))
	for i, g := range games {
		tg := TeamGame{
			GameID:   i,
			Team:     g.Home,
			Opponent: g.Away,
			Points:   g.HPoints,
			OPoints:  g.APoints,
			Ranking:  g.HRanking,
			ORanking: g.ARanking,
			Week:     g.Week,
			Year:     g.Year,
			DateTime: g.DateTime,
			DOY:      g.DateTime.YearDay(),
			Home:     1,
		}
		if g.Complete() && *g.HPoints > *g.APoints {
			tg.Win = 1
		}
		home[i] = tg
	}

	out := make([]TeamGame, 0, 2*len(games))
	out = append(out, home...)
	for _, tg := range home {
		out = append(out, tg.Swap())
	}
	return out
}

// BuildFeatures turns canonical games into the feature matrix: two rows per game, each carrying
// the trailing form of the team and of its opponent as of kickoff.
// It also returns the number of rows that share a team and kickoff time with another row.
func BuildFeatures(games []Game, opts FeatureOptions) ([]FeatureRow, int, error) {
	if opts.Window <= 0 {
		return nil, 0, fmt.Errorf("BuildFeatures: window must be positive, got %v", opts.Window)
	}
	if opts.Weighting != Unweighted && opts.Halflife <= 0 {
		return nil, 0, fmt.Errorf("BuildFeatures: halflife must be positive, got %v", opts.Halflife)
	}

	// TrailingForm runs over both sides of every game, so a team's window holds its home and
	// away games alike.
	tgs := Perspectives(games)
	forms := TrailingForm(tgs, opts)

	// Each game has exactly two rows, so the opponent's form is the other row of the same game.
	byGame := make(map[int][]int, len(games))
	for i, tg := range tgs {
		byGame[tg.GameID] = append(byGame[tg.GameID], i)
	}

	out := make([]FeatureRow, len(tgs))
	for i, tg := range tgs {
		out[i] = FeatureRow{
			TeamGame:       tg,
			RollWinPct:     forms[i].Mean,
			WeightedWinPct: forms[i].Weighted,
		}
		for _, j := range byGame[tg.GameID] {
			if j != i {
				out[i].ORollWinPct = forms[j].Mean
				out[i].OWeightedWinPct = forms[j].Weighted
			}
		}
	}
	return out, DuplicateKickoffs(tgs), nil
}

// DuplicateKickoffs counts rows whose team and kickoff time are shared with another row.
func DuplicateKickoffs(tgs []TeamGame) int {
	type key struct {
		team string
		dt   int64
	}
	counts := make(map[key]int)
	for _, tg := range tgs {
		counts[key{tg.Team, tg.DateTime.UnixNano()}]++
	}
	dups := 0
	for _, n := range counts {
		if n > 1 {
			dups += n
		}
	}
	return dups
}
