package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/cfb"
	"github.com/reallyasi9/cfb-predict/internal/config"
)

// ErrNoData is returned when filtering leaves nothing to train on.
var ErrNoData = errors.New("no training data")

// Unknown is the code of every team outside the vocabulary.
const Unknown = 0

const (
	weekScale   = 20.
	marginScale = 28.
)

// Vocabulary maps team names to dense integer codes starting at 1.
type Vocabulary struct {
	names []string
	codes map[string]int
}

// NewVocabulary builds a vocabulary from the distinct names given, in sorted order.
func NewVocabulary(teams []string) *Vocabulary {
	codes := make(map[string]int)
	var names []string
	for _, t := range teams {
		if _, ok := codes[t]; ok {
			continue
		}
		codes[t] = 0
		names = append(names, t)
	}
	sort.Strings(names)
	for i, n := range names {
		codes[n] = i + 1
	}
	return &Vocabulary{names: names, codes: codes}
}

// Code returns the code of team, or Unknown.
func (v *Vocabulary) Code(team string) int {
	return v.codes[team]
}

// Team returns the name of a code, or "" for Unknown.
func (v *Vocabulary) Team(code int) string {
	if code <= 0 || code > len(v.names) {
		return ""
	}
	return v.names[code-1]
}

// Size is the number of codes, including Unknown.
func (v *Vocabulary) Size() int {
	return len(v.names) + 1
}

// Step is one game from one team's point of view, encoded for the model.
type Step struct {
	Team       int
	Opponent   int
	Week       float64
	Home       float64
	PrevMargin float64
	Win        float64
}

// Sequence is one team's season, in playing order.
type Sequence struct {
	Team  string
	Year  int
	Steps []Step
}

// Dataset is the encoded training, test, and holdout data.
type Dataset struct {
	Vocab       *Vocabulary
	Train       []Sequence
	Test        []Sequence
	Holdout     []Sequence
	HoldoutYear int
}

type season struct {
	team string
	year int
}

// Prepare filters the feature matrix and encodes it into per-season sequences.  Seasons with
// fewer than MinSeasonGames rows and years before MinYear are dropped, the most recent season is
// held out, rows without scores are dropped, and the remaining seasons are split into train and
// test sets at random.
func Prepare(rows []cfb.FeatureRow, cfg config.Trainer, log *zap.Logger) (*Dataset, error) {
	if log == nil {
		log = zap.NewNop()
	}

	counts := make(map[season]int)
	for _, r := range rows {
		counts[season{r.Team, r.Year}]++
	}
	var kept []cfb.FeatureRow
	for _, r := range rows {
		if counts[season{r.Team, r.Year}] < cfg.MinSeasonGames {
			continue
		}
		if cfg.MinYear > 0 && r.Year < cfg.MinYear {
			continue
		}
		kept = append(kept, r)
	}
	log.Info("filtered seasons", zap.Int("rows", len(rows)), zap.Int("kept", len(kept)),
		zap.Int("min_season_games", cfg.MinSeasonGames), zap.Int("min_year", cfg.MinYear))
	if len(kept) == 0 {
		return nil, fmt.Errorf("Prepare: %w", ErrNoData)
	}

	holdoutYear := kept[0].Year
	for _, r := range kept {
		if r.Year > holdoutYear {
			holdoutYear = r.Year
		}
	}

	var past, holdout []cfb.FeatureRow
	unscored := 0
	for _, r := range kept {
		if r.Points == nil || r.OPoints == nil {
			unscored++
			continue
		}
		if r.Year == holdoutYear {
			holdout = append(holdout, r)
		} else {
			past = append(past, r)
		}
	}
	log.Debug("dropped unscored rows", zap.Int("count", unscored))
	if len(past) == 0 {
		return nil, fmt.Errorf("Prepare: nothing before holdout season %d: %w", holdoutYear, ErrNoData)
	}

	teams := make([]string, len(past))
	for i, r := range past {
		teams[i] = r.Team
	}
	vocab := NewVocabulary(teams)

	train, test := split(sequences(past, vocab), cfg.TestFraction, cfg.Seed)
	ds := &Dataset{
		Vocab:       vocab,
		Train:       train,
		Test:        test,
		Holdout:     sequences(holdout, vocab),
		HoldoutYear: holdoutYear,
	}
	log.Info("prepared dataset",
		zap.Int("vocabulary", vocab.Size()),
		zap.Int("train", len(ds.Train)),
		zap.Int("test", len(ds.Test)),
		zap.Int("holdout", len(ds.Holdout)),
		zap.Int("holdout_year", holdoutYear))
	return ds, nil
}

// sequences groups rows by team and season, orders each group by week then kickoff, and returns
// the groups ordered by season then team.
func sequences(rows []cfb.FeatureRow, vocab *Vocabulary) []Sequence {
	groups := make(map[season][]cfb.FeatureRow)
	var keys []season
	for _, r := range rows {
		k := season{r.Team, r.Year}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].team < keys[j].team
	})

	seqs := make([]Sequence, len(keys))
	for i, k := range keys {
		g := groups[k]
		sort.SliceStable(g, func(a, b int) bool {
			if g[a].Week != g[b].Week {
				return g[a].Week < g[b].Week
			}
			return g[a].DateTime.Before(g[b].DateTime)
		})
		steps := make([]Step, len(g))
		prev := 0.
		for j, r := range g {
			steps[j] = Step{
				Team:       vocab.Code(r.Team),
				Opponent:   vocab.Code(r.Opponent),
				Week:       float64(r.Week) / weekScale,
				Home:       float64(r.Home),
				PrevMargin: prev,
				Win:        float64(r.Win),
			}
			prev = float64(*r.Points-*r.OPoints) / marginScale
		}
		seqs[i] = Sequence{Team: k.team, Year: k.year, Steps: steps}
	}
	return seqs
}

// split shuffles seqs with a fixed seed and returns (train, test).  At least one sequence is
// always kept for training.
func split(seqs []Sequence, testFraction float64, seed int64) ([]Sequence, []Sequence) {
	n := len(seqs)
	nTest := int(math.Round(testFraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test := make([]Sequence, 0, nTest)
	train := make([]Sequence, 0, n-nTest)
	for i, p := range perm {
		if i < nTest {
			test = append(test, seqs[p])
		} else {
			train = append(train, seqs[p])
		}
	}
	return train, test
}

// Steps counts the steps in seqs.
func Steps(seqs []Sequence) int {
	n := 0
	for _, s := range seqs {
		n += len(s.Steps)
	}
	return n
}
