// Package train encodes the feature matrix into team-season sequences and fits a recurrent win
// classifier to them.
package train

import (
	"fmt"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	G "gorgonia.org/gorgonia"

	"github.com/reallyasi9/cfb-predict/internal/config"
)

// Metrics summarise predictions over a set of sequences.
type Metrics struct {
	Loss     float64
	Accuracy float64
	Steps    int
}

// Epoch records the training metrics of one pass over the training set.
type Epoch struct {
	Epoch int
	Metrics
}

// Report is the outcome of Fit.
type Report struct {
	HoldoutYear int
	Initial     Metrics
	Epochs      []Epoch
	Test        Metrics
	Holdout     Metrics
}

// Evaluate computes the mean per-step loss and accuracy of m over seqs.
func Evaluate(m *Model, seqs []Sequence) (Metrics, error) {
	var loss float64
	var correct, steps int
	for _, s := range seqs {
		if len(s.Steps) == 0 {
			continue
		}
		l, c, err := m.score(s.Steps, false)
		if err != nil {
			return Metrics{}, fmt.Errorf("Evaluate: %s %d: %w", s.Team, s.Year, err)
		}
		loss += l * float64(len(s.Steps))
		correct += c
		steps += len(s.Steps)
	}
	if steps == 0 {
		return Metrics{}, nil
	}
	return Metrics{Loss: loss / float64(steps), Accuracy: float64(correct) / float64(steps), Steps: steps}, nil
}

// longest returns the length of the longest sequence in any of the sets.
func longest(sets ...[]Sequence) int {
	n := 0
	for _, seqs := range sets {
		for _, s := range seqs {
			if len(s.Steps) > n {
				n = len(s.Steps)
			}
		}
	}
	return n
}

// Fit trains a new model on ds.Train one sequence at a time for cfg.Epochs passes with the Adam
// optimiser, then evaluates it on the test and holdout sets.
func Fit(ds *Dataset, cfg config.Trainer, log *zap.Logger) (*Model, *Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(ds.Train) == 0 {
		return nil, nil, fmt.Errorf("Fit: %w", ErrNoData)
	}
	m, err := NewModel(ds.Vocab.Size(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("Fit: %w", err)
	}

	m.solver = G.NewAdamSolver(G.WithLearnRate(cfg.LearningRate))
	if _, err := m.unroll(longest(ds.Train, ds.Test, ds.Holdout)); err != nil {
		return nil, nil, fmt.Errorf("Fit: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := make([]int, len(ds.Train))
	for i := range order {
		order[i] = i
	}

	report := &Report{HoldoutYear: ds.HoldoutYear}
	if report.Initial, err = Evaluate(m, ds.Train); err != nil {
		return nil, nil, fmt.Errorf("Fit: %w", err)
	}
	log.Debug("initial", zap.Float64("loss", report.Initial.Loss), zap.Float64("accuracy", report.Initial.Accuracy))

	for e := 1; e <= cfg.Epochs; e++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var loss float64
		var correct, steps int
		for _, i := range order {
			seq := ds.Train[i].Steps
			if len(seq) == 0 {
				continue
			}
			l, c, err := m.score(seq, true)
			if err != nil {
				return nil, nil, fmt.Errorf("Fit: epoch %d: %w", e, err)
			}
			loss += l * float64(len(seq))
			correct += c
			steps += len(seq)
		}
		ep := Epoch{Epoch: e, Metrics: Metrics{Loss: loss / float64(steps), Accuracy: float64(correct) / float64(steps), Steps: steps}}
		report.Epochs = append(report.Epochs, ep)
		log.Info("epoch", zap.Int("epoch", e), zap.Float64("loss", ep.Loss), zap.Float64("accuracy", ep.Accuracy))
	}

	if report.Test, err = Evaluate(m, ds.Test); err != nil {
		return nil, nil, fmt.Errorf("Fit: %w", err)
	}
	if report.Holdout, err = Evaluate(m, ds.Holdout); err != nil {
		return nil, nil, fmt.Errorf("Fit: %w", err)
	}
	log.Info("test", zap.Float64("loss", report.Test.Loss), zap.Float64("accuracy", report.Test.Accuracy), zap.Int("steps", report.Test.Steps))
	log.Info("holdout", zap.Int("year", report.HoldoutYear), zap.Float64("loss", report.Holdout.Loss),
		zap.Float64("accuracy", report.Holdout.Accuracy), zap.Int("steps", report.Holdout.Steps))
	return m, report, nil
}

// History returns the per-epoch training metrics as a table.
func (r *Report) History() dataframe.DataFrame {
	epochs := make([]int, len(r.Epochs))
	losses := make([]float64, len(r.Epochs))
	accs := make([]float64, len(r.Epochs))
	for i, e := range r.Epochs {
		epochs[i] = e.Epoch
		losses[i] = e.Loss
		accs[i] = e.Accuracy
	}
	return dataframe.New(
		series.New(epochs, series.Int, "Epoch"),
		series.New(losses, series.Float, "TrainLoss"),
		series.New(accs, series.Float, "TrainAccuracy"),
	)
}
