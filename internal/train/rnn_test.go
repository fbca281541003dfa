package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"

	"github.com/reallyasi9/cfb-predict/internal/config"
)

func smallConfig() config.Trainer {
	cfg := config.Default().Trainer
	cfg.EmbeddingSize = 2
	cfg.HiddenSize = 3
	cfg.Layers = 2
	return cfg
}

func smallSequence() []Step {
	return []Step{
		{Team: 1, Opponent: 2, Week: .05, Home: 1, PrevMargin: 0, Win: 1},
		{Team: 1, Opponent: 3, Week: .1, Home: 0, PrevMargin: .5, Win: 0},
		{Team: 1, Opponent: Unknown, Week: .15, Home: 1, PrevMargin: -.25, Win: 1},
		{Team: 1, Opponent: 2, Week: .2, Home: 0, PrevMargin: .75, Win: 1},
	}
}

func TestTrainingStepsReduceLoss(t *testing.T) {
	m, err := NewModel(4, smallConfig())
	require.NoError(t, err)
	m.solver = G.NewAdamSolver(G.WithLearnRate(.01))
	seq := smallSequence()

	before, _, err := m.score(seq, false)
	require.NoError(t, err)
	again, _, err := m.score(seq, false)
	require.NoError(t, err)
	assert.Equal(t, before, again, "evaluation leaves the weights alone")

	for i := 0; i < 50; i++ {
		_, _, err := m.score(seq, true)
		require.NoError(t, err)
	}
	after, _, err := m.score(seq, false)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

func TestLongerSequenceKeepsWeights(t *testing.T) {
	m, err := NewModel(4, smallConfig())
	require.NoError(t, err)
	m.solver = G.NewAdamSolver(G.WithLearnRate(.01))
	seq := smallSequence()
	for i := 0; i < 20; i++ {
		_, _, err := m.score(seq, true)
		require.NoError(t, err)
	}
	short, err := m.Predict(seq[:2])
	require.NoError(t, err)

	long, err := m.Predict(append(seq, seq...))
	require.NoError(t, err)
	require.Len(t, long, 2*len(seq))
	assert.Equal(t, 2*len(seq), m.net.steps)

	// later steps cannot change earlier predictions
	again, err := m.Predict(seq[:2])
	require.NoError(t, err)
	assert.InDeltaSlice(t, short, again, 1e-12)
	assert.InDeltaSlice(t, short, long[:2], 1e-12)
}

func TestPredict(t *testing.T) {
	m, err := NewModel(4, smallConfig())
	require.NoError(t, err)
	p, err := m.Predict(smallSequence())
	require.NoError(t, err)
	require.Len(t, p, 4)
	for _, x := range p {
		assert.True(t, x > 0 && x < 1, "probability %g", x)
	}
	p, err = m.Predict(nil)
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = m.Predict(smallSequence()[:1])
	require.NoError(t, err)
	assert.Len(t, p, 1)
}

func TestNewModelErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.HiddenSize = 0
	_, err := NewModel(4, cfg)
	assert.Error(t, err)

	_, err = NewModel(0, smallConfig())
	assert.Error(t, err)
}
