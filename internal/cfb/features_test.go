package cfb

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func game(home, away string, hp, ap *int, dt time.Time) Game {
	return Game{Home: home, Away: away, HPoints: hp, APoints: ap, Week: 1, Year: dt.Year(), DateTime: dt}
}

// formGames is a short history for team A spanning two seasons.
func formGames() []Game {
	return []Game{
		game("A", "B", intPtr(31), intPtr(10), day(2020, 9, 5)),
		game("C", "A", intPtr(24), intPtr(17), day(2020, 10, 10)),
		game("A", "D", intPtr(42), intPtr(0), day(2021, 9, 4)),
		game("A", "E", intPtr(10), intPtr(20), day(2021, 10, 10)),
		game("A", "B", nil, nil, day(2021, 11, 1)),
	}
}

func rowFor(t *testing.T, rows []FeatureRow, team string, gameID int) FeatureRow {
	t.Helper()
	for _, r := range rows {
		if r.Team == team && r.GameID == gameID {
			return r
		}
	}
	t.Fatalf("no row for %s in game %d", team, gameID)
	return FeatureRow{}
}

func TestPerspectivesDoubling(t *testing.T) {
	games := formGames()
	tgs := Perspectives(games)
	require.Len(t, tgs, 2*len(games))

	n := len(games)
	for i := 0; i < n; i++ {
		home, away := tgs[i], tgs[i+n]
		assert.Equal(t, i, home.GameID)
		assert.Equal(t, i, away.GameID)
		assert.Equal(t, 1, home.Home)
		assert.Equal(t, 0, away.Home)
		assert.Equal(t, 1, home.Win+away.Win, "game %d", i)
		assert.Equal(t, home.Team, away.Opponent)
		assert.Equal(t, home.Points, away.OPoints)
		assert.Equal(t, home.OPoints, away.Points)
		assert.Equal(t, games[i].DateTime.YearDay(), home.DOY)
	}
	assert.Equal(t, 1, tgs[0].Win)
	assert.Equal(t, 0, tgs[3].Win)
}

func TestBuildFeaturesRolling(t *testing.T) {
	rows, dups, err := BuildFeatures(formGames(), DefaultFeatureOptions)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Zero(t, dups)

	for _, r := range rows {
		for _, p := range []*float64{r.RollWinPct, r.ORollWinPct} {
			if p != nil {
				assert.GreaterOrEqual(t, *p, 0.)
				assert.LessOrEqual(t, *p, 1.)
			}
		}
		assert.Nil(t, r.WeightedWinPct)
	}

	// a single game in the window is that game's result
	first := rowFor(t, rows, "A", 0)
	require.NotNil(t, first.RollWinPct)
	assert.Equal(t, 1., *first.RollWinPct)
	require.NotNil(t, first.ORollWinPct)
	assert.Equal(t, 0., *first.ORollWinPct)

	// A's home win over B and away loss at C share one window
	loss := rowFor(t, rows, "A", 1)
	assert.Equal(t, 0, loss.Home)
	assert.Equal(t, 0.5, *loss.RollWinPct)
	assert.Equal(t, 1., *loss.ORollWinPct)

	// 364 days after the first game, so all three count
	assert.InDelta(t, 2./3., *rowFor(t, rows, "A", 2).RollWinPct, 1e-12)

	// exactly 365 days after the loss to C, so only the last two count
	assert.Equal(t, 0.5, *rowFor(t, rows, "A", 3).RollWinPct)

	// an unplayed game adds nothing
	future := rowFor(t, rows, "A", 4)
	assert.Equal(t, 0.5, *future.RollWinPct)
	b := rowFor(t, rows, "B", 4)
	assert.Nil(t, b.RollWinPct, "B's only completed game is more than a year old")
	assert.Equal(t, 0.5, *b.ORollWinPct)
}

func TestBuildFeaturesWeighted(t *testing.T) {
	games := formGames()
	opts := DefaultFeatureOptions

	halflife := 365.
	ages := []float64{
		day(2021, 9, 4).Sub(day(2020, 9, 5)).Hours() / 24,
		day(2021, 9, 4).Sub(day(2020, 10, 10)).Hours() / 24,
		0,
	}
	wins := []float64{1, 0, 1}

	tests := []struct {
		weighting Weighting
		weight    func(age float64) float64
	}{
		{Exponential, func(age float64) float64 { return math.Exp(-age / (2 * halflife)) }},
		{Linear, func(age float64) float64 { return 1 - age/(2*halflife) }},
	}
	for _, tt := range tests {
		t.Run(tt.weighting.String(), func(t *testing.T) {
			opts.Weighting = tt.weighting
			rows, _, err := BuildFeatures(games, opts)
			require.NoError(t, err)

			var sw, swin float64
			for i, age := range ages {
				w := tt.weight(age)
				sw += w
				swin += w * wins[i]
			}
			got := rowFor(t, rows, "A", 2).WeightedWinPct
			require.NotNil(t, got)
			assert.InDelta(t, swin/sw, *got, 1e-9)
			// recent wins pull the weighted rate above the plain mean
			assert.Greater(t, *got, 2./3.)

			first := rowFor(t, rows, "A", 0)
			assert.Equal(t, 1., *first.WeightedWinPct)
			assert.Equal(t, 0., *first.OWeightedWinPct)
		})
	}
}

func TestBuildFeaturesOptions(t *testing.T) {
	_, _, err := BuildFeatures(formGames(), FeatureOptions{})
	assert.Error(t, err)
	_, _, err = BuildFeatures(formGames(), FeatureOptions{Window: time.Hour, Weighting: Linear})
	assert.Error(t, err)

	w, err := ParseWeighting("Exponential")
	require.NoError(t, err)
	assert.Equal(t, Exponential, w)
	_, err = ParseWeighting("quadratic")
	assert.Error(t, err)
}

func TestDuplicateKickoffs(t *testing.T) {
	games := []Game{
		game("A", "B", intPtr(1), intPtr(0), day(1901, 10, 5)),
		game("A", "C", intPtr(0), intPtr(1), day(1901, 10, 5)),
	}
	rows, dups, err := BuildFeatures(games, DefaultFeatureOptions)
	require.NoError(t, err)
	assert.Equal(t, 2, dups)

	// input order breaks the tie: the first game cannot see the second
	assert.Equal(t, 1., *rowFor(t, rows, "A", 0).RollWinPct)
	assert.Equal(t, 0.5, *rowFor(t, rows, "A", 1).RollWinPct)
}
