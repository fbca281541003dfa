package cfb

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGamesThroughRecords(t *testing.T) {
	raw := []RawGame{
		{Year: 2018, Week: "1", Date: "Sep 1, 2018", Time: "3:30 PM", Winner: "(3) Alabama", WinnerPoints: "26", Venue: "@", Loser: "Georgia", LoserPoints: "23"},
		{Year: 2018, Week: "2", Date: "Sep 8, 2018", Winner: "Georgia", Loser: "South Carolina", Notes: "postponed"},
	}
	games, err := Clean(raw, "")
	require.NoError(t, err)

	df := GamesToDataFrame(games)
	require.NoError(t, df.Err)
	assert.Equal(t, GameColumns, df.Names())

	// what a reader of a delimited file sees
	back, err := GamesFromDataFrame(dataframe.LoadRecords(df.Records()))
	require.NoError(t, err)
	assert.Equal(t, games, back)
}

func TestRawGamesWithoutOptionalColumns(t *testing.T) {
	raw := []RawGame{
		{Year: 1925, Rank: "1", Week: "1", Date: "Sep 26, 1925", Time: "", Winner: "Yale", WinnerPoints: "41", Loser: "Middlebury", LoserPoints: "0"},
	}
	df := RawGamesToDataFrame(raw)
	assert.Equal(t, RawColumns, df.Names())

	old := df.Select([]string{"Year", "Wk", "Date", "Winner", "WPts", "Loser", "LPts"})
	require.NoError(t, old.Err)
	back, err := RawGamesFromDataFrame(dataframe.LoadRecords(old.Records()))
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "", back[0].Time)
	assert.Equal(t, "41", back[0].WinnerPoints)
	assert.Equal(t, 1925, back[0].Year)

	_, err = RawGamesFromDataFrame(df.Select([]string{"Year", "Wk"}))
	assert.Error(t, err)
}

func TestFeatureRowsThroughRecords(t *testing.T) {
	opts := DefaultFeatureOptions
	opts.Weighting = Exponential
	rows, _, err := BuildFeatures(formGames(), opts)
	require.NoError(t, err)

	df := FeatureRowsToDataFrame(rows)
	require.NoError(t, df.Err)
	assert.Equal(t, FeatureColumns, df.Names())

	back, err := FeatureRowsFromDataFrame(dataframe.LoadRecords(df.Records()))
	require.NoError(t, err)
	require.Len(t, back, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].TeamGame, back[i].TeamGame)
		if rows[i].RollWinPct == nil {
			assert.Nil(t, back[i].RollWinPct)
		} else {
			assert.InDelta(t, *rows[i].RollWinPct, *back[i].RollWinPct, 1e-6)
		}
	}
}
