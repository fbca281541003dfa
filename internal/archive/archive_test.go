package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table() dataframe.DataFrame {
	return dataframe.New(
		series.New([]interface{}{"Alabama", "Georgia", "Ohio State"}, series.String, "Team"),
		series.New([]interface{}{51, nil, 77}, series.Int, "Points"),
		series.New([]interface{}{0.5, 2. / 3., nil}, series.Float, "RollWinPct"),
	)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestHash(t *testing.T) {
	h := Hash(table())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), h)
	assert.Equal(t, h, Hash(table()))

	changed := dataframe.New(
		series.New([]interface{}{"Alabama", "Georgia", "Ohio State"}, series.String, "Team"),
		series.New([]interface{}{51, 3, 77}, series.Int, "Points"),
		series.New([]interface{}{0.5, 2. / 3., nil}, series.Float, "RollWinPct"),
	)
	assert.NotEqual(t, h, Hash(changed))

	renamed := dataframe.New(
		series.New([]interface{}{"Alabama", "Georgia", "Ohio State"}, series.String, "Team"),
		series.New([]interface{}{51, nil, 77}, series.Int, "Score"),
		series.New([]interface{}{0.5, 2. / 3., nil}, series.Float, "RollWinPct"),
	)
	assert.NotEqual(t, h, Hash(renamed))

	near := func(x float64) dataframe.DataFrame {
		return dataframe.New(series.New([]interface{}{0.5, x}, series.Float, "RollWinPct"))
	}
	assert.NotEqual(t, Hash(near(0.6666666)), Hash(near(0.6666667)))
	assert.Equal(t, Hash(near(0.6666666)), Hash(near(0.6666666)))

	missing := dataframe.New(series.New([]interface{}{0.5, nil}, series.Float, "RollWinPct"))
	assert.NotEqual(t, Hash(missing), Hash(near(0)))
}

func TestArchiveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil, nil)
	ctx := context.Background()

	paths, err := a.Archive(ctx, table(), "all_games", JSON, CSV)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	name := Name(table(), "all_games")
	assert.Equal(t, filepath.Join(dir, name+".json"), paths[0])
	assert.Equal(t, filepath.Join(dir, name+".csv"), paths[1])

	info, err := os.Stat(paths[1])
	require.NoError(t, err)

	again, err := a.Archive(ctx, table(), "all_games", JSON, CSV)
	require.NoError(t, err)
	assert.Equal(t, paths, again)
	assert.ElementsMatch(t, []string{name + ".json", name + ".csv"}, listDir(t, dir))

	info2, err := os.Stat(paths[1])
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), info2.ModTime())
}

func TestArchiveUnknownFormat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	a := New(dir, nil, nil)

	_, err := a.Archive(context.Background(), table(), "all_games", CSV, "feather")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "feather", fe.Format)
	assert.Contains(t, err.Error(), "feather")

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "nothing should be written")

	_, err = a.Archive(context.Background(), table(), "all_games", Firestore)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil, nil)
	want := table()

	paths, err := a.Archive(context.Background(), want, "feature_matrix", JSON, CSV, SQLite, Parquet)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, path := range paths {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			got, err := Read(path)
			require.NoError(t, err)
			require.Equal(t, want.Nrow(), got.Nrow())
			require.ElementsMatch(t, want.Names(), got.Names())

			assert.Equal(t, want.Col("Team").Records(), got.Col("Team").Records())

			points := got.Col("Points")
			assert.Equal(t, series.Int, points.Type())
			assert.True(t, points.Elem(1).IsNA())
			p, err := points.Elem(2).Int()
			require.NoError(t, err)
			assert.Equal(t, 77, p)

			roll := got.Col("RollWinPct")
			assert.Equal(t, series.Float, roll.Type())
			assert.InDelta(t, 2./3., roll.Elem(1).Float(), 1e-6)
			assert.True(t, roll.Elem(2).IsNA())
		})
	}
}

func TestParquetKeepsFloatBits(t *testing.T) {
	want := dataframe.New(
		series.New([]interface{}{"Alabama", "Georgia"}, series.String, "Team"),
		series.New([]interface{}{0.6666666, 0.6666667}, series.Float, "RollWinPct"),
		series.New([]interface{}{true, false}, series.Bool, "Home"),
	)
	a := New(t.TempDir(), nil, nil)
	paths, err := a.Archive(context.Background(), want, "feature_matrix", Parquet)
	require.NoError(t, err)

	got, err := Read(paths[0])
	require.NoError(t, err)
	assert.Equal(t, want.Names(), got.Names())
	assert.Equal(t, []float64{0.6666666, 0.6666667}, got.Col("RollWinPct").Float())
	assert.Equal(t, series.Bool, got.Col("Home").Type())
	assert.Equal(t, Hash(want), Hash(got))
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "table.feather"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = Read(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFirestoreRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	fs, err := NewFirestoreClient(ctx, "cfb-predict-test")
	require.NoError(t, err)
	defer fs.Close()

	a := New(t.TempDir(), fs, nil)
	paths, err := a.Archive(ctx, table(), "feature_matrix", Firestore)
	require.NoError(t, err)
	assert.Equal(t, []string{Collection + "/" + Name(table(), "feature_matrix")}, paths)

	got, err := ReadFirestore(ctx, fs, Name(table(), "feature_matrix"))
	require.NoError(t, err)
	assert.Equal(t, table().Names(), got.Names())
	assert.Equal(t, Hash(table()), Hash(got))
}
