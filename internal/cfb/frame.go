package cfb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names of the archived tables.
var (
	RawColumns     = []string{"Year", "Rk", "Wk", "Date", "Time", "Day", "Winner", "WPts", "Venue", "Loser", "LPts", "Notes"}
	GameColumns    = []string{"Home", "Away", "HPoints", "APoints", "HRanking", "ARanking", "Week", "Year", "DateTime", "Spread", "OU", "Notes"}
	FeatureColumns = []string{"GameID", "Team", "Opponent", "Points", "OPoints", "Ranking", "ORanking", "Week", "Year", "DateTime", "DOY", "Home", "Win",
		"RollWinPct", "ORollWinPct", "WeightedWinPct", "OWeightedWinPct"}
)

// optionalRawColumns may be missing from older schedules.
var optionalRawColumns = map[string]bool{"Rk": true, "Time": true, "Day": true, "Venue": true, "Notes": true}

// RawGamesToDataFrame lays out scraped rows as a table.
func RawGamesToDataFrame(raw []RawGame) dataframe.DataFrame {
	n := len(raw)
	years := make([]int, n)
	cols := make([][]string, len(RawColumns)-1)
	for i := range cols {
		cols[i] = make([]string, n)
	}
	for i, r := range raw {
		years[i] = r.Year
		for j, v := range []string{r.Rank, r.Week, r.Date, r.Time, r.Day, r.Winner, r.WinnerPoints, r.Venue, r.Loser, r.LoserPoints, r.Notes} {
			cols[j][i] = v
		}
	}
	ss := []series.Series{series.New(years, series.Int, "Year")}
	for j, name := range RawColumns[1:] {
		ss = append(ss, series.New(cols[j], series.String, name))
	}
	return dataframe.New(ss...)
}

// RawGamesFromDataFrame reads scraped rows back from a table.  Columns that older schedules
// do not print are left blank when missing.
func RawGamesFromDataFrame(df dataframe.DataFrame) ([]RawGame, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("RawGamesFromDataFrame: %w", df.Err)
	}
	years, err := intCol(df, "Year")
	if err != nil {
		return nil, fmt.Errorf("RawGamesFromDataFrame: %w", err)
	}
	cols := make(map[string][]string)
	for _, name := range RawColumns[1:] {
		c, err := stringCol(df, name)
		if err != nil {
			if optionalRawColumns[name] {
				c = make([]string, df.Nrow())
			} else {
				return nil, fmt.Errorf("RawGamesFromDataFrame: %w", err)
			}
		}
		cols[name] = c
	}

	out := make([]RawGame, df.Nrow())
	for i := range out {
		if years[i] == nil {
			return nil, fmt.Errorf("RawGamesFromDataFrame: row %d has no year", i)
		}
		out[i] = RawGame{
			Year:         *years[i],
			Rank:         cols["Rk"][i],
			Week:         cols["Wk"][i],
			Date:         cols["Date"][i],
			Time:         cols["Time"][i],
			Day:          cols["Day"][i],
			Winner:       cols["Winner"][i],
			WinnerPoints: cols["WPts"][i],
			Venue:        cols["Venue"][i],
			Loser:        cols["Loser"][i],
			LoserPoints:  cols["LPts"][i],
			Notes:        cols["Notes"][i],
		}
	}
	return out, nil
}

// GamesToDataFrame lays out canonical games as a table.
func GamesToDataFrame(games []Game) dataframe.DataFrame {
	n := len(games)
	home, away, notes, dts := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	hp, ap, hr, ar, spread, ou := make([]*int, n), make([]*int, n), make([]*int, n), make([]*int, n), make([]*int, n), make([]*int, n)
	week, year := make([]int, n), make([]int, n)
	for i, g := range games {
		home[i], away[i], notes[i] = g.Home, g.Away, g.Notes
		hp[i], ap[i], hr[i], ar[i] = g.HPoints, g.APoints, g.HRanking, g.ARanking
		spread[i], ou[i] = g.Spread, g.OU
		week[i], year[i] = g.Week, g.Year
		dts[i] = g.DateTime.Format(time.RFC3339)
	}
	return dataframe.New(
		series.New(home, series.String, "Home"),
		series.New(away, series.String, "Away"),
		nullableInts(hp, "HPoints"),
		nullableInts(ap, "APoints"),
		nullableInts(hr, "HRanking"),
		nullableInts(ar, "ARanking"),
		series.New(week, series.Int, "Week"),
		series.New(year, series.Int, "Year"),
		series.New(dts, series.String, "DateTime"),
		nullableInts(spread, "Spread"),
		nullableInts(ou, "OU"),
		series.New(notes, series.String, "Notes"),
	)
}

// GamesFromDataFrame reads canonical games back from a table.
func GamesFromDataFrame(df dataframe.DataFrame) ([]Game, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("GamesFromDataFrame: %w", df.Err)
	}
	var (
		home, away, notes                  []string
		hp, ap, hr, ar, spread, ou, wk, yr []*int
		dts                                []time.Time
	)
	err := firstErr(
		func() (err error) { home, err = stringCol(df, "Home"); return },
		func() (err error) { away, err = stringCol(df, "Away"); return },
		func() (err error) { hp, err = intCol(df, "HPoints"); return },
		func() (err error) { ap, err = intCol(df, "APoints"); return },
		func() (err error) { hr, err = intCol(df, "HRanking"); return },
		func() (err error) { ar, err = intCol(df, "ARanking"); return },
		func() (err error) { wk, err = intCol(df, "Week"); return },
		func() (err error) { yr, err = intCol(df, "Year"); return },
		func() (err error) { dts, err = timeCol(df, "DateTime"); return },
		func() (err error) { spread, err = intCol(df, "Spread"); return },
		func() (err error) { ou, err = intCol(df, "OU"); return },
	)
	if err != nil {
		return nil, fmt.Errorf("GamesFromDataFrame: %w", err)
	}
	if notes, err = stringCol(df, "Notes"); err != nil {
		notes = make([]string, df.Nrow())
	}

	out := make([]Game, df.Nrow())
	for i := range out {
		out[i] = Game{
			Home:     home[i],
			Away:     away[i],
			HPoints:  hp[i],
			APoints:  ap[i],
			HRanking: hr[i],
			ARanking: ar[i],
			Week:     deref(wk[i]),
			Year:     deref(yr[i]),
			DateTime: dts[i],
			Spread:   spread[i],
			OU:       ou[i],
			Notes:    notes[i],
		}
	}
	return out, nil
}

// FeatureRowsToDataFrame lays out the feature matrix as a table.
func FeatureRowsToDataFrame(rows []FeatureRow) dataframe.DataFrame {
	n := len(rows)
	team, opp, dts := make([]string, n), make([]string, n), make([]string, n)
	id, week, year, doy, home, win := make([]int, n), make([]int, n), make([]int, n), make([]int, n), make([]int, n), make([]int, n)
	pts, opts, rank, orank := make([]*int, n), make([]*int, n), make([]*int, n), make([]*int, n)
	roll, oroll, wt, owt := make([]*float64, n), make([]*float64, n), make([]*float64, n), make([]*float64, n)
	for i, r := range rows {
		id[i], team[i], opp[i] = r.GameID, r.Team, r.Opponent
		pts[i], opts[i], rank[i], orank[i] = r.Points, r.OPoints, r.Ranking, r.ORanking
		week[i], year[i], doy[i], home[i], win[i] = r.Week, r.Year, r.DOY, r.Home, r.Win
		dts[i] = r.DateTime.Format(time.RFC3339)
		roll[i], oroll[i], wt[i], owt[i] = r.RollWinPct, r.ORollWinPct, r.WeightedWinPct, r.OWeightedWinPct
	}
	return dataframe.New(
		series.New(id, series.Int, "GameID"),
		series.New(team, series.String, "Team"),
		series.New(opp, series.String, "Opponent"),
		nullableInts(pts, "Points"),
		nullableInts(opts, "OPoints"),
		nullableInts(rank, "Ranking"),
		nullableInts(orank, "ORanking"),
		series.New(week, series.Int, "Week"),
		series.New(year, series.Int, "Year"),
		series.New(dts, series.String, "DateTime"),
		series.New(doy, series.Int, "DOY"),
		series.New(home, series.Int, "Home"),
		series.New(win, series.Int, "Win"),
		nullableFloats(roll, "RollWinPct"),
		nullableFloats(oroll, "ORollWinPct"),
		nullableFloats(wt, "WeightedWinPct"),
		nullableFloats(owt, "OWeightedWinPct"),
	)
}

// FeatureRowsFromDataFrame reads the feature matrix back from a table.
func FeatureRowsFromDataFrame(df dataframe.DataFrame) ([]FeatureRow, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("FeatureRowsFromDataFrame: %w", df.Err)
	}
	var (
		team, opp                               []string
		id, pts, opts, rank, orank, wk, yr, doy []*int
		home, win                               []*int
		roll, oroll, wt, owt                    []*float64
		dts                                     []time.Time
	)
	err := firstErr(
		func() (err error) { id, err = intCol(df, "GameID"); return },
		func() (err error) { team, err = stringCol(df, "Team"); return },
		func() (err error) { opp, err = stringCol(df, "Opponent"); return },
		func() (err error) { pts, err = intCol(df, "Points"); return },
		func() (err error) { opts, err = intCol(df, "OPoints"); return },
		func() (err error) { rank, err = intCol(df, "Ranking"); return },
		func() (err error) { orank, err = intCol(df, "ORanking"); return },
		func() (err error) { wk, err = intCol(df, "Week"); return },
		func() (err error) { yr, err = intCol(df, "Year"); return },
		func() (err error) { dts, err = timeCol(df, "DateTime"); return },
		func() (err error) { doy, err = intCol(df, "DOY"); return },
		func() (err error) { home, err = intCol(df, "Home"); return },
		func() (err error) { win, err = intCol(df, "Win"); return },
		func() (err error) { roll, err = floatCol(df, "RollWinPct"); return },
		func() (err error) { oroll, err = floatCol(df, "ORollWinPct"); return },
		func() (err error) { wt, err = floatCol(df, "WeightedWinPct"); return },
		func() (err error) { owt, err = floatCol(df, "OWeightedWinPct"); return },
	)
	if err != nil {
		return nil, fmt.Errorf("FeatureRowsFromDataFrame: %w", err)
	}

	out := make([]FeatureRow, df.Nrow())
	for i := range out {
		out[i] = FeatureRow{
			TeamGame: TeamGame{
				GameID:   deref(id[i]),
				Team:     team[i],
				Opponent: opp[i],
				Points:   pts[i],
				OPoints:  opts[i],
				Ranking:  rank[i],
				ORanking: orank[i],
				Week:     deref(wk[i]),
				Year:     deref(yr[i]),
				DateTime: dts[i],
				DOY:      deref(doy[i]),
				Home:     deref(home[i]),
				Win:      deref(win[i]),
			},
			RollWinPct:      roll[i],
			ORollWinPct:     oroll[i],
			WeightedWinPct:  wt[i],
			OWeightedWinPct: owt[i],
		}
	}
	return out, nil
}

func nullableInts(vals []*int, name string) series.Series {
	elems := make([]interface{}, len(vals))
	for i, v := range vals {
		if v != nil {
			elems[i] = *v
		}
	}
	return series.New(elems, series.Int, name)
}

func nullableFloats(vals []*float64, name string) series.Series {
	elems := make([]interface{}, len(vals))
	for i, v := range vals {
		if v != nil {
			elems[i] = *v
		}
	}
	return series.New(elems, series.Float, name)
}

func column(df dataframe.DataFrame, name string) (series.Series, error) {
	s := df.Col(name)
	if s.Err != nil {
		return s, fmt.Errorf("column %q: %w", name, s.Err)
	}
	return s, nil
}

func stringCol(df dataframe.DataFrame, name string) ([]string, error) {
	s, err := column(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, s.Len())
	for i := range out {
		e := s.Elem(i)
		switch {
		case e.IsNA():
		case s.Type() == series.Float:
			out[i] = strconv.FormatFloat(e.Float(), 'f', -1, 64)
		default:
			out[i] = e.String()
		}
	}
	return out, nil
}

func intCol(df dataframe.DataFrame, name string) ([]*int, error) {
	s, err := column(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]*int, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		if s.Type() == series.String && strings.TrimSpace(e.String()) == "" {
			continue
		}
		v, err := e.Int()
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = &v
	}
	return out, nil
}

func floatCol(df dataframe.DataFrame, name string) ([]*float64, error) {
	s, err := column(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]*float64, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		if s.Type() == series.String {
			str := strings.TrimSpace(e.String())
			if str == "" {
				continue
			}
			v, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			out[i] = &v
			continue
		}
		v := e.Float()
		out[i] = &v
	}
	return out, nil
}

func timeCol(df dataframe.DataFrame, name string) ([]time.Time, error) {
	strs, err := stringCol(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(strs))
	for i, s := range strs {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = t
	}
	return out, nil
}

func firstErr(fns ...func() error) error {
	for _, fn := range fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func deref(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
