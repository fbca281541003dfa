package cfb

import (
	"fmt"
	"strings"
	"time"
)

// RelativeLocation describes where a game was played relative to the winning team's home field.
type RelativeLocation int

const (
	// Home is the winner's home field.
	Home RelativeLocation = 1

	// Neutral is a neutral site.
	Neutral RelativeLocation = 0

	// Away is the loser's home field.
	Away RelativeLocation = -1
)

func (l RelativeLocation) String() string {
	switch l {
	case Home:
		return "home"
	case Away:
		return "away"
	default:
		return "neutral"
	}
}

// ParseVenue reads the venue marker printed between the winner and loser columns of a schedule.
// Note: this is relative to the winner, not the loser.
func ParseVenue(marker string) RelativeLocation {
	switch strings.TrimSpace(marker) {
	case "@":
		return Away
	case "N":
		return Neutral
	default:
		return Home
	}
}

// RawGame is one row of a scraped schedule table.  Everything but the year is kept as printed.
type RawGame struct {
	Year         int
	Rank         string
	Week         string
	Date         string
	Time         string
	Day          string
	Winner       string
	WinnerPoints string
	Venue        string
	Loser        string
	LoserPoints  string
	Notes        string
}

// Game is a canonical game with home and away teams resolved.
// Points, rankings, spread and over/under are nil when unknown.
type Game struct {
	Home     string
	Away     string
	HPoints  *int
	APoints  *int
	HRanking *int
	ARanking *int
	Week     int
	Year     int
	DateTime time.Time
	Spread   *int
	OU       *int
	Notes    string
}

// Complete reports whether the game has a final score.
func (g Game) Complete() bool {
	return g.HPoints != nil && g.APoints != nil
}

func (g Game) String() string {
	return fmt.Sprintf("%d wk %d %s: %s %s @ %s %s", g.Year, g.Week, g.DateTime.Format("2006-01-02"),
		g.Away, fmtInt(g.APoints), g.Home, fmtInt(g.HPoints))
}

// TeamGame is one game seen from one team's side.  Every Game produces two of these.
type TeamGame struct {
	GameID   int
	Team     string
	Opponent string
	Points   *int
	OPoints  *int
	Ranking  *int
	ORanking *int
	Week     int
	Year     int
	DateTime time.Time
	DOY      int
	Home     int
	Win      int
}

// Complete reports whether the game has a final score.
func (tg TeamGame) Complete() bool {
	return tg.Points != nil && tg.OPoints != nil
}

// Swap returns the same game from the opponent's side.
func (tg TeamGame) Swap() TeamGame {
	out := tg
	out.Team, out.Opponent = tg.Opponent, tg.Team
	out.Points, out.OPoints = tg.OPoints, tg.Points
	out.Ranking, out.ORanking = tg.ORanking, tg.Ranking
	out.Home = 1 - tg.Home
	out.Win = 1 - tg.Win
	return out
}

// FeatureRow is a TeamGame with trailing-window form for the team and its opponent.
type FeatureRow struct {
	TeamGame
	RollWinPct      *float64
	ORollWinPct     *float64
	WeightedWinPct  *float64
	OWeightedWinPct *float64
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func fmtInt(i *int) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *i)
}
