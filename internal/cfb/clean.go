package cfb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTime is the kickoff time assumed when a schedule does not print one.
const DefaultTime = "12:00 AM"

// rankingRE matches a poll ranking printed in front of a team name, like "(3) Alabama".
// Sports-reference separates the two with a non-breaking space.
var rankingRE = regexp.MustCompile(`^\((\d+)\)[\s\x{00a0}]*(.*)$`)

var dateTimeLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"Jan 2 2006 3:04 PM",
	"2006-01-02 3:04 PM",
	"2006-01-02 15:04",
}

// SplitRanking splits an optional leading poll ranking from a team name.
func SplitRanking(name string) (*int, string) {
	name = strings.TrimSpace(name)
	m := rankingRE.FindStringSubmatch(name)
	if m == nil {
		return nil, name
	}
	rank, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, name
	}
	return &rank, strings.TrimSpace(m[2])
}

// parseScore parses a final score.  Blank scores are games that have not been played.
func parseScore(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("cannot parse score %q: %w", s, err)
	}
	return &p, nil
}

// ParseDateTime combines a printed date and kickoff time.
func ParseDateTime(date, kickoff string) (time.Time, error) {
	s := strings.TrimSpace(date) + " " + strings.TrimSpace(kickoff)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date and time %q", s)
}

// Clean converts scraped schedule rows into canonical games.
// Rows with no winner (spacers and repeated headers) are dropped.
// A blank kickoff time is replaced by defaultTime, or DefaultTime if that is empty.
func Clean(raw []RawGame, defaultTime string) ([]Game, error) {
	if defaultTime == "" {
		defaultTime = DefaultTime
	}
	games := make([]Game, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Winner) == "" || r.Week == "Wk" {
			continue
		}
		g, err := cleanRow(r, defaultTime)
		if err != nil {
			return nil, fmt.Errorf("Clean: row %d (%d %s vs %s): %w", i, r.Year, r.Winner, r.Loser, err)
		}
		games = append(games, g)
	}
	return games, nil
}

func cleanRow(r RawGame, defaultTime string) (Game, error) {
	week, err := strconv.Atoi(strings.TrimSpace(r.Week))
	if err != nil {
		return Game{}, fmt.Errorf("cannot parse week %q: %w", r.Week, err)
	}

	wpts, err := parseScore(r.WinnerPoints)
	if err != nil {
		return Game{}, err
	}
	lpts, err := parseScore(r.LoserPoints)
	if err != nil {
		return Game{}, err
	}
	if wpts == nil || lpts == nil {
		wpts, lpts = nil, nil
	}

	kickoff := strings.TrimSpace(r.Time)
	if kickoff == "" {
		kickoff = defaultTime
	}
	dt, err := ParseDateTime(r.Date, kickoff)
	if err != nil {
		return Game{}, err
	}

	wrank, winner := SplitRanking(r.Winner)
	lrank, loser := SplitRanking(r.Loser)

	// The winner is at home unless the venue marker says otherwise.  Neutral sites stay as they are.
	g := Game{
		Home:     winner,
		Away:     loser,
		HPoints:  wpts,
		APoints:  lpts,
		HRanking: wrank,
		ARanking: lrank,
		Week:     week,
		Year:     r.Year,
		DateTime: dt,
		Notes:    strings.TrimSpace(r.Notes),
	}
	if ParseVenue(r.Venue) == Away {
		g.Home, g.Away = g.Away, g.Home
		g.HPoints, g.APoints = g.APoints, g.HPoints
		g.HRanking, g.ARanking = g.ARanking, g.HRanking
	}

	if wpts != nil {
		g.Spread = intPtr(*wpts - *lpts)
		g.OU = intPtr(*wpts + *lpts)
	}
	return g, nil
}
