// Package scrape downloads season schedules from the sports-reference college football pages.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/cfb"
	"github.com/reallyasi9/cfb-predict/internal/config"
)

// ErrNotFound is returned when an expected link or table is missing from a page.
var ErrNotFound = errors.New("not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Downloader scrapes the index of seasons and each season's schedule table.
type Downloader struct {
	client *http.Client
	cfg    config.Downloader
	log    *zap.Logger
}

// NewDownloader builds a Downloader.  A nil client uses http.DefaultClient; a nil logger discards.
func NewDownloader(client *http.Client, cfg config.Downloader, log *zap.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{client: client, cfg: cfg, log: log}
}

// fetch retrieves a page and parses it.  Tables the site ships inside HTML comments are uncommented
// first so that they can be selected like any other element.
func (d *Downloader) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	d.log.Debug("fetching", zap.String("url", pageURL))
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	html := strings.NewReplacer("<!--", "", "-->", "").Replace(string(body))
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
}

// Years returns the season pages linked from the years index, keyed by season.
func (d *Downloader) Years(ctx context.Context) (map[int]string, error) {
	doc, err := d.fetch(ctx, d.cfg.YearsURL)
	if err != nil {
		return nil, fmt.Errorf("Years: %w", err)
	}

	years := make(map[int]string)
	var parseErr error
	doc.Find(`table#years th[data-stat="year_id"] a`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		year, err := strconv.Atoi(text)
		if err != nil {
			d.log.Debug("skipping non-numeric season", zap.String("text", text))
			return true
		}
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		u, err := resolve(d.cfg.YearsURL, href)
		if err != nil {
			parseErr = fmt.Errorf("season %d: %w", year, err)
			return false
		}
		years[year] = u
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("Years: %w", parseErr)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("Years: no seasons in %s: %w", d.cfg.YearsURL, ErrNotFound)
	}
	d.log.Info("found seasons", zap.Int("count", len(years)))
	return years, nil
}

// ScheduleURL finds the schedule link on a season page.
func (d *Downloader) ScheduleURL(ctx context.Context, yearURL string) (string, error) {
	doc, err := d.fetch(ctx, yearURL)
	if err != nil {
		return "", fmt.Errorf("ScheduleURL: %w", err)
	}

	var href string
	doc.Find("div#inner_nav a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != d.cfg.ScheduleLinkText {
			return true
		}
		href, _ = s.Attr("href")
		return href == ""
	})
	if href == "" {
		return "", fmt.Errorf("ScheduleURL: no %q link on %s: %w", d.cfg.ScheduleLinkText, yearURL, ErrNotFound)
	}
	return resolve(yearURL, href)
}

// Schedule scrapes the schedule table of one season.  Repeated header rows are skipped.
func (d *Downloader) Schedule(ctx context.Context, year int, scheduleURL string) ([]cfb.RawGame, error) {
	doc, err := d.fetch(ctx, scheduleURL)
	if err != nil {
		return nil, fmt.Errorf("Schedule: %w", err)
	}

	table := doc.Find("table#schedule").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("Schedule: no schedule table on %s: %w", scheduleURL, ErrNotFound)
	}

	var games []cfb.RawGame
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if class, _ := row.Attr("class"); strings.Contains(class, "thead") {
			return
		}
		cell := func(stat string) string {
			return strings.TrimSpace(row.Find(fmt.Sprintf(`[data-stat="%s"]`, stat)).First().Text())
		}
		games = append(games, cfb.RawGame{
			Year:         year,
			Rank:         cell("ranker"),
			Week:         cell("week_number"),
			Date:         cell("date_game"),
			Time:         cell("time_game"),
			Day:          cell("day_name"),
			Winner:       cell("winner_school_name"),
			WinnerPoints: cell("winner_points"),
			Venue:        cell("game_location"),
			Loser:        cell("loser_school_name"),
			LoserPoints:  cell("loser_points"),
			Notes:        cell("notes"),
		})
	})
	d.log.Info("scraped schedule", zap.Int("year", year), zap.Int("rows", len(games)))
	return games, nil
}

// Download scrapes the requested seasons, or every listed season when years is empty, in
// ascending order.
func (d *Downloader) Download(ctx context.Context, years []int) ([]cfb.RawGame, error) {
	index, err := d.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: %w", err)
	}

	if len(years) == 0 {
		for y := range index {
			years = append(years, y)
		}
	} else {
		years = append([]int(nil), years...)
	}
	sort.Ints(years)

	var all []cfb.RawGame
	for i, year := range years {
		if i > 0 && year == years[i-1] {
			continue
		}
		yearURL, ok := index[year]
		if !ok {
			return nil, fmt.Errorf("Download: season %d: %w", year, ErrNotFound)
		}
		scheduleURL, err := d.ScheduleURL(ctx, yearURL)
		if err != nil {
			return nil, fmt.Errorf("Download: season %d: %w", year, err)
		}
		games, err := d.Schedule(ctx, year, scheduleURL)
		if err != nil {
			return nil, fmt.Errorf("Download: season %d: %w", year, err)
		}
		all = append(all, games...)
	}
	return all, nil
}
