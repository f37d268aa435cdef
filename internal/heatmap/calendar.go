package heatmap

import (
	"bytes"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCalendar means the page parsed but held no contribution cells.
var ErrNoCalendar = errors.New("heatmap: no contribution calendar in page")

const dateLayout = "2006-01-02"

// Day is one cell of the calendar.
type Day struct {
	Date  time.Time `json:"date"`
	Level int       `json:"level"`
	Count int       `json:"count"`
}

// Calendar is a year of contribution activity for one account.
type Calendar struct {
	Username  string    `json:"username"`
	Total     int       `json:"total"`
	Days      []Day     `json:"days"`
	FetchedAt time.Time `json:"fetched_at"`
}

var (
	countRe = regexp.MustCompile(`(\d[\d,]*)\s+contribution`)
	totalRe = regexp.MustCompile(`(\d[\d,]*)\s+contributions?`)
)

// Parse reads the HTML fragment GitHub serves at
// /users/<name>/contributions.
func Parse(html []byte) (Calendar, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Calendar{}, err
	}

	// Counts live in tool-tip elements linked to the cell by id.
	counts := map[string]int{}
	doc.Find("tool-tip[for]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("for")
		counts[id] = parseCount(s.Text())
	})

	var cal Calendar
	doc.Find("td.ContributionCalendar-day[data-date]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-date")
		date, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			return
		}
		level, _ := strconv.Atoi(s.AttrOr("data-level", "0"))
		if level < 0 || level >= Levels {
			level = 0
		}
		d := Day{Date: date, Level: level}
		if id, ok := s.Attr("id"); ok {
			d.Count = counts[id]
		}
		cal.Days = append(cal.Days, d)
	})
	if len(cal.Days) == 0 {
		return Calendar{}, ErrNoCalendar
	}
	sort.Slice(cal.Days, func(i, j int) bool { return cal.Days[i].Date.Before(cal.Days[j].Date) })

	heading := normSpace(doc.Find("#js-contribution-activity-description").First().Text())
	if m := totalRe.FindStringSubmatch(heading); m != nil {
		cal.Total = atoiComma(m[1])
	} else {
		for _, d := range cal.Days {
			cal.Total += d.Count
		}
	}
	return cal, nil
}

// Weeks groups days into Sunday-first columns. Missing cells are nil.
func (c Calendar) Weeks() [][7]*Day {
	if len(c.Days) == 0 {
		return nil
	}
	first := c.Days[0].Date
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var weeks [][7]*Day
	for i := range c.Days {
		d := &c.Days[i]
		col := int(d.Date.Sub(start).Hours()/24) / 7
		for len(weeks) <= col {
			weeks = append(weeks, [7]*Day{})
		}
		weeks[col][d.Date.Weekday()] = d
	}
	return weeks
}

func parseCount(s string) int {
	s = normSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "no contributions") {
		return 0
	}
	if m := countRe.FindStringSubmatch(s); m != nil {
		return atoiComma(m[1])
	}
	return 0
}

func atoiComma(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func validUsername(u string) bool {
	return strings.TrimSpace(u) != ""
}
