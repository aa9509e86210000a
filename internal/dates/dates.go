// Package dates parses the date notations found in POS notifications and
// formats dates for storage and display.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the business timezone used when none is configured.
const DefaultTimezone = "America/Bogota"

// Tables holds the month vocabulary used for parsing and display.
type Tables struct {
	// Months maps lower-case month names and abbreviations to months.
	Months map[string]time.Month
	// Display holds the three-letter abbreviation rendered for each month.
	Display [12]string
}

// DefaultTables returns the Spanish month tables. English three-letter
// abbreviations are accepted as well because some POS exports use them.
func DefaultTables() Tables {
	months := map[string]time.Month{
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"setiembre": time.September, "octubre": time.October,
		"noviembre": time.November, "diciembre": time.December,

		"ene": time.January, "abr": time.April, "ago": time.August, "dic": time.December,

		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}
	return Tables{
		Months:  months,
		Display: [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"},
	}
}

var (
	posPattern = regexp.MustCompile(`(?i)(\d{1,2})\s+(\pL+)\s+(\d{4})\s*,?\s*(\d{1,2}):(\d{2}):(\d{2})\s*(am|pm)?`)
	dmyPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Parser converts date strings into times in the business location.
type Parser struct {
	tables Tables
	loc    *time.Location
}

// NewParser creates a parser. A nil location means UTC.
func NewParser(tables Tables, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{tables: tables, loc: loc}
}

// Location returns the location parsed times are expressed in.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse recognizes, in order, the POS timestamp "9 febrero 2026, 10:15:00 pm",
// "DD/MM/YYYY" (or with dashes) and "YYYY-MM-DD". It reports false when none
// matches or the date does not exist.
func (p *Parser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := posPattern.FindStringSubmatch(s); m != nil {
		month, ok := p.month(m[2])
		if !ok {
			return time.Time{}, false
		}
		hour := atoi(m[4])
		switch strings.ToLower(m[7]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		return p.build(atoi(m[3]), month, atoi(m[1]), hour, atoi(m[5]), atoi(m[6]))
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		return p.build(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1]), 0, 0, 0)
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return p.build(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), 0, 0, 0)
	}

	return time.Time{}, false
}

func (p *Parser) month(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if m, ok := p.tables.Months[name]; ok {
		return m, true
	}
	runes := []rune(name)
	if len(runes) >= 3 {
		if m, ok := p.tables.Months[string(runes[:3])]; ok {
			return m, true
		}
	}
	return 0, false
}

func (p *Parser) build(year int, month time.Month, day, hour, minute, sec int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, sec, 0, p.loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// FormatISO renders t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDisplay renders t as DD-mon-YYYY using the given tables.
func (tb Tables) FormatDisplay(t time.Time) string {
	return fmt.Sprintf("%02d-%s-%d", t.Day(), tb.Display[t.Month()-1], t.Year())
}

// FormatDisplay renders t as DD-mon-YYYY with Spanish month abbreviations.
func FormatDisplay(t time.Time) string {
	return DefaultTables().FormatDisplay(t)
}

// DisplayFromISO converts a stored YYYY-MM-DD date to its display form,
// returning the input unchanged when it is not an ISO date.
func DisplayFromISO(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return FormatDisplay(t)
}

// Clock supplies the current date in the business location.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock loads the named timezone and returns a clock backed by time.Now.
func NewClock(timezone string) (Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Clock{}, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}
	return Clock{Location: loc, Now: time.Now}, nil
}

// Today returns the current time in the clock's location.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// TodayISO returns today's date as YYYY-MM-DD.
func (c Clock) TodayISO() string {
	return FormatISO(c.Today())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
