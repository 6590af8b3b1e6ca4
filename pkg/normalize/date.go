package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Brasilia time. A fixed zone avoids depending on tzdata being installed.
var BRT = time.FixedZone("BRT", -3*60*60)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var monthsPT = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})(?:[/.\-](\d{2,4}))?\b`)
	writtenDate = regexp.MustCompile(`\b(\d{1,2})\s*(?:de\s+)?([a-z]{3,9})\.?(?:\s*(?:de\s+)?,?\s*(\d{4}))?`)
	clockTime   = regexp.MustCompile(`\b(\d{1,2})\s*(?:h|:)\s*(\d{2})?\b`)
)

// ParseDate parses the date formats seen on Brazilian ticketing sites:
// ISO timestamps, "15/03/2026", "sáb, 15 de março de 2026 às 20h" and "15 MAR".
// When the year is missing the next occurrence on or after now's date is used.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if layout == time.RFC3339 {
				return t, true
			}
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, BRT), true
		}
	}

	s := Fold(raw)
	day, month, year, ok := matchDate(s)
	if !ok {
		return time.Time{}, false
	}

	hour, minute := 0, 0
	rest := numericDate.ReplaceAllString(s, " ")
	if m := clockTime.FindStringSubmatch(rest); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi := 0
		if m[2] != "" {
			mi, _ = strconv.Atoi(m[2])
		}
		if h < 24 && mi < 60 {
			hour, minute = h, mi
		}
	}

	explicitYear := year != 0
	if !explicitYear {
		year = now.In(BRT).Year()
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, BRT)
	if t.Day() != day {
		return time.Time{}, false
	}
	if !explicitYear {
		today := time.Date(now.In(BRT).Year(), now.In(BRT).Month(), now.In(BRT).Day(), 0, 0, 0, 0, BRT)
		if t.Before(today) {
			t = t.AddDate(1, 0, 0)
		}
	}
	return t, true
}

func matchDate(s string) (day int, month time.Month, year int, ok bool) {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if day >= 1 && day <= 31 && mo >= 1 && mo <= 12 {
			return day, time.Month(mo), year, true
		}
	}

	for _, m := range writtenDate.FindAllStringSubmatch(s, -1) {
		mo, found := monthsPT[m[2]]
		if !found && len(m[2]) > 3 {
			mo, found = monthsPT[m[2][:3]]
		}
		if !found {
			continue
		}
		day, _ = strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			continue
		}
		year = 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return day, mo, year, true
	}

	return 0, 0, 0, false
}
