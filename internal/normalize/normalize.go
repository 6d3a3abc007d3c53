// Package normalize turns the amount and date tokens found in statement
// text into canonical values. Every function here is pure and never fails
// loudly: bad input yields a zero value, and callers that need to be strict
// validate the token shape with a regexp first.
package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer(
	"$", "",
	"£", "",
	"€", "",
	",", "",
	" ", "",
	"\u00a0", "",
	"(", "",
	")", "",
)

// ParseAmount converts a token like "$1,368.47" to 1368.47. Parentheses are
// stripped and the magnitude returned: whether "(500.00)" means a negative
// balance is a decision for ParseSignedBalance, not for plain amounts.
// A leading or trailing minus is kept. Empty or non-numeric input yields 0.
func ParseAmount(token string) float64 {
	s := amountReplacer.Replace(strings.TrimSpace(token))
	negative := false
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64()
}

var crdrSuffix = regexp.MustCompile(`(?i)\s*\b(CR|DR)\.?$`)

// ParseSignedBalance reads a balance the way statements print them:
// parentheses, a DR suffix or a minus sign mean negative; CR means positive.
// ok is false when no number could be read.
func ParseSignedBalance(token string) (value float64, ok bool) {
	s := strings.TrimSpace(token)
	negative := false
	if m := crdrSuffix.FindStringSubmatch(s); m != nil {
		negative = strings.EqualFold(m[1], "DR")
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	if strings.HasPrefix(s, "(") || strings.HasSuffix(s, ")") {
		negative = true
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "$-") || strings.HasSuffix(s, "-") {
		negative = true
	}
	clean := strings.Trim(amountReplacer.Replace(s), "-+")
	if clean == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, false
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), true
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// MonthFromName maps "Jan", "january" or "SEPT" to a month.
func MonthFromName(name string) (time.Month, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[name[:3]]
	return m, ok
}

var (
	numericDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?$`)
	isoDate     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthFirst  = regexp.MustCompile(`(?i)^([a-z]{3,9})\.?\s*(\d{1,2})(?:,?\s+(\d{4}|\d{2}))?$`)
	dayFirst    = regexp.MustCompile(`(?i)^(\d{1,2})[\s-]*([a-z]{3,9})\.?(?:[\s,-]+(\d{4}|\d{2}))?$`)
)

// ParseDate converts MM/DD, MM/DD/YY, MM/DD/YYYY, YYYY-MM-DD and
// three-letter-month forms ("Jan 5", "Jan05, 2024", "5 Jan 24") to
// YYYY-MM-DD. A date without a year is given fallbackYear.
func ParseDate(token string, fallbackYear int) (string, bool) {
	s := strings.TrimSpace(token)
	var (
		year, day int
		month     time.Month
		yearText  string
	)
	switch {
	case numericDate.MatchString(s):
		m := numericDate.FindStringSubmatch(s)
		mm, _ := strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		month = time.Month(mm)
		yearText = m[3]
	case isoDate.MatchString(s):
		m := isoDate.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
		month = time.Month(mm)
	case monthFirst.MatchString(s):
		m := monthFirst.FindStringSubmatch(s)
		mon, ok := MonthFromName(m[1])
		if !ok {
			return "", false
		}
		month = mon
		day, _ = strconv.Atoi(m[2])
		yearText = m[3]
	case dayFirst.MatchString(s):
		m := dayFirst.FindStringSubmatch(s)
		mon, ok := MonthFromName(m[2])
		if !ok {
			return "", false
		}
		month = mon
		day, _ = strconv.Atoi(m[1])
		yearText = m[3]
	default:
		return "", false
	}

	if year == 0 {
		switch len(yearText) {
		case 0:
			year = fallbackYear
		case 2:
			yy, _ := strconv.Atoi(yearText)
			year = 2000 + yy
		default:
			year, _ = strconv.Atoi(yearText)
		}
	}
	return FormatDate(year, month, day)
}

// FormatDate validates and formats a calendar date.
func FormatDate(year int, month time.Month, day int) (string, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 || year < 1 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false // Feb 30 and friends
	}
	return t.Format("2006-01-02"), true
}

var (
	slashYear4 = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/(\d{4})\b`)
	slashYear2 = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/(\d{2})\b`)
	digitRun   = regexp.MustCompile(`\d+`)
)

// DetectStatementYear guesses the statement year from its text.
func DetectStatementYear(text string) int {
	return detectYear(text, time.Now())
}

func detectYear(text string, now time.Time) int {
	maxYear := now.Year() + 1

	counts := map[int]int{}
	for _, m := range slashYear4.FindAllStringSubmatch(text, -1) {
		if y, _ := strconv.Atoi(m[1]); y >= 1990 && y <= maxYear {
			counts[y]++
		}
	}
	if y, ok := mostFrequent(counts); ok {
		return y
	}

	counts = map[int]int{}
	for _, m := range slashYear2.FindAllStringSubmatch(text, -1) {
		if y, _ := strconv.Atoi(m[1]); 2000+y <= maxYear {
			counts[2000+y]++
		}
	}
	if y, ok := mostFrequent(counts); ok {
		return y
	}

	// Free-standing years only: "2024" but not "92024" (zip code),
	// "2024-0001" (account number) or "1,2024".
	counts = map[int]int{}
	for _, loc := range digitRun.FindAllStringIndex(text, -1) {
		if loc[1]-loc[0] != 4 {
			continue
		}
		if loc[0] > 0 && isYearNeighbour(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isYearNeighbour(text[loc[1]]) {
			continue
		}
		if y, _ := strconv.Atoi(text[loc[0]:loc[1]]); y >= 1990 && y <= maxYear {
			counts[y]++
		}
	}
	if y, ok := mostFrequent(counts); ok {
		return y
	}
	return now.Year()
}

func isYearNeighbour(c byte) bool {
	return (c >= '0' && c <= '9') || c == '/' || c == '-' || c == '.' || c == ','
}

// mostFrequent picks the key with the highest count; ties go to the later year.
func mostFrequent(counts map[int]int) (int, bool) {
	if len(counts) == 0 {
		return 0, false
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] >= counts[best] {
			best = k
		}
	}
	return best, true
}

var monthDay = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)

// DominantMonth returns the month that appears most often in MM/DD dates,
// or 0 when the text has none.
func DominantMonth(text string) time.Month {
	counts := map[int]int{}
	for _, m := range monthDay.FindAllStringSubmatch(text, -1) {
		mm, _ := strconv.Atoi(m[1])
		dd, _ := strconv.Atoi(m[2])
		if mm >= 1 && mm <= 12 && dd >= 1 && dd <= 31 {
			counts[mm]++
		}
	}
	m, ok := mostFrequent(counts)
	if !ok {
		return 0
	}
	return time.Month(m)
}

var (
	slashFullDate = regexp.MustCompile(`\b(\d{1,2})/\d{1,2}/(\d{4}|\d{2})\b`)
	namedFullDate = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+\d{1,2},?\s+(\d{4})\b`)
)

// YearOfMonth returns the year printed most often on full dates that fall
// in month, such as the "12/15/2024" of a "12/15/2024 - 01/14/2025" period.
// ok is false when no full date carries that month.
func YearOfMonth(text string, month time.Month) (int, bool) {
	return yearOfMonth(text, month, time.Now())
}

func yearOfMonth(text string, month time.Month, now time.Time) (int, bool) {
	maxYear := now.Year() + 1
	counts := map[int]int{}
	add := func(m time.Month, yearText string) {
		if m != month {
			return
		}
		y, _ := strconv.Atoi(yearText)
		if len(yearText) == 2 {
			y += 2000
		}
		if y >= 1990 && y <= maxYear {
			counts[y]++
		}
	}
	for _, m := range slashFullDate.FindAllStringSubmatch(text, -1) {
		mm, _ := strconv.Atoi(m[1])
		add(time.Month(mm), m[2])
	}
	for _, m := range namedFullDate.FindAllStringSubmatch(text, -1) {
		if mon, ok := MonthFromName(m[1]); ok {
			add(mon, m[2])
		}
	}
	return mostFrequent(counts)
}
