// Package money normalizes point-of-sale currency strings into whole pesos.
package money

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// numericPrefix mirrors a lenient float read: leading digits with an optional fraction.
	numericPrefix = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)

	printer = message.NewPrinter(language.English)
)

// Parse converts a POS amount such as "$300,000", "$-37,150" or "1.234.567"
// into an integer amount. It never fails: empty, dash-only and unparseable
// input all yield 0.
func Parse(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.Join(strings.Fields(s), "")

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	s = strings.ReplaceAll(s, ",", "")

	// A dot followed by more than two digits is a thousands separator ("1.234"),
	// otherwise it is a decimal point ("1.23").
	if i := strings.LastIndex(s, "."); i >= 0 && len(s)-i-1 > 2 {
		s = strings.ReplaceAll(s, ".", "")
	}

	num := numericPrefix.FindString(s)
	if num == "" {
		return 0
	}
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	num = strings.TrimSuffix(num, ".")

	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0
	}

	n := d.Round(0).IntPart()
	if negative {
		return -n
	}
	return n
}

// ParseAny accepts the loosely typed values found in model output and stored
// JSON: numbers, numeric strings, decimals and nil.
func ParseAny(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return roundFloat(float64(t))
	case float64:
		return roundFloat(t)
	case json.Number:
		return Parse(t.String())
	case decimal.Decimal:
		return t.Round(0).IntPart()
	case string:
		return Parse(t)
	default:
		return 0
	}
}

func roundFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

// Extract applies re to text and parses its first capture group.
// A missing match yields 0.
func Extract(text string, re *regexp.Regexp) int64 {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	return Parse(m[1])
}

// Format renders the absolute value of n with comma thousands separators.
func Format(n int64) string {
	if n < 0 {
		n = -n
	}
	return printer.Sprintf("%d", n)
}

// FormatSigned is Format keeping a leading minus for negative amounts.
func FormatSigned(n int64) string {
	if n < 0 {
		return "-" + Format(n)
	}
	return Format(n)
}
