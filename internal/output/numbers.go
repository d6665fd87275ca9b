package output

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// Title converts a token such as "question_type" or "high-performer" into
// a heading ("Question Type", "High Performer").
func Title(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return titler.String(s)
}

// Num formats a count with thousands separators.
func Num(n int) string {
	return printer.Sprintf("%d", n)
}

// Score formats a score with up to two decimals, trimming trailing zeros.
func Score(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	s := printer.Sprintf("%.2f", v)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// Percent formats a 0-100 value with one decimal and a percent sign.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return printer.Sprintf("%.1f%%", v)
}

// Signed formats a change with an explicit sign.
func Signed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	if v > 0 {
		return "+" + Score(v)
	}
	return Score(v)
}

// Bar draws a horizontal bar of at most width cells for value out of max.
func Bar(value, max float64, width int) string {
	if width <= 0 || max <= 0 || !(value > 0) {
		return ""
	}
	n := int(math.Round(value / max * float64(width)))
	if n > width {
		n = width
	}
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}
