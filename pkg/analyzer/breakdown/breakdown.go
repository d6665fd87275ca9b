// Package breakdown converts category values into percentage shares for
// pie, bar, donut and progress displays.
package breakdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/gradelens/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// Share is a raw category value.
type Share struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// CategoryShare is a category value with its share of the total.
type CategoryShare struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Normalize scales values so their percentages sum to 100. When the total
// is not positive every percentage is 0. Order is preserved.
//
// Negative values are accepted; whether they make sense is up to the caller.
func Normalize(shares []Share) []CategoryShare {
	values := make([]float64, len(shares))
	for i, s := range shares {
		values[i] = s.Value
	}
	total := floats.Sum(values)

	out := make([]CategoryShare, len(shares))
	for i, s := range shares {
		out[i] = CategoryShare{Category: s.Category, Value: s.Value}
		if total > 0 {
			out[i].Percentage = 100 * s.Value / total
		}
	}
	return out
}

// ValueKind selects what ByCategory sums per category.
type ValueKind string

const (
	ValueEarned   ValueKind = "earned"
	ValuePossible ValueKind = "possible"
	ValueCount    ValueKind = "count"
	ValueLost     ValueKind = "lost"
)

func (v ValueKind) String() string { return string(v) }

// ParseValueKind converts a string to a ValueKind.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "earned":
		return ValueEarned, nil
	case "possible":
		return ValuePossible, nil
	case "count", "frequency":
		return ValueCount, nil
	case "lost":
		return ValueLost, nil
	default:
		return "", fmt.Errorf("%w: unknown breakdown value %q", models.ErrInvalidConfig, s)
	}
}

func (v ValueKind) of(r models.Record) float64 {
	switch v {
	case ValuePossible:
		return r.Possible
	case ValueCount:
		return 1
	case ValueLost:
		return r.Lost()
	default:
		return r.Earned
	}
}

// ByCategory sums value per category and normalizes the totals.
// Records with an empty category are grouped under "Uncategorized".
// Shares are ordered by value descending, then category name.
func ByCategory(records []models.Record, kind models.CategoryKind, value ValueKind) ([]CategoryShare, error) {
	switch value {
	case ValueEarned, ValuePossible, ValueCount, ValueLost:
	default:
		return nil, fmt.Errorf("%w: unknown breakdown value %q", models.ErrInvalidConfig, value)
	}

	totals, order := group(records, kind, value.of)
	shares := make([]Share, 0, len(order))
	for _, cat := range order {
		shares = append(shares, Share{Category: cat, Value: totals[cat]})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Value != shares[j].Value {
			return shares[i].Value > shares[j].Value
		}
		return shares[i].Category < shares[j].Category
	})
	return Normalize(shares), nil
}

// Rate is a category's score rate, used for progress bars.
type Rate struct {
	Category string  `json:"category"`
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
	Count    int     `json:"count"`
	Rate     float64 `json:"rate"`
}

// Rates returns 100 * Σearned / Σpossible per category, ordered by rate
// descending then name. A category with nothing possible has rate 0.
func Rates(records []models.Record, kind models.CategoryKind) []Rate {
	earned, order := group(records, kind, func(r models.Record) float64 { return r.Earned })
	possible, _ := group(records, kind, func(r models.Record) float64 { return r.Possible })
	counts, _ := group(records, kind, func(models.Record) float64 { return 1 })

	out := make([]Rate, 0, len(order))
	for _, cat := range order {
		r := Rate{
			Category: cat,
			Earned:   earned[cat],
			Possible: possible[cat],
			Count:    int(counts[cat]),
		}
		if r.Possible > 0 {
			r.Rate = 100 * r.Earned / r.Possible
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Uncategorized labels records whose category field is empty.
const Uncategorized = "Uncategorized"

func group(records []models.Record, kind models.CategoryKind, value func(models.Record) float64) (map[string]float64, []string) {
	totals := make(map[string]float64)
	var order []string
	for _, r := range records {
		cat := strings.TrimSpace(kind.Of(r))
		if cat == "" {
			cat = Uncategorized
		}
		if _, ok := totals[cat]; !ok {
			order = append(order, cat)
		}
		totals[cat] += value(r)
	}
	return totals, order
}
