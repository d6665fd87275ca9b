package heatmap

import (
	"math"
	"sort"
)

type meanAcc struct {
	sum   float64
	count int
}

func (m meanAcc) mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// insights summarizes cells backed by records. Under Improvement, cells
// without a baseline carry no delta and are left out too. Ties on
// best/worst resolve to the earliest period and the lexically first
// category.
func (a *Aggregator) insights(cells []Cell, periods []string, m Metric) Insights {
	ins := Insights{Trend: DirectionNone}

	byPeriod := make(map[string]*meanAcc)
	byCategory := make(map[string]*meanAcc)
	var categoryOrder []string
	var total meanAcc

	ins.MinIntensity = math.Inf(1)
	ins.MaxIntensity = math.Inf(-1)

	for _, c := range cells {
		if c.Placeholder || (m == Improvement && !c.HasBaseline) {
			continue
		}
		total.sum += c.Intensity
		total.count++
		ins.MinIntensity = math.Min(ins.MinIntensity, c.Intensity)
		ins.MaxIntensity = math.Max(ins.MaxIntensity, c.Intensity)

		if byPeriod[c.Period] == nil {
			byPeriod[c.Period] = &meanAcc{}
		}
		byPeriod[c.Period].sum += c.Intensity
		byPeriod[c.Period].count++

		if byCategory[c.Category] == nil {
			byCategory[c.Category] = &meanAcc{}
			categoryOrder = append(categoryOrder, c.Category)
		}
		byCategory[c.Category].sum += c.Intensity
		byCategory[c.Category].count++
	}

	if total.count == 0 {
		ins.MinIntensity = 0
		ins.MaxIntensity = 0
		return ins
	}
	ins.AverageIntensity = total.mean()

	ordered := make([]string, 0, len(periods))
	for _, p := range periods {
		if byPeriod[p] != nil {
			ordered = append(ordered, p)
		}
	}
	ins.BestPeriod, ins.WorstPeriod = extremes(ordered, byPeriod)

	sort.Strings(categoryOrder)
	ins.BestCategory, ins.WorstCategory = extremes(categoryOrder, byCategory)

	first := byPeriod[ordered[0]].mean()
	last := byPeriod[ordered[len(ordered)-1]].mean()
	ins.TrendDelta = last - first
	switch {
	case len(ordered) < 2 || math.Abs(ins.TrendDelta) < a.stableThreshold:
		ins.Trend = DirectionStable
	case ins.TrendDelta > 0:
		ins.Trend = DirectionImproving
	default:
		ins.Trend = DirectionDeclining
	}
	return ins
}

func extremes(keys []string, acc map[string]*meanAcc) (best, worst string) {
	bestVal := math.Inf(-1)
	worstVal := math.Inf(1)
	for _, k := range keys {
		v := acc[k].mean()
		if v > bestVal {
			best, bestVal = k, v
		}
		if v < worstVal {
			worst, worstVal = k, v
		}
	}
	return best, worst
}
