package settlement

import (
	"math"
)

const (
	backMargin = 0.85
	layMargin  = 1.15
	// a winning lay keeps the stake less commission
	layWinReturn = 0.9
)

// settleFunc computes the P&L of one unit stake. nil means the result
// cannot be computed because a required price is missing.
type settleFunc func(out Outcome, finalOdds, placePrice *float64) *float64

var rules = map[Strategy]settleFunc{
	BackMidPrice:      settleBackWin,
	BackOutsider:      settleBackWin,
	DutchBack:         settleBackWin,
	BackOutsiderPlace: settleBackPlace,
	LayFavourite:      settleLayWin,
	DutchLay:          settleLayWin,
	LayMidPricePlace:  settleLayPlace,
}

// SettleRow applies the strategy's rule. Unknown strategies settle to 0.
func SettleRow(s Strategy, out Outcome, finalOdds, placePrice *float64) *float64 {
	rule, ok := rules[s]
	if !ok {
		return value(0)
	}
	return rule(out, finalOdds, placePrice)
}

func settleBackWin(out Outcome, finalOdds, _ *float64) *float64 {
	if !out.Won {
		return value(-1)
	}
	if !usable(finalOdds) {
		return nil
	}
	return value(*finalOdds*backMargin - 1)
}

func settleBackPlace(out Outcome, _, placePrice *float64) *float64 {
	if !out.Placed {
		return value(-1)
	}
	if !usable(placePrice) {
		return nil
	}
	return value(*placePrice - 1)
}

func settleLayWin(out Outcome, finalOdds, _ *float64) *float64 {
	if !out.Won {
		return value(layWinReturn)
	}
	if !usable(finalOdds) {
		return nil
	}
	return value(-(*finalOdds*layMargin - 1))
}

func settleLayPlace(out Outcome, _, placePrice *float64) *float64 {
	if !out.Placed {
		return value(layWinReturn)
	}
	if !usable(placePrice) {
		return nil
	}
	return value(-(*placePrice - 1))
}

// AdjustOdds applies the strategy margin: lay odds up, back odds down
func AdjustOdds(s Strategy, finalOdds *float64) *float64 {
	if !usable(finalOdds) {
		return nil
	}
	switch {
	case s.IsLay():
		return value(*finalOdds * layMargin)
	case s.IsBack():
		return value(*finalOdds * backMargin)
	default:
		return value(*finalOdds)
	}
}

// DutchSum returns the pooled overround Σ100/price and the pooled odds
// 100/sum. Non-positive prices are skipped; ok is false when none remain.
func DutchSum(prices []float64) (sum, odds float64, ok bool) {
	for _, p := range prices {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		sum += 100 / p
	}
	if sum == 0 {
		return 0, 0, false
	}
	return sum, 100 / sum, true
}

func usable(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

func value(f float64) *float64 {
	return &f
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
