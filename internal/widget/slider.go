package widget

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// The fill bar spans [odds.UnderMin, odds.UnderMax] in both modes.
var (
	sliderSpan   = odds.UnderMax.Sub(odds.UnderMin)
	sliderOrigin = odds.UnderMin

	bandHigh = decimal.NewFromInt(60)
	bandMid  = decimal.NewFromInt(6)
	bandLow  = decimal.NewFromInt(3)
)

// SliderPosition maps a threshold to the width of the slider fill, in
// percent. The result is cosmetic only: the correction bands keep the fill
// edge peeking out from behind the thumb at either end of the track.
func SliderPosition(t decimal.Decimal) decimal.Decimal {
	p := t.Sub(sliderOrigin).Mul(hundred).DivRound(sliderSpan, 8)
	switch {
	case p.GreaterThan(bandHigh):
		p = p.Sub(one)
	case p.GreaterThan(bandLow) && p.LessThanOrEqual(bandMid):
		p = p.Add(one)
	case p.LessThanOrEqual(bandLow):
		p = p.Add(two)
	}
	return p
}

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)
