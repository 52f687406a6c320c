// Package odds implements the fair-odds arithmetic for roll-under/roll-over
// dice: win chance, payout multiplier and truncated profit. The same numbers
// are used by the bet preview and by the settlement backend.
package odds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects whether a bet wins below or above its threshold.
type Mode uint8

const (
	Under Mode = iota
	Over
)

// Fixed parameters of the game. All values are percentages of the roll space.
var (
	HouseEdge    = decimal.RequireFromString("0.01")
	RollSpaceMax = decimal.RequireFromString("99.99")

	UnderMin = decimal.RequireFromString("1.00")
	UnderMax = decimal.RequireFromString("98.02")
	OverMin  = decimal.RequireFromString("1.97")
	OverMax  = decimal.RequireFromString("98.99")

	UnderMidpoint = decimal.RequireFromString("49.50")
	OverMidpoint  = decimal.RequireFromString("50.49")
)

const (
	// multiplierPlaces is the number of fractional digits kept when dividing
	// by the win chance.
	multiplierPlaces = 16
	// productPlaces snaps stake*(payout-1) before truncation so that the
	// rounding left in the multiplier cannot pull an exact cent below itself.
	productPlaces = 10
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ErrNonPositiveChance is returned when a payout is requested for a win
// chance that is zero or negative.
var ErrNonPositiveChance = errors.New("odds: win chance must be positive")

// String returns the label shown next to the threshold.
func (m Mode) String() string {
	if m == Over {
		return "OVER"
	}
	return "UNDER"
}

// Toggle returns the opposite mode.
func (m Mode) Toggle() Mode {
	if m == Over {
		return Under
	}
	return Over
}

// IsUnder reports whether the mode is roll-under.
func (m Mode) IsUnder() bool { return m == Under }

// ModeFromRollUnder maps the backend's rollUnder flag to a Mode.
func ModeFromRollUnder(rollUnder bool) Mode {
	if rollUnder {
		return Under
	}
	return Over
}

// ParseMode accepts "under"/"over", the backend's "below"/"above" and the
// page's "true"/"false" is_under flag.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "under", "below", "true":
		return Under, nil
	case "over", "above", "false":
		return Over, nil
	}
	return Under, fmt.Errorf("odds: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Range returns the inclusive threshold bounds for a mode. The bounds of the
// two modes are complementary under ComplementThreshold.
func Range(m Mode) (lo, hi decimal.Decimal) {
	if m == Over {
		return OverMin, OverMax
	}
	return UnderMin, UnderMax
}

// Midpoint is the threshold a widget starts from, and falls back to when it
// recovers from an invalid entry.
func Midpoint(m Mode) decimal.Decimal {
	if m == Over {
		return OverMidpoint
	}
	return UnderMidpoint
}

// InRange reports whether t lies within the mode's threshold bounds.
func InRange(m Mode, t decimal.Decimal) bool {
	lo, hi := Range(m)
	return t.GreaterThanOrEqual(lo) && t.LessThanOrEqual(hi)
}

// Clamp limits t to the mode's threshold bounds.
func Clamp(m Mode, t decimal.Decimal) decimal.Decimal {
	lo, hi := Range(m)
	return decimal.Min(decimal.Max(t, lo), hi)
}

// WinChanceFloor is the smallest win chance accepted from direct entry. Both
// modes reuse their lower threshold bound, so OVER refuses chances below 1.97
// even though its threshold range could express them.
func WinChanceFloor(m Mode) decimal.Decimal {
	if m == Over {
		return OverMin
	}
	return UnderMin
}

// WinChance returns the probability of winning, in percent.
func WinChance(m Mode, t decimal.Decimal) decimal.Decimal {
	if m == Over {
		return RollSpaceMax.Sub(t)
	}
	return t
}

// ThresholdForChance is the inverse of WinChance.
func ThresholdForChance(m Mode, chance decimal.Decimal) decimal.Decimal {
	if m == Over {
		return Round2(RollSpaceMax.Sub(chance))
	}
	return chance
}

// PayoutMultiplier returns (100 / chance) * (1 - HouseEdge). The product is
// formed as 100*(1-HouseEdge)/chance so terminating results stay exact.
func PayoutMultiplier(chance decimal.Decimal) (decimal.Decimal, error) {
	if !chance.IsPositive() {
		return decimal.Zero, ErrNonPositiveChance
	}
	return hundred.Mul(one.Sub(HouseEdge)).DivRound(chance, multiplierPlaces), nil
}

// Profit returns floor2(stake * (payout - 1)). A zero result is reported as
// an invalid NullDecimal so callers can leave the field blank.
func Profit(stake, payout decimal.Decimal) decimal.NullDecimal {
	p := Floor2(stake.Mul(payout.Sub(one)).Round(productPlaces))
	if p.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(p)
}

// ComplementThreshold maps a threshold onto the opposite mode while keeping
// the same win chance: round2(RollSpaceMax - t).
func ComplementThreshold(t decimal.Decimal) decimal.Decimal {
	return Round2(RollSpaceMax.Sub(t))
}

// Floor2 truncates toward negative infinity at two decimal places.
func Floor2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Floor().Shift(-2)
}

// Round2 rounds half away from zero at two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
