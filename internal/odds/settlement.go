package odds

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Settlement works in integer hundredths: thresholds and rolls are 0..9999,
// amounts are cents.
const (
	OutcomeSpace     = 10_000
	HouseEdgePercent = 1

	UnderMinHundredths = 100
	UnderMaxHundredths = 9802
	OverMinHundredths  = 197
	OverMaxHundredths  = 9899
)

// MaxWagerCents is the largest wager whose payout fits in an int64.
const MaxWagerCents = math.MaxInt64 / (100 * (100 - HouseEdgePercent))

// Amounts are bounded in decimal digits so that formatting and arithmetic
// on untrusted input stay cheap.
const (
	MaxAmountExponent = 20
	MaxAmountDigits   = 40

	maxAmountLen = 64
)

// ErrAmountRange is returned for an amount that cannot be expressed in
// settlement units.
var ErrAmountRange = errors.New("odds: amount out of range")

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ThresholdError reports a threshold outside the settlement bounds.
type ThresholdError struct {
	Mode      Mode
	Threshold int64
	Min, Max  int64
}

func (e *ThresholdError) Error() string {
	verb := "roll under"
	if e.Mode == Over {
		verb = "roll over"
	}
	if e.Threshold < e.Min {
		return fmt.Sprintf("invalid threshold: minimum amount to %s is %d, but got %d", verb, e.Min, e.Threshold)
	}
	return fmt.Sprintf("invalid threshold: maximum amount to %s is %d, but got %d", verb, e.Max, e.Threshold)
}

// CheckAmount rejects values whose exponent or digit count is outside the
// bounds above. It never rescales d.
func CheckAmount(d decimal.Decimal) error {
	if e := d.Exponent(); e > MaxAmountExponent || e < -MaxAmountExponent || d.NumDigits() > MaxAmountDigits {
		return ErrAmountRange
	}
	return nil
}

// ParseAmount parses a strict decimal literal within the amount bounds.
// Literals longer than maxAmountLen are refused before parsing.
func ParseAmount(s string) (decimal.Decimal, error) {
	if len(s) > maxAmountLen {
		return decimal.Zero, fmt.Errorf("%w: %d characters", ErrAmountRange, len(s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, s)
	}
	return d, nil
}

// Quantize truncates d to hundredths, the resolution the backend settles
// at. Values outside the amount bounds read as zero.
func Quantize(d decimal.Decimal) decimal.Decimal {
	if CheckAmount(d) != nil {
		return decimal.Zero
	}
	return d.Truncate(2)
}

// ToHundredths scales d by 100 and drops the remaining fraction. Values that
// do not fit an int64 are refused.
func ToHundredths(d decimal.Decimal) (int64, error) {
	if err := CheckAmount(d); err != nil {
		return 0, err
	}
	s := d.Shift(2).Truncate(0)
	if s.GreaterThan(maxInt64) || s.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, d)
	}
	return s.IntPart(), nil
}

// FromHundredths is the inverse of ToHundredths.
func FromHundredths(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

// RangeHundredths returns the settlement bounds for a mode.
func RangeHundredths(m Mode) (lo, hi int64) {
	if m == Over {
		return OverMinHundredths, OverMaxHundredths
	}
	return UnderMinHundredths, UnderMaxHundredths
}

// ValidateHundredths checks a settlement threshold against its mode's bounds.
func ValidateHundredths(m Mode, t int64) error {
	lo, hi := RangeHundredths(m)
	if t < lo || t > hi {
		return &ThresholdError{Mode: m, Threshold: t, Min: lo, Max: hi}
	}
	return nil
}

// WinningOutcomes counts the rolls in [0, OutcomeSpace) that win. For OVER
// the threshold itself loses, which gives 9999-t and matches WinChance.
func WinningOutcomes(m Mode, t int64) int64 {
	if m == Over {
		return OutcomeSpace - 1 - t
	}
	return t
}

// Won reports whether roll wins against the threshold.
func Won(m Mode, t, roll int64) bool {
	if m == Over {
		return roll > t
	}
	return roll < t
}

// SettlementPayoutCents returns the total credited on a win:
// wager * 100 * (100 - edge) / winningOutcomes, truncated. The wager must
// lie in [0, MaxWagerCents].
func SettlementPayoutCents(m Mode, t, wagerCents int64) (int64, error) {
	if err := ValidateHundredths(m, t); err != nil {
		return 0, err
	}
	if wagerCents < 0 || wagerCents > MaxWagerCents {
		return 0, fmt.Errorf("%w: wager %d cents", ErrAmountRange, wagerCents)
	}
	outcomes := WinningOutcomes(m, t)
	return wagerCents * 100 * (100 - HouseEdgePercent) / outcomes, nil
}

// SettlementDeltaCents returns the balance change for a settled bet.
func SettlementDeltaCents(m Mode, t, wagerCents int64, won bool) (int64, error) {
	if !won {
		if err := ValidateHundredths(m, t); err != nil {
			return 0, err
		}
		return -wagerCents, nil
	}
	payout, err := SettlementPayoutCents(m, t, wagerCents)
	if err != nil {
		return 0, err
	}
	return payout - wagerCents, nil
}

// Quote is a complete preview of one bet, in display units and in the
// integer units the backend settles in.
type Quote struct {
	Mode        Mode                `json:"mode"`
	Threshold   decimal.Decimal     `json:"threshold"`
	Stake       decimal.Decimal     `json:"stake"`
	WinChance   decimal.Decimal     `json:"winChance"`
	Payout      decimal.Decimal     `json:"payout"`
	Profit      decimal.NullDecimal `json:"profit"`
	WagerCents  int64               `json:"wagerCents"`
	PayoutCents int64               `json:"payoutCents"`
	ProfitCents int64               `json:"profitCents"`
}

// NewQuote previews a bet. The threshold must be within the mode's bounds.
// Threshold and stake are truncated to hundredths first, as the backend does.
func NewQuote(m Mode, t, stake decimal.Decimal) (Quote, error) {
	for _, d := range []decimal.Decimal{t, stake} {
		if err := CheckAmount(d); err != nil {
			return Quote{}, err
		}
	}
	t, stake = t.Truncate(2), stake.Truncate(2)
	if !InRange(m, t) {
		lo, hi := Range(m)
		return Quote{}, fmt.Errorf("odds: threshold %s outside [%s, %s] for %s",
			t.StringFixed(2), lo.StringFixed(2), hi.StringFixed(2), m)
	}
	if stake.IsNegative() {
		return Quote{}, fmt.Errorf("odds: stake must not be negative, got %s", stake)
	}
	chance := WinChance(m, t)
	payout, err := PayoutMultiplier(chance)
	if err != nil {
		return Quote{}, err
	}
	wager, err := ToHundredths(stake)
	if err != nil {
		return Quote{}, err
	}
	th, err := ToHundredths(t)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{
		Mode:       m,
		Threshold:  t,
		Stake:      stake,
		WinChance:  chance,
		Payout:     payout,
		Profit:     Profit(stake, payout),
		WagerCents: wager,
	}
	q.PayoutCents, err = SettlementPayoutCents(m, th, q.WagerCents)
	if err != nil {
		return Quote{}, err
	}
	q.ProfitCents = q.PayoutCents - q.WagerCents
	return q, nil
}
