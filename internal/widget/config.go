// Package widget keeps a dice bet configuration consistent while a user
// edits stake, threshold, win chance or mode in any order.
//
// The package does no I/O. A Machine owns one BetConfiguration, applies
// actions to it and answers every action with a Patch: the values each
// display surface should now show, minus the surface the edit came from.
package widget

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// ErrInvalidState is returned when a bet is requested while the
// configuration holds an unrepresentable win chance.
var ErrInvalidState = errors.New("widget: configuration is invalid")

// BetConfiguration is the authoritative state behind one widget.
type BetConfiguration struct {
	Stake     decimal.Decimal
	Mode      odds.Mode
	Threshold decimal.Decimal
	Valid     bool
}

// DefaultConfiguration is the state a new widget starts in.
func DefaultConfiguration() BetConfiguration {
	return BetConfiguration{
		Stake:     decimal.Zero,
		Mode:      odds.Under,
		Threshold: odds.UnderMidpoint,
		Valid:     true,
	}
}

// ToggleMode flips the mode and moves the threshold to its complement so the
// win chance is unchanged. Ignored while invalid.
func (c *BetConfiguration) ToggleMode() {
	if !c.Valid {
		return
	}
	c.Mode = c.Mode.Toggle()
	c.Threshold = odds.ComplementThreshold(c.Threshold)
}

// SetThreshold stores t, truncated to hundredths, and marks the
// configuration valid. The slider that drives it is range-limited, so a drag
// always yields a usable value.
func (c *BetConfiguration) SetThreshold(t decimal.Decimal) {
	c.Threshold = odds.Quantize(t)
	c.Valid = true
}

// SetWinChance derives the threshold from a typed win chance. Chances below
// the mode's floor leave the threshold alone and invalidate the configuration.
func (c *BetConfiguration) SetWinChance(p decimal.Decimal) {
	p = odds.Quantize(p)
	if p.LessThan(odds.WinChanceFloor(c.Mode)) {
		c.Valid = false
		return
	}
	c.Threshold = odds.ThresholdForChance(c.Mode, p)
	c.Valid = true
}

// SetStake stores the stake truncated to cents. Negative amounts are stored
// as zero.
func (c *BetConfiguration) SetStake(amount decimal.Decimal) {
	amount = odds.Quantize(amount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	c.Stake = amount
}

// Recover resets an invalid configuration to the mode's midpoint.
func (c *BetConfiguration) Recover() {
	if c.Valid {
		return
	}
	c.Threshold = odds.Midpoint(c.Mode)
	c.Valid = true
}

// Ticket is a staged bet in the integer units the backend settles in.
type Ticket struct {
	Mode                odds.Mode
	ThresholdHundredths int64
	StakeHundredths     int64
	ClientSeed          string
}

// Ticket converts the configuration into a settlement ticket. A threshold
// outside the mode's bounds is as unbettable as an invalid entry; a stake
// beyond odds.MaxWagerCents is refused with odds.ErrAmountRange.
func (c BetConfiguration) Ticket() (Ticket, error) {
	if !c.Valid {
		return Ticket{}, ErrInvalidState
	}
	if !odds.InRange(c.Mode, c.Threshold) {
		return Ticket{}, fmt.Errorf("%w: threshold %s outside the %s range", ErrInvalidState, c.Threshold, c.Mode)
	}
	th, err := odds.ToHundredths(c.Threshold)
	if err != nil {
		return Ticket{}, err
	}
	stake, err := odds.ToHundredths(c.Stake)
	if err != nil {
		return Ticket{}, err
	}
	if stake > odds.MaxWagerCents {
		return Ticket{}, fmt.Errorf("%w: stake %s", odds.ErrAmountRange, c.Stake)
	}
	return Ticket{
		Mode:                c.Mode,
		ThresholdHundredths: th,
		StakeHundredths:     stake,
	}, nil
}
