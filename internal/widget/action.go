package widget

import (
	"github.com/shopspring/decimal"
)

// Action is a user intent accepted by a Machine.
type Action interface {
	// Name identifies the action in logs and wire messages.
	Name() string
	apply(c *BetConfiguration)
	// origin is the surface whose raw input produced the action.
	origin() Field
}

// ToggleMode flips between UNDER and OVER.
type ToggleMode struct{}

func (ToggleMode) Name() string              { return "toggle_mode" }
func (ToggleMode) apply(c *BetConfiguration) { c.ToggleMode() }
func (ToggleMode) origin() Field             { return FieldNone }

// SetThreshold comes from the slider.
type SetThreshold struct {
	Threshold decimal.Decimal
}

func (SetThreshold) Name() string                { return "set_threshold" }
func (a SetThreshold) apply(c *BetConfiguration) { c.SetThreshold(a.Threshold) }

// The slider is re-rendered after a drag; its value is already clamped.
func (SetThreshold) origin() Field { return FieldNone }

// SetWinChance comes from the typed win chance field.
type SetWinChance struct {
	Chance decimal.Decimal
}

func (SetWinChance) Name() string                { return "set_win_chance" }
func (a SetWinChance) apply(c *BetConfiguration) { c.SetWinChance(a.Chance) }
func (SetWinChance) origin() Field               { return FieldWinChance }

// SetStake comes from the typed stake field.
type SetStake struct {
	Amount decimal.Decimal
}

func (SetStake) Name() string                { return "set_stake" }
func (a SetStake) apply(c *BetConfiguration) { c.SetStake(a.Amount) }
func (SetStake) origin() Field               { return FieldStake }

// Recover is sent by the adapter when the user interacts with anything
// other than the win chance or payout controls.
type Recover struct{}

func (Recover) Name() string              { return "recover" }
func (Recover) apply(c *BetConfiguration) { c.Recover() }
func (Recover) origin() Field             { return FieldNone }

// MaxBet sets the stake to the smaller of the account balance and the
// backend's bet ceiling. An invalid Ceiling means no ceiling is known.
type MaxBet struct {
	Balance decimal.Decimal
	Ceiling decimal.NullDecimal
}

func (MaxBet) Name() string { return "max_bet" }

func (a MaxBet) apply(c *BetConfiguration) {
	amount := a.Balance
	if a.Ceiling.Valid {
		amount = decimal.Min(amount, a.Ceiling.Decimal)
	}
	c.SetStake(amount)
}

func (MaxBet) origin() Field { return FieldNone }
