package widget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// Field names a display surface fed by the render pass.
type Field string

const (
	FieldNone      Field = ""
	FieldStake     Field = "stake"
	FieldSlider    Field = "slider"
	FieldThreshold Field = "threshold"
	FieldWinChance Field = "winChance"
	FieldPayout    Field = "payout"
	FieldProfit    Field = "profit"
	FieldMode      Field = "mode"
)

// Fields lists every surface in render order.
var Fields = []Field{
	FieldStake, FieldSlider, FieldThreshold, FieldWinChance,
	FieldPayout, FieldProfit, FieldMode,
}

// ParseField resolves a surface name. The empty string is FieldNone.
func ParseField(s string) (Field, error) {
	if s == "" {
		return FieldNone, nil
	}
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return FieldNone, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// DerivedView holds the values recomputed on every render pass. It is only
// meaningful for a valid configuration.
type DerivedView struct {
	WinChance      decimal.Decimal
	Payout         decimal.Decimal
	Profit         decimal.NullDecimal
	SliderPosition decimal.Decimal
}

// Derive computes the view for c. A configuration whose threshold gives a
// non-positive win chance cannot be priced and returns an error.
func Derive(c BetConfiguration) (DerivedView, error) {
	chance := odds.WinChance(c.Mode, c.Threshold)
	payout, err := odds.PayoutMultiplier(chance)
	if err != nil {
		return DerivedView{}, err
	}
	return DerivedView{
		WinChance:      chance,
		Payout:         payout,
		Profit:         odds.Profit(c.Stake, payout),
		SliderPosition: SliderPosition(c.Threshold),
	}, nil
}

// Slider is the state pushed to the threshold slider and its fill bar.
type Slider struct {
	Min      string `json:"min"`
	Max      string `json:"max"`
	Value    string `json:"value"`
	Position string `json:"position"`
}

// Patch is one render pass. A nil field is not pushed and the surface keeps
// whatever it shows; an empty string blanks the surface.
type Patch struct {
	Exclude   Field   `json:"exclude,omitempty"`
	Valid     bool    `json:"valid"`
	Mode      *string `json:"mode,omitempty"`
	Stake     *string `json:"stake,omitempty"`
	Slider    *Slider `json:"slider,omitempty"`
	Threshold *string `json:"threshold,omitempty"`
	WinChance *string `json:"winChance,omitempty"`
	Payout    *string `json:"payout,omitempty"`
	Profit    *string `json:"profit,omitempty"`
}

// Render builds the patch for c, skipping the surface named by exclude.
//
// An invalid configuration blanks threshold, payout and profit and pins the
// slider to the bottom of its track. Stake and win chance are left untouched
// so the entry that caused the invalid state stays on screen.
func Render(c BetConfiguration, exclude Field) Patch {
	p := Patch{Exclude: exclude, Valid: c.Valid}
	lo, hi := odds.Range(c.Mode)

	if !c.Valid {
		blank := ""
		p.Threshold = &blank
		p.Payout = &blank
		p.Profit = &blank
		p.Slider = &Slider{
			Min:      lo.StringFixed(2),
			Max:      hi.StringFixed(2),
			Value:    lo.StringFixed(2),
			Position: decimal.Zero.StringFixed(2),
		}
		return p
	}

	view, err := Derive(c)
	if err != nil {
		// Only reachable through SetThreshold with an unclamped value.
		c.Valid = false
		return Render(c, exclude)
	}

	push := func(f Field, v string) *string {
		if f == exclude {
			return nil
		}
		return &v
	}

	p.Stake = push(FieldStake, formatAmount(c.Stake))
	// The mode label sits on the slider and is refreshed with it.
	if exclude != FieldSlider {
		p.Mode = push(FieldMode, c.Mode.String())
		p.Slider = &Slider{
			Min:      lo.StringFixed(2),
			Max:      hi.StringFixed(2),
			Value:    c.Threshold.StringFixed(2),
			Position: view.SliderPosition.StringFixed(2),
		}
	}
	p.Threshold = push(FieldThreshold, c.Threshold.StringFixed(2))
	p.WinChance = push(FieldWinChance, view.WinChance.StringFixed(2))
	p.Payout = push(FieldPayout, view.Payout.StringFixed(2))
	profit := ""
	if view.Profit.Valid {
		profit = view.Profit.Decimal.StringFixed(2)
	}
	p.Profit = push(FieldProfit, profit)
	return p
}

// formatAmount renders a stake for the stake input; zero shows as empty.
func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
