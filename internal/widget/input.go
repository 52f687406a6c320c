package widget

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

var (
	// ErrUnknownField is returned for a surface name the widget does not have.
	ErrUnknownField = errors.New("widget: unknown field")
	// ErrReadOnlyField is returned for raw input aimed at a computed surface.
	ErrReadOnlyField = errors.New("widget: field is not editable")
)

// numericPrefix matches the longest leading decimal literal, the way browser
// number inputs report a half-typed value such as "12." or "3e".
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount reads a user-typed number. Anything that does not start with a
// number, or whose magnitude or precision is outside the odds amount bounds,
// reads as zero.
func ParseAmount(raw string) decimal.Decimal {
	m := numericPrefix.FindString(strings.TrimSpace(raw))
	if m == "" {
		return decimal.Zero
	}
	// "3." and "3.e2" are complete numbers to a browser.
	m = strings.NewReplacer(".e", "e", ".E", "E").Replace(strings.TrimSuffix(m, "."))
	v, err := odds.ParseAmount(m)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ParseInput turns a raw edit of one surface into an action. The slider is
// range-limited on the page, so its value is clamped to the bounds of mode.
func ParseInput(field Field, raw string, mode odds.Mode) (Action, error) {
	switch field {
	case FieldStake:
		return SetStake{Amount: ParseAmount(raw)}, nil
	case FieldWinChance:
		return SetWinChance{Chance: ParseAmount(raw)}, nil
	case FieldSlider, FieldThreshold:
		return SetThreshold{Threshold: odds.Clamp(mode, ParseAmount(raw))}, nil
	case FieldMode:
		return ToggleMode{}, nil
	case FieldPayout, FieldProfit:
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, string(field))
}
