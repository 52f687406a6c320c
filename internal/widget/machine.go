package widget

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// Machine is one widget's state machine. It is not safe for concurrent use;
// callers that share a Machine serialize access themselves.
type Machine struct {
	cfg BetConfiguration
}

// Option adjusts the initial configuration.
type Option func(*BetConfiguration)

// WithStake sets the initial stake.
func WithStake(amount decimal.Decimal) Option {
	return func(c *BetConfiguration) { c.SetStake(amount) }
}

// WithMode sets the initial mode and moves the threshold to that mode's
// midpoint.
func WithMode(m odds.Mode) Option {
	return func(c *BetConfiguration) {
		c.Mode = m
		c.Threshold = odds.Midpoint(m)
	}
}

// WithThreshold sets the initial threshold, clamped to the mode's bounds.
// Apply it after WithMode.
func WithThreshold(t decimal.Decimal) Option {
	return func(c *BetConfiguration) { c.Threshold = odds.Clamp(c.Mode, odds.Quantize(t)) }
}

// New returns a machine in the default configuration.
func New(opts ...Option) *Machine {
	cfg := DefaultConfiguration()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Machine{cfg: cfg}
}

// Dispatch applies a and returns the render pass that follows it.
func (m *Machine) Dispatch(a Action) Patch {
	a.apply(&m.cfg)
	return Render(m.cfg, a.origin())
}

// Input parses a raw edit of field and dispatches the resulting action.
func (m *Machine) Input(field Field, raw string) (Patch, error) {
	a, err := ParseInput(field, raw, m.cfg.Mode)
	if err != nil {
		return Patch{}, err
	}
	return m.Dispatch(a), nil
}

// Render returns a full render pass without changing state.
func (m *Machine) Render(exclude Field) Patch {
	return Render(m.cfg, exclude)
}

// Config returns a copy of the current configuration.
func (m *Machine) Config() BetConfiguration {
	return m.cfg
}

// Settlement stages the current configuration as a bet with the given
// client seed.
func (m *Machine) Settlement(clientSeed string) (Ticket, error) {
	t, err := m.cfg.Ticket()
	if err != nil {
		return Ticket{}, err
	}
	t.ClientSeed = clientSeed
	return t, nil
}
