package api

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/odds"
	"github.com/MJE43/stake-dice-config/internal/settle"
	"github.com/MJE43/stake-dice-config/internal/widget"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	// Input validation errors
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidState  = "invalid_configuration"

	// Widget and journal errors
	ErrTypeWidgetNotFound = "widget_not_found"
	ErrTypeBetNotFound    = "bet_not_found"

	// Settlement errors
	ErrTypeBetRejected = "bet_rejected"
	ErrTypeBackend     = "backend_error"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory groups error types for logging.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryWidget     ErrorCategory = "widget"
	CategorySettlement ErrorCategory = "settlement"
	CategorySystem     ErrorCategory = "system"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidParams, ErrTypeValidation, ErrTypeInvalidState:
		return CategoryValidation
	case ErrTypeWidgetNotFound, ErrTypeBetNotFound:
		return CategoryWidget
	case ErrTypeBetRejected, ErrTypeBackend:
		return CategorySettlement
	default:
		return CategorySystem
	}
}

// VersionInfo is the body of GET /version.
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit"`
	BuildTime     string `json:"build_time"`
}

// CreateWidgetRequest is the optional body of POST /api/v1/widgets.
type CreateWidgetRequest struct {
	Mode       string `json:"mode,omitempty" validate:"omitempty,oneof=under over UNDER OVER"`
	Threshold  string `json:"threshold,omitempty" validate:"omitempty,numeric"`
	Stake      string `json:"stake,omitempty" validate:"omitempty,numeric"`
	ClientSeed string `json:"clientSeed,omitempty" validate:"omitempty,min=6,max=32"`
}

// WidgetResponse describes one widget and its full render pass.
type WidgetResponse struct {
	ID         string       `json:"id"`
	ClientSeed string       `json:"clientSeed"`
	Patch      widget.Patch `json:"patch"`
}

// ActionRequest is one action sent to a widget over REST or websocket.
//
// "input" carries a raw edit of Field; the typed actions carry Value.
// max_bet takes Balance and Ceiling when the caller knows them, otherwise
// they are fetched from the backend.
type ActionRequest struct {
	Type    string `json:"type" validate:"required,oneof=toggle_mode set_threshold set_win_chance set_stake recover max_bet input"`
	Value   string `json:"value,omitempty" validate:"required_if=Type set_threshold,required_if=Type set_win_chance,required_if=Type set_stake"`
	Field   string `json:"field,omitempty" validate:"required_if=Type input"`
	Raw     string `json:"raw,omitempty"`
	Balance string `json:"balance,omitempty" validate:"omitempty,numeric"`
	Ceiling string `json:"ceiling,omitempty" validate:"omitempty,numeric"`
}

// BetRequest is the optional body of POST /api/v1/widgets/{id}/bet. A
// client seed given here replaces the widget's seed.
type BetRequest struct {
	ClientSeed string `json:"clientSeed,omitempty" validate:"omitempty,min=6,max=32"`
}

// BetResponse reports a settled bet.
type BetResponse struct {
	Result  settle.BetResult `json:"result"`
	Entry   *journal.Entry   `json:"entry,omitempty"`
	Message string           `json:"message"`
	Patch   widget.Patch     `json:"patch"`
}

// BetsResponse is a page of journal entries.
type BetsResponse struct {
	Bets  []journal.Entry `json:"bets"`
	Count int             `json:"count"`
	Skip  int             `json:"skip"`
}

// AccountBetsResponse is a page of the backend's own bet history.
type AccountBetsResponse struct {
	Bets  []settle.Bet `json:"bets"`
	Count int          `json:"count"`
	Skip  int          `json:"skip"`
}

// SummaryResponse is the body of GET /api/v1/bets/summary.
type SummaryResponse struct {
	journal.Summary
	WithinExpectation bool `json:"withinExpectation"`
}

// decimalParam parses an optional bounded decimal; empty gives def.
func decimalParam(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	return odds.ParseAmount(s)
}
