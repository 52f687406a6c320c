package settle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// Credentials is the signed login message forwarded with every account
// request. It is opaque here; the backend verifies it.
type Credentials struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// BetRequest is a bet in settlement units.
type BetRequest struct {
	WagerCents int64
	Mode       odds.Mode
	Threshold  int64
	ClientSeed string
}

// BetResult is the backend's settlement of one bet.
type BetResult struct {
	Won        bool   `json:"won"`
	DeltaCents int64  `json:"deltaCents"`
	ServerSeed string `json:"serverSeed"`
	Result     int64  `json:"result"`
}

// Roll returns the rolled value in percent.
func (r BetResult) Roll() decimal.Decimal {
	return odds.FromHundredths(r.Result)
}

// Delta returns the balance change in currency units.
func (r BetResult) Delta() decimal.Decimal {
	return odds.FromHundredths(r.DeltaCents)
}

// User is the account view returned by user_get.
type User struct {
	ID             string `json:"id"`
	ServerSeedHash string `json:"serverSeedHash"`
	BalanceCents   int64  `json:"balanceCents"`
}

// Balance returns the balance in currency units.
func (u User) Balance() decimal.Decimal {
	return odds.FromHundredths(u.BalanceCents)
}

// Bet is one row of the backend's bet history.
type Bet struct {
	ID          int64  `json:"id"`
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amountCents"`
	RollUnder   bool   `json:"rollUnder"`
	Threshold   int64  `json:"threshold"`
	Result      int64  `json:"result"`
	Won         bool   `json:"won"`
	ServerSeed  string `json:"serverSeed"`
	CreatedAt   int64  `json:"createdAt"`
}

// Mode returns the bet's roll mode.
func (b Bet) Mode() odds.Mode {
	return odds.ModeFromRollUnder(b.RollUnder)
}

// Time returns CreatedAt as a time.
func (b Bet) Time() time.Time {
	return time.Unix(b.CreatedAt, 0).UTC()
}

// Wire payloads. Every request carries its action name.

type actionRequest struct {
	Action string `json:"action"`
}

type credentialedRequest struct {
	Action string `json:"action"`
	Credentials
}

type betParams struct {
	Action string `json:"action"`
	Credentials
	WagerCents int64  `json:"wagerCents"`
	RollUnder  bool   `json:"rollUnder"`
	Threshold  int64  `json:"threshold"`
	ClientSeed string `json:"clientSeed"`
}

type listParams struct {
	Action string `json:"action"`
	Credentials
	Count int `json:"count"`
	Skip  int `json:"skip"`
}

type pingResponse struct {
	Response string `json:"response"`
}

type maxBetResponse struct {
	MaxBetCents int64 `json:"maxBetCents"`
}
