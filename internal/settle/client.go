// Package settle is a client for the dice wagering backend.
//
// The backend exposes one endpoint. Every request is a JSON POST whose
// "action" field selects the operation; failures come back as HTTP 400 with
// an {"error": "..."} body. Amounts and thresholds travel as integer
// hundredths.
//
// # Usage
//
//	client := settle.NewClient(settle.Config{URL: "http://127.0.0.1:8000"})
//
//	res, err := client.Bet(ctx, creds, settle.BetRequest{
//	    WagerCents: 1000,
//	    Mode:       odds.Under,
//	    Threshold:  4950,
//	    ClientSeed: seed,
//	})
package settle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// DefaultMaxBetCents is the bet ceiling the backend ships with.
const DefaultMaxBetCents = 300000_00

// Config holds configuration for the backend client.
type Config struct {
	// URL of the backend endpoint. Defaults to http://127.0.0.1:8000.
	URL string

	// ConnectTimeout bounds dialing. Defaults to 5 seconds.
	ConnectTimeout time.Duration

	// Timeout bounds a whole request including the body. Defaults to 15 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Defaults to 3 if zero; negative disables retries.
	MaxRetries int

	// BaseRetryDelay is the initial backoff. Defaults to 250ms.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff. Defaults to 2 seconds.
	MaxRetryDelay time.Duration

	// MaxBetCents is the local bet ceiling checked before sending.
	// Defaults to DefaultMaxBetCents.
	MaxBetCents int64

	// HTTPClient replaces the client built from the timeouts (useful for testing).
	HTTPClient *http.Client

	// UserAgent overrides the User-Agent header. Optional.
	UserAgent string
}

// Client talks to the wagering backend. It is safe for concurrent use.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a client with defaults applied to cfg.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://127.0.0.1:8000"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 250 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 2 * time.Second
	}
	if cfg.MaxBetCents == 0 {
		cfg.MaxBetCents = DefaultMaxBetCents
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
		httpClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}

	return &Client{config: cfg, http: httpClient}
}

// URL returns the configured backend URL.
func (c *Client) URL() string {
	return c.config.URL
}

// MaxBetCents returns the local bet ceiling.
func (c *Client) MaxBetCents() int64 {
	return c.config.MaxBetCents
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	var out pingResponse
	if err := c.call(ctx, "ping", actionRequest{Action: "ping"}, &out, true); err != nil {
		return err
	}
	if out.Response != "pong" {
		return fmt.Errorf("settle: ping: unexpected response %q", out.Response)
	}
	return nil
}

// MaxBet returns the backend's bet ceiling in cents.
func (c *Client) MaxBet(ctx context.Context) (int64, error) {
	var out maxBetResponse
	if err := c.call(ctx, "max_bet", actionRequest{Action: "max_bet"}, &out, true); err != nil {
		return 0, err
	}
	return out.MaxBetCents, nil
}

// User fetches the account behind creds.
func (c *Client) User(ctx context.Context, creds Credentials) (User, error) {
	var out User
	req := credentialedRequest{Action: "user_get", Credentials: creds}
	if err := c.call(ctx, "user_get", req, &out, true); err != nil {
		return User{}, err
	}
	return out, nil
}

// Bets lists settled bets, newest first. The backend applies its own page
// size rule to count.
func (c *Client) Bets(ctx context.Context, creds Credentials, count, skip int) ([]Bet, error) {
	if skip < 0 {
		skip = 0
	}
	var out []Bet
	req := listParams{Action: "bet_list", Credentials: creds, Count: count, Skip: skip}
	if err := c.call(ctx, "bet_list", req, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks a bet against the rules the backend enforces, without
// the balance check.
func (c *Client) Validate(req BetRequest) error {
	if err := odds.ValidateHundredths(req.Mode, req.Threshold); err != nil {
		return &ValidationError{Field: "threshold", Message: err.Error()}
	}
	if req.WagerCents < 0 {
		return &ValidationError{Field: "wager", Message: "wager must not be negative"}
	}
	if req.WagerCents > c.config.MaxBetCents {
		return &ValidationError{
			Field: "wager",
			Message: fmt.Sprintf("the maximum bet is %s, but you're trying to bet %s",
				odds.FromHundredths(c.config.MaxBetCents).StringFixed(2),
				odds.FromHundredths(req.WagerCents).StringFixed(2)),
		}
	}
	return ValidateClientSeed(req.ClientSeed)
}

// Bet places a bet. It is only resent when the connection was never
// established, since a bet that reached the backend may have settled.
func (c *Client) Bet(ctx context.Context, creds Credentials, req BetRequest) (BetResult, error) {
	if err := c.Validate(req); err != nil {
		return BetResult{}, err
	}
	var out BetResult
	params := betParams{
		Action:      "bet",
		Credentials: creds,
		WagerCents:  req.WagerCents,
		RollUnder:   req.Mode.IsUnder(),
		Threshold:   req.Threshold,
		ClientSeed:  req.ClientSeed,
	}
	if err := c.call(ctx, "bet", params, &out, false); err != nil {
		return BetResult{}, err
	}
	return out, nil
}

// --- Core request methods ---

// call sends body with retry. Idempotent actions are retried on server
// errors and transport failures; others only on dial failures.
func (c *Client) call(ctx context.Context, action string, body, out any, idempotent bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("settle: marshal %s request: %w", action, err)
	}

	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.doRequest(ctx, action, payload, out)
		if err == nil {
			return nil
		}
		if c.retryable(err, idempotent) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.config.BaseRetryDelay)
	b = retry.WithCappedDuration(c.config.MaxRetryDelay, b)
	retries := c.config.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

func (c *Client) retryable(err error, idempotent bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !idempotent {
		return isDialError(err)
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	return errors.Is(err, ErrUnavailable)
}

// doRequest sends a single POST and decodes the reply into out.
func (c *Client) doRequest(ctx context.Context, action string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("settle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	// The backend uses 400 for every rejection, but an error envelope is
	// honoured on any status.
	var envelope struct {
		Error *string `json:"error"`
	}
	if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
		return &BackendError{Action: action, Message: *envelope.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return fmt.Errorf("settle: %s: empty response", action)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("settle: %s: invalid response JSON: %w", action, err)
	}
	return nil
}
