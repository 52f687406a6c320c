package settle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

var testCreds = Credentials{Message: "msg", Signature: "sig"}

func newTestClient(url string) *Client {
	return NewClient(Config{
		URL:            url,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
	})
}

func decodeAction(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return body
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	if c.URL() != "http://127.0.0.1:8000" {
		t.Errorf("default URL: expected http://127.0.0.1:8000, got %s", c.URL())
	}
	if c.MaxBetCents() != DefaultMaxBetCents {
		t.Errorf("default max bet: expected %d, got %d", DefaultMaxBetCents, c.MaxBetCents())
	}
	if c.http.Timeout != 15*time.Second {
		t.Errorf("default timeout: expected 15s, got %s", c.http.Timeout)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing Content-Type header")
		}
		if body := decodeAction(t, r); body["action"] != "ping" {
			t.Errorf("expected action ping, got %v", body["action"])
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "pong"})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestBet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeAction(t, r)
		want := map[string]any{
			"action":     "bet",
			"message":    "msg",
			"signature":  "sig",
			"wagerCents": float64(1000),
			"rollUnder":  false,
			"threshold":  float64(5049),
			"clientSeed": "abcdef123",
		}
		for k, v := range want {
			if body[k] != v {
				t.Errorf("%s: expected %v, got %v", k, v, body[k])
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"won": true, "deltaCents": 1000, "serverSeed": "ab", "result": 7321,
		})
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).Bet(context.Background(), testCreds, BetRequest{
		WagerCents: 1000,
		Mode:       odds.Over,
		Threshold:  5049,
		ClientSeed: "abcdef123",
	})
	if err != nil {
		t.Fatalf("Bet failed: %v", err)
	}
	if !res.Won || res.DeltaCents != 1000 || res.Result != 7321 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Roll().String() != "73.21" {
		t.Errorf("expected roll 73.21, got %s", res.Roll())
	}
}

func TestBetBackendRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"insufficient balance: you only have 1.00 but you're trying to bet 10.00!"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Bet(context.Background(), testCreds, BetRequest{
		WagerCents: 1000, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef",
	})
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if !be.IsInsufficientBalance() {
		t.Errorf("expected insufficient balance, got %q", be.Message)
	}
	if !strings.Contains(UserMessage(err), "balance is too low") {
		t.Errorf("unexpected user message %q", UserMessage(err))
	}
}

func TestBetNotRetriedOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Bet(context.Background(), testCreds, BetRequest{
		WagerCents: 1, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef",
	})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTP 502 error, got %v", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("expected a single attempt for bet, got %d", n)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]int64{"maxBetCents": 5000})
	}))
	defer server.Close()

	ceiling, err := newTestClient(server.URL).MaxBet(context.Background())
	if err != nil {
		t.Fatalf("MaxBet failed: %v", err)
	}
	if ceiling != 5000 {
		t.Errorf("expected 5000, got %d", ceiling)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestRetryGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).MaxBet(context.Background())
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if n := attempts.Load(); n != 4 {
		t.Errorf("expected 1 attempt plus 3 retries, got %d", n)
	}
}

func TestNoRetryOnBackendError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid signature"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).User(context.Background(), testCreds)
	var be *BackendError
	if !errors.As(err, &be) || !be.IsAuth() {
		t.Fatalf("expected auth BackendError, got %v", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeAction(t, r)
		if body["action"] != "user_get" || body["message"] != "msg" {
			t.Errorf("unexpected request %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "user1", "serverSeedHash": "ff", "balanceCents": 12345,
		})
	}))
	defer server.Close()

	u, err := newTestClient(server.URL).User(context.Background(), testCreds)
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != "user1" || u.Balance().String() != "123.45" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestBetsPassesPaging(t *testing.T) {
	var gotCount, gotSkip float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeAction(t, r)
		gotCount, _ = body["count"].(float64)
		gotSkip, _ = body["skip"].(float64)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 2, "amountCents": 100, "rollUnder": false, "threshold": 5049, "result": 9000, "won": true, "createdAt": 1700000000},
		})
	}))
	defer server.Close()

	bets, err := newTestClient(server.URL).Bets(context.Background(), testCreds, 50, -3)
	if err != nil {
		t.Fatal(err)
	}
	if gotCount != 50 || gotSkip != 0 {
		t.Errorf("expected count 50 and skip 0, got %v %v", gotCount, gotSkip)
	}
	if len(bets) != 1 || bets[0].Mode() != odds.Over {
		t.Errorf("unexpected bets %+v", bets)
	}
}

func TestUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(url)
	err := c.Ping(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(UserMessage(err), "not responding") {
		t.Errorf("unexpected user message %q", UserMessage(err))
	}
}

func TestValidate(t *testing.T) {
	c := NewClient(Config{MaxBetCents: 10000})
	cases := []struct {
		name  string
		req   BetRequest
		field string
	}{
		{"ok", BetRequest{WagerCents: 100, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef"}, ""},
		{"zero wager", BetRequest{WagerCents: 0, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef"}, ""},
		{"threshold low", BetRequest{WagerCents: 100, Mode: odds.Under, Threshold: 99, ClientSeed: "abcdef"}, "threshold"},
		{"threshold high", BetRequest{WagerCents: 100, Mode: odds.Over, Threshold: 9900, ClientSeed: "abcdef"}, "threshold"},
		{"negative wager", BetRequest{WagerCents: -1, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef"}, "wager"},
		{"above ceiling", BetRequest{WagerCents: 10001, Mode: odds.Under, Threshold: 4950, ClientSeed: "abcdef"}, "wager"},
		{"short seed", BetRequest{WagerCents: 100, Mode: odds.Under, Threshold: 4950, ClientSeed: "abc"}, "clientSeed"},
		{"long seed", BetRequest{WagerCents: 100, Mode: odds.Under, Threshold: 4950, ClientSeed: strings.Repeat("a", 33)}, "clientSeed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Validate(tc.req)
			if tc.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %s, got %s", tc.field, ve.Field)
			}
		})
	}
}

func TestBetValidatesBeforeSending(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Bet(context.Background(), testCreds, BetRequest{
		WagerCents: 100, Mode: odds.Under, Threshold: 4950, ClientSeed: "x",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if attempts.Load() != 0 {
		t.Errorf("expected no request, got %d", attempts.Load())
	}
}

func TestClientSeed(t *testing.T) {
	seed, err := NewClientSeed()
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(seed))
	}
	if err := ValidateClientSeed(seed); err != nil {
		t.Errorf("generated seed rejected: %v", err)
	}
	other, _ := NewClientSeed()
	if other == seed {
		t.Error("expected distinct seeds")
	}
}
