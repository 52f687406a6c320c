package display

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/odds"
)

func TestAmount(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0", "0.00"},
		{"9.809", "9.80"},
		{"1234567.5", "1,234,567.50"},
		{"300000", "300,000.00"},
		{"-42.129", "42.12"},
	}
	for _, tt := range tests {
		if got := Amount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Amount(%s): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestSigned(t *testing.T) {
	if got := Signed(decimal.RequireFromString("10")); got != "+10.00" {
		t.Errorf("expected +10.00, got %s", got)
	}
	if got := Signed(decimal.RequireFromString("-1000")); got != "-1,000.00" {
		t.Errorf("expected -1,000.00, got %s", got)
	}
	if got := Signed(decimal.Zero); got != "0.00" {
		t.Errorf("expected 0.00, got %s", got)
	}
}

func TestBetResult(t *testing.T) {
	got := BetResult(odds.Over, 5049, 7321, 1000, true)
	want := "Rolled 73.21 (OVER 50.49): won +10.00"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	got = BetResult(odds.Under, 4950, 9000, -250, false)
	if !strings.HasSuffix(got, "lost -2.50") {
		t.Errorf("unexpected loss line %q", got)
	}
}

func TestTableAligned(t *testing.T) {
	out := Table("Parity", []Row{{"Mode", "UNDER"}, {"Thresholds checked", "9,703"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		if runewidth.StringWidth(l) != width {
			t.Errorf("misaligned line %q", l)
		}
	}
	if !strings.Contains(out, "Parity") {
		t.Error("missing title")
	}
}

func TestTableLongTitle(t *testing.T) {
	out := Table("A rather long table title", []Row{{"k", "v"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		if runewidth.StringWidth(l) != width {
			t.Errorf("misaligned line %q", l)
		}
	}
}

func TestSummaryRows(t *testing.T) {
	rows := SummaryRows(journal.Summary{
		Bets:         1200,
		Wins:         600,
		WageredCents: 120000,
		DeltaCents:   -1200,
		RTP:          decimal.NewNullDecimal(decimal.RequireFromString("0.99")),
		WinRate:      0.5,
	})
	got := make(map[string]string)
	for _, r := range rows {
		got[r.Key] = r.Value
	}
	if got["Bets"] != "1,200" || got["Wagered"] != "1,200.00" || got["Net"] != "-12.00" || got["RTP"] != "99.00%" {
		t.Errorf("unexpected rows %v", got)
	}
}
