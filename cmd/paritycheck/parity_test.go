package main

import (
	"io"
	"strings"
	"testing"

	"github.com/cheggaaa/pb/v3"

	"github.com/MJE43/stake-dice-config/internal/odds"
	"github.com/MJE43/stake-dice-config/internal/settle"
)

func quietBar(n int) *pb.ProgressBar {
	bar := pb.New(n)
	bar.SetWriter(io.Discard)
	return bar.Start()
}

func TestSweepFindsNoMismatches(t *testing.T) {
	wagers := []int64{1, 99, 1025, 100000}
	rep := sweep([]odds.Mode{odds.Under, odds.Over}, wagers, 4, quietBar(0))
	if rep.Thresholds != 9703+9703 {
		t.Errorf("Expected 19406 thresholds, got %d", rep.Thresholds)
	}
	if rep.Checks != rep.Thresholds*len(wagers)*2 {
		t.Errorf("Unexpected check count %d", rep.Checks)
	}
	if len(rep.Mismatches) != 0 {
		t.Errorf("Expected no mismatches, first: %s", describe(rep.Mismatches[0]))
	}
}

func TestCheckThresholdMidpoint(t *testing.T) {
	if got := checkThreshold(odds.Over, 5049, []int64{1000}); len(got) != 0 {
		t.Errorf("Expected parity at OVER 50.49, got %+v", got)
	}
}

func TestCheckThresholdReportsOutOfRange(t *testing.T) {
	got := checkThreshold(odds.Under, 9900, []int64{100})
	if len(got) != 1 || got[0].Err == nil {
		t.Errorf("Expected one error mismatch, got %+v", got)
	}
}

func TestParseWagers(t *testing.T) {
	got, err := parseWagers(" 1, 250 ,,30000000")
	if err != nil {
		t.Fatalf("parseWagers failed: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 250 || got[2] != 30000000 {
		t.Errorf("Unexpected wagers %v", got)
	}
	for _, bad := range []string{"", "x", "0", "-5", "30000001"} {
		if _, err := parseWagers(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestDescribe(t *testing.T) {
	s := describe(Mismatch{Mode: odds.Under, Threshold: 4950, WagerCents: 1000, PreviewCents: 1000, SettledCents: 999})
	if s != "UNDER 49.50 wager 10.00: preview +10.00, settled +9.99" {
		t.Errorf("Unexpected description %q", s)
	}
	if !strings.Contains(describe(Mismatch{Mode: odds.Over, Threshold: 1, Err: io.EOF}), "EOF") {
		t.Error("Expected error text in description")
	}
}

func TestWithCeiling(t *testing.T) {
	got := withCeiling([]int64{1, 100})
	if len(got) != 3 || got[2] != settle.DefaultMaxBetCents {
		t.Errorf("Expected the bet ceiling appended, got %v", got)
	}
	if got := withCeiling([]int64{settle.DefaultMaxBetCents}); len(got) != 1 {
		t.Errorf("Expected no duplicate ceiling, got %v", got)
	}
}
