package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/odds"
)

func TestPrintSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Record(context.Background(), journal.Entry{
		WidgetID: "w1", Mode: odds.Under, Threshold: 4950, WagerCents: 1000,
		Won: true, Result: 1234, DeltaCents: 1000, ServerSeed: "ss", ClientSeed: "cs1234",
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	if err := printSummary(path, ""); err != nil {
		t.Errorf("Expected summary to print, got %v", err)
	}
	if err := printSummary(path, "w1"); err != nil {
		t.Errorf("Expected widget summary to print, got %v", err)
	}
	if err := printSummary(filepath.Join(t.TempDir(), "missing", "journal.db"), ""); err == nil {
		t.Error("Expected an error for an unreachable journal")
	}
}
