// Command paritycheck proves that the profit shown before a bet is the
// profit the backend pays, for every threshold in both modes.
//
// It exits non-zero when any threshold disagrees.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/MJE43/stake-dice-config/internal/display"
	"github.com/MJE43/stake-dice-config/internal/odds"
	"github.com/MJE43/stake-dice-config/internal/settle"
)

// Wagers in cents: dust, round amounts, odd amounts and a large odd wager.
// The bet ceiling itself is always added.
const defaultWagers = "1,7,99,100,1025,33333,100000,9999999"

func main() {
	var (
		wagersFlag = flag.String("wagers", defaultWagers, "comma separated wagers in cents")
		workers    = flag.Int("workers", runtime.NumCPU(), "parallel workers")
		quiet      = flag.Bool("quiet", false, "hide the progress bar")
		show       = flag.Int("show", 20, "mismatches to print")
	)
	flag.Parse()

	wagers, err := parseWagers(*wagersFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	wagers = withCeiling(wagers)

	modes := []odds.Mode{odds.Under, odds.Over}
	total := 0
	for _, m := range modes {
		lo, hi := odds.RangeHundredths(m)
		total += int(hi - lo + 1)
	}
	bar := pb.StartNew(total)
	if *quiet {
		bar.SetWriter(io.Discard)
	}
	rep := sweep(modes, wagers, *workers, bar)
	bar.Finish()

	fmt.Print(display.Table("Preview / settlement parity", reportRows(rep, wagers)))

	if len(rep.Mismatches) == 0 {
		return
	}
	slices.SortFunc(rep.Mismatches, func(a, b Mismatch) int {
		if a.Mode != b.Mode {
			return int(a.Mode) - int(b.Mode)
		}
		if a.Threshold != b.Threshold {
			return int(a.Threshold - b.Threshold)
		}
		return int(a.WagerCents - b.WagerCents)
	})
	for i, mm := range rep.Mismatches {
		if i == *show {
			fmt.Printf("... and %d more\n", len(rep.Mismatches)-i)
			break
		}
		fmt.Println(describe(mm))
	}
	os.Exit(1)
}

func parseWagers(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("paritycheck: bad wager %q", part)
		}
		if n > settle.DefaultMaxBetCents {
			return nil, fmt.Errorf("paritycheck: wager %d above the bet ceiling %d", n, settle.DefaultMaxBetCents)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("paritycheck: no wagers")
	}
	return out, nil
}

// withCeiling appends the backend bet ceiling unless it is already listed.
func withCeiling(wagers []int64) []int64 {
	if slices.Contains(wagers, settle.DefaultMaxBetCents) {
		return wagers
	}
	return append(wagers, settle.DefaultMaxBetCents)
}

func reportRows(rep Report, wagers []int64) []display.Row {
	ws := make([]string, len(wagers))
	for i, w := range wagers {
		ws[i] = display.Cents(w)
	}
	status := "OK"
	if len(rep.Mismatches) > 0 {
		status = "FAILED"
	}
	return []display.Row{
		{Key: "Thresholds", Value: strconv.Itoa(rep.Thresholds)},
		{Key: "Wagers", Value: strings.Join(ws, ", ")},
		{Key: "Checks", Value: strconv.Itoa(rep.Checks)},
		{Key: "Mismatches", Value: strconv.Itoa(len(rep.Mismatches))},
		{Key: "Elapsed", Value: rep.Elapsed.Round(time.Millisecond).String()},
		{Key: "Result", Value: status},
	}
}

func describe(mm Mismatch) string {
	label := display.Threshold(mm.Mode, odds.FromHundredths(mm.Threshold))
	if mm.Err != nil {
		return fmt.Sprintf("%s wager %s: %v", label, display.Cents(mm.WagerCents), mm.Err)
	}
	return fmt.Sprintf("%s wager %s: preview %s, settled %s",
		label, display.Cents(mm.WagerCents),
		display.Signed(odds.FromHundredths(mm.PreviewCents)),
		display.Signed(odds.FromHundredths(mm.SettledCents)))
}
