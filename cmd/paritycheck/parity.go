package main

import (
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// Mismatch is one threshold/wager pair where the preview and the backend
// formula disagree.
type Mismatch struct {
	Mode         odds.Mode
	Threshold    int64
	WagerCents   int64
	PreviewCents int64
	SettledCents int64
	Err          error
}

// Report is the outcome of a sweep.
type Report struct {
	Thresholds int
	Checks     int
	Mismatches []Mismatch
	Elapsed    time.Duration
}

type job struct {
	mode      odds.Mode
	threshold int64
}

// sweep compares the previewed profit with the settled profit for every
// threshold of every mode and every wager. Each threshold advances bar once.
func sweep(modes []odds.Mode, wagers []int64, workers int, bar *pb.ProgressBar) Report {
	if workers < 1 {
		workers = 1
	}
	var rep Report
	for _, m := range modes {
		lo, hi := odds.RangeHundredths(m)
		rep.Thresholds += int(hi - lo + 1)
	}
	rep.Checks = rep.Thresholds * len(wagers) * 2

	jobs := make(chan job, 1024)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	start := time.Now()
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for j := range jobs {
				found := checkThreshold(j.mode, j.threshold, wagers)
				if len(found) > 0 {
					mu.Lock()
					rep.Mismatches = append(rep.Mismatches, found...)
					mu.Unlock()
				}
				bar.Increment()
			}
		}()
	}
	for _, m := range modes {
		lo, hi := odds.RangeHundredths(m)
		for t := lo; t <= hi; t++ {
			jobs <- job{mode: m, threshold: t}
		}
	}
	close(jobs)
	wg.Wait()
	rep.Elapsed = time.Since(start)
	return rep
}

// checkThreshold checks one threshold: a win must pay exactly the previewed
// profit and a loss must cost exactly the wager.
func checkThreshold(m odds.Mode, t int64, wagers []int64) []Mismatch {
	var out []Mismatch
	for _, w := range wagers {
		q, err := odds.NewQuote(m, odds.FromHundredths(t), odds.FromHundredths(w))
		if err != nil {
			out = append(out, Mismatch{Mode: m, Threshold: t, WagerCents: w, Err: err})
			continue
		}
		var preview int64
		if q.Profit.Valid {
			if preview, err = odds.ToHundredths(q.Profit.Decimal); err != nil {
				out = append(out, Mismatch{Mode: m, Threshold: t, WagerCents: w, Err: err})
				continue
			}
		}

		won, err := odds.SettlementDeltaCents(m, t, w, true)
		if err != nil || won != preview {
			out = append(out, Mismatch{Mode: m, Threshold: t, WagerCents: w, PreviewCents: preview, SettledCents: won, Err: err})
		}
		lost, err := odds.SettlementDeltaCents(m, t, w, false)
		if err != nil || lost != -w {
			out = append(out, Mismatch{Mode: m, Threshold: t, WagerCents: w, PreviewCents: -w, SettledCents: lost, Err: err})
		}
	}
	return out
}
