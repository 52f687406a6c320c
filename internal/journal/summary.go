package journal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MJE43/stake-dice-config/internal/odds"
)

// Confidence is the level of the win-rate interval in a Summary.
const Confidence = 0.95

// Interval is a closed range of proportions.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether p lies in the interval.
func (i Interval) Contains(p float64) bool { return p >= i.Lo && p <= i.Hi }

// Summary compares realized results with the odds each bet was placed at.
type Summary struct {
	Bets         int   `json:"bets"`
	Wins         int   `json:"wins"`
	WageredCents int64 `json:"wageredCents"`
	DeltaCents   int64 `json:"deltaCents"`

	// RTP is returned/wagered. Empty until something has been wagered.
	RTP decimal.NullDecimal `json:"rtp"`

	WinRate         float64  `json:"winRate"`
	WinRateCI       Interval `json:"winRateCi"`
	ExpectedWinRate float64  `json:"expectedWinRate"`

	MeanDeltaCents   float64 `json:"meanDeltaCents"`
	StdDevDeltaCents float64 `json:"stdDevDeltaCents"`
}

// WithinExpectation reports whether the expected win rate falls inside the
// realized confidence interval.
func (s Summary) WithinExpectation() bool {
	if s.Bets == 0 {
		return true
	}
	return s.WinRateCI.Contains(s.ExpectedWinRate)
}

// Summarize aggregates the journal. A non-empty widgetID restricts it to one
// widget.
func (s *Store) Summarize(ctx context.Context, widgetID string) (Summary, error) {
	q := `SELECT roll_under, threshold, wager_cents, won, delta_cents FROM bets`
	var args []any
	if widgetID != "" {
		q += ` WHERE widget_id=?`
		args = append(args, widgetID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return Summary{}, fmt.Errorf("journal: summarize: %w", err)
	}
	defer rows.Close()

	var (
		sum      Summary
		deltas   []float64
		expected float64
	)
	for rows.Next() {
		var (
			rollUnder, won bool
			threshold      int64
			wager, delta   int64
		)
		if err := rows.Scan(&rollUnder, &threshold, &wager, &won, &delta); err != nil {
			return Summary{}, err
		}
		sum.Bets++
		if won {
			sum.Wins++
		}
		sum.WageredCents += wager
		sum.DeltaCents += delta
		deltas = append(deltas, float64(delta))
		outcomes := odds.WinningOutcomes(odds.ModeFromRollUnder(rollUnder), threshold)
		expected += float64(outcomes) / odds.OutcomeSpace
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if sum.Bets == 0 {
		sum.WinRateCI = Interval{Lo: 0, Hi: 1}
		return sum, nil
	}

	sum.WinRate = float64(sum.Wins) / float64(sum.Bets)
	sum.WinRateCI = clopperPearson(sum.Wins, sum.Bets, Confidence)
	sum.ExpectedWinRate = expected / float64(sum.Bets)
	sum.MeanDeltaCents, sum.StdDevDeltaCents = stat.MeanStdDev(deltas, nil)
	if len(deltas) == 1 {
		sum.StdDevDeltaCents = 0
	}
	if sum.WageredCents > 0 {
		returned := decimal.NewFromInt(sum.WageredCents + sum.DeltaCents)
		sum.RTP = decimal.NewNullDecimal(returned.DivRound(decimal.NewFromInt(sum.WageredCents), 6))
	}
	return sum, nil
}

// clopperPearson is the exact binomial interval for k successes in n trials.
func clopperPearson(k, n int, confidence float64) Interval {
	alpha := 1 - confidence
	var ci Interval
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return ci
}
