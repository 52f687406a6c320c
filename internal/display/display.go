// Package display formats amounts, results and summaries for people.
package display

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/odds"
)

var lang = language.English

// Amount formats d with thousands separators and two decimals, truncating
// any further digits.
func Amount(d decimal.Decimal) string {
	d = odds.Floor2(d.Abs())
	p := message.NewPrinter(lang)
	whole := d.Truncate(0)
	frac := d.Sub(whole).Shift(2).IntPart()
	return p.Sprintf("%d", whole.IntPart()) + fmt.Sprintf(".%02d", frac)
}

// Signed is Amount with an explicit sign; zero has none.
func Signed(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "+" + Amount(d)
	case -1:
		return "-" + Amount(d)
	}
	return Amount(d)
}

// Cents formats an integer amount of hundredths.
func Cents(n int64) string {
	return Amount(odds.FromHundredths(n))
}

// Threshold labels a threshold with its mode, e.g. "UNDER 49.50".
func Threshold(m odds.Mode, t decimal.Decimal) string {
	return m.String() + " " + t.StringFixed(2)
}

// Percent formats a proportion in [0, 1] as a percentage.
func Percent(p float64) string {
	return message.NewPrinter(lang).Sprintf("%.2f%%", 100*p)
}

// BetResult describes a settled bet in one line.
func BetResult(m odds.Mode, thresholdHundredths, resultHundredths, deltaCents int64, won bool) string {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	return fmt.Sprintf("Rolled %s (%s): %s %s",
		odds.FromHundredths(resultHundredths).StringFixed(2),
		Threshold(m, odds.FromHundredths(thresholdHundredths)),
		outcome,
		Signed(odds.FromHundredths(deltaCents)))
}

// Row is one key/value line of a Table.
type Row struct {
	Key   string
	Value string
}

// Table draws rows as a boxed two-column table under a centred title.
func Table(title string, rows []Row) string {
	keyW, valW := 0, 0
	for _, r := range rows {
		keyW = max(keyW, runewidth.StringWidth(r.Key))
		valW = max(valW, runewidth.StringWidth(r.Value))
	}
	keyW += 2
	valW += 2
	inner := keyW + valW + 1
	if w := runewidth.StringWidth(title) + 2; w > inner {
		valW += w - inner
		inner = w
	}

	var b strings.Builder
	divider := "+" + strings.Repeat("-", keyW) + "+" + strings.Repeat("-", valW) + "+\n"
	b.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	left := (inner - runewidth.StringWidth(title)) / 2
	right := inner - runewidth.StringWidth(title) - left
	b.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	b.WriteString(divider)
	for _, r := range rows {
		b.WriteString("| " + runewidth.FillRight(r.Key, keyW-2) + " | " + runewidth.FillRight(r.Value, valW-2) + " |\n")
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

// SummaryRows lays out a journal summary for Table.
func SummaryRows(s journal.Summary) []Row {
	p := message.NewPrinter(lang)
	rtp := "-"
	if s.RTP.Valid {
		rtp = s.RTP.Decimal.Shift(2).StringFixed(2) + "%"
	}
	return []Row{
		{"Bets", p.Sprintf("%d", s.Bets)},
		{"Wins", p.Sprintf("%d", s.Wins)},
		{"Wagered", Cents(s.WageredCents)},
		{"Net", Signed(odds.FromHundredths(s.DeltaCents))},
		{"RTP", rtp},
		{"Win rate", Percent(s.WinRate)},
		{"Win rate 95% CI", fmt.Sprintf("[%s, %s]", Percent(s.WinRateCI.Lo), Percent(s.WinRateCI.Hi))},
		{"Expected win rate", Percent(s.ExpectedWinRate)},
		{"Mean delta", p.Sprintf("%.2f", s.MeanDeltaCents/100)},
		{"Std dev delta", p.Sprintf("%.2f", s.StdDevDeltaCents/100)},
	}
}
