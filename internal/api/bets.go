package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/display"
	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/odds"
	"github.com/MJE43/stake-dice-config/internal/settle"
	"github.com/MJE43/stake-dice-config/internal/widget"
)

// GET /api/v1/odds?mode=&threshold=&stake=
func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := odds.Under
	if v := q.Get("mode"); v != "" {
		m, err := odds.ParseMode(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				NewError(ErrTypeInvalidParams, err.Error()).WithContext("field", "mode").Build())
			return
		}
		mode = m
	}
	threshold, err := decimalParam(q.Get("threshold"), odds.Midpoint(mode))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "threshold must be a number").WithContext("field", "threshold").Build())
		return
	}
	stake, err := decimalParam(q.Get("stake"), decimal.Zero)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "stake must be a number").WithContext("field", "stake").Build())
		return
	}

	quote, err := odds.NewQuote(mode, threshold, stake)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, err.Error()).Build())
		return
	}
	s.writeJSON(w, r, http.StatusOK, quote)
}

// POST /api/v1/widgets/{id}/bet
//
// The widget stays locked for the whole settlement so one widget never has
// two bets in flight. A failed bet leaves the configuration untouched.
func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req BetRequest
	if !s.decode(w, r, &req) {
		return
	}
	creds := credentials(r)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if req.ClientSeed != "" {
		sess.clientSeed = req.ClientSeed
	}
	ticket, err := sess.machine.Settlement(sess.clientSeed)
	if errors.Is(err, widget.ErrInvalidState) {
		s.writeError(w, r, http.StatusConflict,
			NewError(ErrTypeInvalidState, "Choose a valid win chance before betting.").Build())
		return
	}
	if errors.Is(err, odds.ErrAmountRange) {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "Stake is too large to settle.").WithContext("field", "stake").Build())
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "Failed to stage bet").WithCause(err).Build())
		return
	}

	res, err := s.backend.Bet(r.Context(), creds, settle.BetRequest{
		WagerCents: ticket.StakeHundredths,
		Mode:       ticket.Mode,
		Threshold:  ticket.ThresholdHundredths,
		ClientSeed: ticket.ClientSeed,
	})
	if err != nil {
		s.writeSettleError(w, r, err)
		return
	}

	log := s.log.With(
		slog.String("widget_id", sess.id),
		slog.String("mode", ticket.Mode.String()),
		slog.Int64("threshold", ticket.ThresholdHundredths),
		slog.Int64("wager_cents", ticket.StakeHundredths),
	)
	if odds.Won(ticket.Mode, ticket.ThresholdHundredths, res.Result) != res.Won {
		log.Warn("backend outcome disagrees with its roll", slog.Int64("result", res.Result), slog.Bool("won", res.Won))
	}
	if want, err := odds.SettlementDeltaCents(ticket.Mode, ticket.ThresholdHundredths, ticket.StakeHundredths, res.Won); err == nil && want != res.DeltaCents {
		log.Warn("settled delta differs from preview",
			slog.Int64("preview_cents", want),
			slog.Int64("settled_cents", res.DeltaCents))
	}

	resp := BetResponse{
		Result:  res,
		Message: display.BetResult(ticket.Mode, ticket.ThresholdHundredths, res.Result, res.DeltaCents, res.Won),
		Patch:   sess.machine.Render(widget.FieldNone),
	}

	// The bet has settled; record it even if the client has gone away.
	entry, err := s.journal.Record(context.WithoutCancel(r.Context()), journal.Entry{
		WidgetID:   sess.id,
		Mode:       ticket.Mode,
		Threshold:  ticket.ThresholdHundredths,
		WagerCents: ticket.StakeHundredths,
		Won:        res.Won,
		Result:     res.Result,
		DeltaCents: res.DeltaCents,
		ServerSeed: res.ServerSeed,
		ClientSeed: ticket.ClientSeed,
	})
	if err != nil {
		log.Error("failed to journal bet", logger.Err(err))
	} else {
		resp.Entry = &entry
	}

	log.Info("bet settled", slog.Bool("won", res.Won), slog.Int64("delta_cents", res.DeltaCents))
	s.writeJSON(w, r, http.StatusOK, resp)
}

// GET /api/v1/bets?widget=&count=&skip=
func (s *Server) handleListBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := intParam(q.Get("count"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "count must be an integer").WithContext("field", "count").Build())
		return
	}
	skip, err := intParam(q.Get("skip"))
	if err != nil || skip < 0 {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "skip must be a non-negative integer").WithContext("field", "skip").Build())
		return
	}

	bets, err := s.journal.List(r.Context(), q.Get("widget"), count, skip)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "Failed to list bets").WithCause(err).Build())
		return
	}
	if bets == nil {
		bets = []journal.Entry{}
	}
	s.writeJSON(w, r, http.StatusOK, BetsResponse{
		Bets:  bets,
		Count: journal.ListCount(count),
		Skip:  skip,
	})
}

// GET /api/v1/bets/{id}
func (s *Server) handleGetBet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "id must be a UUID").WithContext("field", "id").Build())
		return
	}
	entry, err := s.journal.Get(r.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound,
			NewError(ErrTypeBetNotFound, "Bet not found").WithContext("bet_id", id.String()).Build())
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "Failed to load bet").WithCause(err).Build())
		return
	}
	s.writeJSON(w, r, http.StatusOK, entry)
}

// GET /api/v1/account/bets?count=&skip=
//
// Proxies the backend's bet history for the caller's credentials, which
// also covers bets placed outside this service.
func (s *Server) handleAccountBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := intParam(q.Get("count"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "count must be an integer").WithContext("field", "count").Build())
		return
	}
	skip, err := intParam(q.Get("skip"))
	if err != nil || skip < 0 {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, "skip must be a non-negative integer").WithContext("field", "skip").Build())
		return
	}
	count = journal.ListCount(count)

	bets, err := s.backend.Bets(r.Context(), credentials(r), count, skip)
	if err != nil {
		s.writeSettleError(w, r, err)
		return
	}
	if bets == nil {
		bets = []settle.Bet{}
	}
	s.writeJSON(w, r, http.StatusOK, AccountBetsResponse{Bets: bets, Count: count, Skip: skip})
}

// GET /api/v1/bets/summary?widget=
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.journal.Summarize(r.Context(), r.URL.Query().Get("widget"))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "Failed to summarize bets").WithCause(err).Build())
		return
	}
	s.writeJSON(w, r, http.StatusOK, SummaryResponse{
		Summary:           sum,
		WithinExpectation: sum.WithinExpectation(),
	})
}

// GET /api/v1/bets/export.csv
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bets.csv"`)
	w.Header().Set("X-Engine-Version", EngineVersion)
	if err := s.journal.ExportCSV(r.Context(), w); err != nil {
		// Headers are gone once rows have been written.
		s.log.Error("export failed", logger.Err(err))
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
