package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/odds"
	"github.com/MJE43/stake-dice-config/internal/settle"
	"github.com/MJE43/stake-dice-config/internal/widget"
)

// session is one live widget. mu serializes every use of machine.
type session struct {
	id string

	mu         sync.Mutex
	machine    *widget.Machine
	clientSeed string
}

func (sess *session) response() WidgetResponse {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return WidgetResponse{
		ID:         sess.id,
		ClientSeed: sess.clientSeed,
		Patch:      sess.machine.Render(widget.FieldNone),
	}
}

// paramError is an action parameter that could not be used.
type paramError struct {
	Field string
	Err   error
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *paramError) Unwrap() error { return e.Err }

// session returns the widget with id and restarts its expiry.
func (s *Server) session(id string) (*session, bool) {
	v, ok := s.widgets.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*session)
	// Replace fails if the widget was deleted in between; the caller still
	// holds a usable session for this request.
	_ = s.widgets.Replace(id, sess, cache.DefaultExpiration)
	return sess, true
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.session(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound,
			NewError(ErrTypeWidgetNotFound, "Widget not found").WithContext("id", id).Build())
	}
	return sess, ok
}

// POST /api/v1/widgets
func (s *Server) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	var req CreateWidgetRequest
	if !s.decode(w, r, &req) {
		return
	}

	var opts []widget.Option
	if req.Mode != "" {
		m, err := odds.ParseMode(req.Mode)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				NewError(ErrTypeInvalidParams, err.Error()).WithContext("field", "mode").Build())
			return
		}
		opts = append(opts, widget.WithMode(m))
	}
	if req.Threshold != "" {
		t, err := odds.ParseAmount(req.Threshold)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				NewError(ErrTypeInvalidParams, "threshold must be a number").WithContext("field", "threshold").Build())
			return
		}
		opts = append(opts, widget.WithThreshold(t))
	}
	if req.Stake != "" {
		stake, err := odds.ParseAmount(req.Stake)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				NewError(ErrTypeInvalidParams, "stake is out of range").WithContext("field", "stake").Build())
			return
		}
		opts = append(opts, widget.WithStake(stake))
	}

	seed := req.ClientSeed
	if seed == "" {
		var err error
		if seed, err = settle.NewClientSeed(); err != nil {
			s.writeError(w, r, http.StatusInternalServerError,
				NewError(ErrTypeInternal, "Failed to generate client seed").WithCause(err).Build())
			return
		}
	}

	sess := &session{
		id:         uuid.NewString(),
		machine:    widget.New(opts...),
		clientSeed: seed,
	}
	s.widgets.Set(sess.id, sess, cache.DefaultExpiration)
	s.log.Debug("widget created", slog.String("widget_id", sess.id))

	s.writeJSON(w, r, http.StatusCreated, sess.response())
}

// GET /api/v1/widgets/{id}
func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, sess.response())
}

// DELETE /api/v1/widgets/{id}
func (s *Server) handleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.widgets.Delete(sess.id)
	s.log.Debug("widget deleted", slog.String("widget_id", sess.id))
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/widgets/{id}/actions
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	patch, err := s.dispatch(r.Context(), sess, req, credentials(r))
	if err != nil {
		status, e := actionError(err)
		s.writeError(w, r, status, e)
		return
	}
	s.writeJSON(w, r, http.StatusOK, patch)
}

// dispatch applies req to the widget and returns the render pass. The
// backend is only consulted for max_bet and never while the widget is
// locked.
func (s *Server) dispatch(ctx context.Context, sess *session, req ActionRequest, creds settle.Credentials) (widget.Patch, error) {
	if req.Type == "max_bet" {
		a, err := s.maxBet(ctx, req, creds)
		if err != nil {
			return widget.Patch{}, err
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.machine.Dispatch(a), nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if req.Type == "input" {
		field, err := widget.ParseField(req.Field)
		if err != nil {
			return widget.Patch{}, &paramError{Field: "field", Err: err}
		}
		patch, err := sess.machine.Input(field, req.Raw)
		if err != nil {
			return widget.Patch{}, &paramError{Field: "field", Err: err}
		}
		return patch, nil
	}

	a, err := typedAction(req, sess.machine.Config().Mode)
	if err != nil {
		return widget.Patch{}, err
	}
	return sess.machine.Dispatch(a), nil
}

// typedAction builds an action from its strict form. Unlike raw input,
// an unparseable value is rejected rather than read as zero.
func typedAction(req ActionRequest, mode odds.Mode) (widget.Action, error) {
	switch req.Type {
	case "toggle_mode":
		return widget.ToggleMode{}, nil
	case "recover":
		return widget.Recover{}, nil
	}

	v, err := odds.ParseAmount(req.Value)
	if errors.Is(err, odds.ErrAmountRange) {
		return nil, &paramError{Field: "value", Err: errors.New("is out of range")}
	}
	if err != nil {
		return nil, &paramError{Field: "value", Err: errors.New("must be a number")}
	}
	switch req.Type {
	case "set_threshold":
		// The slider cannot leave the mode's range.
		return widget.SetThreshold{Threshold: odds.Clamp(mode, v)}, nil
	case "set_win_chance":
		return widget.SetWinChance{Chance: v}, nil
	case "set_stake":
		return widget.SetStake{Amount: v}, nil
	}
	return nil, &paramError{Field: "type", Err: fmt.Errorf("unknown action %q", req.Type)}
}

// maxBet fills in whatever the request leaves out from the backend: the
// account balance and the bet ceiling.
func (s *Server) maxBet(ctx context.Context, req ActionRequest, creds settle.Credentials) (widget.MaxBet, error) {
	var a widget.MaxBet
	if req.Balance != "" {
		b, err := odds.ParseAmount(req.Balance)
		if err != nil {
			return a, &paramError{Field: "balance", Err: err}
		}
		a.Balance = b
	} else {
		u, err := s.backend.User(ctx, creds)
		if err != nil {
			return a, err
		}
		a.Balance = u.Balance()
	}

	if req.Ceiling != "" {
		c, err := odds.ParseAmount(req.Ceiling)
		if err != nil {
			return a, &paramError{Field: "ceiling", Err: err}
		}
		a.Ceiling = decimal.NewNullDecimal(c)
		return a, nil
	}
	ceiling, err := s.backend.MaxBet(ctx)
	if err != nil {
		s.log.Warn("max bet unavailable, using configured ceiling", logger.Err(err))
		ceiling = s.backend.MaxBetCents()
	}
	a.Ceiling = decimal.NewNullDecimal(odds.FromHundredths(ceiling))
	return a, nil
}
