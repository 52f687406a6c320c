// Package api serves bet configuration widgets over HTTP and websocket.
//
// Each widget is a widget.Machine held in memory under a uuid. Clients send
// actions and receive render passes; bets are settled through the wagering
// backend and recorded in the journal.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/patrickmn/go-cache"

	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/settle"
)

// Backend settles bets. *settle.Client implements it.
type Backend interface {
	Ping(ctx context.Context) error
	MaxBet(ctx context.Context) (int64, error)
	MaxBetCents() int64
	User(ctx context.Context, creds settle.Credentials) (settle.User, error)
	Bets(ctx context.Context, creds settle.Credentials, count, skip int) ([]settle.Bet, error)
	Bet(ctx context.Context, creds settle.Credentials, req settle.BetRequest) (settle.BetResult, error)
}

// Journal records settled bets. *journal.Store implements it.
type Journal interface {
	Ping(ctx context.Context) error
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (journal.Entry, error)
	List(ctx context.Context, widgetID string, count, skip int) ([]journal.Entry, error)
	Summarize(ctx context.Context, widgetID string) (journal.Summary, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

// Options configures a Server. Zero values take defaults.
type Options struct {
	Logger          *slog.Logger
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	WidgetTTL       time.Duration
	CleanupInterval time.Duration
}

// Server holds the HTTP handlers and the live widgets.
type Server struct {
	backend        Backend
	journal        Journal
	log            *slog.Logger
	validate       *validator.Validate
	widgets        *cache.Cache
	allowedOrigins []string
	requestTimeout time.Duration
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(backend Backend, j Journal, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.WidgetTTL <= 0 {
		opts.WidgetTTL = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		backend:        backend,
		journal:        j,
		log:            opts.Logger.With(slog.String("component", "api")),
		validate:       validator.New(),
		widgets:        cache.New(opts.WidgetTTL, opts.CleanupInterval),
		allowedOrigins: opts.AllowedOrigins,
		requestTimeout: opts.RequestTimeout,
		startTime:      time.Now(),
	}
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", headerMessage, headerSignature},
		ExposedHeaders:   []string{"X-Engine-Version", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived; no timeout or compression.
		r.Get("/widgets/{id}/ws", s.handleWidgetSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))
			r.Use(compress)

			r.Get("/odds", s.handleOdds)

			r.Post("/widgets", s.handleCreateWidget)
			r.Get("/widgets/{id}", s.handleGetWidget)
			r.Delete("/widgets/{id}", s.handleDeleteWidget)
			r.Post("/widgets/{id}/actions", s.handleAction)
			r.Post("/widgets/{id}/bet", s.handleBet)

			r.Get("/bets", s.handleListBets)
			r.Get("/bets/summary", s.handleSummary)
			r.Get("/bets/export.csv", s.handleExport)
			r.Get("/bets/{id}", s.handleGetBet)

			r.Get("/account/bets", s.handleAccountBets)
		})
	})

	return r
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// requestLogger emits one log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// writeJSON writes v with status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("X-Engine-Version", EngineVersion)
	render.Status(r, status)
	render.JSON(w, r, v)
}

// decode reads a JSON body into v and validates it. An empty body leaves v
// zero. It writes the error response itself and reports false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, v); err != nil && err != io.EOF {
			s.writeError(w, r, http.StatusBadRequest,
				NewError(ErrTypeInvalidParams, "Invalid JSON body").WithCause(err).Build())
			return false
		}
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeValidationError(w, r, err)
		return false
	}
	return true
}

const (
	headerMessage   = "X-Dice-Message"
	headerSignature = "X-Dice-Signature"
)

// credentials reads the signed login from headers, falling back to the
// Message and Signature cookies the web client sets.
func credentials(r *http.Request) settle.Credentials {
	creds := settle.Credentials{
		Message:   r.Header.Get(headerMessage),
		Signature: r.Header.Get(headerSignature),
	}
	if creds.Message == "" {
		if c, err := r.Cookie("Message"); err == nil {
			creds.Message = c.Value
		}
	}
	if creds.Signature == "" {
		if c, err := r.Cookie("Signature"); err == nil {
			creds.Signature = c.Value
		}
	}
	return creds
}
