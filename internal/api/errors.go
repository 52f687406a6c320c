package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/MJE43/stake-dice-config/internal/settle"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error's text.
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	e := EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(eb.context) > 0 {
		e.Context = eb.context
	}
	return e
}

// writeError logs e and writes it with status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, e EngineError) {
	if e.RequestID == "" {
		e.RequestID = middleware.GetReqID(r.Context())
	}
	category := GetErrorCategory(e.Type)
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.log.LogAttrs(r.Context(), level, "request failed",
		slog.String("type", e.Type),
		slog.String("category", string(category)),
		slog.Int("status", status),
		slog.String("request_id", e.RequestID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("message", e.Message),
	)

	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", e.Type)
	w.Header().Set("X-Error-Category", string(category))
	render.Status(r, status)
	render.JSON(w, r, e)
}

// writeValidationError reports the failed validator tags field by field.
func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, http.StatusBadRequest, validationError(err))
}

func validationError(err error) EngineError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError(ErrTypeValidation, "Validation failed").WithCause(err).Build()
	}
	msgs := make([]string, 0, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		switch fe.ActualTag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", fe.Field(), fe.Param()))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("field %s must be a number", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", fe.Field()))
		}
	}
	return NewError(ErrTypeValidation, "Validation failed: "+strings.Join(msgs, ", ")).
		WithContext("fields", fields).
		Build()
}

// writeSettleError maps a settlement failure to a response.
func (s *Server) writeSettleError(w http.ResponseWriter, r *http.Request, err error) {
	status, e := settleError(err)
	s.writeError(w, r, status, e)
}

// settleError classifies a settlement failure. The message is the one shown
// to the player.
func settleError(err error) (int, EngineError) {
	msg := settle.UserMessage(err)
	var (
		be *settle.BackendError
		ve *settle.ValidationError
		he *settle.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, NewError(ErrTypeValidation, msg).WithContext("field", ve.Field).Build()
	case errors.As(err, &be):
		return http.StatusUnprocessableEntity,
			NewError(ErrTypeBetRejected, msg).WithContext("backend_action", be.Action).WithCause(err).Build()
	case errors.Is(err, settle.ErrUnavailable):
		return http.StatusServiceUnavailable, NewError(ErrTypeServiceUnavailable, msg).WithCause(err).Build()
	case errors.As(err, &he):
		return http.StatusBadGateway, NewError(ErrTypeBackend, msg).WithContext("backend_status", he.StatusCode).Build()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewError(ErrTypeTimeout, msg).Build()
	}
	return http.StatusBadGateway, NewError(ErrTypeBackend, msg).WithCause(err).Build()
}

// actionError classifies a failed action: bad parameters are the caller's
// fault, anything else came from the backend.
func actionError(err error) (int, EngineError) {
	var pe *paramError
	if errors.As(err, &pe) {
		return http.StatusBadRequest,
			NewError(ErrTypeInvalidParams, pe.Error()).WithContext("field", pe.Field).Build()
	}
	return settleError(err)
}

// recoverer turns a panic into a 500 EngineError.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.log.Error("panic recovered",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr))
				s.writeError(w, r, http.StatusInternalServerError,
					NewError(ErrTypeInternal, "Internal server error").Build())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
