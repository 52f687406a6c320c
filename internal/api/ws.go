package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/widget"
)

const (
	socketWriteWait      = 10 * time.Second
	socketMaxMessageSize = 4096
)

// SocketMessage is what the server pushes over a widget socket: a render
// pass or an error for the action that was just received.
type SocketMessage struct {
	Type  string        `json:"type"`
	Patch *widget.Patch `json:"patch,omitempty"`
	Error *EngineError  `json:"error,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// GET /api/v1/widgets/{id}/ws
//
// The client sends ActionRequest frames; each is answered with the
// resulting patch. The first frame from the server is a full render.
func (s *Server) handleWidgetSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.log.Warn("failed to upgrade connection", logger.Err(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(socketMaxMessageSize)

	log := s.log.With(slog.String("widget_id", sess.id))
	log.Debug("socket opened")
	creds := credentials(r)

	initial := sess.response().Patch
	if err := s.send(conn, SocketMessage{Type: "patch", Patch: &initial}); err != nil {
		log.Warn("failed to write message", logger.Err(err))
		return
	}

	for {
		var req ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("socket closed", logger.Err(err))
			}
			return
		}

		if _, ok := s.session(sess.id); !ok {
			e := NewError(ErrTypeWidgetNotFound, "Widget not found").WithContext("id", sess.id).Build()
			_ = s.send(conn, SocketMessage{Type: "error", Error: &e})
			return
		}

		msg := SocketMessage{Type: "patch"}
		if err := s.validate.Struct(req); err != nil {
			e := validationError(err)
			msg = SocketMessage{Type: "error", Error: &e}
		} else if patch, err := s.dispatch(r.Context(), sess, req, creds); err != nil {
			_, e := actionError(err)
			msg = SocketMessage{Type: "error", Error: &e}
		} else {
			msg.Patch = &patch
		}

		if err := s.send(conn, msg); err != nil {
			log.Warn("failed to write message", logger.Err(err))
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, msg SocketMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
