package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaultpass/passgen-go/internal/model"
	"github.com/vaultpass/passgen-go/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// SessionHandler serves the WebSocket controller behind the control page.
// Each connection gets its own service.Session.
type SessionHandler struct {
	service  *service.GeneratorService
	opts     service.SessionOptions
	upgrader websocket.Upgrader
}

func NewSessionHandler(svc *service.GeneratorService, opts service.SessionOptions) *SessionHandler {
	return &SessionHandler{
		service: svc,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleSession handles GET /ws requests.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	views := make(chan model.SessionView, 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	sess := service.NewSession(h.service, h.opts, func(v model.SessionView) {
		select {
		case views <- v:
		case <-done:
		case <-writerDone:
		}
	})

	go func() {
		defer close(writerDone)
		writeViews(conn, views, done)
	}()

	slog.Info("session opened", "remote", r.RemoteAddr)
	sess.Start()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev model.SessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("session read failed", "error", err, "remote", r.RemoteAddr)
			}
			break
		}
		if err := sess.Handle(ev); err != nil {
			slog.Warn("session event rejected", "error", err, "type", ev.Type)
		}
	}

	sess.Close()
	close(done)
	<-writerDone
	slog.Info("session closed", "remote", r.RemoteAddr)
}

// writeViews is the only writer on conn. Views older than the last one sent
// are dropped, since timer callbacks may deliver them out of order.
func writeViews(conn *websocket.Conn, views <-chan model.SessionView, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case v := <-views:
			if v.Seq <= last {
				continue
			}
			last = v.Seq
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.Warn("session write failed", "error", err)
				}
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
