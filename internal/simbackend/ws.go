package simbackend

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleWS attaches one websocket connection to the session room named by
// the pin in the path.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	pin := chi.URLParam(r, "pin")
	room := s.registry.Get(pin)
	if room == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev/test tool, origin checks off
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	connID := uuid.NewString()
	outbox := make(chan []byte, 16)

	room.Inbox() <- attach{connID: connID, outbox: outbox}
	defer func() { room.Inbox() <- detach{connID: connID} }()

	s.log.Debug("ws attached", zap.String("pin", pin), zap.String("conn_id", connID))

	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for payload := range outbox {
			ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.log.Debug("ws read ended", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}
		room.Inbox() <- fromConn{connID: connID, data: data}
	}
}
