package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit    = 1 << 20
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS serves chat over a websocket: each text frame carries one
// chatRequest and gets one chatResponse frame back. The session id is
// assigned on the first frame that omits it and reused for the rest of
// the connection.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
			s.writeWS(conn, errorResponse{Error: "user_id and message are required", Code: "invalid_request"})
			continue
		}
		if strings.TrimSpace(req.SessionID) == "" {
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			req.SessionID = sessionID
		} else {
			sessionID = req.SessionID
		}

		resp, err := s.runTurn(r.Context(), req)
		if err != nil {
			log.Printf("[HTTP] Websocket turn failed: %v", err)
			s.writeWS(conn, errorResponse{Error: err.Error(), Code: "turn_failed"})
			continue
		}
		if !s.writeWS(conn, resp) {
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v) == nil
}
