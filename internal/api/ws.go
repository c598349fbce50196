package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Editor frontends connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SafeConn serializes writes so concurrent reviews can share one socket.
type SafeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *SafeConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

type socketRequest struct {
	Type          string   `json:"type"`
	Content       string   `json:"content"`
	SessionID     string   `json:"session_id"`
	AnalysisTypes []string `json:"analysis_types"`
}

// handleReviewSocket runs reviews over a persistent WebSocket. Each review
// request gets its own goroutine so a slow document does not block the read
// loop; the connection stays open until the client goes away.
func (s *Server) handleReviewSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxUploadBytes)

	sc := &SafeConn{conn: conn}
	log := s.log.With("remote", conn.RemoteAddr().String())
	log.Info("review socket connected")

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	for {
		var req socketRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("review socket read failed", "error", err)
			}
			return
		}

		switch req.Type {
		case "review":
			if strings.TrimSpace(req.Content) == "" {
				sc.WriteJSON(map[string]any{"type": "error", "message": "content is required"})
				continue
			}
			wg.Add(1)
			go func(req socketRequest) {
				defer wg.Done()
				result := s.reviewer.Review(ctx, req.Content, req.SessionID, req.AnalysisTypes)
				err := sc.WriteJSON(map[string]any{
					"type":        "suggestions",
					"suggestions": nonNilSuggestions(result.Suggestions),
					"session_id":  result.SessionID,
					"metadata":    result.Metadata,
				})
				if err != nil {
					log.Warn("review socket write failed", "error", err)
				}
			}(req)

		case "ping":
			sc.WriteJSON(map[string]any{"type": "pong"})

		default:
			sc.WriteJSON(map[string]any{"type": "error", "message": "unknown message type: " + req.Type})
		}
	}
}
