package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/factsearch/factsearch/internal/model"
)

// Close codes for protocol violations on a fresh stream
const (
	closeUnauthorized  = 4001
	closeSubmitTimeout = 4002
	closeEmptyClaim    = 4003
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the HTTP middleware
	},
}

// wsWriter serializes writes to one websocket connection
type wsWriter struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (w *wsWriter) Send(ev model.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.ws.WriteJSON(ev)
}

func (w *wsWriter) Close(code int, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	deadline := time.Now().Add(time.Second)
	_ = w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = w.ws.Close()
}

type claimSubmission struct {
	ClaimText string `json:"claim_text"`
}

// handleClaimStream is the websocket endpoint for one claim's progress
// stream. A connection either reattaches to an existing session and
// gets a gap-free replay from last_seq, or submits a fresh claim and
// starts a verification run. Disconnecting cancels a running workflow.
func (s *Server) handleClaimStream(c *gin.Context) {
	claimID := c.Param("claim_id")
	lastSeq, _ := strconv.ParseUint(c.DefaultQuery("last_seq", "0"), 10, 64)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "claim_id", claimID, "error", err)
		return
	}
	writer := &wsWriter{ws: ws}

	token, _ := c.Cookie(cookieName)
	username, ok := s.auth.Username(token)
	if !ok {
		s.rejectStream(writer, claimID, "Unauthorized: please login first", closeUnauthorized)
		return
	}

	slog.Info("websocket connected", "claim_id", claimID, "user", username, "last_seq", lastSeq)

	sess, found := s.manager.Get(claimID)
	if !found {
		// Fresh stream: the client must submit the claim within the
		// bounded wait
		claimText, ok := s.awaitSubmission(writer, ws, claimID)
		if !ok {
			return
		}
		sess, _ = s.manager.Open(claimID, username, claimText)
	}

	if done := sess.AttachReplay(lastSeq, writer.Send); done {
		_ = writer.Send(model.StreamEvent{
			Type:      model.EventGraphComplete,
			ClaimID:   claimID,
			Timestamp: model.EventTimestamp(),
		})
	}
	defer sess.Detach()

	// Hold the connection; any read error is a disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	slog.Info("websocket disconnected", "claim_id", claimID, "user", username)
	s.manager.Cancel(claimID)
	_ = ws.Close()
}

// awaitSubmission waits up to the configured timeout for the initial
// {claim_text} message. Violations get a distinct close code and no
// session is created.
func (s *Server) awaitSubmission(writer *wsWriter, ws *websocket.Conn, claimID string) (string, bool) {
	ws.SetReadDeadline(time.Now().Add(s.submitTimeout))
	defer ws.SetReadDeadline(time.Time{})

	_, raw, err := ws.ReadMessage()
	if err != nil {
		s.rejectStream(writer, claimID, "No claim_text provided within 10s", closeSubmitTimeout)
		return "", false
	}

	var sub claimSubmission
	if err := json.Unmarshal(raw, &sub); err != nil || strings.TrimSpace(sub.ClaimText) == "" {
		s.rejectStream(writer, claimID, "Empty claim_text", closeEmptyClaim)
		return "", false
	}

	return strings.TrimSpace(sub.ClaimText), true
}

// rejectStream sends one error frame and closes the connection with the
// given code
func (s *Server) rejectStream(writer *wsWriter, claimID, message string, code int) {
	_ = writer.Send(model.StreamEvent{
		Type:      model.EventError,
		ClaimID:   claimID,
		Timestamp: model.EventTimestamp(),
		Error:     message,
		Message:   message,
	})
	writer.Close(code, message)
	slog.Info("stream rejected", "claim_id", claimID, "code", code, "reason", message)
}
