package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/factsearch/factsearch/internal/model"
)

// SendFunc delivers one event to an attached client. Errors mean the
// connection is gone; they are swallowed and never affect the buffer.
type SendFunc func(model.StreamEvent) error

// Session holds the live verification run for one claim: its state, the
// gapless event buffer, and the handle to the background task.
//
// seq, buffer and the attached client are all guarded by one mutex, so
// replay and live delivery serialize: a client can never observe events
// out of seq order, duplicated, or skipped.
type Session struct {
	ClaimID  string
	Username string
	State    *model.VerifierState

	mu     sync.Mutex
	seq    uint64
	events []model.StreamEvent
	done   bool
	send   SendFunc

	cancel context.CancelFunc
}

func newSession(claimID, username, claimText string, cancel context.CancelFunc) *Session {
	return &Session{
		ClaimID:  claimID,
		Username: username,
		State:    model.NewVerifierState(claimText),
		cancel:   cancel,
	}
}

// Emit assigns the next sequence number, buffers the event, and
// best-effort-delivers it to the attached client. seq starts at 1 and
// is shared by start, update and error events alike.
func (s *Session) Emit(typ model.EventType, node, status string, payload any, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev := model.StreamEvent{
		Type:      typ,
		ClaimID:   s.ClaimID,
		Node:      node,
		Seq:       s.seq,
		Status:    status,
		Timestamp: model.EventTimestamp(),
		Payload:   payload,
		Error:     errMsg,
		Message:   errMsg,
	}
	s.events = append(s.events, ev)
	s.deliverLocked(ev)
}

// AttachReplay replays every buffered event with seq > lastSeq to send,
// in ascending order, then registers send for live delivery. It reports
// whether the session is done. A lastSeq beyond the buffer's maximum is
// effectively clamped: the replay is simply empty.
func (s *Session) AttachReplay(lastSeq uint64, send SendFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events {
		if ev.Seq <= lastSeq {
			continue
		}
		if err := send(ev); err != nil {
			slog.Debug("replay delivery failed", "claim_id", s.ClaimID, "seq", ev.Seq, "error", err)
			break
		}
	}
	s.send = send
	return s.done
}

// Detach removes the attached client, if it is the given one
func (s *Session) Detach() {
	s.mu.Lock()
	s.send = nil
	s.mu.Unlock()
}

// Replay returns a snapshot of every buffered event with seq > lastSeq
// and whether the session is done, without attaching a client.
func (s *Session) Replay(lastSeq uint64) ([]model.StreamEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missed []model.StreamEvent
	for _, ev := range s.events {
		if ev.Seq > lastSeq {
			missed = append(missed, ev)
		}
	}
	return missed, s.done
}

// Done reports whether the workflow has terminated
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// markDone flips the done flag and pushes the unbuffered terminal
// marker to the attached client
func (s *Session) markDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true
	s.deliverLocked(model.StreamEvent{
		Type:      model.EventGraphComplete,
		ClaimID:   s.ClaimID,
		Timestamp: model.EventTimestamp(),
	})
}

func (s *Session) deliverLocked(ev model.StreamEvent) {
	if s.send == nil {
		return
	}
	if err := s.send(ev); err != nil {
		slog.Debug("event delivery failed", "claim_id", s.ClaimID, "seq", ev.Seq, "error", err)
	}
}

// Cancel requests cooperative cancellation of the background task. The
// task observes it at its next suspension point; a cancelled workflow
// is never resumed and reattachment is replay-only.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
