package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/verifier"
)

// WorkflowFactory builds a workflow whose events flow through emit.
// Each session gets its own workflow instance.
type WorkflowFactory func(emit verifier.EmitFunc) *verifier.Workflow

// Manager owns one session per claim id, runs each verification
// workflow as a cancellable background goroutine, and buffers progress
// events for gap-free replay.
//
// Completed sessions move to a TTL store and expire; live sessions are
// never reaped.
type Manager struct {
	factory WorkflowFactory

	mu   sync.RWMutex
	live map[string]*Session

	finished *gocache.Cache
}

// NewManager creates a session manager. doneTTL bounds how long
// completed sessions stay replayable.
func NewManager(factory WorkflowFactory, doneTTL time.Duration) *Manager {
	if doneTTL <= 0 {
		doneTTL = time.Hour
	}
	return &Manager{
		factory:  factory,
		live:     make(map[string]*Session),
		finished: gocache.New(doneTTL, doneTTL/4),
	}
}

// Get returns the session for a claim id, live or finished
func (m *Manager) Get(claimID string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.live[claimID]
	m.mu.RUnlock()
	if ok {
		return sess, true
	}
	if val, found := m.finished.Get(claimID); found {
		return val.(*Session), true
	}
	return nil, false
}

// Open returns the session for claimID, creating it and starting the
// verification workflow when none exists. The second return reports
// whether a new session was started: concurrent opens for the same id
// attach to the existing run instead of spawning a duplicate.
func (m *Manager) Open(claimID, username, claimText string) (*Session, bool) {
	m.mu.Lock()
	if sess, ok := m.live[claimID]; ok {
		m.mu.Unlock()
		return sess, false
	}
	if val, found := m.finished.Get(claimID); found {
		m.mu.Unlock()
		return val.(*Session), false
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(claimID, username, claimText, cancel)
	m.live[claimID] = sess
	m.mu.Unlock()

	emit := func(node string, typ model.EventType, status string, payload any) {
		sess.Emit(typ, node, status, payload, "")
	}
	wf := m.factory(emit)

	go m.run(ctx, sess, wf)

	slog.Info("verification started", "claim_id", claimID, "user", username)
	return sess, true
}

// Cancel requests cancellation of the background task for claimID, if
// one is still running
func (m *Manager) Cancel(claimID string) {
	m.mu.RLock()
	sess, ok := m.live[claimID]
	m.mu.RUnlock()
	if ok && !sess.Done() {
		sess.Cancel()
	}
}

// run executes the workflow and settles the session exactly once. Any
// failure, panic included, becomes a single buffered error event so
// later-attaching clients see a terminal signal.
func (m *Manager) run(ctx context.Context, sess *Session, wf *verifier.Workflow) {
	defer func() {
		if r := recover(); r != nil {
			m.fail(sess, fmt.Errorf("workflow panic: %v", r))
		}
	}()

	_, err := wf.Run(ctx, sess.State)
	switch {
	case err == nil:
		m.settle(sess)
		slog.Info("verification complete", "claim_id", sess.ClaimID)

	case errors.Is(err, context.Canceled):
		m.fail(sess, errors.New("verification cancelled by client disconnect"))
		slog.Info("verification cancelled", "claim_id", sess.ClaimID)

	default:
		m.fail(sess, err)
		slog.Error("verification failed", "claim_id", sess.ClaimID, "error", err)
	}
}

// fail appends one terminal error event and settles the session
func (m *Manager) fail(sess *Session, err error) {
	sess.Emit(model.EventError, "", "", nil, err.Error())
	m.settle(sess)
}

// settle flips done and moves the session from the live map to the TTL
// store. The insert happens under the same lock as the delete: a
// concurrent Open must always find the session in one of the two
// places, never neither.
func (m *Manager) settle(sess *Session) {
	sess.markDone()

	m.mu.Lock()
	m.finished.SetDefault(sess.ClaimID, sess)
	delete(m.live, sess.ClaimID)
	m.mu.Unlock()
}
