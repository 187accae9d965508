package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/factsearch/factsearch/internal/llm"
	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/verifier"
)

// fakeLLM satisfies the three workflow collaborators with canned answers
type fakeLLM struct {
	gate  chan struct{} // when set, GenerateQuery blocks until closed
	panic bool
}

func (f *fakeLLM) GenerateQuery(ctx context.Context, claim string, prior, missing []string) (string, error) {
	if f.panic {
		panic("boom")
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "query for " + claim, nil
}

func (f *fakeLLM) Decide(ctx context.Context, claim string, evidence []model.Evidence, iteration int) (llm.Decision, error) {
	return llm.Decision{NeedsMoreEvidence: false}, nil
}

func (f *fakeLLM) Judge(ctx context.Context, evalContext string) (llm.Assessment, error) {
	return llm.Assessment{Assessment: "Backed by [1].", Veracity: model.VeracityTrue}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

type fakeBackend struct{}

func (fakeBackend) Name() string { return "fake" }

func (fakeBackend) Search(ctx context.Context, query string) ([]model.Evidence, error) {
	return []model.Evidence{{URL: "https://a.example", Title: "A", Text: "snippet"}}, nil
}

func newTestManager(client *fakeLLM) *Manager {
	factory := func(emit verifier.EmitFunc) *verifier.Workflow {
		evaluator := verifier.NewEvaluator(client, nil, 50000)
		return verifier.NewWorkflow(client, fakeBackend{}, client, evaluator, nil, 3, emit)
	}
	return NewManager(factory, time.Hour)
}

func waitDone(t *testing.T, sess *Session) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !sess.Done() {
		if time.Now().After(deadline) {
			t.Fatal("Session did not finish in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestManager_SequenceGaplessFromOne(t *testing.T) {
	m := newTestManager(&fakeLLM{})
	sess, created := m.Open("claim-1", "alice", "the sky is blue")
	if !created {
		t.Fatal("Expected a new session")
	}
	waitDone(t, sess)

	events, done := sess.Replay(0)
	if !done {
		t.Fatal("Expected done session")
	}
	if len(events) == 0 {
		t.Fatal("Expected buffered events")
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("Event %d: expected seq %d, got %d", i, i+1, ev.Seq)
		}
		if ev.ClaimID != "claim-1" {
			t.Errorf("Event %d: expected claim id set, got %q", i, ev.ClaimID)
		}
		if ev.Type == model.EventGraphComplete {
			t.Error("graph_complete must never be buffered")
		}
	}
}

func TestManager_ReplayAfterLastSeq(t *testing.T) {
	m := newTestManager(&fakeLLM{})
	sess, _ := m.Open("claim-2", "alice", "claim")
	waitDone(t, sess)

	all, _ := sess.Replay(0)
	missed, done := sess.Replay(2)
	if !done {
		t.Fatal("Expected done session")
	}
	if len(missed) != len(all)-2 {
		t.Fatalf("Expected %d missed events, got %d", len(all)-2, len(missed))
	}
	if len(missed) > 0 && missed[0].Seq != 3 {
		t.Errorf("Expected replay to start at seq 3, got %d", missed[0].Seq)
	}
}

func TestManager_ReplayBeyondMaxIsEmpty(t *testing.T) {
	m := newTestManager(&fakeLLM{})
	sess, _ := m.Open("claim-3", "alice", "claim")
	waitDone(t, sess)

	var received []model.StreamEvent
	done := sess.AttachReplay(1_000_000, func(ev model.StreamEvent) error {
		received = append(received, ev)
		return nil
	})
	if !done {
		t.Fatal("Expected done session")
	}
	if len(received) != 0 {
		t.Errorf("Expected empty replay beyond buffer max, got %d events", len(received))
	}
}

func TestManager_OpenIsIdempotentPerClaim(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(&fakeLLM{gate: gate})

	first, created := m.Open("claim-4", "alice", "claim")
	if !created {
		t.Fatal("Expected a new session")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, created := m.Open("claim-4", "alice", "claim")
			if created {
				t.Error("Expected concurrent opens to reuse the session")
			}
			if sess != first {
				t.Error("Expected the same session instance")
			}
		}()
	}
	wg.Wait()

	close(gate)
	waitDone(t, first)
}

func TestManager_CancelProducesTerminalErrorEvent(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	m := newTestManager(&fakeLLM{gate: gate})

	sess, _ := m.Open("claim-5", "alice", "claim")
	m.Cancel("claim-5")
	waitDone(t, sess)

	events, done := sess.Replay(0)
	if !done {
		t.Fatal("Expected done session after cancellation")
	}
	if len(events) == 0 {
		t.Fatal("Expected a terminal error event")
	}
	last := events[len(events)-1]
	if last.Type != model.EventError {
		t.Fatalf("Expected error event last, got %s", last.Type)
	}
	if !strings.Contains(last.Error, "cancelled") {
		t.Errorf("Expected cancellation message, got %q", last.Error)
	}

	// Cancelled sessions are replay-only: a later Open reattaches
	if _, created := m.Open("claim-5", "alice", "claim"); created {
		t.Error("Expected no restart after cancellation")
	}
}

func TestManager_PanicBecomesErrorEvent(t *testing.T) {
	m := newTestManager(&fakeLLM{panic: true})
	sess, _ := m.Open("claim-6", "alice", "claim")
	waitDone(t, sess)

	events, _ := sess.Replay(0)
	if len(events) == 0 {
		t.Fatal("Expected a terminal error event")
	}
	last := events[len(events)-1]
	if last.Type != model.EventError || !strings.Contains(last.Error, "panic") {
		t.Errorf("Expected panic error event, got %+v", last)
	}
}

func TestManager_LiveDeliveryStrictlyIncreasing(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(&fakeLLM{gate: gate})

	sess, _ := m.Open("claim-7", "alice", "claim")

	var mu sync.Mutex
	var seqs []uint64
	var sawComplete bool
	sess.AttachReplay(0, func(ev model.StreamEvent) error {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type == model.EventGraphComplete {
			sawComplete = true
			return nil
		}
		seqs = append(seqs, ev.Seq)
		return nil
	})

	close(gate)
	waitDone(t, sess)

	mu.Lock()
	defer mu.Unlock()
	if !sawComplete {
		t.Error("Expected a live graph_complete after completion")
	}
	if len(seqs) == 0 {
		t.Fatal("Expected live events")
	}
	for i, seq := range seqs {
		if seq != uint64(i+1) {
			t.Fatalf("Delivery %d: expected seq %d, got %d", i, i+1, seq)
		}
	}
}

func TestManager_OpenExclusiveAcrossSettlement(t *testing.T) {
	m := newTestManager(&fakeLLM{})

	var starts atomic.Int64
	sess, created := m.Open("claim-9", "alice", "claim")
	if !created {
		t.Fatal("Expected a new session")
	}
	starts.Add(1)

	// Hammer Open while the workflow races to completion; the session
	// must be found in the live map or the finished store at every
	// instant, never restarted
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				got, created := m.Open("claim-9", "alice", "claim")
				if created {
					starts.Add(1)
				}
				if got != sess {
					t.Error("Expected every open to land on the original session")
					return
				}
			}
		}()
	}
	wg.Wait()
	waitDone(t, sess)

	if n := starts.Load(); n != 1 {
		t.Fatalf("Expected exactly one workflow start, got %d", n)
	}

	// The original event buffer survives settlement
	events, done := sess.Replay(0)
	if !done || len(events) == 0 {
		t.Fatalf("Expected the finished session's buffer intact, got %d events, done=%v", len(events), done)
	}
	if got, ok := m.Get("claim-9"); !ok || got != sess {
		t.Error("Expected the settled session still reachable")
	}
}

func TestManager_FinishedSessionFoundByGet(t *testing.T) {
	m := newTestManager(&fakeLLM{})
	sess, _ := m.Open("claim-8", "alice", "claim")
	waitDone(t, sess)

	got, ok := m.Get("claim-8")
	if !ok || got != sess {
		t.Fatal("Expected the finished session from Get")
	}
	if _, ok := m.Get("claim-missing"); ok {
		t.Error("Expected no session for an unknown claim id")
	}
}
