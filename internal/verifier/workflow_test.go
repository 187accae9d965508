package verifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/factsearch/factsearch/internal/llm"
	"github.com/factsearch/factsearch/internal/model"
)

type stubQueries struct {
	queries []string
	calls   int
	err     error
}

func (s *stubQueries) GenerateQuery(ctx context.Context, claim string, prior, missing []string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.calls <= len(s.queries) {
		return s.queries[s.calls-1], nil
	}
	return fmt.Sprintf("query %d", s.calls), nil
}

type stubBackend struct {
	items []model.Evidence
	err   error
	calls int
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Search(ctx context.Context, query string) ([]model.Evidence, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type stubDecider struct {
	decision llm.Decision
	err      error
	calls    int
}

func (s *stubDecider) Decide(ctx context.Context, claim string, evidence []model.Evidence, iteration int) (llm.Decision, error) {
	s.calls++
	return s.decision, s.err
}

type eventRecord struct {
	node   string
	typ    model.EventType
	status string
}

func recordEvents(events *[]eventRecord) EmitFunc {
	return func(node string, typ model.EventType, status string, payload any) {
		*events = append(*events, eventRecord{node, typ, status})
	}
}

func newTestWorkflow(q llm.QueryGenerator, b *stubBackend, d llm.SearchDecider,
	j llm.Judge, maxIterations int, emit EmitFunc) *Workflow {
	return NewWorkflow(q, b, d, NewEvaluator(j, nil, 50000), nil, maxIterations, emit)
}

func TestWorkflow_SingleIterationWhenEvidenceSuffices(t *testing.T) {
	backend := &stubBackend{items: []model.Evidence{{URL: "https://a.example", Text: "evidence"}}}
	judge := &stubJudge{assessment: llm.Assessment{Assessment: "True per [1].", Veracity: model.VeracityTrue}}
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: false}}

	wf := newTestWorkflow(&stubQueries{queries: []string{"q1"}}, backend, decider, judge, 3, nil)
	verdict, err := wf.Run(context.Background(), model.NewVerifierState("claim"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if backend.calls != 1 {
		t.Errorf("Expected 1 search, got %d", backend.calls)
	}
	if verdict.Veracity != model.VeracityTrue {
		t.Errorf("Expected true verdict, got %s", verdict.Veracity)
	}
	if len(verdict.Sources) != 1 || !verdict.Sources[0].IsInfluential {
		t.Errorf("Expected one influential source, got %+v", verdict.Sources)
	}
}

func TestWorkflow_IterationCapOverridesDecider(t *testing.T) {
	backend := &stubBackend{items: []model.Evidence{{URL: "https://a.example", Text: "evidence"}}}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityUnverifiable}}
	// The decider always votes for more evidence
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: true, MissingAspects: []string{"dates"}}}
	queries := &stubQueries{}

	wf := newTestWorkflow(queries, backend, decider, judge, 3, nil)
	if _, err := wf.Run(context.Background(), model.NewVerifierState("claim")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if backend.calls != 3 {
		t.Errorf("Expected exactly 3 searches at the cap, got %d", backend.calls)
	}
	// The cap check runs before the decider on the final round
	if decider.calls != 2 {
		t.Errorf("Expected 2 decider calls, got %d", decider.calls)
	}
	if queries.calls != 3 {
		t.Errorf("Expected 3 query generations, got %d", queries.calls)
	}
}

func TestWorkflow_QueryGenerationDegradesToClaimText(t *testing.T) {
	backend := &stubBackend{}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityUnverifiable}}
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: false}}

	wf := newTestWorkflow(&stubQueries{err: errors.New("model down")}, backend, decider, judge, 3, nil)
	state := model.NewVerifierState("water boils at 100C")
	if _, err := wf.Run(context.Background(), state); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if state.Query != "water boils at 100C" {
		t.Errorf("Expected query to fall back to claim text, got %q", state.Query)
	}
	if len(state.AllQueries) != 1 || state.AllQueries[0] != "water boils at 100C" {
		t.Errorf("Expected claim text recorded in AllQueries, got %v", state.AllQueries)
	}
}

func TestWorkflow_SearchFailureAbsorbed(t *testing.T) {
	backend := &stubBackend{err: errors.New("provider 503")}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityUnverifiable}}
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: false}}

	wf := newTestWorkflow(&stubQueries{}, backend, decider, judge, 3, nil)
	verdict, err := wf.Run(context.Background(), model.NewVerifierState("claim"))
	if err != nil {
		t.Fatalf("Expected search failure absorbed, got %v", err)
	}
	if verdict == nil {
		t.Fatal("Expected a verdict despite retrieval failure")
	}
	if verdict.Veracity != model.VeracityUnverifiable {
		t.Errorf("Expected unverifiable, got %s", verdict.Veracity)
	}
}

func TestWorkflow_DeciderFailureGoesToEvaluation(t *testing.T) {
	backend := &stubBackend{items: []model.Evidence{{URL: "https://a.example"}}}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityTrue}}
	decider := &stubDecider{err: errors.New("model down")}

	wf := newTestWorkflow(&stubQueries{}, backend, decider, judge, 3, nil)
	if _, err := wf.Run(context.Background(), model.NewVerifierState("claim")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if backend.calls != 1 {
		t.Errorf("Expected evaluation after decider failure, got %d searches", backend.calls)
	}
}

func TestWorkflow_EmitsStartAndUpdatePerNode(t *testing.T) {
	backend := &stubBackend{}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityUnverifiable}}
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: false}}

	var events []eventRecord
	wf := newTestWorkflow(&stubQueries{}, backend, decider, judge, 3, recordEvents(&events))
	if _, err := wf.Run(context.Background(), model.NewVerifierState("claim")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	wantNodes := []string{
		NodeGenerateQuery, NodeRetrieveEvidence, NodeSearchDecision, NodeEvaluateEvidence,
	}
	if len(events) != 2*len(wantNodes) {
		t.Fatalf("Expected %d events, got %d", 2*len(wantNodes), len(events))
	}
	for i, node := range wantNodes {
		start, update := events[2*i], events[2*i+1]
		if start.node != node || start.typ != model.EventNodeStart || start.status != "started" {
			t.Errorf("Event %d: expected %s start, got %+v", 2*i, node, start)
		}
		if update.node != node || update.typ != model.EventNodeUpdate || update.status != "completed" {
			t.Errorf("Event %d: expected %s update, got %+v", 2*i+1, node, update)
		}
	}
}

func TestWorkflow_CancelledContextStopsRun(t *testing.T) {
	backend := &stubBackend{}
	judge := &stubJudge{assessment: llm.Assessment{Veracity: model.VeracityTrue}}
	decider := &stubDecider{decision: llm.Decision{NeedsMoreEvidence: false}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := newTestWorkflow(&stubQueries{}, backend, decider, judge, 3, nil)
	if _, err := wf.Run(ctx, model.NewVerifierState("claim")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("Expected no searches after cancellation, got %d", backend.calls)
	}
}
