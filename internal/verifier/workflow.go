package verifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/factsearch/factsearch/internal/llm"
	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/search"
)

// Workflow node names, as they appear on the event stream
const (
	NodeGenerateQuery    = "generate_search_query"
	NodeRetrieveEvidence = "retrieve_evidence"
	NodeSearchDecision   = "search_decision"
	NodeEvaluateEvidence = "evaluate_evidence"

	// nodeDone is the terminal sentinel, never emitted
	nodeDone = "done"
)

// EmitFunc receives one event when a node starts and one when it
// finishes. The session manager assigns sequence numbers and timestamps.
type EmitFunc func(node string, typ model.EventType, status string, payload any)

// Enricher fetches full texts for retrieved evidence
type Enricher interface {
	Enrich(ctx context.Context, items []model.Evidence) []model.Evidence
}

// Workflow is the iterative claim verification state machine:
// generate a query, retrieve evidence, decide whether to continue, and
// finally evaluate. The retrieval loop is bounded by MaxIterations no
// matter what the decision collaborator votes.
type Workflow struct {
	queries   llm.QueryGenerator
	search    search.Backend
	decider   llm.SearchDecider
	evaluator *Evaluator
	fetcher   Enricher // may be nil

	maxIterations int
	emit          EmitFunc
}

// NewWorkflow wires the workflow's collaborators explicitly
func NewWorkflow(queries llm.QueryGenerator, backend search.Backend, decider llm.SearchDecider,
	evaluator *Evaluator, fetcher Enricher, maxIterations int, emit EmitFunc) *Workflow {

	if maxIterations <= 0 {
		maxIterations = 3
	}
	if emit == nil {
		emit = func(string, model.EventType, string, any) {}
	}

	return &Workflow{
		queries:       queries,
		search:        backend,
		decider:       decider,
		evaluator:     evaluator,
		fetcher:       fetcher,
		maxIterations: maxIterations,
		emit:          emit,
	}
}

// Run drives state through the machine until the terminal node. It
// returns an error only when the context is cancelled; every
// collaborator failure degrades inside its node.
func (w *Workflow) Run(ctx context.Context, state *model.VerifierState) (*model.Verdict, error) {
	node := NodeGenerateQuery
	for node != nodeDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w.emit(node, model.EventNodeStart, "started", w.snapshot(state))

		var (
			next    string
			payload any
			err     error
		)
		switch node {
		case NodeGenerateQuery:
			next, payload, err = w.generateQuery(ctx, state)
		case NodeRetrieveEvidence:
			next, payload, err = w.retrieveEvidence(ctx, state)
		case NodeSearchDecision:
			next, payload, err = w.searchDecision(ctx, state)
		case NodeEvaluateEvidence:
			next, payload, err = w.evaluateEvidence(ctx, state)
		}
		if err != nil {
			return nil, err
		}

		w.emit(node, model.EventNodeUpdate, "completed", payload)
		node = next
	}

	return state.Verdict, nil
}

// snapshot captures the state fields a node_start event carries.
// Buffered events may be serialized long after the state has moved on,
// so the payload must not alias mutable state.
func (w *Workflow) snapshot(state *model.VerifierState) map[string]any {
	return map[string]any{
		"claim_text":      state.Claim.Text,
		"query":           state.Query,
		"iteration_count": state.IterationCount,
		"evidence_count":  len(state.Evidence),
	}
}

func (w *Workflow) generateQuery(ctx context.Context, state *model.VerifierState) (string, any, error) {
	query, err := w.queries.GenerateQuery(ctx, state.Claim.Text, state.AllQueries, state.MissingAspects)
	if cerr := ctx.Err(); cerr != nil {
		return "", nil, cerr
	}
	if err != nil || strings.TrimSpace(query) == "" {
		// Degraded default: search for the claim verbatim
		slog.Warn("query generation degraded to claim text", "claim", state.Claim.Text, "error", err)
		query = state.Claim.Text
	}

	state.Query = query
	state.AllQueries = append(state.AllQueries, query)

	return NodeRetrieveEvidence, map[string]any{
		"query":       query,
		"all_queries": append([]string(nil), state.AllQueries...),
	}, nil
}

func (w *Workflow) retrieveEvidence(ctx context.Context, state *model.VerifierState) (string, any, error) {
	items, err := w.search.Search(ctx, state.Query)
	if cerr := ctx.Err(); cerr != nil {
		return "", nil, cerr
	}
	if err != nil {
		// Retrieval failure is absorbed; the machine continues on
		// whatever evidence exists
		slog.Warn("evidence retrieval failed", "query", state.Query, "error", err)
		items = nil
	}

	if w.fetcher != nil && len(items) > 0 {
		items = w.fetcher.Enrich(ctx, items)
		if cerr := ctx.Err(); cerr != nil {
			return "", nil, cerr
		}
	}

	state.Evidence = append(state.Evidence, items...)
	state.IterationCount++

	slog.Info("evidence retrieved",
		"query", state.Query, "items", len(items), "total", len(state.Evidence))

	return NodeSearchDecision, map[string]any{
		"evidence":        append([]model.Evidence(nil), items...),
		"iteration_count": state.IterationCount,
	}, nil
}

func (w *Workflow) searchDecision(ctx context.Context, state *model.VerifierState) (string, any, error) {
	payload := map[string]any{
		"iteration_count": state.IterationCount,
	}

	if state.IterationCount >= w.maxIterations {
		slog.Info("iteration cap reached, evaluating", "iterations", state.IterationCount)
		payload["needs_more_evidence"] = false
		return NodeEvaluateEvidence, payload, nil
	}

	decision, err := w.decider.Decide(ctx, state.Claim.Text, state.Evidence, state.IterationCount)
	if cerr := ctx.Err(); cerr != nil {
		return "", nil, cerr
	}
	if err != nil {
		// The vote is advisory; on failure go straight to evaluation
		slog.Warn("search decision failed, evaluating", "claim", state.Claim.Text, "error", err)
		payload["needs_more_evidence"] = false
		return NodeEvaluateEvidence, payload, nil
	}

	payload["needs_more_evidence"] = decision.NeedsMoreEvidence
	payload["missing_aspects"] = decision.MissingAspects

	if decision.NeedsMoreEvidence {
		state.MissingAspects = decision.MissingAspects
		return NodeGenerateQuery, payload, nil
	}
	return NodeEvaluateEvidence, payload, nil
}

func (w *Workflow) evaluateEvidence(ctx context.Context, state *model.VerifierState) (string, any, error) {
	verdict := w.evaluator.Evaluate(ctx, state.Claim.Text, state.Evidence)
	if cerr := ctx.Err(); cerr != nil {
		return "", nil, cerr
	}

	state.Verdict = &verdict

	return nodeDone, map[string]any{"verdict": verdict}, nil
}
