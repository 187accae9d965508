package verifier

import (
	"context"
	"log/slog"

	"github.com/factsearch/factsearch/internal/llm"
	"github.com/factsearch/factsearch/internal/model"
	"github.com/factsearch/factsearch/internal/reduce"
)

const evaluationFailureMessage = "Failed to evaluate the evidence due to technical issues"

// Evaluator produces the final verdict for a claim from gathered
// evidence. It never returns an error: judging failures degrade to an
// unverifiable verdict.
type Evaluator struct {
	judge             llm.Judge
	reducer           *reduce.Reducer
	maxEvidenceLength int
}

// NewEvaluator creates an evaluator. reducer may be nil, in which case
// oversized documents are hard-truncated instead of semantically
// reduced.
func NewEvaluator(judge llm.Judge, reducer *reduce.Reducer, maxEvidenceLength int) *Evaluator {
	return &Evaluator{
		judge:             judge,
		reducer:           reducer,
		maxEvidenceLength: maxEvidenceLength,
	}
}

// Evaluate builds the evaluation context, invokes the judge, renumbers
// citations and reorders sources.
func (e *Evaluator) Evaluate(ctx context.Context, claim string, evidence []model.Evidence) model.Verdict {
	evidence = e.reduceOversized(claim, evidence)

	evalContext := llm.BuildEvalContext(claim, evidence)

	assessment, err := e.judge.Judge(ctx, evalContext)
	if err != nil {
		slog.Warn("evidence evaluation failed", "claim", claim, "error", err)
		return model.Verdict{
			ClaimText:  claim,
			Assessment: evaluationFailureMessage,
			Veracity:   model.VeracityUnverifiable,
		}
	}

	renumbered, sources := RenumberReferences(assessment.Assessment, evidence)

	verdict := model.Verdict{
		ClaimText:  claim,
		Assessment: renumbered,
		Veracity:   assessment.Veracity,
		Sources:    sources,
	}

	influential := 0
	for _, src := range verdict.Sources {
		if src.IsInfluential {
			influential++
		}
	}
	slog.Info("verdict reached",
		"claim", claim,
		"veracity", verdict.Veracity,
		"sources", len(verdict.Sources),
		"influential", influential)

	return verdict
}

// reduceOversized replaces full texts longer than the configured
// maximum with their most claim-relevant excerpt. The input slice is
// left untouched; oversized items are replaced by fresh values.
func (e *Evaluator) reduceOversized(claim string, evidence []model.Evidence) []model.Evidence {
	if e.maxEvidenceLength <= 0 {
		return evidence
	}

	out := make([]model.Evidence, len(evidence))
	copy(out, evidence)

	for i := range out {
		full := out[i].FullText
		if len([]rune(full)) <= e.maxEvidenceLength {
			continue
		}
		if e.reducer != nil {
			out[i].FullText = e.reducer.Reduce(claim, full, e.maxEvidenceLength)
		} else {
			out[i].FullText = string([]rune(full)[:e.maxEvidenceLength])
		}
		slog.Debug("reduced oversized evidence",
			"index", i, "from", len(full), "to", len(out[i].FullText))
	}
	return out
}
