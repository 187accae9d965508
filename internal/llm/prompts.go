package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/factsearch/factsearch/internal/model"
)

const queryGenerationInitialSystemPrompt = `You are a search query specialist for a fact-checking system. The current date is %s.

Write one optimized web search query for the claim the user provides. The query must:
1. include the key entities and specific details from the claim,
2. use search-friendly terms without special characters,
3. be formulated to find both supporting AND refuting evidence,
4. target authoritative sources where relevant.

Respond with JSON: {"query": "..."}`

const queryGenerationIterativeSystemPrompt = `You are a search query specialist for a fact-checking system. The current date is %s.

This is search round %d for the same claim. Earlier rounds did not settle it.
%s
Write one NEW web search query that covers ground the earlier queries missed. Do not repeat a previous query.

Respond with JSON: {"query": "..."}`

const searchDecisionSystemPrompt = `You are assessing evidence sufficiency for a fact-checking system. The current date is %s.

Given a claim and the evidence gathered so far, decide whether more searching is needed before a verdict. Be conservative: only stop when the evidence is comprehensive, clear, and from reliable sources. Request more evidence when it is limited, contradictory, unclear, or lacks authoritative sources.

Respond with JSON: {"needs_more_evidence": true|false, "missing_aspects": ["...", ...]}
missing_aspects names the specific kinds of evidence still needed, e.g. "official statements from organization X" or "more recent information".`

const judgeSystemPrompt = `You are the verdict judge of a fact-checking system. The current date is %s.

You receive a statement and numbered evidence documents. Classify the statement and explain your reasoning, citing evidence by its number in square brackets, e.g. [2]. Cite only documents that actually informed your conclusion. Base the assessment strictly on the provided evidence.

veracity must be exactly one of: "true" (evidence clearly supports the statement), "untrue" (evidence clearly contradicts it), "unverifiable" (evidence is insufficient or conflicting).

Respond with JSON: {"assessment": "...", "veracity": "true"|"untrue"|"unverifiable"}`

func currentTimestamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05 MST")
}

func queryGenerationPrompt(iteration int, priorQueries, missingAspects []string) string {
	if iteration == 0 {
		return fmt.Sprintf(queryGenerationInitialSystemPrompt, currentTimestamp())
	}
	var context []string
	if len(priorQueries) > 0 {
		context = append(context, "Previous queries: "+strings.Join(priorQueries, ", "))
	}
	if len(missingAspects) > 0 {
		context = append(context, "Missing aspects: "+strings.Join(missingAspects, ", "))
	}
	contextLine := ""
	if len(context) > 0 {
		contextLine = strings.Join(context, " | ") + "\n"
	}
	return fmt.Sprintf(queryGenerationIterativeSystemPrompt, currentTimestamp(), iteration+1, contextLine)
}

func searchDecisionPrompt(claim string, evidence []model.Evidence) string {
	var summary strings.Builder
	for i, ev := range evidence {
		if i >= 10 {
			break
		}
		snippet := ev.Text
		if runes := []rune(snippet); len(runes) > 200 {
			snippet = string(runes[:200])
		}
		if ev.Title != "" {
			fmt.Fprintf(&summary, "- %s: %s...\n", ev.Title, snippet)
		} else {
			fmt.Fprintf(&summary, "- %s...\n", snippet)
		}
	}
	return fmt.Sprintf("Claim: %s\n\nEvidence gathered (%d pieces):\n%s", claim, len(evidence), summary.String())
}

// BuildEvalContext assembles the judging context: the claim framed as a
// statement with each evidence document tagged by its 1-based index in
// original order. Items with a full text use it; others use the snippet.
func BuildEvalContext(claim string, evidence []model.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<date>%s</date>\n", currentTimestamp())
	fmt.Fprintf(&b, "<statement>%s</statement>\n", claim)
	b.WriteString("<evidences>\n")
	for i, ev := range evidence {
		fmt.Fprintf(&b, "<evidence id=\"%d\">\n", i+1)
		b.WriteString(ev.Body())
		b.WriteString("\n</evidence>\n")
	}
	b.WriteString("</evidences>")
	return b.String()
}
