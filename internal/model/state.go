package model

// VerifierState is the mutable state carried across workflow nodes.
// Only the owning workflow task mutates it, in place.
type VerifierState struct {
	Claim          Claim      `json:"claim"`
	Query          string     `json:"query,omitempty"`       // Current search query
	AllQueries     []string   `json:"all_queries,omitempty"` // Every query used across iterations
	Evidence       []Evidence `json:"evidence"`
	IterationCount int        `json:"iteration_count"`
	Verdict        *Verdict   `json:"verdict,omitempty"`

	// MissingAspects carries the decision node's feedback into the next
	// query generation round.
	MissingAspects []string `json:"missing_aspects,omitempty"`
}

// NewVerifierState creates the initial state for a claim
func NewVerifierState(claimText string) *VerifierState {
	return &VerifierState{Claim: Claim{Text: claimText}}
}
