package model

// Veracity classifies the outcome of a claim verification
type Veracity string

const (
	VeracityTrue         Veracity = "true"
	VeracityUntrue       Veracity = "untrue"
	VeracityUnverifiable Veracity = "unverifiable"
)

// Valid reports whether v is one of the known classifications
func (v Veracity) Valid() bool {
	switch v {
	case VeracityTrue, VeracityUntrue, VeracityUnverifiable:
		return true
	}
	return false
}

// Verdict is the final result of fact-checking a single claim
type Verdict struct {
	ClaimText  string     `json:"claim_text"` // The claim that was checked
	Assessment string     `json:"assessment"` // Explanation of the verdict, with [n] citations
	Veracity   Veracity   `json:"veracity"`   // Claim classification
	Sources    []Evidence `json:"sources"`    // Cited sources first, then uncited in original order
}
