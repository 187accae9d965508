package model

// Claim represents a factual statement submitted for verification
type Claim struct {
	Text string `json:"claim_text"` // The claim text itself
}
