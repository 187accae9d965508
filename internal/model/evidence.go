package model

// Evidence represents a fragment retrieved from a web search
type Evidence struct {
	URL           string `json:"url"`                 // Source URL
	Title         string `json:"title,omitempty"`     // Title of the source page
	Text          string `json:"text"`                // Bounded snippet from the search result
	FullText      string `json:"full_text,omitempty"` // Full page text, when it could be fetched
	IsInfluential bool   `json:"is_influential"`      // Whether the final assessment cites this source
}

// Body returns the text an evaluation should read for this item:
// the full document when present, the snippet otherwise.
func (e Evidence) Body() string {
	if e.FullText != "" {
		return e.FullText
	}
	return e.Text
}
