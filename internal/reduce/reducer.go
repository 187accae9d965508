package reduce

import (
	"math"
	"strings"
	"unicode"
)

// Reducer selects the excerpt of an oversized document most relevant to
// a query, scored by cosine similarity of mean word embeddings.
type Reducer struct {
	vectors *Vectors
}

// NewReducer creates a reducer over the given embedding table
func NewReducer(vectors *Vectors) *Reducer {
	return &Reducer{vectors: vectors}
}

// Reduce returns the chunk of document, at most maxLen runes long, whose
// embedding is closest to the query embedding. Ties resolve to the
// earliest chunk. An empty document yields "".
func (r *Reducer) Reduce(query, document string, maxLen int) string {
	chunks := Chunk(document, maxLen)
	if len(chunks) == 0 {
		return ""
	}

	queryVec := r.Embed(query)

	best := 0
	bestScore := math.Inf(-1)
	for i, chunk := range chunks {
		score := Cosine(queryVec, r.Embed(chunk))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	return chunks[best]
}

// Embed returns the mean of the token vectors of text. Tokens without a
// vector are skipped; if nothing remains the zero vector is returned.
func (r *Reducer) Embed(text string) []float32 {
	sum := make([]float32, r.vectors.Dim())
	n := 0
	for _, tok := range Tokenize(text) {
		vec := r.vectors.Lookup(tok)
		if vec == nil {
			continue
		}
		for i, val := range vec {
			sum[i] += val
		}
		n++
	}
	if n > 0 {
		for i := range sum {
			sum[i] /= float32(n)
		}
	}
	return sum
}

// Tokenize splits text into maximal runs of Unicode word characters,
// case-folded.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(unicode.ToLower(r))
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Cosine computes cosine similarity. A zero-norm operand yields 0,
// never NaN.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Chunk partitions document into pieces of at most maxLen runes,
// preferring paragraph then sentence boundaries, hard-splitting only
// when a single sentence exceeds maxLen.
func Chunk(document string, maxLen int) []string {
	if maxLen <= 0 || document == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, para := range strings.Split(document, "\n\n") {
		for _, piece := range splitLong(para, maxLen) {
			pieceLen := len([]rune(piece))
			// +2 accounts for the restored paragraph separator
			if curLen > 0 && curLen+2+pieceLen > maxLen {
				flush()
			}
			if curLen > 0 {
				cur.WriteString("\n\n")
				curLen += 2
			}
			cur.WriteString(piece)
			curLen += pieceLen
		}
	}
	flush()

	return chunks
}

// splitLong splits text into pieces of at most maxLen runes, breaking at
// sentence ends where possible.
func splitLong(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		if len(runes) == 0 {
			return nil
		}
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + maxLen
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		// Walk back to the last sentence end within the window
		cut := end
		for i := end - 1; i > start; i-- {
			if isSentenceEnd(runes, i) {
				cut = i + 1
				break
			}
		}
		pieces = append(pieces, string(runes[start:cut]))
		start = cut
		// Skip whitespace at the boundary
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
	}
	return pieces
}

func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?':
	default:
		return false
	}
	return i+1 < len(runes) && unicode.IsSpace(runes[i+1])
}
