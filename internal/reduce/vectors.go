package reduce

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Vectors holds a pre-trained word embedding table loaded from a
// fastText-style .vec text file: one "word v1 v2 ... vN" line per word,
// optionally preceded by a "count dim" header line.
type Vectors struct {
	dim   int
	words map[string][]float32
}

// LoadVectors reads a .vec file into memory. Words are stored
// case-folded; on duplicate words the first entry wins.
func LoadVectors(path string) (*Vectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()

	v := &Vectors{words: make(map[string][]float32)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if first {
			first = false
			// Header line is "count dim"
			if len(fields) == 2 {
				if dim, err := strconv.Atoi(fields[1]); err == nil {
					v.dim = dim
					continue
				}
			}
		}
		if len(fields) < 2 {
			continue
		}
		word := strings.ToLower(fields[0])
		if _, dup := v.words[word]; dup {
			continue
		}
		vec := make([]float32, 0, len(fields)-1)
		ok := true
		for _, field := range fields[1:] {
			val, err := strconv.ParseFloat(field, 32)
			if err != nil {
				ok = false
				break
			}
			vec = append(vec, float32(val))
		}
		if !ok {
			continue
		}
		if v.dim == 0 {
			v.dim = len(vec)
		}
		if len(vec) != v.dim {
			continue
		}
		v.words[word] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if len(v.words) == 0 {
		return nil, fmt.Errorf("no vectors found in %s", path)
	}

	return v, nil
}

// NewVectors builds a table from an in-memory map (used by tests)
func NewVectors(words map[string][]float32) *Vectors {
	dim := 0
	for _, vec := range words {
		dim = len(vec)
		break
	}
	return &Vectors{dim: dim, words: words}
}

// Dim returns the vector dimension
func (v *Vectors) Dim() int {
	return v.dim
}

// Lookup returns the vector for a case-folded word, or nil
func (v *Vectors) Lookup(word string) []float32 {
	return v.words[strings.ToLower(word)]
}
