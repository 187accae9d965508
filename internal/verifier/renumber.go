package verifier

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/factsearch/factsearch/internal/model"
)

var referencePattern = regexp.MustCompile(`\[(\d+)\]`)

// RenumberReferences rewrites bracketed citations in an assessment so
// they appear in increasing order of first appearance, and reorders the
// evidence list to match: cited sources first in their new citation
// order, marked influential, then uncited sources in original order.
//
// Each [k] cites the k-th (1-based) evidence item in original order. A
// citation whose index is beyond the evidence list is renumbered in the
// text but contributes no source entry. With no citations the
// assessment and evidence come back unchanged.
//
// The input slice is never mutated; the returned list is a fresh
// permutation of copies.
func RenumberReferences(assessment string, evidence []model.Evidence) (string, []model.Evidence) {
	refs := referencePattern.FindAllStringSubmatch(assessment, -1)
	if len(refs) == 0 {
		return assessment, evidence
	}

	// Old reference -> new reference, in order of first appearance
	oldToNew := make(map[int]int)
	next := 1
	for _, ref := range refs {
		old, err := strconv.Atoi(ref[1])
		if err != nil {
			continue
		}
		if _, seen := oldToNew[old]; !seen {
			oldToNew[old] = next
			next++
		}
	}

	renumbered := referencePattern.ReplaceAllStringFunc(assessment, func(match string) string {
		old, err := strconv.Atoi(match[1 : len(match)-1])
		if err != nil {
			return match
		}
		if updated, ok := oldToNew[old]; ok {
			return fmt.Sprintf("[%d]", updated)
		}
		return match
	})

	// Cited sources in ascending new-number order, skipping citations
	// that point beyond the evidence list
	cited := make([]int, 0, len(oldToNew))
	for old := range oldToNew {
		cited = append(cited, old)
	}
	sort.Slice(cited, func(i, j int) bool {
		return oldToNew[cited[i]] < oldToNew[cited[j]]
	})

	sources := make([]model.Evidence, 0, len(evidence))
	for _, old := range cited {
		idx := old - 1
		if idx < 0 || idx >= len(evidence) {
			continue
		}
		src := evidence[idx]
		src.IsInfluential = true
		sources = append(sources, src)
	}

	// Uncited sources in original order
	for idx, src := range evidence {
		if _, ok := oldToNew[idx+1]; ok {
			continue
		}
		src.IsInfluential = false
		sources = append(sources, src)
	}

	return renumbered, sources
}
