package verifier

import (
	"reflect"
	"testing"

	"github.com/factsearch/factsearch/internal/model"
)

func evidenceFixture(n int) []model.Evidence {
	items := make([]model.Evidence, n)
	for i := range items {
		items[i] = model.Evidence{
			URL:   "https://example.org/" + string(rune('a'+i)),
			Title: "Source " + string(rune('A'+i)),
			Text:  "snippet",
		}
	}
	return items
}

func TestRenumberReferences_FirstAppearanceOrder(t *testing.T) {
	evidence := evidenceFixture(4)

	// Citations appear as [3], [1], [3], [4]
	assessment := "Confirmed by [3] and [1]. See [3] again, also [4]."
	renumbered, sources := RenumberReferences(assessment, evidence)

	want := "Confirmed by [1] and [2]. See [1] again, also [3]."
	if renumbered != want {
		t.Errorf("Expected %q, got %q", want, renumbered)
	}

	// Cited sources first in new-number order: old 3, old 1, old 4
	if len(sources) != 4 {
		t.Fatalf("Expected 4 sources, got %d", len(sources))
	}
	wantOrder := []string{"Source C", "Source A", "Source D", "Source B"}
	for i, title := range wantOrder {
		if sources[i].Title != title {
			t.Errorf("Source %d: expected %q, got %q", i, title, sources[i].Title)
		}
	}

	// First three cited, last uncited
	for i := 0; i < 3; i++ {
		if !sources[i].IsInfluential {
			t.Errorf("Source %d should be influential", i)
		}
	}
	if sources[3].IsInfluential {
		t.Error("Uncited source should not be influential")
	}
}

func TestRenumberReferences_NoCitations(t *testing.T) {
	evidence := evidenceFixture(2)
	assessment := "The evidence does not mention the claim at all."

	renumbered, sources := RenumberReferences(assessment, evidence)

	if renumbered != assessment {
		t.Errorf("Expected assessment unchanged, got %q", renumbered)
	}
	if !reflect.DeepEqual(sources, evidence) {
		t.Errorf("Expected sources unchanged, got %+v", sources)
	}
}

func TestRenumberReferences_OutOfRangeCitation(t *testing.T) {
	evidence := evidenceFixture(2)

	// [9] has no backing source but still renumbers in the text
	assessment := "Supported by [2] and [9]."
	renumbered, sources := RenumberReferences(assessment, evidence)

	if renumbered != "Supported by [1] and [2]." {
		t.Errorf("Unexpected renumbering: %q", renumbered)
	}

	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].Title != "Source B" || !sources[0].IsInfluential {
		t.Errorf("Expected cited Source B first, got %+v", sources[0])
	}
	if sources[1].Title != "Source A" || sources[1].IsInfluential {
		t.Errorf("Expected uncited Source A second, got %+v", sources[1])
	}
}

func TestRenumberReferences_InputNotMutated(t *testing.T) {
	evidence := evidenceFixture(2)
	original := make([]model.Evidence, len(evidence))
	copy(original, evidence)

	RenumberReferences("Cited in [1] and [2].", evidence)

	if !reflect.DeepEqual(evidence, original) {
		t.Errorf("Input slice was mutated: %+v", evidence)
	}
}

func TestRenumberReferences_AlreadyOrdered(t *testing.T) {
	evidence := evidenceFixture(2)
	assessment := "First [1], then [2]."

	renumbered, sources := RenumberReferences(assessment, evidence)

	if renumbered != assessment {
		t.Errorf("Expected text unchanged, got %q", renumbered)
	}
	if !sources[0].IsInfluential || !sources[1].IsInfluential {
		t.Error("Both sources should be influential")
	}
}

func TestRenumberReferences_EmptyEvidence(t *testing.T) {
	renumbered, sources := RenumberReferences("Claimed in [1].", nil)

	if renumbered != "Claimed in [1]." {
		t.Errorf("Unexpected renumbering: %q", renumbered)
	}
	if len(sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(sources))
	}
}
