package model

import (
	"testing"
	"time"
)

func TestVeracity_Valid(t *testing.T) {
	for _, v := range []Veracity{VeracityTrue, VeracityUntrue, VeracityUnverifiable} {
		if !v.Valid() {
			t.Errorf("Expected %q valid", v)
		}
	}
	for _, v := range []Veracity{"", "maybe", "TRUE", "false"} {
		if v.Valid() {
			t.Errorf("Expected %q invalid", v)
		}
	}
}

func TestEvidence_Body(t *testing.T) {
	ev := Evidence{Text: "snippet"}
	if ev.Body() != "snippet" {
		t.Errorf("Expected the snippet without full text, got %q", ev.Body())
	}

	ev.FullText = "the whole page"
	if ev.Body() != "the whole page" {
		t.Errorf("Expected the full text when present, got %q", ev.Body())
	}
}

func TestEventTimestamp_RFC3339UTC(t *testing.T) {
	ts := EventTimestamp()
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("Expected RFC3339 timestamp, got %q: %v", ts, err)
	}
	if parsed.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %q", ts)
	}
}

func TestNewVerifierState(t *testing.T) {
	state := NewVerifierState("the sky is blue")
	if state.Claim.Text != "the sky is blue" {
		t.Errorf("Unexpected claim: %q", state.Claim.Text)
	}
	if state.IterationCount != 0 || len(state.Evidence) != 0 || state.Verdict != nil {
		t.Errorf("Expected zeroed initial state, got %+v", state)
	}
}
