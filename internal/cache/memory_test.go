package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected a miss for an unknown key")
	}

	c.Set("k", []byte("value"), time.Minute)
	got, found := c.Get("k")
	if !found || string(got) != "value" {
		t.Errorf("Expected cached value, got %q, %v", got, found)
	}

	c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("Expected a miss after delete")
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	c.Set("k", []byte("value"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("Expected the entry expired")
	}
}

func TestKey(t *testing.T) {
	a := Key("https://example.org/page")
	b := Key("https://example.org/page")
	other := Key("https://example.org/other")

	if a != b {
		t.Error("Expected deterministic keys")
	}
	if a == other {
		t.Error("Expected distinct keys for distinct URLs")
	}
	if !strings.HasPrefix(a, "factsearch:v1:") {
		t.Errorf("Expected the namespace prefix, got %q", a)
	}
}
