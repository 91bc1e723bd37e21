package idgen

import (
	"strings"
	"testing"
)

func TestNewPrefixAndLength(t *testing.T) {
	id, err := Instance()
	if err != nil {
		t.Fatalf("Instance() error: %v", err)
	}
	if !strings.HasPrefix(id, InstancePrefix) {
		t.Errorf("Expected prefix %q, got %q", InstancePrefix, id)
	}
	if got := len(id) - len(InstancePrefix); got != Length {
		t.Errorf("Expected %d random chars, got %d", Length, got)
	}
	for _, r := range strings.TrimPrefix(id, InstancePrefix) {
		if !strings.ContainsRune(Alphabet, r) {
			t.Errorf("Unexpected character %q in %q", r, id)
		}
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id, err := Run()
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
