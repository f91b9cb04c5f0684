package token

import (
	"strings"
	"testing"
)

func TestNewIsURLSafe(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q contains characters unsafe for URL embedding", tok)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if seen[tok] {
			t.Fatalf("token %q minted twice", tok)
		}
		seen[tok] = true
	}
}
