package token

import (
	"strings"
	"testing"
)

func TestNewLengthAndCharset(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if len(tok) != Length {
		t.Fatalf("expected %d chars, got %d", Length, len(tok))
	}
	if strings.Trim(tok, "0123456789abcdef") != "" {
		t.Fatalf("expected lowercase hex, got %q", tok)
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true
	}
}
