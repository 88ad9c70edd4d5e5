package utils

import "testing"

func TestGenerateClaimToken(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		token := GenerateClaimToken()
		if len(token) != TokenLength {
			t.Fatalf("expected %d characters, got %q", TokenLength, token)
		}
		for _, r := range token {
			if r < '0' || r > '9' {
				t.Fatalf("token %q contains non-digit %q", token, r)
			}
		}
		seen[token] = true
	}

	// 1000 draws from a million-value space should not collapse onto a
	// handful of values.
	if len(seen) < 900 {
		t.Errorf("poor token dispersion: %d unique of 1000", len(seen))
	}
}
