package security

import (
	"strings"
	"testing"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			"valid random token",
			"kJ8mN2pQ7rS4tU6vW9xY1zA3bC5dE0fGhI",
			false,
		},
		{
			"too short",
			"short-token",
			true,
		},
		{
			"placeholder",
			"replace-with-token-at-least-32-chars-long",
			true,
		},
		{
			"contains changeme",
			"changeme-changeme-changeme-changeme-1234",
			true,
		},
		{
			"low entropy",
			strings.Repeat("ab", 24),
			true,
		},
		{
			"empty",
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken(tt.token)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error for %q, got nil", tt.token)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tt.token, err)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(token) < MinTokenLength {
		t.Errorf("Generated token too short: %d chars", len(token))
	}

	// A generated token must pass its own validation
	if err := ValidateToken(token); err != nil {
		t.Errorf("Generated token failed validation: %v", err)
	}

	// Two tokens should differ
	other, err := GenerateToken()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token == other {
		t.Error("Expected two generated tokens to differ")
	}
}

func TestCalculateEntropy(t *testing.T) {
	if e := calculateEntropy(""); e != 0 {
		t.Errorf("Expected 0 entropy for empty string, got %f", e)
	}

	if e := calculateEntropy("aaaaaaaa"); e != 0 {
		t.Errorf("Expected 0 entropy for repeated character, got %f", e)
	}

	low := calculateEntropy("abababab")
	high := calculateEntropy("kJ8mN2pQ7rS4tU6v")
	if low >= high {
		t.Errorf("Expected varied string to have higher entropy (%f vs %f)", high, low)
	}
}
