package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

const (
	// MinTokenLength is the minimum allowed length for webhook tokens.
	MinTokenLength = 32

	// MinEntropy is the minimum Shannon entropy threshold for tokens.
	// This ensures tokens have sufficient randomness.
	MinEntropy = 3.5
)

var forbiddenTokens = map[string]bool{
	"replace-with-token":                         true,
	"replace-with-token-at-least-32-chars-long":  true,
	"your-webhook-token-min-32-chars-long":       true,
	"webhook-password":                           true,
	"topsecret":                                  true,
	"secret":                                     true,
	"password":                                   true,
	"changeme":                                   true,
}

// ValidateToken ensures the webhook token meets security requirements.
// Checks:
// - Minimum length (32 characters)
// - Not a placeholder value
// - Sufficient Shannon entropy (minimum 3.5)
func ValidateToken(token string) error {
	if len(token) < MinTokenLength {
		return fmt.Errorf("token too short (minimum %d characters, got %d)", MinTokenLength, len(token))
	}

	tokenLower := strings.ToLower(token)
	if forbiddenTokens[tokenLower] {
		return fmt.Errorf("token appears to be a placeholder value, please use a real token")
	}

	if strings.Contains(tokenLower, "replace") ||
		strings.Contains(tokenLower, "changeme") ||
		strings.Contains(tokenLower, "topsecret") ||
		strings.Contains(tokenLower, "password") {
		return fmt.Errorf("token appears to be a placeholder value")
	}

	entropy := calculateEntropy(token)
	if entropy < MinEntropy {
		return fmt.Errorf("token has insufficient entropy (%.2f < %.2f) - use a more random token", entropy, MinEntropy)
	}

	return nil
}

// GenerateToken creates a cryptographically secure random token.
// Returns a 48-character base64-encoded string.
func GenerateToken() (string, error) {
	// 36 bytes encode to 48 base64 characters
	bytes := make([]byte, 36)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// calculateEntropy computes the Shannon entropy of a string.
// Higher entropy indicates more randomness/unpredictability.
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	// H = -Σ(p(x) * log2(p(x)))
	var entropy float64
	length := float64(len(s))

	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}
