package approval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContentIntegrityMatch(t *testing.T) {
	text := "Thanks for the feedback, we hear you! 🤖"

	res := ValidateContentIntegrity(text, text, "acct-1")
	require.True(t, res.Valid)
	assert.Empty(t, res.Reason)
	assert.Equal(t, Checksum(text), res.Checksum)
	assert.Len(t, res.Checksum, 64)
}

func TestValidateContentIntegrityMissingContent(t *testing.T) {
	cases := []struct {
		approved string
		stored   string
	}{
		{"", "stored"},
		{"approved", ""},
		{"   ", "stored"},
		{"approved", "\n\t "},
		{"", ""},
	}
	for _, tc := range cases {
		res := ValidateContentIntegrity(tc.approved, tc.stored, "acct-1")
		assert.False(t, res.Valid)
		assert.Equal(t, IntegrityMissingContent, res.Reason)
	}
}

func TestValidateContentIntegritySingleCharacterMutation(t *testing.T) {
	approved := "Visit our site for the full answer."
	stored := "Visit 0ur site for the full answer."

	res := ValidateContentIntegrity(approved, stored, "acct-1")
	assert.False(t, res.Valid)
	assert.Equal(t, IntegrityContentMismatch, res.Reason)
}

func TestValidateContentIntegrityWhitespaceIsSignificant(t *testing.T) {
	// Equality is byte-exact: trailing whitespace is a mutation.
	res := ValidateContentIntegrity("reply", "reply ", "acct-1")
	assert.False(t, res.Valid)
	assert.Equal(t, IntegrityContentMismatch, res.Reason)
}

func TestChecksumStableAndDistinct(t *testing.T) {
	a := Checksum("one")
	b := Checksum("one")
	c := Checksum("two")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, strings.ToLower(a), a, "checksum is lowercase hex")
}
