package approval

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"strings"
)

// Integrity failure reasons.
const (
	IntegrityMissingContent   = "missing_or_invalid_content"
	IntegrityContentMismatch  = "content_mismatch"
	IntegrityChecksumMismatch = "checksum_mismatch"
	IntegrityInternalError    = "integrity_internal_error"
)

// IntegrityResult is the outcome of the pre-publication tamper check.
type IntegrityResult struct {
	Valid    bool
	Reason   string
	Detail   string
	Checksum string
}

// Checksum returns the SHA-256 hex digest of the text, the compact audit
// fingerprint stored instead of raw content.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ValidateContentIntegrity re-confirms, immediately before publication, that
// the stored payload still matches what was approved. Equality and checksum
// must both pass; approval and publication are temporally separated and
// nothing else guards the gap.
func ValidateContentIntegrity(approvedText, storedText, accountID string) IntegrityResult {
	if strings.TrimSpace(approvedText) == "" || strings.TrimSpace(storedText) == "" {
		return IntegrityResult{
			Valid:  false,
			Reason: IntegrityMissingContent,
			Detail: "approved or stored content is missing or blank",
		}
	}

	if approvedText != storedText {
		log.Printf("SECURITY: content mismatch between approval and publication for account %s", accountID)
		return IntegrityResult{
			Valid:  false,
			Reason: IntegrityContentMismatch,
			Detail: "stored content differs from the approved content",
		}
	}

	approvedSum := Checksum(approvedText)
	storedSum := Checksum(storedText)
	if len(approvedSum) != sha256.Size*2 || len(storedSum) != sha256.Size*2 {
		log.Printf("SECURITY: checksum computation failed during integrity check for account %s", accountID)
		return IntegrityResult{
			Valid:  false,
			Reason: IntegrityInternalError,
			Detail: "checksum computation failed",
		}
	}
	if subtle.ConstantTimeCompare([]byte(approvedSum), []byte(storedSum)) != 1 {
		log.Printf("SECURITY: checksum mismatch between approval and publication for account %s", accountID)
		return IntegrityResult{
			Valid:  false,
			Reason: IntegrityChecksumMismatch,
			Detail: "content checksum differs from the approved checksum",
		}
	}

	return IntegrityResult{Valid: true, Checksum: approvedSum}
}
