package approval

import (
	"context"
	"log"
	"regexp"
	"strings"
)

// Transparency deny reasons.
const (
	TransparencyProviderError = "transparency_provider_error"
	TransparencyNotApplied    = "transparency_not_applied"
	TransparencyMarkerMissing = "transparency_indicators_missing"
)

// Applied is the disclosure provider's claim about one application.
type Applied struct {
	Text    string
	Applied bool
}

// DisclosureProvider is the external disclaimer component, consumed through
// this narrow interface.
type DisclosureProvider interface {
	IsRequired(ctx context.Context, accountID, platform string) (bool, error)
	Apply(ctx context.Context, text, accountID, lang string, platformLimit int) (Applied, error)
}

// Keyword patterns that count as a recognizable AI-disclosure marker.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bAI\b`),
	regexp.MustCompile(`(?i)\bIA\b`),
	regexp.MustCompile(`(?i)\bbot\b`),
	regexp.MustCompile(`(?i)\bautomat(ed|ic|izad[ao])\b`),
	regexp.MustCompile(`(?i)\bgenerated\b`),
	regexp.MustCompile(`(?i)\bgenerad[ao]\b`),
}

// HasTransparencyMarker reports whether the text carries at least one
// recognized AI-disclosure marker (robot emoji or keyword).
func HasTransparencyMarker(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if strings.Contains(text, "🤖") {
		return true
	}
	for _, p := range markerPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// TransparencyResult is the enforcer outcome. Reason is empty when the text
// is publishable.
type TransparencyResult struct {
	Text     string
	Applied  bool
	Required bool
	Reason   string
}

// TransparencyEnforcer asks the provider whether disclosure is required and,
// when it is, verifies the provider's work instead of trusting its claim: a
// disclosure subsystem that silently fails to inject a marker must not get
// unlabeled AI content published.
type TransparencyEnforcer struct {
	provider DisclosureProvider
}

// NewTransparencyEnforcer wraps a disclosure provider.
func NewTransparencyEnforcer(provider DisclosureProvider) *TransparencyEnforcer {
	return &TransparencyEnforcer{provider: provider}
}

// Enforce applies disclosure when required and re-scans the result for a
// recognized marker.
func (e *TransparencyEnforcer) Enforce(ctx context.Context, text, accountID, platform, lang string, platformLimit int) TransparencyResult {
	required, err := e.provider.IsRequired(ctx, accountID, platform)
	if err != nil {
		log.Printf("transparency requirement check failed for account %s: %v", accountID, err)
		return TransparencyResult{Text: text, Reason: TransparencyProviderError}
	}
	if !required {
		return TransparencyResult{Text: text}
	}

	// Text that already carries a marker needs no rewrite.
	if HasTransparencyMarker(text) {
		return TransparencyResult{Text: text, Applied: true, Required: true}
	}

	applied, err := e.provider.Apply(ctx, text, accountID, lang, platformLimit)
	if err != nil {
		log.Printf("transparency application failed for account %s: %v", accountID, err)
		return TransparencyResult{Text: text, Required: true, Reason: TransparencyProviderError}
	}
	if !applied.Applied || applied.Text == text {
		log.Printf("SECURITY: disclosure required but text returned unmodified for account %s", accountID)
		return TransparencyResult{Text: text, Required: true, Reason: TransparencyNotApplied}
	}
	if !HasTransparencyMarker(applied.Text) {
		log.Printf("SECURITY: no transparency marker detected despite claimed application for account %s", accountID)
		return TransparencyResult{Text: text, Required: true, Reason: TransparencyMarkerMissing}
	}

	return TransparencyResult{Text: applied.Text, Applied: true, Required: true}
}
