// Package transparency provides the built-in AI disclosure provider. It
// appends a recognizable disclosure to generated replies, rotating between a
// classic bot signature and a creative disclaimer, and falls back to the
// shortest signature near platform length limits.
package transparency

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/replygate/ReplyGate/internal/pkg/approval"
)

// Disclosure modes. Signature always appends a classic marker, creative
// rotates in longer disclaimers, off disables disclosure for the account.
const (
	ModeSignature = "signature"
	ModeCreative  = "creative"
	ModeOff       = "off"
)

// Shortest markers, used when the platform limit leaves little headroom.
var shortSignatures = []string{
	" 🤖",
	" — 🤖",
}

var classicSignatures = map[string][]string{
	"en": {
		"\n\n🤖 Generated by AI",
		"\n\n— AI-generated reply 🤖",
		"\n\n🤖 Automated response",
	},
	"es": {
		"\n\n🤖 Generado por IA",
		"\n\n— Respuesta generada por IA 🤖",
		"\n\n🤖 Respuesta automatizada",
	},
}

var creativeDisclaimers = map[string][]string{
	"en": {
		"\n\n(My circuits wrote this one. 🤖)",
		"\n\nDisclaimer: crafted by a very opinionated bot 🤖",
		"\n\nThis reply was generated by AI, sass included. 🤖",
	},
	"es": {
		"\n\n(Esto lo escribieron mis circuitos. 🤖)",
		"\n\nAviso: redactado por un bot con opiniones 🤖",
		"\n\nRespuesta generada por IA, sarcasmo incluido. 🤖",
	},
}

const defaultLanguage = "en"

// creativeShare is the rotation weight for creative disclaimers, roughly 30%.
const creativeShare = 30

// Provider implements approval.DisclosureProvider with local pools. The
// rotation is deterministic per account and text so re-running the same
// candidate yields the same disclosure.
type Provider struct {
	mode string
}

var _ approval.DisclosureProvider = (*Provider)(nil)

// NewProvider returns a provider in the given mode. An empty or unknown mode
// falls back to signature.
func NewProvider(mode string) *Provider {
	switch mode {
	case ModeSignature, ModeCreative, ModeOff:
	default:
		mode = ModeSignature
	}
	return &Provider{mode: mode}
}

// IsRequired reports whether a disclosure must be present for this account.
func (p *Provider) IsRequired(ctx context.Context, accountID, platform string) (bool, error) {
	return p.mode != ModeOff, nil
}

// Apply appends a disclosure to text, respecting the platform length limit.
func (p *Provider) Apply(ctx context.Context, text, accountID, lang string, platformLimit int) (approval.Applied, error) {
	if p.mode == ModeOff {
		return approval.Applied{Text: text, Applied: false}, nil
	}
	if approval.HasTransparencyMarker(text) {
		return approval.Applied{Text: text, Applied: true}, nil
	}

	seed := rotationSeed(accountID, text)
	marker := p.pickMarker(seed, poolLanguage(lang))

	// Force the shortest marker when the chosen one does not fit.
	if platformLimit > 0 && len(text)+len(marker) > platformLimit {
		marker = shortSignatures[seed%uint32(len(shortSignatures))]
	}
	if platformLimit > 0 && len(text)+len(marker) > platformLimit {
		// Nothing fits; return unmodified and let the enforcer deny.
		return approval.Applied{Text: text, Applied: false}, nil
	}

	return approval.Applied{Text: text + marker, Applied: true}, nil
}

func (p *Provider) pickMarker(seed uint32, lang string) string {
	if p.mode == ModeCreative && seed%100 < creativeShare {
		pool := creativeDisclaimers[lang]
		return pool[seed%uint32(len(pool))]
	}
	pool := classicSignatures[lang]
	return pool[seed%uint32(len(pool))]
}

func poolLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	if _, ok := classicSignatures[lang]; !ok {
		return defaultLanguage
	}
	return lang
}

func rotationSeed(accountID, text string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	h.Write([]byte(text))
	return h.Sum32()
}
