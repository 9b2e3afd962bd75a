package approval

import (
	"log"
	"strconv"
	"strings"

	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
)

// increaseTolerance absorbs floating-point rounding noise in the increase
// comparison only; the ceiling comparison is exact.
const increaseTolerance = 1e-4

// toxicityBand is one row of the delta policy: for originals at or below
// UpperBound, the variant may exceed the original by at most AllowedIncrease
// and may never exceed Ceiling. Rows are ordered by UpperBound and satisfy
// lowerBound + AllowedIncrease >= Ceiling, which keeps the effective ceiling
// non-increasing in the original score: raising the original can only turn
// an approval into a denial, never the reverse.
type toxicityBand struct {
	UpperBound      float64
	AllowedIncrease float64
	Ceiling         float64
}

// Band tables per plan group. Free and starter accounts get the strict
// table; pro and plus tolerate slightly more before manual review kicks in.
var (
	strictToxicityBands = []toxicityBand{
		{UpperBound: 0.2, AllowedIncrease: 0.50, Ceiling: 0.50},
		{UpperBound: 0.4, AllowedIncrease: 0.30, Ceiling: 0.50},
		{UpperBound: 0.6, AllowedIncrease: 0.10, Ceiling: 0.45},
		{UpperBound: 1.0, AllowedIncrease: 0.00, Ceiling: 0.40},
	}
	defaultToxicityBands = []toxicityBand{
		{UpperBound: 0.2, AllowedIncrease: 0.60, Ceiling: 0.60},
		{UpperBound: 0.4, AllowedIncrease: 0.40, Ceiling: 0.60},
		{UpperBound: 0.6, AllowedIncrease: 0.20, Ceiling: 0.60},
		{UpperBound: 1.0, AllowedIncrease: 0.00, Ceiling: 0.50},
	}
)

func toxicityBandsFor(plan entitlements.Plan) []toxicityBand {
	switch plan {
	case entitlements.PlanPro, entitlements.PlanPlus:
		return defaultToxicityBands
	default:
		return strictToxicityBands
	}
}

func lookupBand(bands []toxicityBand, original float64) toxicityBand {
	for _, b := range bands {
		if original <= b.UpperBound {
			return b
		}
	}
	return bands[len(bands)-1]
}

// NormalizeScore maps the score shapes moderation providers return onto
// [0,1]: booleans become 0/1, 0-100 percentages are divided by 100, numeric
// strings are parsed. The second return is false for nil, empty, unparsable
// or out-of-range values; out-of-range inputs are rejected, never clamped.
func NormalizeScore(raw any) (float64, bool) {
	var score float64

	switch v := raw.(type) {
	case nil:
		return 0, false
	case bool:
		if v {
			score = 1
		}
	case float64:
		score = v
	case float32:
		score = float64(v)
	case int:
		score = float64(v)
	case int64:
		score = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		score = parsed
	default:
		return 0, false
	}

	if score < 0 {
		return 0, false
	}
	if score > 1 && score <= 100 {
		score = score / 100
	}
	if score > 1 {
		return 0, false
	}
	return score, true
}

// ValidateToxicityDelta applies the conservative delta policy: the variant
// must stay under the band ceiling and must not increase toxicity beyond the
// band allowance. Anything that fails to normalize denies.
func ValidateToxicityDelta(variantRaw, originalRaw any, plan entitlements.Plan) bool {
	variant, ok := NormalizeScore(variantRaw)
	if !ok {
		log.Printf("toxicity validation failed: variant score invalid (%v)", variantRaw)
		return false
	}
	original, ok := NormalizeScore(originalRaw)
	if !ok {
		log.Printf("toxicity validation failed: original score invalid (%v)", originalRaw)
		return false
	}

	band := lookupBand(toxicityBandsFor(plan), original)

	// Ceiling comparison is exact.
	if variant > band.Ceiling {
		log.Printf("toxicity validation failed: variant %.4f exceeds ceiling %.4f (original %.4f)",
			variant, band.Ceiling, original)
		return false
	}

	// Increase comparison carries the rounding tolerance.
	if variant-original > band.AllowedIncrease+increaseTolerance {
		log.Printf("toxicity validation failed: increase %.4f exceeds allowance %.4f (original %.4f)",
			variant-original, band.AllowedIncrease, original)
		return false
	}

	return true
}
