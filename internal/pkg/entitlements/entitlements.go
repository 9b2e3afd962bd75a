package entitlements

import (
	"strings"
)

type Plan string

const (
	PlanUnknown Plan = "unknown"
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanPlus    Plan = "plus"
)

// Feature names the gated capabilities. The set is closed: anything outside
// it is denied, never treated as unrestricted.
type Feature string

const (
	FeatureShield        Feature = "shield"
	FeatureOriginalTone  Feature = "original_tone"
	FeatureEmbeddedJudge Feature = "embedded_judge"
	FeatureAutoApproval  Feature = "auto_approval"
)

// Unlimited is the ceiling value meaning no limit.
const Unlimited = -1

// PlanLimits holds the immutable quota ceilings and feature flags for one
// plan tier. Only this package defines them; runtime never writes them.
type PlanLimits struct {
	MonthlyAnalysisLimit int
	MonthlyResponseLimit int
	PlatformAccountLimit int

	Shield        bool
	OriginalTone  bool
	EmbeddedJudge bool
	AutoApproval  bool
}

var planLimits = map[Plan]PlanLimits{
	PlanFree: {
		MonthlyAnalysisLimit: 100,
		MonthlyResponseLimit: 10,
		PlatformAccountLimit: 1,
	},
	PlanStarter: {
		MonthlyAnalysisLimit: 1000,
		MonthlyResponseLimit: 100,
		PlatformAccountLimit: 1,
		Shield:               true,
		AutoApproval:         true,
	},
	PlanPro: {
		MonthlyAnalysisLimit: 10000,
		MonthlyResponseLimit: 1000,
		PlatformAccountLimit: 2,
		Shield:               true,
		OriginalTone:         true,
		AutoApproval:         true,
	},
	PlanPlus: {
		MonthlyAnalysisLimit: 100000,
		MonthlyResponseLimit: 5000,
		PlatformAccountLimit: 2,
		Shield:               true,
		OriginalTone:         true,
		EmbeddedJudge:        true,
		AutoApproval:         true,
	},
}

// NormalizePlan maps any input to a closed enum member. Unrecognized values
// become PlanUnknown; callers decide whether unknown defaults to free
// (missing subscription) or to a denial (gating).
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanFree):
		return PlanFree
	case string(PlanStarter):
		return PlanStarter
	case string(PlanPro):
		return PlanPro
	case string(PlanPlus):
		return PlanPlus
	default:
		return PlanUnknown
	}
}

// PlanRank orders tiers for upgrade/downgrade comparisons. Unknown ranks
// below free.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanPlus:
		return 4
	case PlanPro:
		return 3
	case PlanStarter:
		return 2
	case PlanFree:
		return 1
	default:
		return 0
	}
}

// Limits returns the catalog entry for a plan. The second return is false for
// PlanUnknown and any other unmapped value.
func Limits(plan Plan) (PlanLimits, bool) {
	l, ok := planLimits[plan]
	return l, ok
}

// HasFeature resolves a feature flag against a plan's limits. Unknown
// features are always false.
func (l PlanLimits) HasFeature(f Feature) bool {
	switch f {
	case FeatureShield:
		return l.Shield
	case FeatureOriginalTone:
		return l.OriginalTone
	case FeatureEmbeddedJudge:
		return l.EmbeddedJudge
	case FeatureAutoApproval:
		return l.AutoApproval
	default:
		return false
	}
}

// KnownFeature reports whether the feature name is in the closed set.
func KnownFeature(f Feature) bool {
	switch f {
	case FeatureShield, FeatureOriginalTone, FeatureEmbeddedJudge, FeatureAutoApproval:
		return true
	default:
		return false
	}
}

// RequiredPlans lists the plans that carry a feature, lowest tier first.
func RequiredPlans(f Feature) []Plan {
	var plans []Plan
	for _, p := range []Plan{PlanFree, PlanStarter, PlanPro, PlanPlus} {
		if planLimits[p].HasFeature(f) {
			plans = append(plans, p)
		}
	}
	return plans
}

var supportedPlatforms = map[string]struct{}{
	"twitter":   {},
	"youtube":   {},
	"instagram": {},
	"facebook":  {},
	"discord":   {},
	"twitch":    {},
	"reddit":    {},
	"tiktok":    {},
	"bluesky":   {},
}

// SupportedPlatforms returns the recognized platform identifiers sorted for
// stable error messages.
func SupportedPlatforms() []string {
	return []string{"bluesky", "discord", "facebook", "instagram", "reddit", "tiktok", "twitch", "twitter", "youtube"}
}

// IsSupportedPlatform reports whether the (normalized) platform is recognized.
func IsSupportedPlatform(platform string) bool {
	_, ok := supportedPlatforms[strings.ToLower(strings.TrimSpace(platform))]
	return ok
}
