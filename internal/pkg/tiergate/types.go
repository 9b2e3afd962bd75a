package tiergate

import (
	"time"

	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
)

// Action is a quota-gated operation kind.
type Action string

const (
	ActionAnalysis           Action = "analysis"
	ActionResponseGeneration Action = "response_generation"
	ActionPlatformLink       Action = "platform_link"
)

// KnownAction reports whether the action is in the closed set. Unknown
// actions are denied, never silently allowed.
func KnownAction(a Action) bool {
	switch a {
	case ActionAnalysis, ActionResponseGeneration, ActionPlatformLink:
		return true
	default:
		return false
	}
}

// Options carries per-call parameters for ValidateAction.
type Options struct {
	// Platform is required for ActionPlatformLink.
	Platform string
	// RequestID dedupes validations within one logical request. Generated
	// when empty.
	RequestID string
}

// Deny reason codes. These are stable identifiers for operator tooling and
// API consumers.
const (
	ReasonInvalidAccountID      = "invalid_account_id"
	ReasonUnknownAction         = "unknown_action_type"
	ReasonInvalidPlatformParam  = "invalid_platform_parameter"
	ReasonUnsupportedPlatform   = "unsupported_platform"
	ReasonAnalysisLimit         = "monthly_analysis_limit_exceeded"
	ReasonResponseLimit         = "monthly_response_limit_exceeded"
	ReasonPlatformAccountLimit  = "platform_account_limit_exceeded"
	ReasonValidationDataError   = "validation_data_error"
	ReasonFailClosed            = "validation_error_fail_closed"
	ReasonFailOpenDev           = "validation_error_fail_open_dev"
	ReasonUnknownFeature        = "unknown_feature"
	ReasonTierLimitation        = "tier_limitation"
	ReasonFeatureFailClosed     = "feature_validation_error_fail_closed"
)

// TierInfo is the normalized account tier projection used during validation.
type TierInfo struct {
	Plan        entitlements.Plan
	Status      string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	UpgradedAt  *time.Time
}

// UsageSnapshot holds the derived consumption counters for the effective
// billing cycle. Err marks a snapshot built from failed queries; validators
// must treat such a snapshot as structurally invalid and deny.
type UsageSnapshot struct {
	AnalysesThisCycle  int            `json:"analyses_this_cycle"`
	ResponsesThisCycle int            `json:"responses_this_cycle"`
	PlatformAccounts   map[string]int `json:"platform_accounts"`
	CycleStart         time.Time      `json:"cycle_start"`
	FetchedAt          time.Time      `json:"fetched_at"`
	Err                bool           `json:"err,omitempty"`
}

// TotalPlatformAccounts sums active linked accounts across platforms.
func (u UsageSnapshot) TotalPlatformAccounts() int {
	total := 0
	for _, n := range u.PlatformAccounts {
		total += n
	}
	return total
}

// Warning flags usage approaching a ceiling.
type Warning struct {
	Percentage int `json:"percentage"`
	Remaining  int `json:"remaining"`
}

// UpgradeHint recommends the lowest plan whose ceiling exceeds the one hit.
type UpgradeHint struct {
	Plan    entitlements.Plan `json:"plan"`
	Message string            `json:"message"`
}

// Verdict is the structured outcome of ValidateAction. Errors never escape
// as errors; they are folded into a deny verdict.
type Verdict struct {
	Allowed      bool               `json:"allowed"`
	Reason       string             `json:"reason,omitempty"`
	Message      string             `json:"message,omitempty"`
	CurrentTier  entitlements.Plan  `json:"current_tier,omitempty"`
	CurrentUsage *UsageSnapshot     `json:"current_usage,omitempty"`
	Warnings     map[string]Warning `json:"warnings,omitempty"`
	UpgradeHint  *UpgradeHint       `json:"upgrade_hint,omitempty"`
	FailedClosed bool               `json:"failed_closed,omitempty"`
}

// FeatureVerdict is the structured outcome of ValidateFeature.
type FeatureVerdict struct {
	Available     bool                `json:"available"`
	Reason        string              `json:"reason,omitempty"`
	Message       string              `json:"message,omitempty"`
	CurrentPlan   entitlements.Plan   `json:"current_plan,omitempty"`
	RequiredPlans []entitlements.Plan `json:"required_plans,omitempty"`
	FailedClosed  bool                `json:"failed_closed,omitempty"`
}
