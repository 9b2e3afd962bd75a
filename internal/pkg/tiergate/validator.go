package tiergate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/cache"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
)

const (
	// warningThreshold flags usage at or above this share of a ceiling.
	warningThreshold = 0.8
	// requestCacheCleanup bounds how long request-scoped verdicts live.
	requestCacheCleanup = 10 * time.Second
)

// Config carries the validator's failure-mode switches. FailOpenOnError is
// the narrowly-scoped development escape hatch; it is read per call and the
// constructor refuses to honor it in production.
type Config struct {
	// FailOpenOnError allows quota checks to pass on downstream errors.
	// Never honored when Production is true.
	FailOpenOnError bool
	// Production marks a production execution context.
	Production bool
}

// Validator combines the plan catalog and the usage tracker into allow/deny
// decisions for quota-gated actions and feature gates. Safe for concurrent
// use; every call is an independent unit of work.
type Validator struct {
	accounts repository.AccountRepository
	tracker  *UsageTracker
	cfg      Config

	reqMu    sync.Mutex
	reqCache map[string]Verdict
}

// NewValidator creates a tier validator. The cache store is handed to the
// embedded usage tracker; no package-level state is involved.
func NewValidator(repos *repository.Repositories, store cache.Store, cfg Config) *Validator {
	return &Validator{
		accounts: repos.Account,
		tracker:  NewUsageTracker(repos.Usage, store),
		cfg:      cfg,
		reqCache: make(map[string]Verdict),
	}
}

// Tracker exposes the usage tracker so writers (middleware recording hook,
// upgrade handling) can invalidate eagerly.
func (v *Validator) Tracker() *UsageTracker {
	return v.tracker
}

// failOpen reports whether the development override applies to this call.
// Checked per call, never cached, and never true in production.
func (v *Validator) failOpen() bool {
	return v.cfg.FailOpenOnError && !v.cfg.Production
}

// ValidateAction decides whether the account may perform the action now.
// All failures resolve to a deny verdict; no error escapes this boundary.
func (v *Validator) ValidateAction(ctx context.Context, accountID string, action Action, opts Options) Verdict {
	if strings.TrimSpace(accountID) == "" {
		return Verdict{Allowed: false, Reason: ReasonInvalidAccountID, Message: "account id is required"}
	}
	if !KnownAction(action) {
		return Verdict{
			Allowed: false,
			Reason:  ReasonUnknownAction,
			Message: fmt.Sprintf("action type %q is not supported", string(action)),
		}
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	cacheKey := requestID + ":" + accountID + ":" + string(action)
	if verdict, ok := v.requestCached(cacheKey); ok {
		return verdict
	}

	tier, err := v.loadTier(ctx, accountID)
	if err != nil {
		return v.denyOnError(accountID, action, err)
	}

	usage := v.tracker.Current(ctx, accountID, tier)
	limits, haveLimits := entitlements.Limits(tier.Plan)

	// Structurally invalid inputs are a verification failure, not a zero
	// count: deny rather than guess.
	if tier.Plan == entitlements.PlanUnknown || usage.Err || !haveLimits {
		log.Printf("tier validation data error for account %s: planKnown=%t usageOK=%t limitsOK=%t",
			accountID, tier.Plan != entitlements.PlanUnknown, !usage.Err, haveLimits)
		return Verdict{
			Allowed:      false,
			Reason:       ReasonValidationDataError,
			Message:      "unable to validate action due to inconsistent account data",
			FailedClosed: true,
		}
	}

	verdict := v.checkActionLimits(action, limits, usage, opts)
	verdict.CurrentTier = tier.Plan
	verdict.CurrentUsage = &usage
	verdict.Warnings = warningStatus(limits, usage)

	if !verdict.Allowed {
		log.Printf("action blocked by tier limits: account=%s tier=%s action=%s reason=%s",
			accountID, tier.Plan, action, verdict.Reason)
	}

	v.requestCachePut(cacheKey, verdict, requestID)
	return verdict
}

// ValidateFeature gates a named capability. Unknown features and fetch
// errors both resolve to not-available; there is no fail-open override for
// features since they gate paid capabilities.
func (v *Validator) ValidateFeature(ctx context.Context, accountID string, feature entitlements.Feature) FeatureVerdict {
	if !entitlements.KnownFeature(feature) {
		return FeatureVerdict{
			Available: false,
			Reason:    ReasonUnknownFeature,
			Message:   fmt.Sprintf("feature %q is not recognized", string(feature)),
		}
	}

	tier, err := v.loadTier(ctx, accountID)
	if err != nil {
		log.Printf("feature validation failing closed: account=%s feature=%s err=%v", accountID, feature, err)
		return FeatureVerdict{
			Available:    false,
			Reason:       ReasonFeatureFailClosed,
			Message:      "feature validation temporarily unavailable",
			FailedClosed: true,
		}
	}

	limits, ok := entitlements.Limits(tier.Plan)
	if !ok {
		return FeatureVerdict{
			Available:    false,
			Reason:       ReasonFeatureFailClosed,
			Message:      "feature validation temporarily unavailable",
			FailedClosed: true,
		}
	}

	if limits.HasFeature(feature) {
		return FeatureVerdict{Available: true, CurrentPlan: tier.Plan}
	}
	return FeatureVerdict{
		Available:     false,
		Reason:        ReasonTierLimitation,
		Message:       fmt.Sprintf("feature %q requires a higher tier plan", string(feature)),
		CurrentPlan:   tier.Plan,
		RequiredPlans: entitlements.RequiredPlans(feature),
	}
}

// loadTier reads the account projection. A missing row means a never-billed
// account and maps to the free plan; any other error propagates so the
// caller can apply the fail-closed policy.
func (v *Validator) loadTier(ctx context.Context, accountID string) (TierInfo, error) {
	account, err := v.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TierInfo{Plan: entitlements.PlanFree, Status: "active"}, nil
		}
		return TierInfo{}, err
	}

	plan := entitlements.NormalizePlan(account.Plan)
	status := account.Status
	if status == "" {
		status = "active"
	}
	return TierInfo{
		Plan:        plan,
		Status:      status,
		PeriodStart: account.CurrentPeriodStart,
		PeriodEnd:   account.CurrentPeriodEnd,
		UpgradedAt:  account.UpgradedAt,
	}, nil
}

// LoadTier is the exported tier lookup used by the approval pipeline's
// eligibility stage.
func (v *Validator) LoadTier(ctx context.Context, accountID string) (TierInfo, error) {
	return v.loadTier(ctx, accountID)
}

func (v *Validator) denyOnError(accountID string, action Action, err error) Verdict {
	if v.failOpen() {
		log.Printf("tier validation failing open (development only): account=%s action=%s err=%v", accountID, action, err)
		return Verdict{Allowed: true, Reason: ReasonFailOpenDev}
	}
	log.Printf("tier validation failing closed: account=%s action=%s err=%v", accountID, action, err)
	return Verdict{
		Allowed:      false,
		Reason:       ReasonFailClosed,
		Message:      "validation service temporarily unavailable - access denied",
		FailedClosed: true,
	}
}

func (v *Validator) checkActionLimits(action Action, limits entitlements.PlanLimits, usage UsageSnapshot, opts Options) Verdict {
	switch action {
	case ActionAnalysis:
		return checkCeiling(limits.MonthlyAnalysisLimit, usage.AnalysesThisCycle, ReasonAnalysisLimit,
			"monthly analysis limit", upgradeHintFor(analysisUsage, limits.MonthlyAnalysisLimit))

	case ActionResponseGeneration:
		return checkCeiling(limits.MonthlyResponseLimit, usage.ResponsesThisCycle, ReasonResponseLimit,
			"monthly response limit", upgradeHintFor(responseUsage, limits.MonthlyResponseLimit))

	case ActionPlatformLink:
		platform := strings.ToLower(strings.TrimSpace(opts.Platform))
		if platform == "" {
			return Verdict{Allowed: false, Reason: ReasonInvalidPlatformParam, Message: "platform parameter is required"}
		}
		if !entitlements.IsSupportedPlatform(platform) {
			return Verdict{
				Allowed: false,
				Reason:  ReasonUnsupportedPlatform,
				Message: fmt.Sprintf("platform %q is not supported. Supported platforms: %s", platform, strings.Join(entitlements.SupportedPlatforms(), ", ")),
			}
		}
		return checkCeiling(limits.PlatformAccountLimit, usage.PlatformAccounts[platform], ReasonPlatformAccountLimit,
			fmt.Sprintf("account limit for %s", platform), upgradeHintFor(platformUsage, limits.PlatformAccountLimit))

	default:
		return Verdict{Allowed: false, Reason: ReasonUnknownAction}
	}
}

func checkCeiling(ceiling, current int, reason, label string, hint *UpgradeHint) Verdict {
	if ceiling == entitlements.Unlimited {
		return Verdict{Allowed: true}
	}
	if current >= ceiling {
		return Verdict{
			Allowed:     false,
			Reason:      reason,
			Message:     fmt.Sprintf("%s reached: %d/%d used this cycle", label, current, ceiling),
			UpgradeHint: hint,
		}
	}
	return Verdict{Allowed: true}
}

func warningStatus(limits entitlements.PlanLimits, usage UsageSnapshot) map[string]Warning {
	warnings := map[string]Warning{}
	add := func(key string, ceiling, current int) {
		if ceiling <= 0 {
			return
		}
		share := float64(current) / float64(ceiling)
		if share >= warningThreshold {
			warnings[key] = Warning{
				Percentage: int(share*100 + 0.5),
				Remaining:  ceiling - current,
			}
		}
	}
	add("analysis", limits.MonthlyAnalysisLimit, usage.AnalysesThisCycle)
	add("response", limits.MonthlyResponseLimit, usage.ResponsesThisCycle)
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func (v *Validator) requestCached(key string) (Verdict, bool) {
	v.reqMu.Lock()
	defer v.reqMu.Unlock()
	verdict, ok := v.reqCache[key]
	return verdict, ok
}

func (v *Validator) requestCachePut(key string, verdict Verdict, requestID string) {
	v.reqMu.Lock()
	v.reqCache[key] = verdict
	v.reqMu.Unlock()

	time.AfterFunc(requestCacheCleanup, func() {
		v.reqMu.Lock()
		for k := range v.reqCache {
			if strings.HasPrefix(k, requestID+":") {
				delete(v.reqCache, k)
			}
		}
		v.reqMu.Unlock()
	})
}
