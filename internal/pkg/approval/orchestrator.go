package approval

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/replygate/ReplyGate/app/models"
	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
	"github.com/replygate/ReplyGate/internal/pkg/tiergate"
)

// Eligibility and pipeline deny reasons.
const (
	ReasonInvalidCandidate     = "invalid_candidate"
	ReasonAccountNotFound      = "account_not_found"
	ReasonPlanNotEligible      = "plan_not_eligible"
	ReasonAutoApprovalDisabled = "auto_approval_disabled"
	ReasonSubscriptionInactive = "subscription_inactive"
	ReasonPolicyViolation      = "organization_policy_violation"
	ReasonPolicyCheckFailed    = "policy_validation_error"
	ReasonPlatformCompliance   = "platform_compliance_failed"
	ReasonToxicityExceeded     = "toxicity_threshold_exceeded"
	ReasonSystemError          = "system_error"
)

// Comment is the original inbound item a reply was generated for. Only its
// identifiers and moderation score enter the pipeline; the raw text never
// leaves the generation subsystem.
type Comment struct {
	ID       string `validate:"required"`
	Platform string `validate:"required"`
	Score    any
}

// Variant is the generated reply candidate. Consumed once, never mutated;
// any divergence between this text and what later sits in storage is the
// tamper condition the integrity verifier catches.
type Variant struct {
	ID    string `validate:"required"`
	Text  string `validate:"required"`
	Score any
}

// Result is the terminal pipeline outcome. Denials carry an internal reason
// code for operator tooling; end users only ever see "requires manual
// review", never raw moderation scores.
type Result struct {
	Approved             bool     `json:"approved"`
	Reason               string   `json:"reason,omitempty"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	Variant              *Variant `json:"variant,omitempty"`
	TransparencyApplied  bool     `json:"transparency_applied"`
	AutoPublish          bool     `json:"auto_publish"`
	AuditID              string   `json:"audit_id,omitempty"`
}

// Platform reply length ceilings, Twitter default.
var platformMaxLength = map[string]int{
	"twitter":   280,
	"facebook":  63206,
	"instagram": 2200,
	"youtube":   10000,
}

const defaultMaxLength = 280

func maxLengthFor(platform string) int {
	if n, ok := platformMaxLength[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return n
	}
	return defaultMaxLength
}

// Service sequences the auto-approval pipeline:
// eligibility, rate limit, security policy, toxicity delta, transparency,
// persistence. Strictly ordered, short-circuiting on the first failure; a
// failed run is inert since nothing external commits before persistence.
type Service struct {
	tiers    *tiergate.Validator
	accounts repository.AccountRepository
	policies repository.PolicyRepository
	audits   repository.AuditRepository
	limiter  *RateLimiter
	enforcer *TransparencyEnforcer
	validate *validator.Validate
}

// NewService wires the orchestrator from its collaborators.
func NewService(
	tiers *tiergate.Validator,
	repos *repository.Repositories,
	provider DisclosureProvider,
) *Service {
	return &Service{
		tiers:    tiers,
		accounts: repos.Account,
		policies: repos.Policy,
		audits:   repos.Audit,
		limiter:  NewRateLimiter(repos.Audit),
		enforcer: NewTransparencyEnforcer(provider),
		validate: validator.New(),
	}
}

func deny(reason string) Result {
	return Result{Approved: false, Reason: reason, RequiresManualReview: true}
}

// ProcessAutoApproval runs the full pipeline for one candidate. All failures
// resolve to a structured denial; no error escapes as a panic or raised
// error past this boundary.
func (s *Service) ProcessAutoApproval(ctx context.Context, comment Comment, variant Variant, accountID string) Result {
	if strings.TrimSpace(accountID) == "" {
		return deny(ReasonInvalidCandidate)
	}
	if err := s.validate.Struct(comment); err != nil {
		return s.finish(ctx, comment, variant, accountID, deny(ReasonInvalidCandidate), "", 0)
	}
	if err := s.validate.Struct(variant); err != nil {
		return s.finish(ctx, comment, variant, accountID, deny(ReasonInvalidCandidate), "", 0)
	}

	// Stage 1: eligibility. Plan, setting and status must all pass.
	tier, settings, res := s.checkEligibility(ctx, accountID)
	if res != nil {
		return s.finish(ctx, comment, variant, accountID, *res, "", 0)
	}

	// Stage 2: rate limit.
	rl := s.limiter.Check(ctx, accountID)
	if !rl.Allowed {
		return s.finish(ctx, comment, variant, accountID, deny(rl.Reason), "", 0)
	}

	// Stage 3: organization content rules and platform compliance.
	if res := s.checkSecurityPolicy(ctx, variant, comment.Platform, accountID); res != nil {
		return s.finish(ctx, comment, variant, accountID, *res, "", 0)
	}

	// Stage 4: toxicity delta.
	variantScore, _ := NormalizeScore(variant.Score)
	if !ValidateToxicityDelta(variant.Score, comment.Score, tier.Plan) {
		return s.finish(ctx, comment, variant, accountID, deny(ReasonToxicityExceeded), "", variantScore)
	}

	// Stage 5: transparency. The enforcer may rewrite the text.
	tr := s.enforcer.Enforce(ctx, variant.Text, accountID, comment.Platform, settings.DefaultLanguage, maxLengthFor(comment.Platform))
	if tr.Reason != "" {
		return s.finish(ctx, comment, variant, accountID, deny(tr.Reason), "", variantScore)
	}

	final := variant
	final.Text = tr.Text

	result := Result{
		Approved:            true,
		Variant:             &final,
		TransparencyApplied: tr.Applied,
		AutoPublish:         settings.AutoPublishEnabled,
	}

	// Stage 6: persist. A failed audit insert is tracked for alerting but
	// never revokes an already-granted approval.
	return s.finish(ctx, comment, final, accountID, result, Checksum(final.Text), variantScore)
}

func (s *Service) checkEligibility(ctx context.Context, accountID string) (tiergate.TierInfo, *models.AccountSettings, *Result) {
	tier, err := s.tiers.LoadTier(ctx, accountID)
	if err != nil {
		log.Printf("auto-approval eligibility lookup failed for account %s: %v", accountID, err)
		r := deny(ReasonAccountNotFound)
		return tiergate.TierInfo{}, nil, &r
	}

	limits, ok := entitlements.Limits(tier.Plan)
	if !ok || !limits.AutoApproval {
		r := deny(ReasonPlanNotEligible)
		return tier, nil, &r
	}

	settings, err := s.accounts.GetOrCreateSettings(ctx, accountID)
	if err != nil {
		log.Printf("auto-approval settings lookup failed for account %s: %v", accountID, err)
		r := deny(ReasonSystemError)
		return tier, nil, &r
	}
	if !settings.AutoApprovalEnabled {
		r := deny(ReasonAutoApprovalDisabled)
		return tier, settings, &r
	}
	if tier.Status != models.AccountStatusActive && tier.Status != models.AccountStatusTrialing {
		r := deny(ReasonSubscriptionInactive)
		return tier, settings, &r
	}

	return tier, settings, nil
}

// checkSecurityPolicy validates platform limits and account content rules.
// A policy that cannot be read or decoded denies; unreadable rules must not
// pass content.
func (s *Service) checkSecurityPolicy(ctx context.Context, variant Variant, platform, accountID string) *Result {
	if len(variant.Text) > maxLengthFor(platform) {
		r := deny(ReasonPlatformCompliance)
		return &r
	}

	policies, err := s.policies.ListByAccount(ctx, accountID)
	if err != nil {
		log.Printf("organization policy lookup failed for account %s: %v", accountID, err)
		r := deny(ReasonPolicyCheckFailed)
		return &r
	}

	lower := strings.ToLower(variant.Text)
	for _, p := range policies {
		if p.PolicyType != models.PolicyTypeContentFilter || !p.Enabled {
			continue
		}
		words, err := p.ProhibitedWordList()
		if err != nil {
			log.Printf("SECURITY: malformed content policy %d for account %s: %v", p.ID, accountID, err)
			r := deny(ReasonPolicyCheckFailed)
			return &r
		}
		for _, w := range words {
			if w == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(w)) {
				r := deny(ReasonPolicyViolation)
				return &r
			}
		}
	}
	return nil
}

// finish persists the audit record for this run and returns the result. The
// record stores the content hash, never the text, and is written for both
// outcomes so denials are auditable too.
func (s *Service) finish(ctx context.Context, comment Comment, variant Variant, accountID string, result Result, contentHash string, score float64) Result {
	audit := &models.ApprovalAudit{
		AuditID:             uuid.NewString(),
		AccountID:           accountID,
		CommentID:           comment.ID,
		VariantID:           variant.ID,
		Platform:            strings.ToLower(strings.TrimSpace(comment.Platform)),
		Approved:            result.Approved,
		AutoApproved:        result.Approved,
		Reason:              result.Reason,
		ToxicityScore:       score,
		TransparencyApplied: result.TransparencyApplied,
		ContentHash:         contentHash,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.audits.Create(ctx, audit); err != nil {
		// Approval durability is decoupled from the decision: log loudly,
		// leave AuditID empty, do not revoke.
		log.Printf("SECURITY: approval audit persistence failed for account %s: %v", accountID, err)
		return result
	}

	result.AuditID = audit.AuditID
	return result
}

// Stats summarizes recent pipeline outcomes for an account.
type Stats struct {
	Daily  StatsWindow `json:"daily"`
	Weekly StatsWindow `json:"weekly"`
}

// StatsWindow counts approved vs denied runs in one lookback window.
type StatsWindow struct {
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
	Total    int `json:"total"`
}

// GetStats returns daily and weekly pipeline outcome counts.
func (s *Service) GetStats(ctx context.Context, accountID string) (Stats, error) {
	now := time.Now().UTC()

	window := func(since time.Time) (StatsWindow, error) {
		rows, err := s.audits.ListSince(ctx, accountID, since)
		if err != nil {
			return StatsWindow{}, err
		}
		var w StatsWindow
		for _, row := range rows {
			if row.Approved {
				w.Approved++
			} else {
				w.Denied++
			}
		}
		w.Total = w.Approved + w.Denied
		return w, nil
	}

	daily, err := window(now.Add(-24 * time.Hour))
	if err != nil {
		return Stats{}, err
	}
	weekly, err := window(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		return Stats{}, err
	}
	return Stats{Daily: daily, Weekly: weekly}, nil
}
