package approval

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/replygate/ReplyGate/app/repository"
)

// Rate limit deny reasons.
const (
	RateLimitExceeded      = "rate_limit_exceeded"
	RateLimitConnectivity  = "rate_limit_connectivity_unverified"
	RateLimitQueryTimeout  = "rate_limit_query_timeout"
	RateLimitMalformedData = "rate_limit_malformed_count"
)

const (
	// DefaultHourlyLimit caps auto-approvals per account per sliding hour.
	DefaultHourlyLimit = 50
	// DefaultDailyLimit caps auto-approvals per account per sliding day.
	DefaultDailyLimit = 200
	// rateQueryTimeout boxes each window count query.
	rateQueryTimeout = 2 * time.Second
)

// WindowStatus reports one sliding window's count against its limit.
type WindowStatus struct {
	Count   int `json:"count"`
	Limit   int `json:"limit"`
	Allowed bool
}

// RateLimitStatus is the combined limiter outcome.
type RateLimitStatus struct {
	Allowed bool
	Reason  string
	Hourly  WindowStatus `json:"hourly"`
	Daily   WindowStatus `json:"daily"`
}

// RateLimiter enforces sliding hourly and daily auto-approval caps per
// account, independent of monthly quotas.
//
// The connectivity probe and the window counts are separate round-trips, so
// approvals landing between them can be missed or double-counted; the
// limiter is best effort under concurrency, not an exact ceiling.
type RateLimiter struct {
	audits      repository.AuditRepository
	hourlyLimit int
	dailyLimit  int
}

// NewRateLimiter creates a limiter with the default window caps.
func NewRateLimiter(audits repository.AuditRepository) *RateLimiter {
	return &RateLimiter{
		audits:      audits,
		hourlyLimit: DefaultHourlyLimit,
		dailyLimit:  DefaultDailyLimit,
	}
}

// Check counts recent auto-approvals for the account. Every uncertain
// outcome denies: unverified connectivity, query timeout, malformed counts.
// A silent zero count would under-count and bypass the limit.
func (r *RateLimiter) Check(ctx context.Context, accountID string) RateLimitStatus {
	pctx, cancel := context.WithTimeout(ctx, rateQueryTimeout)
	defer cancel()
	rows, err := r.audits.Probe(pctx)
	if err != nil {
		log.Printf("rate limiter connectivity probe failed for account %s: %v", accountID, err)
		return RateLimitStatus{Allowed: false, Reason: RateLimitConnectivity}
	}
	if rows == nil {
		// An empty table probes as an empty, non-nil slice; nil means the
		// response shape was not the expected collection.
		log.Printf("rate limiter probe returned unexpected shape for account %s", accountID)
		return RateLimitStatus{Allowed: false, Reason: RateLimitConnectivity}
	}

	now := time.Now().UTC()

	hourly, status := r.countWindow(ctx, accountID, now.Add(-time.Hour))
	if status != "" {
		return RateLimitStatus{Allowed: false, Reason: status}
	}
	daily, status := r.countWindow(ctx, accountID, now.Add(-24*time.Hour))
	if status != "" {
		return RateLimitStatus{Allowed: false, Reason: status}
	}

	hw := WindowStatus{Count: hourly, Limit: r.hourlyLimit, Allowed: hourly < r.hourlyLimit}
	dw := WindowStatus{Count: daily, Limit: r.dailyLimit, Allowed: daily < r.dailyLimit}

	out := RateLimitStatus{Allowed: hw.Allowed && dw.Allowed, Hourly: hw, Daily: dw}
	if !out.Allowed {
		out.Reason = RateLimitExceeded
	}
	return out
}

// countWindow runs one time-boxed window count. The second return is a deny
// reason, empty on success.
func (r *RateLimiter) countWindow(ctx context.Context, accountID string, since time.Time) (int, string) {
	qctx, cancel := context.WithTimeout(ctx, rateQueryTimeout)
	defer cancel()

	count, err := r.audits.CountAutoApprovedSince(qctx, accountID, since)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
			log.Printf("rate limiter window count timed out for account %s", accountID)
			return 0, RateLimitQueryTimeout
		}
		log.Printf("rate limiter window count failed for account %s: %v", accountID, err)
		return 0, RateLimitConnectivity
	}
	if count < 0 {
		log.Printf("SECURITY: rate limiter got negative count %d for account %s", count, accountID)
		return 0, RateLimitMalformedData
	}
	return int(count), ""
}
