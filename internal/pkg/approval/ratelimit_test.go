package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/replygate/ReplyGate/app/models"
)

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*models.ApprovalAudit

	createErr error
	probeErr  error
	probeNil  bool
	countErr  error

	countHook func(since time.Time) (int64, error)
}

func (f *fakeAuditRepo) Create(ctx context.Context, audit *models.ApprovalAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, audit)
	return nil
}

func (f *fakeAuditRepo) Probe(ctx context.Context) ([]models.ApprovalAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.probeNil {
		return nil, nil
	}
	return []models.ApprovalAudit{}, nil
}

func (f *fakeAuditRepo) CountAutoApprovedSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countHook != nil {
		return f.countHook(since)
	}
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n int64
	for _, r := range f.records {
		if r.AccountID == accountID && r.AutoApproved && r.Approved && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAuditRepo) ListSince(ctx context.Context, accountID string, since time.Time) ([]models.ApprovalAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ApprovalAudit
	for _, r := range f.records {
		if r.AccountID == accountID && !r.CreatedAt.Before(since) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func seedAudits(f *fakeAuditRepo, accountID string, n int, age time.Duration) {
	created := time.Now().UTC().Add(-age)
	for i := 0; i < n; i++ {
		f.records = append(f.records, &models.ApprovalAudit{
			AccountID:    accountID,
			Approved:     true,
			AutoApproved: true,
			CreatedAt:    created,
		})
	}
}

func TestRateLimiterAllowsUnderLimits(t *testing.T) {
	audits := &fakeAuditRepo{}
	seedAudits(audits, "acct-1", 10, 10*time.Minute)

	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.True(t, status.Allowed)
	assert.Equal(t, 10, status.Hourly.Count)
	assert.Equal(t, 10, status.Daily.Count)
}

func TestRateLimiterHourlyCap(t *testing.T) {
	audits := &fakeAuditRepo{}
	seedAudits(audits, "acct-1", DefaultHourlyLimit, 5*time.Minute)

	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitExceeded, status.Reason)
	assert.False(t, status.Hourly.Allowed)
}

func TestRateLimiterDailyCap(t *testing.T) {
	audits := &fakeAuditRepo{}
	// Old enough to fall out of the hourly window, inside the daily one.
	seedAudits(audits, "acct-1", DefaultDailyLimit, 3*time.Hour)

	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitExceeded, status.Reason)
	assert.True(t, status.Hourly.Allowed)
	assert.False(t, status.Daily.Allowed)
}

func TestRateLimiterSlidingWindowExpiry(t *testing.T) {
	audits := &fakeAuditRepo{}
	// Exactly at the hourly cap, but 61 minutes old: outside the window.
	seedAudits(audits, "acct-1", DefaultHourlyLimit, 61*time.Minute)

	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.True(t, status.Allowed)
	assert.Zero(t, status.Hourly.Count)
	assert.Equal(t, DefaultHourlyLimit, status.Daily.Count)
}

func TestRateLimiterProbeFailureDenies(t *testing.T) {
	audits := &fakeAuditRepo{probeErr: errors.New("connection reset")}
	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitConnectivity, status.Reason)
}

func TestRateLimiterNilProbeShapeDenies(t *testing.T) {
	audits := &fakeAuditRepo{probeNil: true}
	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitConnectivity, status.Reason)
}

func TestRateLimiterTimeoutDenies(t *testing.T) {
	audits := &fakeAuditRepo{countHook: func(time.Time) (int64, error) {
		return 0, context.DeadlineExceeded
	}}
	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitQueryTimeout, status.Reason)
}

func TestRateLimiterNegativeCountDenies(t *testing.T) {
	audits := &fakeAuditRepo{countHook: func(time.Time) (int64, error) {
		return -2, nil
	}}
	status := NewRateLimiter(audits).Check(context.Background(), "acct-1")
	assert.False(t, status.Allowed)
	assert.Equal(t, RateLimitMalformedData, status.Reason)
}
