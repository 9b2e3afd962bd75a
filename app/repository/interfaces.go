package repository

import (
	"context"
	"time"

	"github.com/replygate/ReplyGate/app/models"
)

// AccountRepository defines read access to account/plan projections. The
// billing subsystem owns these rows; this core never writes plan data.
type AccountRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*models.Account, error)
	GetOrCreateSettings(ctx context.Context, accountID string) (*models.AccountSettings, error)
}

// UsageRepository defines the activity-event and reset-marker operations the
// usage tracker needs.
type UsageRepository interface {
	CountResponses(ctx context.Context, accountID string, since time.Time) (int64, error)
	SumAnalyses(ctx context.Context, accountID string, since time.Time) (int64, error)
	ActivePlatformAccounts(ctx context.Context, accountID string) ([]models.PlatformAccount, error)
	RecordActivity(ctx context.Context, event *models.ActivityEvent) error
	LatestUsageReset(ctx context.Context, accountID string) (*models.UsageReset, error)
	CreateUsageReset(ctx context.Context, reset *models.UsageReset) error
	UpsertPendingPlanChange(ctx context.Context, change *models.PendingPlanChange) error
}

// PolicyRepository defines access to account-scoped content policies.
type PolicyRepository interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.OrgPolicy, error)
}

// AuditRepository defines the insert-only approval audit operations plus the
// window counts the rate limiter runs against.
type AuditRepository interface {
	Create(ctx context.Context, audit *models.ApprovalAudit) error
	Probe(ctx context.Context) ([]models.ApprovalAudit, error)
	CountAutoApprovedSince(ctx context.Context, accountID string, since time.Time) (int64, error)
	ListSince(ctx context.Context, accountID string, since time.Time) ([]models.ApprovalAudit, error)
}

// Repositories bundles all repository implementations.
type Repositories struct {
	Account AccountRepository
	Usage   UsageRepository
	Policy  PolicyRepository
	Audit   AuditRepository
}
