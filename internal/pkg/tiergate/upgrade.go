package tiergate

import (
	"context"
	"fmt"
	"time"

	"github.com/replygate/ReplyGate/app/models"
	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
)

type usageKind int

const (
	analysisUsage usageKind = iota
	responseUsage
	platformUsage
)

func ceilingFor(kind usageKind, limits entitlements.PlanLimits) int {
	switch kind {
	case analysisUsage:
		return limits.MonthlyAnalysisLimit
	case responseUsage:
		return limits.MonthlyResponseLimit
	default:
		return limits.PlatformAccountLimit
	}
}

// upgradeHintFor recommends the lowest plan whose relevant ceiling exceeds
// the one just hit. Returns nil when no plan helps.
func upgradeHintFor(kind usageKind, currentLimit int) *UpgradeHint {
	for _, plan := range []entitlements.Plan{entitlements.PlanStarter, entitlements.PlanPro, entitlements.PlanPlus} {
		limits, ok := entitlements.Limits(plan)
		if !ok {
			continue
		}
		ceiling := ceilingFor(kind, limits)
		if ceiling == entitlements.Unlimited || ceiling > currentLimit {
			return &UpgradeHint{
				Plan:    plan,
				Message: fmt.Sprintf("upgrade to %s to raise this limit to %s", plan, formatCeiling(ceiling)),
			}
		}
	}
	return nil
}

func formatCeiling(ceiling int) string {
	if ceiling == entitlements.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", ceiling)
}

// PlanChanger applies tier transitions. Upgrades reset usage immediately via
// a reset marker; downgrades are scheduled for the next cycle and never
// reset anything.
type PlanChanger struct {
	usage   repository.UsageRepository
	tracker *UsageTracker
}

// NewPlanChanger creates a plan changer that invalidates the given tracker's
// cache on every transition.
func NewPlanChanger(usage repository.UsageRepository, tracker *UsageTracker) *PlanChanger {
	return &PlanChanger{usage: usage, tracker: tracker}
}

// HandleTierUpgrade records a usage-reset marker so the effective cycle start
// moves to now, and invalidates the cached snapshot immediately.
func (p *PlanChanger) HandleTierUpgrade(ctx context.Context, accountID string, oldPlan, newPlan entitlements.Plan) error {
	if entitlements.PlanRank(newPlan) <= entitlements.PlanRank(oldPlan) {
		return fmt.Errorf("tier change %s -> %s is not an upgrade", oldPlan, newPlan)
	}

	now := time.Now().UTC()
	reset := &models.UsageReset{
		AccountID: accountID,
		ResetType: models.ResetTypeTierUpgrade,
		Reason:    fmt.Sprintf("upgrade %s -> %s", oldPlan, newPlan),
		ResetAt:   now,
	}
	if err := p.usage.CreateUsageReset(ctx, reset); err != nil {
		return err
	}

	p.tracker.Invalidate(ctx, accountID)
	return nil
}

// HandleTierDowngrade schedules the downgrade for the next cycle start. The
// account keeps its current ceilings until then.
func (p *PlanChanger) HandleTierDowngrade(ctx context.Context, accountID string, oldPlan, newPlan entitlements.Plan, periodEnd *time.Time) error {
	if entitlements.PlanRank(newPlan) >= entitlements.PlanRank(oldPlan) {
		return fmt.Errorf("tier change %s -> %s is not a downgrade", oldPlan, newPlan)
	}

	change := &models.PendingPlanChange{
		AccountID:     accountID,
		CurrentPlan:   string(oldPlan),
		NewPlan:       string(newPlan),
		ChangeType:    "downgrade",
		EffectiveDate: NextCycleStart(periodEnd, time.Now().UTC()),
	}
	return p.usage.UpsertPendingPlanChange(ctx, change)
}
