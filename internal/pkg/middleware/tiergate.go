package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/replygate/ReplyGate/app/models"
	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
	"github.com/replygate/ReplyGate/internal/pkg/tiergate"
)

// Fiber locals keys set by the gate for downstream handlers.
const (
	KeyAccountID = "ACCOUNT_ID"
	KeyRequestID = "REQUEST_ID"
	KeyVerdict   = "TIER_VERDICT"
	// KeyUsageFailed is set by a handler when the gated work failed and the
	// post-response hook must not record consumption.
	KeyUsageFailed = "USAGE_FAILED"
)

func accountIDFrom(c *fiber.Ctx) string {
	if v, ok := c.Locals(KeyAccountID).(string); ok && v != "" {
		return v
	}
	return strings.TrimSpace(c.Get("X-Account-ID"))
}

func requestIDFrom(c *fiber.Ctx) string {
	if v, ok := c.Locals(KeyRequestID).(string); ok && v != "" {
		return v
	}
	rid := strings.TrimSpace(c.Get("X-Request-ID"))
	if rid == "" {
		rid = uuid.NewString()
	}
	c.Locals(KeyRequestID, rid)
	return rid
}

// RequireAction gates a route on the tier validator. Denials return 403 with
// the structured verdict so clients can render usage and upgrade hints.
func RequireAction(v *tiergate.Validator, action tiergate.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := accountIDFrom(c)
		if accountID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing account identifier",
			})
		}

		opts := tiergate.Options{
			Platform:  strings.TrimSpace(c.Query("platform", c.Get("X-Platform"))),
			RequestID: requestIDFrom(c),
		}

		verdict := v.ValidateAction(c.UserContext(), accountID, action, opts)
		if !verdict.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":         "tier_limit",
				"reason":        verdict.Reason,
				"message":       verdict.Message,
				"current_tier":  verdict.CurrentTier,
				"current_usage": verdict.CurrentUsage,
				"upgrade_hint":  verdict.UpgradeHint,
			})
		}

		c.Locals(KeyAccountID, accountID)
		c.Locals(KeyVerdict, verdict)
		return c.Next()
	}
}

// RequireFeature gates a route on plan feature availability.
func RequireFeature(v *tiergate.Validator, feature entitlements.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := accountIDFrom(c)
		if accountID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing account identifier",
			})
		}

		verdict := v.ValidateFeature(c.UserContext(), accountID, feature)
		if !verdict.Available {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":          "feature_unavailable",
				"reason":         verdict.Reason,
				"message":        verdict.Message,
				"current_plan":   verdict.CurrentPlan,
				"required_plans": verdict.RequiredPlans,
			})
		}

		c.Locals(KeyAccountID, accountID)
		return c.Next()
	}
}

// RecordUsage runs the handler chain first and records consumption after a
// successful response. Recording happens only on 2xx with no failure flag,
// so denied or failed work never burns quota.
func RecordUsage(usage repository.UsageRepository, tracker *tiergate.UsageTracker, kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}
		if failed, ok := c.Locals(KeyUsageFailed).(bool); ok && failed {
			return nil
		}

		accountID := accountIDFrom(c)
		if accountID == "" {
			return nil
		}

		event := &models.ActivityEvent{
			AccountID: accountID,
			Kind:      kind,
			Quantity:  1,
		}
		ctx := c.UserContext()
		if err := usage.RecordActivity(ctx, event); err != nil {
			log.Printf("usage recording failed for account %s kind %s: %v", accountID, kind, err)
			return nil
		}
		tracker.Invalidate(ctx, accountID)
		return nil
	}
}
