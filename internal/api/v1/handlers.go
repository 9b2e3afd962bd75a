package apiv1

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/replygate/ReplyGate/internal/pkg/approval"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
	"github.com/replygate/ReplyGate/internal/pkg/middleware"
	"github.com/replygate/ReplyGate/internal/pkg/tiergate"
)

// APIServer exposes the validation and approval pipeline over JSON.
type APIServer struct {
	tiers    *tiergate.Validator
	approval *approval.Service
	changer  *tiergate.PlanChanger
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(tiers *tiergate.Validator, svc *approval.Service, changer *tiergate.PlanChanger) *APIServer {
	return &APIServer{tiers: tiers, approval: svc, changer: changer}
}

// GetPing handles the health check endpoint.
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

type validateActionRequest struct {
	AccountID string `json:"account_id"`
	Action    string `json:"action"`
	Platform  string `json:"platform"`
	RequestID string `json:"request_id"`
}

// PostValidateAction checks whether an account may perform a quota-gated
// action right now. The verdict is always 200; denial is data, not an error.
func (s *APIServer) PostValidateAction(c *fiber.Ctx) error {
	var req validateActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	verdict := s.tiers.ValidateAction(c.UserContext(), req.AccountID, tiergate.Action(req.Action), tiergate.Options{
		Platform:  req.Platform,
		RequestID: req.RequestID,
	})
	return c.Status(fiber.StatusOK).JSON(verdict)
}

type validateFeatureRequest struct {
	AccountID string `json:"account_id"`
	Feature   string `json:"feature"`
}

// PostValidateFeature checks plan-level feature availability.
func (s *APIServer) PostValidateFeature(c *fiber.Ctx) error {
	var req validateFeatureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	verdict := s.tiers.ValidateFeature(c.UserContext(), req.AccountID, entitlements.Feature(req.Feature))
	return c.Status(fiber.StatusOK).JSON(verdict)
}

type processApprovalRequest struct {
	Comment approval.Comment `json:"comment"`
	Variant approval.Variant `json:"variant"`
}

// PostProcessApproval runs the full auto-approval pipeline for one generated
// reply. The account comes from the gate middleware or the account header.
func (s *APIServer) PostProcessApproval(c *fiber.Ctx) error {
	accountID, _ := c.Locals(middleware.KeyAccountID).(string)
	if accountID == "" {
		accountID = strings.TrimSpace(c.Get("X-Account-ID"))
	}
	if accountID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing account identifier"})
	}

	var req processApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	result := s.approval.ProcessAutoApproval(c.UserContext(), req.Comment, req.Variant, accountID)
	if !result.Approved {
		// A denied pipeline run must not burn response quota.
		c.Locals(middleware.KeyUsageFailed, true)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

type verifyContentRequest struct {
	AccountID    string `json:"account_id"`
	ApprovedText string `json:"approved_text"`
	StoredText   string `json:"stored_text"`
}

// PostVerifyContent re-checks, immediately before publication, that the
// stored reply still matches the approved one.
func (s *APIServer) PostVerifyContent(c *fiber.Ctx) error {
	var req verifyContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	res := approval.ValidateContentIntegrity(req.ApprovedText, req.StoredText, req.AccountID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"valid":    res.Valid,
		"reason":   res.Reason,
		"checksum": res.Checksum,
	})
}

// GetApprovalStats returns daily and weekly pipeline outcome counts.
func (s *APIServer) GetApprovalStats(c *fiber.Ctx) error {
	accountID, _ := c.Locals(middleware.KeyAccountID).(string)
	if accountID == "" {
		accountID = strings.TrimSpace(c.Get("X-Account-ID"))
	}
	if accountID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing account identifier"})
	}

	stats, err := s.approval.GetStats(c.UserContext(), accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "stats lookup failed"})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

type planChangeRequest struct {
	AccountID string `json:"account_id"`
	NewPlan   string `json:"new_plan"`
}

// PostPlanChange applies a tier transition reported by the billing system.
// Upgrades reset usage immediately; downgrades are scheduled for the next
// cycle and never reset anything.
func (s *APIServer) PostPlanChange(c *fiber.Ctx) error {
	var req planChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "account_id is required"})
	}

	ctx := c.UserContext()
	tier, err := s.tiers.LoadTier(ctx, req.AccountID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "account not found"})
	}

	newPlan := entitlements.NormalizePlan(req.NewPlan)
	if newPlan == entitlements.PlanUnknown {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown plan"})
	}

	switch {
	case entitlements.PlanRank(newPlan) > entitlements.PlanRank(tier.Plan):
		if err := s.changer.HandleTierUpgrade(ctx, req.AccountID, tier.Plan, newPlan); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "plan change failed"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"applied": "upgrade", "effective": "immediate"})
	case entitlements.PlanRank(newPlan) < entitlements.PlanRank(tier.Plan):
		if err := s.changer.HandleTierDowngrade(ctx, req.AccountID, tier.Plan, newPlan, tier.PeriodEnd); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "plan change failed"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"applied": "downgrade", "effective": "next_cycle"})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"applied": "none", "message": "plan unchanged"})
	}
}

// GetUsage returns the current cycle usage snapshot for an account.
func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Get("X-Account-ID"))
	if accountID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing account identifier"})
	}

	ctx := c.UserContext()
	tier, err := s.tiers.LoadTier(ctx, accountID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "account not found"})
	}
	snap := s.tiers.Tracker().Current(ctx, accountID, tier)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"plan":  tier.Plan,
		"usage": snap,
	})
}
