package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/replygate/ReplyGate/app/models"
	"github.com/replygate/ReplyGate/app/repository"
	apiv1 "github.com/replygate/ReplyGate/internal/api/v1"
	"github.com/replygate/ReplyGate/internal/pkg/approval"
	"github.com/replygate/ReplyGate/internal/pkg/entitlements"
	"github.com/replygate/ReplyGate/internal/pkg/middleware"
	"github.com/replygate/ReplyGate/internal/pkg/tiergate"
)

// ApiRouter wires the validation and approval endpoints with their gates.
type ApiRouter struct {
	tiers    *tiergate.Validator
	approval *approval.Service
	repos    *repository.Repositories
}

func NewApiRouter(tiers *tiergate.Validator, svc *approval.Service, repos *repository.Repositories) *ApiRouter {
	return &ApiRouter{tiers: tiers, approval: svc, repos: repos}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	changer := tiergate.NewPlanChanger(h.repos.Usage, h.tiers.Tracker())
	server := apiv1.NewAPIServer(h.tiers, h.approval, changer)

	v1.Get("/ping", server.GetPing)
	v1.Get("/usage", server.GetUsage)
	v1.Post("/plan/change", server.PostPlanChange)

	v1.Post("/validate/action", server.PostValidateAction)
	v1.Post("/validate/feature", server.PostValidateFeature)

	// The approval run is itself a gated response-generation consumer:
	// the feature and quota gates deny ineligible or over-quota accounts and
	// the recorder burns quota only after an approved run.
	v1.Post("/approvals/process",
		middleware.RecordUsage(h.repos.Usage, h.tiers.Tracker(), models.ActivityResponseGenerated),
		middleware.RequireFeature(h.tiers, entitlements.FeatureAutoApproval),
		middleware.RequireAction(h.tiers, tiergate.ActionResponseGeneration),
		server.PostProcessApproval,
	)
	v1.Post("/approvals/verify-content", server.PostVerifyContent)
	v1.Get("/approvals/stats", server.GetApprovalStats)
}
