package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/replygate/ReplyGate/app/repository"
	"github.com/replygate/ReplyGate/internal/pkg/approval"
	"github.com/replygate/ReplyGate/internal/pkg/cache"
	"github.com/replygate/ReplyGate/internal/pkg/database"
	"github.com/replygate/ReplyGate/internal/pkg/env"
	"github.com/replygate/ReplyGate/internal/pkg/router"
	"github.com/replygate/ReplyGate/internal/pkg/tiergate"
	"github.com/replygate/ReplyGate/internal/pkg/transparency"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()

	db := database.GetDB()
	repository.InitGlobalFactory(db)
	repos := repository.NewRepositories(db)

	store := cache.NewRedisStoreFromEnv()

	tiers := tiergate.NewValidator(repos, store, tiergate.Config{
		FailOpenOnError: env.GetEnv("TIER_VALIDATION_FAIL_OPEN", "false") == "true",
		Production:      env.IsProduction(),
	})

	provider := transparency.NewProvider(env.GetEnv("TRANSPARENCY_MODE", transparency.ModeSignature))
	svc := approval.NewService(tiers, repos, provider)

	app := fiber.New(fiber.Config{
		AppName: "ReplyGate",
	})

	app.Use(recover.New())
	if env.IsDev() {
		app.Use(logger.New())
	}

	router.InstallRouter(app, router.NewApiRouter(tiers, svc, repos))

	return app
}
