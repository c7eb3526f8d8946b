package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/curricula/api/http/handlers"
)

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, health *handlers.HealthHandler, paths *handlers.LearningPathHandler, cacheAdmin *handlers.CacheHandler, authMW fiber.Handler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Health and readiness endpoints for probes/monitoring
	v1.Get("/health", health.Health)
	v1.Get("/ready", health.Ready)

	// Learning paths
	lp := v1.Group("/learning-paths", authMW)
	lp.Post("/", paths.Generate)
	lp.Get("/me", paths.GetMine)

	// Administrative cache invalidation
	admin := v1.Group("/admin", authMW)
	admin.Delete("/cache", cacheAdmin.InvalidateAll)
	admin.Delete("/cache/:key", cacheAdmin.InvalidateKey)
}
