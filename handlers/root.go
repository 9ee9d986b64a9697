// handlers/root.go
package handlers

import (
	"snake-map-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func SetupRootRoutes(app *fiber.App, homepageURL string, catalog *services.Catalog, highscoreService *services.HighscoreService) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(homepageURL, fiber.StatusTemporaryRedirect)
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := highscoreService.Ping(c.UserContext()); err != nil {
			logrus.Errorf("❌ [HEALTH] Database ping failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"maps":   catalog.Len(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "maps": catalog.Len()})
	})
}
