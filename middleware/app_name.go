// middleware/app_name.go
package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AppNameHeader identifies the official game client on write requests.
const AppNameHeader = "X-App-Name"

// AppNameMiddleware rejects requests whose X-App-Name header is not exactly
// expected. It is mounted on score submission routes only.
func AppNameMiddleware(expected string) fiber.Handler {
	if expected == "" {
		logrus.Fatal("❌ APP_NAME is empty — score submissions cannot be gated")
	}

	return func(c *fiber.Ctx) error {
		if got := c.Get(AppNameHeader); got != expected {
			logrus.WithFields(logrus.Fields{
				"path":       c.Path(),
				"method":     c.Method(),
				"app_name":   got,
				"request_id": c.Locals(RequestIDKey),
			}).Warn("🚫 [APP_NAME] Rejected write from unknown client")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}
		return c.Next()
	}
}
