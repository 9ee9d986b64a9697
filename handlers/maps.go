// handlers/maps.go
package handlers

import (
	"errors"
	"net/url"
	"os"

	"snake-map-server/models"
	"snake-map-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func SetupMapRoutes(app *fiber.App, catalog *services.Catalog) {
	app.Get("/maps", func(c *fiber.Ctx) error {
		return c.JSON(catalog.All())
	})

	app.Get("/maps/:id", func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return mapNotFound(c)
		}

		path, err := catalog.ArchivePath(id)
		if err != nil {
			if errors.Is(err, services.ErrMapNotFound) {
				return mapNotFound(c)
			}
			logrus.WithField("map", id).Errorf("❌ [MAPS] Failed to resolve archive: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read map"})
		}

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return mapNotFound(c)
			}
			logrus.WithField("map", id).Errorf("❌ [MAPS] Failed to open archive: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read map"})
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read map"})
		}

		c.Attachment(id + models.MapArchiveExt)
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		// fasthttp closes the file once the body has been written
		return c.SendStream(file, int(info.Size()))
	})
}

func mapNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Map not found"})
}
