// handlers/highscores.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"snake-map-server/middleware"
	"snake-map-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type submitScoreRequest struct {
	Player string          `json:"player"`
	Score  json.RawMessage `json:"score"`
}

func SetupHighscoreRoutes(app *fiber.App, highscoreService *services.HighscoreService, appName string) {
	// 🔓 Reads are open to anyone
	app.Get("/highscores/:id", func(c *fiber.Ctx) error {
		mapID, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return badField(c, "map", "invalid map id")
		}

		scores, err := highscoreService.ListHighscores(c.UserContext(), mapID)
		if err != nil {
			logrus.WithField("map", mapID).Errorf("❌ [HIGHSCORE] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch highscores"})
		}
		return c.JSON(scores)
	})

	app.Get("/highscores/:id/ranked", func(c *fiber.Ctx) error {
		mapID, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return badField(c, "map", "invalid map id")
		}

		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			limit = 0
		}

		ranked, err := highscoreService.RankedHighscores(c.UserContext(), mapID, limit)
		if err != nil {
			logrus.WithField("map", mapID).Errorf("❌ [HIGHSCORE] %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch highscores"})
		}
		return c.JSON(ranked)
	})

	// 🔐 Writes must come from the game client
	gate := middleware.AppNameMiddleware(appName)

	app.Post("/highscores/:id", gate, func(c *fiber.Ctx) error {
		mapID, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return badField(c, "map", "invalid map id")
		}

		var req submitScoreRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if len(req.Score) == 0 {
			return badField(c, "score", "score is required")
		}
		score, err := strconv.Atoi(strings.Trim(string(req.Score), `"`))
		if err != nil {
			return badField(c, "score", "invalid score")
		}

		return submit(c, highscoreService, mapID, req.Player, score)
	})

	// Legacy route used by released game clients
	app.Get("/highscores/:id/:player/:score", gate, func(c *fiber.Ctx) error {
		mapID, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return badField(c, "map", "invalid map id")
		}
		player, err := url.PathUnescape(c.Params("player"))
		if err != nil {
			return badField(c, "player", "invalid player")
		}
		score, err := strconv.Atoi(c.Params("score"))
		if err != nil {
			return badField(c, "score", "invalid score")
		}

		return submit(c, highscoreService, mapID, player, score)
	})
}

func submit(c *fiber.Ctx, highscoreService *services.HighscoreService, mapID, player string, score int) error {
	if _, err := highscoreService.SubmitScore(c.UserContext(), mapID, player, score); err != nil {
		var fe *services.FieldError
		if errors.As(err, &fe) {
			return badField(c, fe.Field, fe.Error())
		}
		logrus.WithFields(logrus.Fields{
			"map":        mapID,
			"player":     player,
			"request_id": c.Locals(middleware.RequestIDKey),
		}).Errorf("❌ [HIGHSCORE] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store highscore"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func badField(c *fiber.Ctx, field, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"field": field,
	})
}
