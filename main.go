package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snake-map-server/config"
	"snake-map-server/database"
	"snake-map-server/handlers"
	"snake-map-server/middleware"
	"snake-map-server/services"
	"snake-map-server/utils"
	"snake-map-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.SetupLogging(); err != nil {
		logrus.Fatal(err)
	}

	// 🗺️ Catalog is built once, before any traffic is accepted
	catalog, err := services.BuildCatalog(cfg.MapsDir, services.CatalogOptions{Strict: cfg.CatalogStrict})
	if err != nil {
		logrus.Fatalf("failed to build map catalog: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		logrus.Fatal(err)
	}

	highscoreService := services.NewHighscoreService(db, cfg.QueryTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := []services.ScheduledJob{
		{Name: "db-pool-stats", Every: time.Minute, Run: highscoreService.LogPoolStats},
	}
	if cfg.Mirror.Enabled() {
		store, err := utils.NewObjectStore(ctx, cfg.Mirror.Endpoint, cfg.Mirror.Region, cfg.Mirror.Bucket,
			cfg.Mirror.AccessKeyID, cfg.Mirror.AccessKeySecret)
		if err != nil {
			logrus.Fatal("failed to initialize mirror bucket client: ", err)
		}
		mirror := workers.NewCatalogMirror(catalog, store)
		jobs = append(jobs, services.ScheduledJob{
			Name:           "catalog-mirror",
			Every:          cfg.Mirror.Interval,
			RunImmediately: true,
			Run:            mirror.Run,
		})
	}
	sched, err := services.StartScheduler(ctx, jobs...)
	if err != nil {
		logrus.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "snake-map-server",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // archive downloads on slow links
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.AppNameHeader + ", " + middleware.RequestIDHeader,
	}))

	handlers.SetupRootRoutes(app, cfg.HomepageURL, catalog, highscoreService)
	handlers.SetupMapRoutes(app, catalog)
	handlers.SetupHighscoreRoutes(app, highscoreService, cfg.AppName)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Errorf("Server error: %v", err)
			stop()
		}
	}()

	logrus.Infof("✅ Server running on http://localhost:%s", cfg.Port)
	logrus.Infof("✅ Serving %d map(s) from %s", catalog.Len(), cfg.MapsDir)
	logrus.Infof("✅ Score submissions gated on %s: %s", middleware.AppNameHeader, cfg.AppName)

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		logrus.Warnf("scheduler shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.Warnf("server shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
