package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"clippilot/config"
	"clippilot/handlers"
	"clippilot/internal/mediaclient"
	"clippilot/internal/mindmapai"
	"clippilot/internal/pipelines"
	"clippilot/internal/runtime"
	"clippilot/internal/store"
	"clippilot/middleware"
)

func main() {
	// Load .env if present; in production the environment is already set.
	_ = godotenv.Load()

	config.InitLogger()
	log := config.Log

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if err := config.InitSupabase(); err != nil {
		log.WithError(err).Fatal("Failed to initialize Supabase")
	}

	st := store.NewSupabaseStore(config.SupabaseClient, log)

	checkpoints, err := runtime.NewSupabaseCheckpointStore(config.GetSupabaseURL(), config.GetSupabaseServiceKey())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize checkpoint store")
	}

	media := mediaclient.New(cfg.MediaGateway, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mindmaps mindmapai.Generator
	gemini, err := mindmapai.NewGeminiGenerator(ctx)
	if err != nil {
		log.WithError(err).Warn("Vertex AI unavailable, mindmap generation disabled")
		mindmaps = mindmapai.Disabled{}
	} else {
		defer gemini.Close()
		mindmaps = gemini
	}

	executor := runtime.NewExecutor(checkpoints, log)
	executor.MaxAttempts = cfg.MaxAttempts
	executor.BaseBackoff = cfg.BaseBackoff

	router := runtime.NewRouter(executor)
	p := &pipelines.Pipelines{
		Store:     st,
		Media:     media,
		Mindmaps:  mindmaps,
		Subtitles: cfg.Subtitles,
		Log:       log,
	}
	p.Register(router)

	dispatcher := runtime.NewDispatcher(router, log, cfg.Workers, cfg.QueueSize)
	dispatcher.Run(ctx)

	h := handlers.NewApplicationHandler(dispatcher, st, config.SupabaseClient, cfg.ExportBucket, log)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
	}))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Pipeline service is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	apiV1.Post("/transcriptions", h.StartTranscription)
	apiV1.Get("/transcriptions/:id", h.GetTranscription)
	apiV1.Patch("/transcriptions/:id/speakers", h.RenameSpeaker)
	apiV1.Post("/transcriptions/:id/mindmap", h.StartMindmapGeneration)
	apiV1.Get("/transcriptions/:id/mindmap", h.GetMindmap)

	apiV1.Post("/videos/identify", h.StartIdentifyClips)
	apiV1.Get("/videos/:id", h.GetVideo)
	apiV1.Post("/videos/:id/export", h.StartClipExport)
	apiV1.Get("/videos/:id/exports", h.ListExportedClips)
	apiV1.Get("/videos/:id/exports/download", h.DownloadExportedClip)

	// Serve until interrupted, then drain workers before exiting.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("Shutdown signal received")
		cancel()
		dispatcher.Stop()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("Starting pipeline service")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
