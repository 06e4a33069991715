// Package server exposes the identify/generate pipeline over HTTP. The
// server owns no state of its own: sessions, file layout, and the pipeline
// service are injected by the composition root.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/forPelevin/shortcut/internal/config"
	"github.com/forPelevin/shortcut/internal/media"
	"github.com/forPelevin/shortcut/internal/shorts"
	"github.com/forPelevin/shortcut/internal/store"
)

// Uploads are whole recordings, so the body limit is far above fiber's
// 4 MiB default.
const maxUploadBytes = 2 << 30

type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      shorts.Service
	sessions *store.Sessions
	files    *media.Manager
	app      *fiber.App
}

func New(cfg config.Config, log zerolog.Logger, svc shorts.Service, sessions *store.Sessions, files *media.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		svc:      svc,
		sessions: sessions,
		files:    files,
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.requestLogger())

	app.Get("/health", s.handleHealth)

	v1 := app.Group("/api/v1")
	v1.Post("/videos/upload", s.handleUpload)
	v1.Post("/videos/:id/identify", s.handleIdentify)
	v1.Get("/videos/:id/shorts", s.handleShorts)
	v1.Post("/videos/:id/generate", s.handleGenerate)
	v1.Delete("/videos/:id", s.handleDelete)
	v1.Get("/shorts/:id", s.handleDownload)

	s.app = app
	return s
}

// App exposes the underlying fiber app, mainly for tests via app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
	return s.app.Listen(s.cfg.ListenAddr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}
