// Package api serves the ledger and the statement importer over HTTP.
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/budgetbook/budgetbook/internal/buildinfo"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/ingest"
	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/store"
)

// MaxUploadSize bounds request bodies.
const MaxUploadSize = 32 << 20

// Server holds the HTTP handlers.
type Server struct {
	ingest   *ingest.Service
	ledger   *store.Ledger
	registry *importer.Registry
	log      zerolog.Logger
	app      *fiber.App
}

// Option customizes a Server.
type Option func(*settings)

type settings struct {
	corsOrigins []string
}

// WithCORS allows browser requests from origins. "*" allows any origin.
func WithCORS(origins []string) Option {
	return func(s *settings) { s.corsOrigins = origins }
}

// New builds the fiber app and registers every route.
func New(svc *ingest.Service, ledger *store.Ledger, registry *importer.Registry, log zerolog.Logger, opts ...Option) *Server {
	var set settings
	for _, o := range opts {
		o(&set)
	}

	s := &Server{ingest: svc, ledger: ledger, registry: registry, log: log}
	s.app = fiber.New(fiber.Config{
		AppName:               "budgetbook " + buildinfo.Version,
		BodyLimit:             MaxUploadSize,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	if len(set.corsOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(set.corsOrigins, ","),
			AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		}))
	}
	s.app.Use(requestLogger(log))
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/banks", s.handleBanks)

	api.Post("/import", s.handleImport)
	api.Post("/dedupe", s.handleDedupe)
	api.Get("/export", s.handleExport)
	api.Post("/restore", s.handleRestore)

	api.Get("/transactions", s.handleListTransactions)
	api.Get("/summary", s.handleSummary)
	api.Delete("/transactions", s.handleDeleteAll)
	api.Patch("/transactions/:id", s.handleUpdateCategory)
	api.Delete("/transactions/:id", s.handleDeleteTransaction)

	api.Get("/categories", s.handleListCategories)
	api.Post("/categories", s.handleAddCategory)
	api.Put("/categories/:name", s.handleRenameCategory)
	api.Delete("/categories/:name", s.handleDeleteCategory)
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.SetUserContext(logger.WithContext(c.UserContext(), log))
		err := c.Next()

		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	}
}

type errorResponse struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error"`
	Kind     string          `json:"kind,omitempty"`
	Attempts []model.Attempt `json:"attempts,omitempty"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := errorResponse{Error: err.Error()}

	var me *model.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &me):
		status = fiber.StatusUnprocessableEntity
		if me.Kind == model.KindUnknownInstitution {
			status = fiber.StatusBadRequest
		}
		body.Kind = string(me.Kind)
		body.Attempts = me.Attempts
	case errors.Is(err, store.ErrNoTransaction), errors.Is(err, store.ErrNoCategory):
		status = fiber.StatusNotFound
	case errors.As(err, &fe):
		status = fe.Code
		body.Error = fe.Message
	}
	return c.Status(status).JSON(body)
}
