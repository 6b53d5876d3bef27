// Package server assembles the fiber application: middleware, REST routes
// and the WebSocket sync endpoint.
package server

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"canvas-backend/internal/auth"
	"canvas-backend/internal/config"
	"canvas-backend/internal/handler"
	"canvas-backend/internal/presence"
)

// Server fiber application wrapper
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	db            *gorm.DB
	log           *logrus.Logger
	hub           *handler.CanvasHub
	canvasHandler *handler.CanvasHandler
	wsHandler     *handler.CanvasWSHandler
	healthHandler *handler.HealthHandler
	jwtManager    *auth.JWTManager
}

// New creates a server instance. presenceMgr may be nil when Redis is not
// configured.
func New(cfg *config.Config, db *gorm.DB, presenceMgr *presence.Manager, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:         "Canvas Sync Backend",
		ServerHeader:    "Fiber",
		StrictRouting:   true,
		CaseSensitive:   true,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		Prefork:         false, // incompatible with WebSocket rooms
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		BodyLimit:       10 * 1024 * 1024,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	hub := handler.NewCanvasHub(cfg.WebSocket.WriteTimeout, log)

	return &Server{
		app:           app,
		cfg:           cfg,
		db:            db,
		log:           log,
		hub:           hub,
		canvasHandler: handler.NewCanvasHandler(db, presenceMgr, log),
		wsHandler:     handler.NewCanvasWSHandler(hub, presenceMgr, log),
		healthHandler: handler.NewHealthHandler(db, presenceMgr, hub),
		jwtManager:    jwtManager,
	}
}

// SetupMiddleware installs recovery, request logging and CORS
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes installs the REST surface and the WebSocket endpoint
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	apiLimiter := limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	api := s.app.Group("/api/v1", apiLimiter, auth.Middleware(s.jwtManager))

	// Canvas lifecycle; the bare :projectId GET lazily creates the canvas
	api.Get("/canvas/:projectId", s.canvasHandler.GetByProject)
	api.Put("/canvas/:canvasId", s.canvasHandler.Update)
	api.Get("/canvas/:canvasId/load", s.canvasHandler.Load)
	api.Post("/canvas/:canvasId/save", s.canvasHandler.Save)
	api.Get("/canvas/:canvasId/active-users", s.canvasHandler.ActiveUsers)
	api.Get("/canvas/:canvasId/statistics", s.canvasHandler.Statistics)

	// Single-entity persistence
	api.Post("/canvas/:canvasId/objects", s.canvasHandler.CreateObject)
	api.Put("/canvas/objects/:objectId", s.canvasHandler.UpdateObject)
	api.Delete("/canvas/objects/:objectId", s.canvasHandler.DeleteObject)
	api.Post("/canvas/:canvasId/areas", s.canvasHandler.CreateArea)
	api.Put("/canvas/areas/:areaId", s.canvasHandler.UpdateArea)
	api.Delete("/canvas/areas/:areaId", s.canvasHandler.DeleteArea)
	api.Post("/canvas/areas/:areaId/assign/:userId", s.canvasHandler.AssignUser)
	api.Delete("/canvas/areas/:areaId/assign/:userId", s.canvasHandler.RemoveUser)

	// Sync channel; token arrives as a query parameter since browsers
	// cannot set headers on WebSocket upgrades
	s.app.Get("/ws/canvas/:canvasId",
		auth.Middleware(s.jwtManager),
		s.wsHandler.Upgrade,
		websocket.New(s.wsHandler.HandleConnection, websocket.Config{
			HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
			ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
			WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
		}))
}

// Start runs the server with graceful shutdown on SIGINT/SIGTERM
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		s.log.Info("shutting down server")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			s.log.WithError(err).Fatal("server shutdown error")
		}
	}()

	s.log.WithField("addr", s.cfg.Server.Port).Info("canvas sync backend starting")
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
