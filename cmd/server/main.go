package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	"canvas-backend/internal/config"
	"canvas-backend/internal/database"
	"canvas-backend/internal/presence"
	"canvas-backend/internal/server"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer database.Close(db)

	if err := database.Ping(db); err != nil {
		log.WithError(err).Fatal("database ping failed")
	}
	log.Info("database connected")

	presenceMgr := presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := presenceMgr.Ping(); err != nil {
		// Presence is cross-instance bookkeeping; the sync channel works
		// without it, so a missing Redis only degrades active-user queries.
		log.WithError(err).Warn("redis unavailable, presence disabled")
		presenceMgr = nil
	} else {
		defer presenceMgr.Close()
		log.Info("redis connected")
	}

	srv := server.New(cfg, db, presenceMgr, log)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.WithError(err).Fatal("server failed to start")
	}
}
