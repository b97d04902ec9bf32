package main

import (
	"log"

	_ "taskboard/docs"
	"taskboard/internal/config"
	"taskboard/internal/logger"
	"taskboard/internal/server"
)

// @title           Taskboard API
// @version         1.0
// @description     Personal task management API with tags and ordered status lanes.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}
	defer zl.Sync()

	s, err := server.Init(cfg, zl)
	if err != nil {
		zl.Fatal("server initialization failed: " + err.Error())
	}

	s.Run()
}
