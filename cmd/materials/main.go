package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/db"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/materials"
	"github.com/RK2301/classify-backend/internal/repos"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log, "classify_materials")
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	models, constraints := materials.Migration()
	if err = postgresService.Migrate(models, constraints); err != nil {
		log.Error("Postgres migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Broker
	log.Info("Setting up broker from main...")
	bus, err := broker.NewRedisBroker(log, "materials")
	if err != nil {
		log.Error("Could not init broker", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	// Repos
	log.Info("Setting up Repos from main...")
	materialRepo := repos.NewMaterialRepo(thePG, log)
	fileRepo := repos.NewMaterialFileRepo(thePG, log)
	courseRefRepo := repos.NewCourseRefRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	materialService := materials.NewService(thePG, log, bus, materialRepo, fileRepo, courseRefRepo)
	_ = materialService

	// Consumers
	consumers := materials.NewConsumers(thePG, log, bus, courseRefRepo, materialRepo, fileRepo)
	consumers.Register(bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.Start(ctx); err != nil {
		log.Error("Could not start broker consumers", "error", err)
		os.Exit(1)
	}

	log.Info("materials service running")
	<-ctx.Done()
	log.Info("materials service shutting down")
}
