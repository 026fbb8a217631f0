package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/courses"
	"github.com/RK2301/classify-backend/internal/db"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/utils"
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

	// Env
	log.Info("Loading environment variables from main...")
	sweepInterval := utils.GetEnvAsDuration("SWEEP_INTERVAL", 45*time.Minute, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log, "classify_courses")
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	models, constraints := courses.Migration()
	if err = postgresService.Migrate(models, constraints); err != nil {
		log.Error("Postgres migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Broker
	log.Info("Setting up broker from main...")
	bus, err := broker.NewRedisBroker(log, "courses")
	if err != nil {
		log.Error("Could not init broker", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	teacherCourseRepo := repos.NewTeacherCourseRepo(thePG, log)
	studentCourseRepo := repos.NewStudentCourseRepo(thePG, log)
	subjectRefRepo := repos.NewSubjectRefRepo(thePG, log)
	userRefRepo := repos.NewUserRefRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	courseService := courses.NewService(thePG, log, bus, courseRepo, lessonRepo, teacherCourseRepo, studentCourseRepo, subjectRefRepo, userRefRepo)
	_ = courseService

	// Consumers
	consumers := courses.NewConsumers(thePG, log, bus, courseRepo, subjectRefRepo, userRefRepo)
	consumers.Register(bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.Start(ctx); err != nil {
		log.Error("Could not start broker consumers", "error", err)
		os.Exit(1)
	}

	sweeper := courses.NewStatusSweeper(thePG, log, bus, lessonRepo, sweepInterval)
	sweeper.Start(ctx)

	log.Info("courses service running", "sweep_interval", sweepInterval)
	<-ctx.Done()
	log.Info("courses service shutting down")
}
