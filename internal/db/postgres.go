package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/utils"
)

// PostgresService owns one service's database. Each service migrates only the
// tables it writes: its authoritative entities plus the projection tables its
// consumers maintain.
type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger, defaultName string) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", defaultName, log)

	maxOpenConns := utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25, log)
	maxIdleConns := utils.GetEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5, log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...", "database", postgresName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("Failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)

	return &PostgresService{db: db, log: serviceLog}, nil
}

// Migrate creates the service's tables and then applies the cascade foreign
// keys. Constraints are added with explicit DDL after the tables exist so the
// same model structs can back a projection table in one service and an
// authoritative table in another without dragging foreign tables along.
func (s *PostgresService) Migrate(models []interface{}, constraints []string) error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(models...); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	for _, ddl := range constraints {
		if err := s.db.Exec(ddl).Error; err != nil {
			s.log.Error("Failed to apply constraint", "ddl", ddl, "error", err)
			return fmt.Errorf("Failed to apply constraint: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
