package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/envutil"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.String("POSTGRES_HOST", "localhost")
	postgresPort := envutil.String("POSTGRES_PORT", "5432")
	postgresUser := envutil.String("POSTGRES_USER", "postgres")
	postgresPassword := envutil.String("POSTGRES_PASSWORD", "")
	postgresName := envutil.String("POSTGRES_NAME", "taskforge")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Team{},
		&types.Project{},
		&types.Task{},
		&types.Attachment{},
		&types.FileVersion{},
		&types.RetentionPolicy{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// One retention policy per (scope, target). Partial unique indexes
	// back the registry's in-transaction check so concurrent creates
	// cannot slip in duplicates.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_retention_policy_global ON retention_policy (scope) WHERE scope = 'global';`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_retention_policy_team ON retention_policy (team_id) WHERE team_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_retention_policy_project ON retention_policy (project_id) WHERE project_id IS NOT NULL;`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			s.log.Error("Failed to create retention policy index", "error", err)
			return err
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
