// Command migrate creates the Spanner instance and database if needed and
// applies every migrations/*.sql file in name order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type config struct {
	projectID  string
	instanceID string
	databaseID string
	migrateDir string
	emulator   bool
}

func (c config) instancePath() string {
	return fmt.Sprintf("projects/%s/instances/%s", c.projectID, c.instanceID)
}

func (c config) databasePath() string {
	return fmt.Sprintf("%s/databases/%s", c.instancePath(), c.databaseID)
}

func main() {
	cfg := config{emulator: os.Getenv("SPANNER_EMULATOR_HOST") != ""}
	flag.StringVar(&cfg.projectID, "project", getEnvOrDefault("SPANNER_PROJECT_ID", "test-project"), "GCP project ID")
	flag.StringVar(&cfg.instanceID, "instance", getEnvOrDefault("SPANNER_INSTANCE_ID", "dev-instance"), "Spanner instance ID")
	flag.StringVar(&cfg.databaseID, "database", getEnvOrDefault("SPANNER_DATABASE_ID", "commhistory-db"), "Spanner database ID")
	flag.StringVar(&cfg.migrateDir, "migrations", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.emulator {
		logger.Info("using Spanner emulator", zap.String("host", os.Getenv("SPANNER_EMULATOR_HOST")))
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations completed", zap.String("database", cfg.databasePath()))
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	if cfg.emulator {
		if err := ensureInstance(ctx, cfg, logger); err != nil {
			return fmt.Errorf("failed to ensure instance: %w", err)
		}
	}
	if err := ensureDatabase(ctx, cfg, logger); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}
	if err := applyMigrations(ctx, cfg, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// ensureInstance only runs against the emulator; real instances are provisioned elsewhere.
func ensureInstance(ctx context.Context, cfg config, logger *zap.Logger) error {
	admin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer admin.Close()

	_, err = admin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: cfg.instancePath()})
	if err == nil {
		logger.Info("instance exists", zap.String("instance", cfg.instanceID))
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to get instance: %w", err)
	}

	logger.Info("creating instance", zap.String("instance", cfg.instanceID))
	op, err := admin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + cfg.projectID,
		InstanceId: cfg.instanceID,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", cfg.projectID),
			DisplayName: "Development Instance",
			NodeCount:   1,
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		logger.Warn("instance creation did not report success", zap.Error(err))
	}
	return nil
}

func ensureDatabase(ctx context.Context, cfg config, logger *zap.Logger) error {
	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database admin client: %w", err)
	}
	defer admin.Close()

	_, err = admin.GetDatabase(ctx, &databasepb.GetDatabaseRequest{Name: cfg.databasePath()})
	if err == nil {
		logger.Info("database exists", zap.String("database", cfg.databaseID))
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to get database: %w", err)
	}

	logger.Info("creating database", zap.String("database", cfg.databaseID))
	op, err := admin.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          cfg.instancePath(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", cfg.databaseID),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil
}

func applyMigrations(ctx context.Context, cfg config, logger *zap.Logger) error {
	files, err := filepath.Glob(filepath.Join(cfg.migrateDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("no migration files found", zap.String("dir", cfg.migrateDir))
		return nil
	}

	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database admin client: %w", err)
	}
	defer admin.Close()

	for _, file := range files {
		name := filepath.Base(file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		statements := splitDDLStatements(string(content))
		if len(statements) == 0 {
			continue
		}

		op, err := admin.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   cfg.databasePath(),
			Statements: statements,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", name, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", name, err)
		}

		logger.Info("applied migration", zap.String("file", name), zap.Int("statements", len(statements)))
	}

	return nil
}

// splitDDLStatements drops "--" comment lines and splits on semicolons.
func splitDDLStatements(content string) []string {
	var cleaned []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
