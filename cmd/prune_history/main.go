// Command prune_history deletes recorded status transitions older than the
// retention window from outbox_events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/spanner"
	"go.uber.org/zap"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/repo"
	"github.com/light-bringer/commhistory-mms/internal/models/m_outbox"
)

// Config for one pruning run.
type Config struct {
	SpannerDB     string
	RetentionDays int
	DryRun        bool
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.SpannerDB, "database", os.Getenv("SPANNER_DATABASE"), "Spanner database (projects/P/instances/I/databases/D)")
	flag.IntVar(&cfg.RetentionDays, "retention", 90, "Days of status history to keep")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Count rows without deleting them")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, time.Now().UTC(), logger); err != nil {
		logger.Fatal("prune failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg Config, now time.Time, logger *zap.Logger) error {
	if cfg.SpannerDB == "" {
		return errors.New("-database or SPANNER_DATABASE is required")
	}
	if cfg.RetentionDays <= 0 {
		return fmt.Errorf("retention must be positive, got %d", cfg.RetentionDays)
	}

	client, err := spanner.NewClient(ctx, cfg.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	cutoff := cutoffFor(now, cfg.RetentionDays)
	logger.Info("pruning status history",
		zap.Time("cutoff", cutoff),
		zap.Int("retention_days", cfg.RetentionDays),
		zap.Bool("dry_run", cfg.DryRun),
	)

	if cfg.DryRun {
		count, err := countExpired(ctx, client, cutoff)
		if err != nil {
			return err
		}
		logger.Info("dry run", zap.Int64("would_delete", count))
		return nil
	}

	deleted, err := client.PartitionedUpdate(ctx, expiredStatement("DELETE FROM", cutoff))
	if err != nil {
		return fmt.Errorf("failed to delete status history: %w", err)
	}
	logger.Info("pruned status history", zap.Int64("deleted", deleted))
	return nil
}

func countExpired(ctx context.Context, client *spanner.Client, cutoff time.Time) (int64, error) {
	iter := client.Single().Query(ctx, expiredStatement("SELECT COUNT(*) FROM", cutoff))
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to count status history: %w", err)
	}
	var count int64
	if err := row.Columns(&count); err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

func cutoffFor(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// expiredStatement selects status rows created before cutoff; verb is the
// statement head ("DELETE FROM" or "SELECT COUNT(*) FROM").
func expiredStatement(verb string, cutoff time.Time) spanner.Statement {
	return spanner.Statement{
		SQL: fmt.Sprintf("%s %s WHERE STARTS_WITH(%s, @prefix) AND %s < @cutoff",
			verb, m_outbox.TableName, m_outbox.EventType, m_outbox.CreatedAt),
		Params: map[string]any{
			"prefix": repo.StatusEventTypePrefix,
			"cutoff": cutoff,
		},
	}
}
