package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/assembler"
	"github.com/BarkinBalci/channel-attribution-service/internal/attribution"
	"github.com/BarkinBalci/channel-attribution-service/internal/domain"
	"github.com/BarkinBalci/channel-attribution-service/internal/repository"
)

// Repository implements TouchpointRepository and CreditRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema initializes the ClickHouse schema. Touchpoints are deduplicated
// by ReplacingMergeTree on touchpoint_id.
func (r *Repository) InitSchema(ctx context.Context) error {
	touchpoints := `
	CREATE TABLE IF NOT EXISTS touchpoints (
		touchpoint_id String,
		user_id String,
		channel LowCardinality(String),
		step Int32,
		timestamp DateTime64(3, 'UTC'),
		processed_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (touchpoint_id)
	ORDER BY (touchpoint_id, timestamp)
	PARTITION BY toYYYYMM(timestamp)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, touchpoints); err != nil {
		return fmt.Errorf("failed to create touchpoints table: %w", err)
	}

	credits := `
	CREATE TABLE IF NOT EXISTS attribution_credits (
		run_id String,
		user_id String,
		model LowCardinality(String),
		channel LowCardinality(String),
		credit Float64,
		created_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = MergeTree
	ORDER BY (run_id, model, channel, user_id)
	`

	if err := r.client.Conn().Exec(ctx, credits); err != nil {
		return fmt.Errorf("failed to create attribution_credits table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of touchpoints into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, touchpoints []*domain.TouchpointEvent) (int, error) {
	if len(touchpoints) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO touchpoints")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, tp := range touchpoints {
		if tp.Version == 0 {
			tp.Version = uint64(time.Now().UnixNano())
		}
		if tp.ProcessedAt.IsZero() {
			tp.ProcessedAt = time.Now()
		}

		err := batch.Append(
			tp.TouchpointID,
			tp.UserID,
			tp.Channel,
			int32(tp.Step),
			tp.Timestamp,
			tp.ProcessedAt,
			tp.Version,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append touchpoint to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// ListTouchpoints loads the deduplicated touchpoints of a time range
func (r *Repository) ListTouchpoints(ctx context.Context, from, to time.Time) ([]domain.TouchpointEvent, error) {
	query := `
		SELECT touchpoint_id, user_id, channel, step, timestamp
		FROM touchpoints FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY user_id, step, timestamp, touchpoint_id
	`

	rows, err := r.client.Conn().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query touchpoints: %w", err)
	}
	defer r.closeRows(rows, "touchpoints")

	var out []domain.TouchpointEvent
	for rows.Next() {
		var (
			tp   domain.TouchpointEvent
			step int32
		)
		if err := rows.Scan(&tp.TouchpointID, &tp.UserID, &tp.Channel, &step, &tp.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan touchpoint row: %w", err)
		}
		tp.Step = int(step)
		out = append(out, tp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating touchpoint rows: %w", err)
	}

	return out, nil
}

// InsertCredits stores the long-form credits of a run
func (r *Repository) InsertCredits(ctx context.Context, runID string, rows []assembler.LongRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO attribution_credits (run_id, user_id, model, channel, credit)")
	if err != nil {
		return fmt.Errorf("failed to prepare credits batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(runID, row.UserID, string(row.Model), row.Channel, row.Credit); err != nil {
			return fmt.Errorf("failed to append credit to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send credits batch: %w", err)
	}

	r.log.Info("Stored attribution credits",
		zap.String("run_id", runID),
		zap.Int("row_count", len(rows)))

	return nil
}

// GetCredits returns the stored credits of a run, ErrRunNotFound if there are none
func (r *Repository) GetCredits(ctx context.Context, runID string) ([]assembler.LongRow, error) {
	query := `
		SELECT user_id, model, channel, credit
		FROM attribution_credits
		WHERE run_id = ?
		ORDER BY user_id, model, channel
	`

	rows, err := r.client.Conn().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer r.closeRows(rows, "credits")

	var out []assembler.LongRow
	for rows.Next() {
		var (
			row   assembler.LongRow
			model string
		)
		if err := rows.Scan(&row.UserID, &model, &row.Channel, &row.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan credit row: %w", err)
		}
		row.Model = attribution.ModelName(model)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit rows: %w", err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, runID)
	}

	return out, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) closeRows(rows driver.Rows, name string) {
	if err := rows.Close(); err != nil {
		r.log.Error("Failed to close rows", zap.String("query", name), zap.Error(err))
	}
}
