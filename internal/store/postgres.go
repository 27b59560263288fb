package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const createStatsTable = `
CREATE TABLE IF NOT EXISTS player_stats (
	participant_id TEXT    NOT NULL,
	bucket         TEXT    NOT NULL,
	role           TEXT    NOT NULL,
	wins           INTEGER NOT NULL DEFAULT 0,
	losses         INTEGER NOT NULL DEFAULT 0,
	play_seconds   BIGINT  NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (participant_id, bucket, role)
)`

const upsertStat = `
INSERT INTO player_stats (participant_id, bucket, role, wins, losses, play_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (participant_id, bucket, role) DO UPDATE SET
	wins         = player_stats.wins + EXCLUDED.wins,
	losses       = player_stats.losses + EXCLUDED.losses,
	play_seconds = player_stats.play_seconds + EXCLUDED.play_seconds,
	updated_at   = now()`

// matchRow is the gorm model for a finished match. The full record is kept as
// JSON next to the columns worth querying on.
type matchRow struct {
	ID              uint   `gorm:"primaryKey"`
	MatchID         string `gorm:"uniqueIndex;size:64"`
	CatalogVersion  string `gorm:"size:32"`
	Winner          string `gorm:"size:16;index"`
	HowWon          string
	NumberOfPlayers int
	StartedAt       time.Time
	FinishedAt      time.Time
	Payload         []byte `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

func (matchRow) TableName() string { return "match_records" }

func newMatchRow(r engine.MatchRecord) (matchRow, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return matchRow{}, fmt.Errorf("encode match record: %w", err)
	}
	return matchRow{
		MatchID:         r.MatchID,
		CatalogVersion:  r.CatalogVersion,
		Winner:          string(r.Winner),
		HowWon:          r.HowWon,
		NumberOfPlayers: r.NumberOfPlayers,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		Payload:         payload,
	}, nil
}

// Postgres writes match records through gorm and statistics through a pgx pool.
type Postgres struct {
	db   *gorm.DB
	pool *pgxpool.Pool
	log  *zap.Logger
}

func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&matchRow{}); err != nil {
		return nil, fmt.Errorf("migrate match records: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createStatsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create player_stats: %w", err)
	}

	log.Info("postgres store ready")
	return &Postgres{db: db, pool: pool, log: log}, nil
}

func (p *Postgres) RecordMatch(ctx context.Context, r engine.MatchRecord) error {
	row, err := newMatchRow(r)
	if err != nil {
		return err
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert match %s: %w", r.MatchID, err)
	}
	p.log.Debug("match recorded", zap.String("match", r.MatchID), zap.String("winner", row.Winner))
	return nil
}

// RecordOutcomes upserts every statistics row in one batch. Row failures are
// collected rather than stopping the batch.
func (p *Postgres) RecordOutcomes(ctx context.Context, deltas []engine.OutcomeDelta) (err error) {
	rows := statRows(deltas)
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertStat,
			row.Key.ParticipantID, row.Key.Bucket, row.Key.Role,
			row.Wins, row.Losses, int64(row.PlayTime/time.Second),
		)
	}

	p.log.Debug("upserting stats", zap.Int("rows", len(rows)))
	br := p.pool.SendBatch(ctx, batch)
	defer func() { err = multierr.Append(err, br.Close()) }()
	for _, row := range rows {
		if _, execErr := br.Exec(); execErr != nil {
			err = multierr.Append(err, fmt.Errorf("upsert stats %s/%s/%s: %w",
				row.Key.ParticipantID, row.Key.Bucket, row.Key.Role, execErr))
		}
	}
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
