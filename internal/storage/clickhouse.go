package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/gosight/gazetrace/internal/config"
)

type ClickHouse struct {
	conn driver.Conn
}

// FixationRow represents a row in the fixations table
type FixationRow struct {
	RunID      string
	TrialID    string
	Seq        uint32
	Timestamp  time.Time
	OffsetMs   int64
	X          float64
	Y          float64
	DurationMs float64
	// Unresolved is 1 when Timestamp or OffsetMs could not be computed.
	Unresolved uint8
}

// SaccadeRow represents a row in the saccades table
type SaccadeRow struct {
	RunID         string
	TrialID       string
	Seq           uint32
	Timestamp     time.Time
	Amplitude     float64
	AbsoluteAngle float64
	RelativeAngle float64
	Unresolved    uint8
}

// TimelineRow represents a row in the timeline_events table
type TimelineRow struct {
	RunID      string
	TrialID    string
	Lane       string
	Seq        uint32
	OffsetMs   int64
	Name       string
	Value      string
	Unresolved uint8
}

// TrialRow represents a row in the trials table
type TrialRow struct {
	RunID            string
	TrialID          string
	Test             string
	Participant      string
	StartedAt        time.Time
	EndedAt          time.Time
	DurationMs       int64
	EventsCount      uint32
	FixationsCount   uint32
	ClicksCount      uint32
	ScrollsCount     uint32
	AverageDuration  float64
	AverageAmplitude float64
	Warnings         []string
	AnalyzedAt       time.Time
}

func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn}, nil
}

func (c *ClickHouse) InsertFixations(ctx context.Context, rows []FixationRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO fixations (
			run_id, trial_id, seq, timestamp, offset_ms,
			x, y, duration_ms, unresolved
		)
	`)
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := batch.Append(
			r.RunID, r.TrialID, r.Seq, r.Timestamp, r.OffsetMs,
			r.X, r.Y, r.DurationMs, r.Unresolved,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) InsertSaccades(ctx context.Context, rows []SaccadeRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO saccades (
			run_id, trial_id, seq, timestamp,
			amplitude, absolute_angle, relative_angle, unresolved
		)
	`)
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := batch.Append(
			r.RunID, r.TrialID, r.Seq, r.Timestamp,
			r.Amplitude, r.AbsoluteAngle, r.RelativeAngle, r.Unresolved,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) InsertTimeline(ctx context.Context, rows []TimelineRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO timeline_events (
			run_id, trial_id, lane, seq, offset_ms,
			name, value, unresolved
		)
	`)
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := batch.Append(
			r.RunID, r.TrialID, r.Lane, r.Seq, r.OffsetMs,
			r.Name, r.Value, r.Unresolved,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) UpsertTrial(ctx context.Context, t TrialRow) error {
	return c.conn.Exec(ctx, `
		INSERT INTO trials (
			run_id, trial_id, test, participant,
			started_at, ended_at, duration_ms,
			events_count, fixations_count, clicks_count, scrolls_count,
			average_duration, average_amplitude,
			warnings, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.RunID, t.TrialID, t.Test, t.Participant,
		t.StartedAt, t.EndedAt, t.DurationMs,
		t.EventsCount, t.FixationsCount, t.ClicksCount, t.ScrollsCount,
		t.AverageDuration, t.AverageAmplitude,
		t.Warnings, t.AnalyzedAt,
	)
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
