package trial

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gosight/gazetrace/internal/config"
)

const keyPrefix = "trial:"

// Record kinds counted by the aggregator.
const (
	CountEvent    = "event"
	CountFixation = "fixation"
	CountClick    = "click"
	CountScroll   = "scroll"
)

// Progress is the live ingestion state of a trial that has not ended yet.
type Progress struct {
	TrialID        string `json:"trial_id"`
	FirstSeenAt    int64  `json:"first_seen_at"`
	LastSeenAt     int64  `json:"last_seen_at"`
	EventsCount    uint32 `json:"events_count"`
	FixationsCount uint32 `json:"fixations_count"`
	ClicksCount    uint32 `json:"clicks_count"`
	ScrollsCount   uint32 `json:"scrolls_count"`
	HasMeta        bool   `json:"has_meta"`
}

// Aggregator keeps per-trial ingestion counters in Redis
type Aggregator struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewAggregator creates a new trial aggregator
func NewAggregator(cfg config.RedisConfig) *Aggregator {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Aggregator{
		redis: rdb,
		ttl:   cfg.TrialTTL,
	}
}

// Ping checks the Redis connection
func (a *Aggregator) Ping(ctx context.Context) error {
	return a.redis.Ping(ctx).Err()
}

// Track records that a message of the given kind arrived for a trial.
// kind is one of the Count* constants, or "meta".
func (a *Aggregator) Track(ctx context.Context, trialID, kind string, seenAt time.Time) error {
	if a == nil || a.redis == nil {
		return nil
	}

	key := keyPrefix + trialID

	pipe := a.redis.Pipeline()
	pipe.HSetNX(ctx, key, "first_seen_at", seenAt.UnixMilli())
	pipe.HSet(ctx, key, "last_seen_at", seenAt.UnixMilli())

	switch kind {
	case CountEvent:
		pipe.HIncrBy(ctx, key, "events_count", 1)
	case CountClick:
		pipe.HIncrBy(ctx, key, "events_count", 1)
		pipe.HIncrBy(ctx, key, "clicks_count", 1)
	case CountScroll:
		pipe.HIncrBy(ctx, key, "events_count", 1)
		pipe.HIncrBy(ctx, key, "scrolls_count", 1)
	case CountFixation:
		pipe.HIncrBy(ctx, key, "fixations_count", 1)
	case "meta":
		pipe.HSet(ctx, key, "has_meta", 1)
	}

	pipe.Expire(ctx, key, a.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update trial %s: %w", trialID, err)
	}
	return nil
}

// Progress returns the counters of an open trial, or nil if none are stored.
func (a *Aggregator) Progress(ctx context.Context, trialID string) (*Progress, error) {
	if a == nil || a.redis == nil {
		return nil, nil
	}

	data, err := a.redis.HGetAll(ctx, keyPrefix+trialID).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	p := parseProgress(trialID, data)
	return &p, nil
}

// Finish drops the counters of a trial once it has been analysed.
func (a *Aggregator) Finish(ctx context.Context, trialID string) error {
	if a == nil || a.redis == nil {
		return nil
	}
	return a.redis.Del(ctx, keyPrefix+trialID).Err()
}

// OpenTrials lists trials with live counters
func (a *Aggregator) OpenTrials(ctx context.Context) ([]string, error) {
	if a == nil || a.redis == nil {
		return nil, nil
	}

	var ids []string
	iter := a.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	return ids, iter.Err()
}

func parseProgress(trialID string, data map[string]string) Progress {
	p := Progress{TrialID: trialID}

	if v, ok := data["first_seen_at"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.FirstSeenAt = ms
		}
	}
	if v, ok := data["last_seen_at"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.LastSeenAt = ms
		}
	}
	p.EventsCount = parseCount(data, "events_count")
	p.FixationsCount = parseCount(data, "fixations_count")
	p.ClicksCount = parseCount(data, "clicks_count")
	p.ScrollsCount = parseCount(data, "scrolls_count")
	p.HasMeta = data["has_meta"] == "1"

	return p
}

func parseCount(data map[string]string, field string) uint32 {
	if v, ok := data[field]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return 0
}

// Close closes the aggregator
func (a *Aggregator) Close() error {
	if a != nil && a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
