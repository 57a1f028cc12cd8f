package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// redisBatchSize bounds the commands queued per pipeline round trip
const redisBatchSize = 1000

func init() {
	RegisterSink(config.FormatRedis, func(ctx context.Context, cfg *config.Config) (RankSink, error) {
		client, err := NewRedisClient(ctx, &cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisSink(client, cfg.Database.Redis.KeyPrefix), nil
	})
}

// NewRedisClient creates a Redis connection and verifies it with PING
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSink publishes the leaderboard as Redis structures:
//
//	{prefix}:scores   sorted set, member = name, score = total
//	{prefix}:entries  hash, name -> record JSON as received
//	{prefix}:meta     hash, run_id / count / fetched_at
//
// Data is staged under run-scoped keys and renamed into place, so readers
// never observe a half-written leaderboard.
type RedisSink struct {
	client *redis.Client
	prefix string

	staged []string
}

// NewRedisSink creates a sink using prefix for every key
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "leaderboard"
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Name() string   { return config.FormatRedis }
func (s *RedisSink) Target() string { return s.prefix + ":*" }

// ScoresKey returns the sorted set key
func (s *RedisSink) ScoresKey() string { return s.prefix + ":scores" }

// EntriesKey returns the per-participant hash key
func (s *RedisSink) EntriesKey() string { return s.prefix + ":entries" }

// MetaKey returns the run metadata hash key
func (s *RedisSink) MetaKey() string { return s.prefix + ":meta" }

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// RemovePartial deletes staging keys left by a failed Write
func (s *RedisSink) RemovePartial() error {
	if len(s.staged) == 0 {
		return nil
	}
	err := s.client.Del(context.Background(), s.staged...).Err()
	s.staged = nil
	return err
}

// Write stages every record and swaps the staged keys in
func (s *RedisSink) Write(ctx context.Context, export *Export) error {
	run := export.RunID.String()
	scoresStage := s.ScoresKey() + ":staging:" + run
	entriesStage := s.EntriesKey() + ":staging:" + run
	s.staged = []string{scoresStage, entriesStage}

	var scored, entries int
	for start := 0; start < len(export.Ranks); start += redisBatchSize {
		end := start + redisBatchSize
		if end > len(export.Ranks) {
			end = len(export.Ranks)
		}

		_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i := start; i < end; i++ {
				r := export.Ranks[i]
				n, err := types.Normalize(r)
				if err != nil {
					return fmt.Errorf("record %d (%s): %w", i, r.DisplayName(), err)
				}
				body, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}

				pipe.HSet(ctx, entriesStage, n.Name, body)
				entries++
				// Records without a total are kept as entries but not ranked
				if n.Total != nil {
					pipe.ZAdd(ctx, scoresStage, redis.Z{Score: *n.Total, Member: n.Name})
					scored++
				}
			}
			return nil
		})
		if err != nil {
			return apperrors.NewWriteError(s.Name(), s.Target(), err)
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.ScoresKey(), s.EntriesKey())
		if scored > 0 {
			pipe.Rename(ctx, scoresStage, s.ScoresKey())
		}
		if entries > 0 {
			pipe.Rename(ctx, entriesStage, s.EntriesKey())
		}
		pipe.Del(ctx, s.MetaKey())
		pipe.HSet(ctx, s.MetaKey(),
			"run_id", run,
			"count", strconv.Itoa(len(export.Ranks)),
			"fetched_at", export.FetchedAt.UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		return apperrors.NewWriteError(s.Name(), s.Target(), err)
	}

	s.staged = nil
	return nil
}
