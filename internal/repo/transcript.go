package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/catalogue-assistant/server/internal/agent/model"
	errx "github.com/catalogue-assistant/server/internal/core/error"
	logx "github.com/catalogue-assistant/server/pkg/logger"
)

type RedisTranscriptRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisTranscriptRepository(rdb redis.Cmdable, ttl time.Duration) *RedisTranscriptRepository {
	return &RedisTranscriptRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisTranscriptRepository) transcriptKey(runID string) string {
	return fmt.Sprintf("workflow:%s:items", runID)
}

// SaveTranscript appends every item in one transaction and refreshes the TTL.
func (r *RedisTranscriptRepository) SaveTranscript(ctx context.Context, runID string, items []*schema.Message) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]any, 0, len(items))
	for i, m := range items {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Ctx(ctx).Error().Err(err).Str("run_id", runID).Int("index", i).Msg("failed to marshal history item")
			return fmt.Errorf("marshal item %d: %w", i, err)
		}
		rows = append(rows, b)
	}
	key := r.transcriptKey(runID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, rows...)
		// extend TTL on touch
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to push transcript to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// LoadTranscript returns the stored items of runID in order. A run with no
// stored items is reported as not found.
func (r *RedisTranscriptRepository) LoadTranscript(ctx context.Context, runID string) ([]*schema.Message, error) {
	key := r.transcriptKey(runID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to load transcript from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(rows) == 0 {
		return nil, errx.WrapRedis(redis.Nil)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Ctx(ctx).Error().Err(err).Str("run_id", runID).Int("index", i).Msg("failed to unmarshal history item")
			return nil, fmt.Errorf("unmarshal item at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisTranscriptRepository) DeleteTranscript(ctx context.Context, runID string) error {
	key := r.transcriptKey(runID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to delete transcript from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.TranscriptRepository = (*RedisTranscriptRepository)(nil)
