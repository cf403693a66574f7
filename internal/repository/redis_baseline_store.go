package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	applogger "VitalPulse/pkg/logger"
)

var _ repository.BaselineRepository = (*RedisBaselineStore)(nil)

// RedisBaselineStore keeps one JSON document per (user, metric) and a set of
// metric names per user. Writes are WATCH/MULTI transactions on the document key.
type RedisBaselineStore struct {
	client *redis.Client
	prefix string
	l      *applogger.Logger
}

func NewRedisBaselineStore(client *redis.Client, prefix string, l *applogger.Logger) *RedisBaselineStore {
	if l == nil {
		l = applogger.Nop()
	}
	if prefix == "" {
		prefix = "vitalpulse"
	}
	return &RedisBaselineStore{client: client, prefix: prefix, l: l}
}

func (s *RedisBaselineStore) docKey(userID string, metric models.MetricType) string {
	return fmt.Sprintf("%s:baseline:%s:%s", s.prefix, userID, metric)
}

func (s *RedisBaselineStore) indexKey(userID string) string {
	return fmt.Sprintf("%s:baseline:%s:_metrics", s.prefix, userID)
}

func (s *RedisBaselineStore) Get(ctx context.Context, userID string, metric models.MetricType) (*models.Baseline, error) {
	raw, err := s.client.Get(ctx, s.docKey(userID, metric)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get baseline: %w", err)
	}
	b, err := decodeBaseline(raw)
	if err != nil {
		s.l.Error("corrupt baseline document",
			applogger.User(userID), applogger.Metric(string(metric)), applogger.Error(err))
		return nil, err
	}
	return &b, nil
}

func (s *RedisBaselineStore) Upsert(ctx context.Context, b models.Baseline) (models.Baseline, error) {
	key := s.docKey(b.UserID, b.MetricType)
	var stored models.Baseline

	txf := func(tx *redis.Tx) error {
		var current int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis read baseline: %w", err)
		default:
			cur, err := decodeBaseline(raw)
			if err != nil {
				return err
			}
			current = cur.Version
		}
		if current != b.Version {
			return models.ErrConflict
		}

		stored = b.Clone()
		stored.Version = current + 1
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode baseline: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, s.indexKey(b.UserID), string(b.MetricType))
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, models.ErrConflict):
		return models.Baseline{}, models.ErrConflict
	default:
		return models.Baseline{}, fmt.Errorf("redis upsert baseline: %w", err)
	}
}

func (s *RedisBaselineStore) ListByUser(ctx context.Context, userID string) ([]models.Baseline, error) {
	metrics, err := s.client.SMembers(ctx, s.indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list metrics: %w", err)
	}
	out := make([]models.Baseline, 0, len(metrics))
	if len(metrics) == 0 {
		return out, nil
	}

	keys := make([]string, len(metrics))
	for i, m := range metrics {
		keys[i] = s.docKey(userID, models.MetricType(m))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget baselines: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		b, err := decodeBaseline([]byte(str))
		if err != nil {
			s.l.Warn("skip corrupt baseline document",
				applogger.User(userID), applogger.String("key", keys[i]), applogger.Error(err))
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricType < out[j].MetricType })
	return out, nil
}

func decodeBaseline(raw []byte) (models.Baseline, error) {
	var b models.Baseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return models.Baseline{}, fmt.Errorf("decode baseline: %w", err)
	}
	if b.UserID == "" || b.MetricType == "" {
		return models.Baseline{}, fmt.Errorf("decode baseline: missing identity")
	}
	return b, nil
}
