package interactionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	_ port.InteractionLog     = (*RedisLog)(nil)
	_ port.InteractionHistory = (*RedisLog)(nil)
)

// listClient is the subset of go-redis used by RedisLog.
type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// RedisLog pushes one JSON record per interaction onto a Redis list.
type RedisLog struct {
	mu     sync.Mutex
	client listClient
	key    string
}

type redisRecord struct {
	Timestamp string            `json:"timestamp"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Quality   float64           `json:"quality"`
	Citations []domain.Citation `json:"citations"`
}

// NewRedisLog connects to the server at url (redis://...) and checks it answers.
func NewRedisLog(ctx context.Context, url, key string) (*RedisLog, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return newRedisLog(rdb, key), nil
}

func newRedisLog(client listClient, key string) *RedisLog {
	return &RedisLog{client: client, key: key}
}

func (l *RedisLog) Append(ctx context.Context, in domain.Interaction) error {
	citations := in.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	data, err := json.Marshal(redisRecord{
		Timestamp: in.Timestamp.Format(domain.TimestampLayout),
		Question:  in.Question,
		Answer:    in.Answer,
		Quality:   in.Quality,
		Citations: citations,
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLog) Recent(ctx context.Context, n int) ([]domain.Interaction, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	vals, err := l.client.LRange(ctx, l.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", l.key, err)
	}

	out := make([]domain.Interaction, 0, len(vals))
	for _, v := range vals {
		var rec redisRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		ts, err := time.ParseInLocation(domain.TimestampLayout, rec.Timestamp, time.Local)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Interaction{
			Timestamp: ts,
			Question:  rec.Question,
			Answer:    rec.Answer,
			Quality:   rec.Quality,
			Citations: rec.Citations,
		})
	}
	return out, nil
}

func (l *RedisLog) Close() error {
	return l.client.Close()
}
