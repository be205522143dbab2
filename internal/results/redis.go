package results

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisMirror wraps a Store and copies every appended record onto a Redis
// stream, so results from several totems can be collected in one place. The
// wrapped store stays authoritative: mirror failures are logged, not returned.
type RedisMirror struct {
	Store
	rdb    redis.Cmdable
	stream string
	logger *slog.Logger
}

func NewRedisMirror(s Store, rdb redis.Cmdable, stream string, logger *slog.Logger) *RedisMirror {
	return &RedisMirror{Store: s, rdb: rdb, stream: stream, logger: logger}
}

func (m *RedisMirror) Append(ctx context.Context, r Record) error {
	if err := m.Store.Append(ctx, r); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		m.logger.Error("encoding mirrored result", "id", r.ID, "error", err)
		return nil
	}
	err = m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		Values: map[string]any{
			"id":     r.ID,
			"totem":  r.TotemID,
			"result": string(r.Result),
			"score":  r.Score,
			"data":   string(data),
		},
	}).Err()
	if err != nil {
		m.logger.Warn("mirroring result to redis", "id", r.ID, "stream", m.stream, "error", err)
	}
	return nil
}
