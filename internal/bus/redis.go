package bus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelName = "league:rooms"

// Redis is the cross-instance bus, one pub/sub channel for all rooms.
type Redis struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedis(ctx context.Context, addr string, db int, log *zap.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb, log: log}, nil
}

func (b *Redis) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelName, raw).Err()
}

func (b *Redis) Subscribe(ctx context.Context, fn func(Envelope)) {
	sub := b.rdb.Subscribe(ctx, channelName)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = sub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("bus: dropping undecodable envelope", zap.Error(err))
				continue
			}
			if env.LeagueID != "" {
				fn(env)
			}
		}
	}
}

func (b *Redis) Close() error { return b.rdb.Close() }
