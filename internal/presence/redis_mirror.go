package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bandsite/fan-chat/internal/config"
	"github.com/bandsite/fan-chat/internal/domain"
	"github.com/bandsite/fan-chat/pkg/log"
)

// RedisMirror keeps a hash <prefix>:members (field = connection id, value =
// JSON directory entry) whose TTL is refreshed by a heartbeat, so a crashed
// chat process leaves no stale members behind.
type RedisMirror struct {
	client            *redis.Client
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(cfg config.RedisConfig) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisMirror{
		client:            client,
		prefix:            cfg.Prefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
	}, nil
}

func (r *RedisMirror) membersKey() string {
	return fmt.Sprintf("%s:members", r.prefix)
}

func (r *RedisMirror) Upsert(ctx context.Context, entry domain.DirectoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode directory entry: %w", err)
	}

	key := r.membersKey()
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, entry.ID, data)
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror member %s: %w", entry.ID, err)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldConnID, entry.ID).Str("key", key).Msg("mirrored member")
	return nil
}

func (r *RedisMirror) Remove(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, r.membersKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove mirrored member %s: %w", id, err)
	}
	return nil
}

// Members reads the mirrored directory back. Used by site pages that run
// outside the chat process.
func (r *RedisMirror) Members(ctx context.Context) ([]domain.DirectoryEntry, error) {
	vals, err := r.client.HGetAll(ctx, r.membersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mirrored members: %w", err)
	}

	out := make([]domain.DirectoryEntry, 0, len(vals))
	for id, raw := range vals {
		var e domain.DirectoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Str(log.FieldConnID, id).Err(err).Msg("skipping undecodable mirrored member")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Run refreshes the TTL of the members hash until ctx is done.
func (r *RedisMirror) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence heartbeat started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.client.Expire(ctx, r.membersKey(), r.keyTTL).Err(); err != nil && ctx.Err() == nil {
				l.Error().Err(err).Msg("failed to refresh presence key")
			}
		}
	}
}

// Close drops the mirrored members of this process and closes the client.
func (r *RedisMirror) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.client.Del(ctx, r.membersKey()).Err(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to clear presence key")
	}
	return r.client.Close()
}
