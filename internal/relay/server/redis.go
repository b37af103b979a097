package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"whisper/internal/domain"
)

// RedisBackend keeps relay state in Redis so it survives restarts and can
// be shared by several relay processes. Layout, under prefix:
//
//	keys:<user>:<device>   JSON PublishedKeys without one-time pre-keys
//	opks:<user>:<device>   list of JSON one-time pre-keys, popped on fetch
//	queue:<user>           list of envelope ids in arrival order
//	env:<user>             hash of envelope id -> JSON envelope
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisBackend returns a backend using rdb with keys under prefix.
func NewRedisBackend(rdb redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (r *RedisBackend) deviceKey(kind string, user domain.Username, device uint32) string {
	return fmt.Sprintf("%s%s:%s:%d", r.prefix, kind, user, device)
}

func (r *RedisBackend) userKey(kind string, user domain.Username) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, kind, user)
}

func (r *RedisBackend) PutKeys(ctx context.Context, keys domain.PublishedKeys) error {
	opks := keys.OneTimePreKeys
	keys.OneTimePreKeys = nil
	head, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	vals := make([]any, 0, len(opks))
	for _, opk := range opks {
		b, err := json.Marshal(opk)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}

	opkKey := r.deviceKey("opks", keys.Username, keys.DeviceID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.deviceKey("keys", keys.Username, keys.DeviceID), head, 0)
		p.Del(ctx, opkKey)
		if len(vals) > 0 {
			p.RPush(ctx, opkKey, vals...)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) TakeBundle(ctx context.Context, user domain.Username, deviceID uint32) (domain.PreKeyBundle, bool, error) {
	head, err := r.rdb.Get(ctx, r.deviceKey("keys", user, deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PreKeyBundle{}, false, nil
	}
	if err != nil {
		return domain.PreKeyBundle{}, false, err
	}
	var keys domain.PublishedKeys
	if err := json.Unmarshal(head, &keys); err != nil {
		return domain.PreKeyBundle{}, false, fmt.Errorf("decode keys for %s.%d: %w", user, deviceID, err)
	}

	var opk *domain.OneTimePreKeyPublic
	raw, err := r.rdb.LPop(ctx, r.deviceKey("opks", user, deviceID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return domain.PreKeyBundle{}, false, err
	default:
		opk = new(domain.OneTimePreKeyPublic)
		if err := json.Unmarshal(raw, opk); err != nil {
			return domain.PreKeyBundle{}, false, fmt.Errorf("decode one-time pre-key: %w", err)
		}
	}
	return bundleFor(keys, opk), true, nil
}

func (r *RedisBackend) Enqueue(ctx context.Context, env domain.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.userKey("env", env.To), env.ID, b)
		p.RPush(ctx, r.userKey("queue", env.To), env.ID)
		return nil
	})
	return err
}

func (r *RedisBackend) Peek(ctx context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.rdb.LRange(ctx, r.userKey("queue", user), 0, stop).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	vals, err := r.rdb.HMGet(ctx, r.userKey("env", user), ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Envelope, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Queue entry without a body; a concurrent ack removed it.
			continue
		}
		var env domain.Envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, fmt.Errorf("decode envelope %s: %w", ids[i], err)
		}
		out = append(out, env)
	}
	return out, nil
}

func (r *RedisBackend) Ack(ctx context.Context, user domain.Username, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	queue := r.userKey("queue", user)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.LRem(ctx, queue, 1, id)
		}
		p.HDel(ctx, r.userKey("env", user), ids...)
		return nil
	})
	return err
}
