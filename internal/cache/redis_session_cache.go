package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

// redisCmds is the subset of *redis.Client the session cache uses.
type redisCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisSessionCache shares cached sessions across API replicas.
type RedisSessionCache struct {
	client redisCmds
	prefix string
	maxTTL time.Duration
}

func NewRedisSessionCache(client redisCmds, maxTTL time.Duration) *RedisSessionCache {
	if maxTTL <= 0 {
		maxTTL = 30 * time.Second
	}
	return &RedisSessionCache{
		client: client,
		prefix: "quorahub:",
		maxTTL: maxTTL,
	}
}

func (r *RedisSessionCache) sessionKey(token string) string {
	return r.prefix + "session:" + tokenKey(token)
}

func (r *RedisSessionCache) userKey(userID string) string {
	return r.prefix + "user_sessions:" + userID
}

func (r *RedisSessionCache) Get(ctx context.Context, token string) (session.Session, bool, error) {
	val, err := r.client.Get(ctx, r.sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, err
	}

	var c cachedSession
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return session.Session{}, false, fmt.Errorf("session cache: failed to unmarshal: %w", err)
	}

	s := c.toSession()
	s.Token = token
	return s, true, nil
}

// Fill uses SET NX so a read that raced with a logout cannot overwrite its revocation.
func (r *RedisSessionCache) Fill(ctx context.Context, s session.Session, ttl time.Duration) error {
	if ttl > r.maxTTL {
		ttl = r.maxTTL
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(fromSession(s))
	if err != nil {
		return fmt.Errorf("session cache: failed to marshal: %w", err)
	}

	key := r.sessionKey(s.Token)
	stored, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil || !stored {
		return err
	}

	if err := r.client.SAdd(ctx, r.userKey(s.UserID), key).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, r.userKey(s.UserID), r.maxTTL).Err()
}

// Revoke overwrites the entry unconditionally. ttl is not capped: the entry must
// outlive any fill that read the row before the logout committed.
func (r *RedisSessionCache) Revoke(ctx context.Context, s session.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(fromSession(s))
	if err != nil {
		return fmt.Errorf("session cache: failed to marshal: %w", err)
	}
	return r.client.Set(ctx, r.sessionKey(s.Token), data, ttl).Err()
}

func (r *RedisSessionCache) DeleteUser(ctx context.Context, userID string) error {
	keys, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	keys = append(keys, r.userKey(userID))
	return r.client.Del(ctx, keys...).Err()
}

// cachedSession is the redis payload. The token is the key and is not stored in the value.
type cachedSession struct {
	UserID      string     `json:"user_id"`
	LoginAt     time.Time  `json:"login_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsLoggedOut bool       `json:"is_logged_out"`
	LogoutAt    *time.Time `json:"logout_at,omitempty"`
}

func fromSession(s session.Session) cachedSession {
	return cachedSession{
		UserID:      s.UserID,
		LoginAt:     s.LoginAt,
		ExpiresAt:   s.ExpiresAt,
		IsLoggedOut: s.IsLoggedOut,
		LogoutAt:    s.LogoutAt,
	}
}

func (c cachedSession) toSession() session.Session {
	return session.Session{
		UserID:      c.UserID,
		LoginAt:     c.LoginAt,
		ExpiresAt:   c.ExpiresAt,
		IsLoggedOut: c.IsLoggedOut,
		LogoutAt:    c.LogoutAt,
	}
}
