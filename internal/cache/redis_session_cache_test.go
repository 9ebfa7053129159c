package cache

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements redisCmds on plain maps.
type fakeRedis struct {
	kv   map[string]string
	ttl  map[string]time.Duration
	sets map[string]map[string]struct{}
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		kv:   make(map[string]string),
		ttl:  make(map[string]time.Duration),
		sets: make(map[string]map[string]struct{}),
	}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.kv[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.kv[key] = string(v)
	case string:
		f.kv[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if _, ok := f.kv[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.Set(ctx, key, value, expiration)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.kv[k]; ok {
			delete(f.kv, k)
			n++
		}
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[m.(string)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	out := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedisSessionCache_FillGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisSessionCache(fake, 30*time.Second)

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s := session.New("secret-token", "u1", now, 0)

	require.NoError(t, c.Fill(ctx, s, time.Hour))

	for k, v := range fake.kv {
		require.NotContains(t, k, "secret-token")
		require.NotContains(t, v, "secret-token")
		require.Equal(t, 30*time.Second, fake.ttl[k], "fills are capped")
	}

	got, ok, err := c.Get(ctx, "secret-token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "secret-token", got.Token)
	require.Equal(t, "u1", got.UserID)
	require.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

	_, ok, err = c.Get(ctx, "other")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisSessionCache_DeleteUser(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisSessionCache(fake, time.Minute)

	now := time.Now().UTC()
	require.NoError(t, c.Fill(ctx, session.New("a", "u1", now, 0), time.Minute))
	require.NoError(t, c.Fill(ctx, session.New("b", "u1", now, 0), time.Minute))
	require.NoError(t, c.Fill(ctx, session.New("c", "u2", now, 0), time.Minute))

	require.NoError(t, c.DeleteUser(ctx, "u1"))

	for _, tok := range []string{"a", "b"} {
		_, ok, err := c.Get(ctx, tok)
		require.NoError(t, err)
		require.False(t, ok, tok)
	}

	_, ok, err := c.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisSessionCache_NonPositiveTTLSkips(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisSessionCache(fake, time.Minute)

	require.NoError(t, c.Fill(ctx, session.New("a", "u1", time.Now(), 0), 0))
	require.Empty(t, fake.kv)
}

func TestRedisSessionCache_RevokeIsFinal(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisSessionCache(fake, 30*time.Second)

	now := time.Now().UTC()
	s := session.New("tok", "u1", now, 0)
	require.NoError(t, c.Fill(ctx, s, time.Minute))

	out := s.LoggedOut(now)
	require.NoError(t, c.Revoke(ctx, out, 8*time.Hour))
	require.Equal(t, 8*time.Hour, fake.ttl[c.sessionKey("tok")], "revocations are not capped")

	// a late fill with the active row does not win
	require.NoError(t, c.Fill(ctx, s, time.Minute))

	got, ok, err := c.Get(ctx, "tok")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.IsLoggedOut)
}
