package limiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScripter 在内存中模拟固定窗口脚本
type fakeScripter struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
	lastKeys []string
}

func newFakeScripter() *fakeScripter {
	return &fakeScripter{counters: make(map[string]int64)}
}

func (f *fakeScripter) run(ctx context.Context, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx, "evalsha")
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKeys = keys

	limit, window, now := args[0].(int64), args[1].(int64), args[2].(int64)
	start := now / window * window
	windowKey := keys[0] + ":" + time.Unix(start, 0).UTC().Format(time.RFC3339)
	if f.counters[windowKey]+1 > limit {
		cmd.SetVal([]interface{}{int64(0), int64(0), start + window - now})
		return cmd
	}
	f.counters[windowKey]++
	cmd.SetVal([]interface{}{int64(1), limit - f.counters[windowKey], int64(0)})
	return cmd
}

func (f *fakeScripter) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args...)
}

func (f *fakeScripter) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args...)
}

func (f *fakeScripter) EvalRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args...)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.run(ctx, keys, args...)
}

func (f *fakeScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	cmd.SetVal(make([]bool, len(hashes)))
	return cmd
}

func (f *fakeScripter) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("fake-sha")
	return cmd
}

func TestFixedWindowLimiter_Allow(t *testing.T) {
	client := newFakeScripter()
	fw, err := NewFixedWindowLimiter(client, &Config{Rate: 2, Window: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	r, err := fw.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, int64(1), r.Remaining)
	assert.Equal(t, []string{"stock_bff:limiter:fw:ip:10.0.0.1"}, client.lastKeys)

	r, _ = fw.Allow(ctx, "ip:10.0.0.1")
	assert.True(t, r.Allowed)
	assert.Equal(t, int64(0), r.Remaining)

	r, err = fw.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Greater(t, r.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, r.RetryAfter, time.Hour)
}

func TestFixedWindowLimiter_CustomPrefix(t *testing.T) {
	client := newFakeScripter()
	fw, err := NewFixedWindowLimiter(client, &Config{Rate: 1, Window: time.Second, KeyPrefix: "bff"})
	require.NoError(t, err)

	_, err = fw.Allow(context.Background(), "ip:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bff:ip:1"}, client.lastKeys)
}

func TestFixedWindowLimiter_RedisError(t *testing.T) {
	client := newFakeScripter()
	client.err = errors.New("connection refused")
	fw, err := NewFixedWindowLimiter(client, &Config{Rate: 1, Window: time.Second})
	require.NoError(t, err)

	_, err = fw.Allow(context.Background(), "ip:1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewFixedWindowLimiter_InvalidConfig(t *testing.T) {
	_, err := NewFixedWindowLimiter(newFakeScripter(), &Config{Rate: 1, Window: 500 * time.Millisecond})
	assert.Error(t, err)
	_, err = NewFixedWindowLimiter(newFakeScripter(), &Config{Rate: 0, Window: time.Second})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	l, err := New(BackendMemory, &Config{Rate: 1, Window: time.Second}, nil)
	require.NoError(t, err)
	assert.IsType(t, &TokenBucketLimiter{}, l)

	l, err = New(BackendRedis, &Config{Rate: 1, Window: time.Second}, newFakeScripter())
	require.NoError(t, err)
	assert.IsType(t, &FixedWindowLimiter{}, l)

	_, err = New(BackendRedis, &Config{Rate: 1, Window: time.Second}, nil)
	assert.Error(t, err)

	_, err = New("memcached", &Config{Rate: 1, Window: time.Second}, nil)
	assert.Error(t, err)
}
