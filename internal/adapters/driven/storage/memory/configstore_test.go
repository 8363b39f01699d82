package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("remote.url", "https://api.example.org"))
	require.NoError(t, store.Set("remote.url", "https://rest.example.org"))

	val, ok := store.Get("remote.url")
	assert.True(t, ok)
	assert.Equal(t, "https://rest.example.org", val)

	_, ok = store.Get("remote.api_key")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("sync.batch_size", 250)
	_ = store.Set("sync.max_fetch_attempts", int64(4))
	_ = store.Set("background.cooldown_minutes", float64(15))
	_ = store.Set("remote.requests_per_second", 2.5)
	_ = store.Set("background.enabled", true)
	_ = store.Set("log.file", "/tmp/versesync.log")

	assert.Equal(t, 250, store.GetInt("sync.batch_size"))
	assert.Equal(t, 4, store.GetInt("sync.max_fetch_attempts"))
	assert.Equal(t, 15, store.GetInt("background.cooldown_minutes"))
	assert.InDelta(t, 2.5, store.GetFloat("remote.requests_per_second"), 0.0001)
	assert.InDelta(t, 250.0, store.GetFloat("sync.batch_size"), 0.0001)
	assert.True(t, store.GetBool("background.enabled"))
	assert.Equal(t, "/tmp/versesync.log", store.GetString("log.file"))
}

func TestConfigStore_WrongTypesReturnZero(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("key", []string{"a"})

	assert.Empty(t, store.GetString("key"))
	assert.Zero(t, store.GetInt("key"))
	assert.Zero(t, store.GetFloat("key"))
	assert.False(t, store.GetBool("key"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_SaveAndLoadAreNoOps(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("remote.url", "https://api.example.org")

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "https://api.example.org", store.GetString("remote.url"))
}

func TestConfigStore_Concurrency_ReadWriteMix(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = store.Set("sync.batch_size", id)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("sync.batch_size")
		}()
	}
	wg.Wait()

	_, ok := store.Get("sync.batch_size")
	assert.True(t, ok)
}

func TestConfigStore_WatchNotifiesOnReplace(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("log.verbose", false)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { calls.Add(1) })
	}()

	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.watchers) == 1
	}, time.Second, 5*time.Millisecond)

	store.Replace(map[string]any{"log.verbose": true})

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, store.GetBool("log.verbose"))

	cancel()
	require.NoError(t, <-done)

	store.mu.RLock()
	assert.Empty(t, store.watchers)
	store.mu.RUnlock()
}

func TestConfigStore_ReplaceNil(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("remote.url", "https://api.example.org")

	store.Replace(nil)

	assert.Empty(t, store.GetString("remote.url"))
	require.NoError(t, store.Set("remote.url", "https://rest.example.org"))
}
