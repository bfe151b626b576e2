package memory

import (
	"fmt"
	"sync"
	"testing"

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

	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("llm.model", "mistral"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "mistral", val)

	_, ok = store.Get("llm.provider")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "text")
	_ = store.Set("i", 42)
	_ = store.Set("i64", int64(7))
	_ = store.Set("f", 0.7)
	_ = store.Set("whole", float64(12))

	assert.Equal(t, "text", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))

	assert.Equal(t, 42, store.GetInt("i"))
	assert.Equal(t, 7, store.GetInt("i64"))
	assert.Equal(t, 0, store.GetInt("f"))
	assert.Equal(t, 12, store.GetInt("whole"))
	assert.Equal(t, 0, store.GetInt("s"))

	assert.InDelta(t, 0.7, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 42.0, store.GetFloat("i"), 1e-9)
	assert.Zero(t, store.GetFloat("s"))
	assert.Zero(t, store.GetFloat("missing"))
}

func TestConfigStore_SnapshotIsACopy(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("k", "v")

	snap := store.Snapshot()
	snap["k"] = "changed"
	assert.Equal(t, "v", store.GetString("k"))

	store.Replace(map[string]any{"other": 1})
	_, ok := store.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, store.GetInt("other"))

	store.Replace(nil)
	assert.NoError(t, store.Set("k", "again"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key-%d", i), i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key-%d", i))
		}()
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key-%d", i)))
	}
}
