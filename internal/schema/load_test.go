package schema

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capnweave/capnp"
)

func encodeSample(t *testing.T) []byte {
	t.Helper()
	msg, err := EncodeRequest(sampleRequest())
	require.NoError(t, err)
	raw, err := capnp.Marshal(msg)
	require.NoError(t, err)
	return raw
}

// TestCacheLoadHitsFetchOnce exercises the cache-miss-then-hit path: two
// sequential Loads of the same path must decode only once (spec.md §9
// "return the same result to all callers").
func TestCacheLoadHitsFetchOnce(t *testing.T) {
	c := NewCache()
	raw := encodeSample(t)
	var fetches int32

	fetch := func() ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return raw, nil
	}

	req1, err := c.Load("schema.capnp", fetch)
	require.NoError(t, err)
	req2, err := c.Load("schema.capnp", fetch)
	require.NoError(t, err)

	assert.Same(t, req1, req2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}

// TestCacheLoadConcurrentCollapsesFetch exercises singleflight.Group's role:
// many concurrent Loads of an uncached path must collapse into a single
// fetch+decode (spec.md §9 "must serialise concurrent loads of the same
// key").
func TestCacheLoadConcurrentCollapsesFetch(t *testing.T) {
	c := NewCache()
	raw := encodeSample(t)
	var fetches int32

	fetch := func() ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return raw, nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]*Request, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Load("shared.capnp", fetch)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}

// TestCacheLoadFetchErrorNotCached ensures a failed fetch leaves no cache
// entry behind, so a subsequent Load retries rather than replaying the
// error forever.
func TestCacheLoadFetchErrorNotCached(t *testing.T) {
	c := NewCache()
	raw := encodeSample(t)
	attempt := 0

	fetch := func() ([]byte, error) {
		attempt++
		if attempt == 1 {
			return nil, assert.AnError
		}
		return raw, nil
	}

	_, err := c.Load("flaky.capnp", fetch)
	require.Error(t, err)

	req, err := c.Load("flaky.capnp", fetch)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, 2, attempt)
}

// TestDefaultCacheAndReset exercises the process-wide singleton and its
// teardown hook (spec.md §9 "teardown (program exit)").
func TestDefaultCacheAndReset(t *testing.T) {
	raw := encodeSample(t)
	fetch := func() ([]byte, error) { return raw, nil }

	req, err := DefaultCache().Load("default.capnp", fetch)
	require.NoError(t, err)
	require.NotNil(t, req)

	ResetDefaultCache()

	var fetches int32
	_, err = DefaultCache().Load("default.capnp", func() ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return raw, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}
