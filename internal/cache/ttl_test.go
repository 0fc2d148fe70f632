package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sonarboard/internal/clock"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTTL_ReadAfterWrite(t *testing.T) {
	clk := clock.Fake(epoch)
	c := New[int]("test", 60*time.Second, clk)

	_, ok, _ := c.Read()
	assert.False(t, ok, "empty cache should miss")

	c.Write(42)
	v, ok, age := c.Read()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, time.Duration(0), age)

	clk.Advance(59 * time.Second)
	v, ok, age = c.Read()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 59*time.Second, age)

	clk.Advance(time.Second)
	_, ok, age = c.Read()
	assert.False(t, ok, "entry is stale once age reaches the ttl")
	assert.Equal(t, 60*time.Second, age)
}

func TestTTL_WriteOverwrites(t *testing.T) {
	clk := clock.Fake(epoch)
	c := New[string]("test", 10*time.Second, clk)

	c.Write("first")
	clk.Advance(9 * time.Second)
	c.Write("second")
	clk.Advance(9 * time.Second)

	v, ok, _ := c.Read()
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestTTL_Invalidate(t *testing.T) {
	c := New[int]("test", time.Minute, clock.Fake(epoch))
	c.Write(1)
	c.Invalidate()

	_, ok, _ := c.Read()
	assert.False(t, ok)
}

func TestTTL_NonPositiveTTLDisablesCaching(t *testing.T) {
	c := New[int]("test", 0, clock.Fake(epoch))
	c.Write(1)

	_, ok, _ := c.Read()
	assert.False(t, ok)

	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}
	v, src, err := c.GetOrFetch(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, src)
	assert.Equal(t, 1, v)

	_, _, err = c.GetOrFetch(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTTL_GetOrFetch(t *testing.T) {
	for _, singleFlight := range []bool{true, false} {
		name := "single-flight"
		if !singleFlight {
			name = "direct"
		}
		t.Run(name, func(t *testing.T) {
			clk := clock.Fake(epoch)
			c := New[int]("test", 60*time.Second, clk, WithSingleFlight(singleFlight))

			calls := 0
			fetch := func(ctx context.Context) (int, error) {
				calls++
				return 100 + calls, nil
			}

			v, src, err := c.GetOrFetch(context.Background(), fetch)
			require.NoError(t, err)
			assert.Equal(t, SourceUpstream, src)
			assert.Equal(t, 101, v)

			v, src, err = c.GetOrFetch(context.Background(), fetch)
			require.NoError(t, err)
			assert.Equal(t, SourceCache, src)
			assert.Equal(t, 101, v)
			assert.Equal(t, 1, calls)

			clk.Advance(61 * time.Second)
			v, src, err = c.GetOrFetch(context.Background(), fetch)
			require.NoError(t, err)
			assert.Equal(t, SourceUpstream, src)
			assert.Equal(t, 102, v)
		})
	}
}

func TestTTL_FailedFetchIsNotCached(t *testing.T) {
	clk := clock.Fake(epoch)
	c := New[int]("test", time.Minute, clk)

	c.Write(7)
	clk.Advance(2 * time.Minute)

	boom := errors.New("upstream down")
	v, src, err := c.GetOrFetch(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, SourceError, src)
	assert.Equal(t, 0, v)

	_, ok, _ := c.Read()
	assert.False(t, ok, "stale entry must not be refreshed by a failure")

	v, src, err = c.GetOrFetch(context.Background(), func(ctx context.Context) (int, error) {
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, src)
	assert.Equal(t, 9, v)
}

func TestTTL_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	c := New[int]("test", time.Minute, clock.Fake(epoch))

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	fetch := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return 5, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = c.GetOrFetch(context.Background(), fetch)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.GetOrFetch(context.Background(), fetch)
		}(i)
	}

	// Give the followers time to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 5, results[i])
	}
}

func TestTTL_CallerCancellationDoesNotAbortFlight(t *testing.T) {
	c := New[int]("test", time.Minute, clock.Fake(epoch))

	release := make(chan struct{})
	done := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		defer close(done)
		<-release
		return 3, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrFetch(ctx, fetch)
		errCh <- err
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-done

	require.Eventually(t, func() bool {
		v, ok, _ := c.Read()
		return ok && v == 3
	}, time.Second, 10*time.Millisecond)
}

func TestTTL_RefreshIgnoresFreshness(t *testing.T) {
	c := New[int]("test", time.Minute, clock.Fake(epoch))
	c.Write(1)

	v, source, err := c.Refresh(context.Background(), func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, SourceUpstream, source)

	got, ok, _ := c.Read()
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTTL_RefreshSharesFlightWithMiss(t *testing.T) {
	c := New[int]("test", time.Minute, clock.Fake(epoch))

	var calls, inFlight, peak int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	fetch := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		once.Do(func() { close(started) })
		<-release
		return 9, nil
	}

	var wg sync.WaitGroup
	var refreshed, read int
	wg.Add(2)
	go func() {
		defer wg.Done()
		refreshed, _, _ = c.Refresh(context.Background(), fetch)
	}()
	<-started
	go func() {
		defer wg.Done()
		read, _, _ = c.GetOrFetch(context.Background(), fetch)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, 9, refreshed)
	assert.Equal(t, 9, read)
}
