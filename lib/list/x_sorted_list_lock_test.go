package list

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const maxTestDuration = 10 * time.Second

// testRun fails loudly instead of hanging if the test deadlocks.
func testRun(t *testing.T, name string, test func(*testing.T)) {
	t.Run(name, func(tt *testing.T) {
		done := make(chan struct{})
		timeout := time.After(maxTestDuration)
		go func() {
			select {
			case <-done:
			case <-timeout:
				panic("test did not complete: " + tt.Name())
			}
		}()

		defer close(done)
		test(tt)
	})
}

func TestCleanerLock(t *testing.T) {
	testRun(t, "readers enter while idle", func(tt *testing.T) {
		c := newCleanerLock()
		for i := 0; i < 3; i++ {
			require.True(tt, c.tryRLock())
		}
		state, readers := c.loadState()
		require.Equal(tt, cleanerIdle, state)
		require.Equal(tt, int64(3), readers)
		for i := 0; i < 3; i++ {
			c.rUnlock()
		}
		require.True(tt, c.tryCleanup())
		require.True(tt, c.isDead())
	})

	testRun(t, "cleanup drains readers and rejects entrants", func(tt *testing.T) {
		c := newCleanerLock()
		require.True(tt, c.tryRLock())
		require.True(tt, c.tryRLock())

		cleaned := make(chan bool)
		go func() {
			cleaned <- c.tryCleanup()
		}()
		require.Eventually(tt, func() bool {
			state, _ := c.loadState()
			return state == cleanerDraining
		}, time.Second, time.Millisecond)

		require.False(tt, c.tryRLock())
		require.False(tt, c.tryCleanup())
		require.False(tt, c.isDead())

		c.rUnlock()
		select {
		case <-cleaned:
			tt.Fatal("cleanup finished with an admitted reader")
		case <-time.After(20 * time.Millisecond):
		}
		c.rUnlock()
		require.True(tt, <-cleaned)
		require.True(tt, c.isDead())
		require.Equal(tt, "dead", cleanerDead.String())
	})

	testRun(t, "single cleaner wins", func(tt *testing.T) {
		c := newCleanerLock()
		var (
			wg   sync.WaitGroup
			lock sync.Mutex
			wins int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if c.tryCleanup() {
					lock.Lock()
					wins++
					lock.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(tt, 1, wins)
		require.False(tt, c.tryRLock())
	})
}

func TestSizeCounter(t *testing.T) {
	var c sizeCounter
	require.True(t, c.reserve(2))
	require.True(t, c.reserve(2))
	require.False(t, c.reserve(2))
	c.cancel()
	require.True(t, c.reserve(2))
	c.commit()
	c.commit()
	require.Equal(t, int64(2), c.load())
	require.False(t, c.reserve(2))
	c.decr()
	require.Equal(t, int64(1), c.load())

	for i := 0; i < 100; i++ {
		require.True(t, c.reserve(0))
		c.commit()
	}
	require.Equal(t, int64(101), c.load())
	c.reset()
	require.Equal(t, int64(0), c.load())
}

func TestSegmentedMutex(t *testing.T) {
	testcases := []struct {
		name string
		e    mutexEnum
	}{
		{"go native", goNativeMutex},
		{"spin", spinLockMutex},
	}
	for _, tc := range testcases {
		testRun(t, tc.name, func(tt *testing.T) {
			id := newMonotonicNonZeroID()
			mu := mutexFactory(tc.e)
			v1, v2 := id.next(), id.next()
			require.NotEqual(tt, v1, v2)

			mu.lock(v1)
			require.True(tt, mu.unlock(v1))
			mu.lock(v2)
			require.True(tt, mu.unlock(v2))

			var (
				wg      sync.WaitGroup
				counter int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 1000; j++ {
						ver := id.next()
						mu.lock(ver)
						counter++
						mu.unlock(ver)
					}
				}()
			}
			wg.Wait()
			require.Equal(tt, 8000, counter)
		})
	}

	var spin spinMutex
	spin.lock(7)
	require.False(t, spin.unlock(8))
	require.True(t, spin.unlock(7))
}

func TestMonotonicNonZeroID_Overflow(t *testing.T) {
	id := newMonotonicNonZeroID()
	id.val = ^uint64(0)
	require.Equal(t, uint64(1), id.next())
}
