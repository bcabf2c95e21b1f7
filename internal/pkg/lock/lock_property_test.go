// Property-based tests for concurrent mutation safety under keyed locks.
package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentMutationSafetyProperty checks that for any set of
// concurrent read-modify-write operations on the same key, the final value
// matches sequential execution of all operations.
func TestConcurrentMutationSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, "delta")
			expected += deltas[i]
		}

		kl := New()
		key := PlayerKey(rapid.Int64Range(1, 1000000).Draw(t, "userID"))
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(delta int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				v := value
				value = v + delta
			}(d)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("final value %d, expected %d", value, expected)
		}
	})
}

// TestWithTwoOrderingProperty checks that locking pairs of keys in any
// order never deadlocks and still serializes updates to both keys.
func TestWithTwoOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 16).Draw(t, "numOps")

		kl := New()
		a, b := PlayerKey(1), PlayerKey(2)
		counters := map[string]int{a: 0, b: 0}

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			// Half the goroutines pass the pair in reverse order.
			first, second := a, b
			if i%2 == 1 {
				first, second = b, a
			}
			go func(x, y string) {
				defer wg.Done()
				_ = kl.WithTwo(x, y, func() error {
					counters[a]++
					counters[b]++
					return nil
				})
			}(first, second)
		}
		wg.Wait()

		if counters[a] != numOps || counters[b] != numOps {
			t.Fatalf("counters %v, expected both %d", counters, numOps)
		}
	})
}

func TestTryLock(t *testing.T) {
	kl := New()
	key := GameStateKey

	if !kl.TryLock(key) {
		t.Fatal("first TryLock should succeed")
	}
	if kl.TryLock(key) {
		t.Fatal("second TryLock should fail while held")
	}
	kl.Unlock(key)
	if !kl.TryLock(key) {
		t.Fatal("TryLock should succeed after unlock")
	}
	kl.Unlock(key)
}
