package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestKeyedLockSerializesSameKey checks that concurrent read-modify-write
// cycles under the same key's lock always end at the sequential sum.
func TestKeyedLockSerializesSameKey(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")

		amounts := make([]int64, numOps)
		expected := initial
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		kl := NewKeyedLock()
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(a int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				v := value
				value = v + a
			}(amount)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("final value %d, want %d", value, expected)
		}
	})
}

// TestKeyedLockIndependentKeys checks that different keys do not block
// each other.
func TestKeyedLockIndependentKeys(t *testing.T) {
	kl := NewKeyedLock()

	kl.Lock(1)
	if !kl.TryLock(2) {
		t.Fatal("lock on key 1 should not block key 2")
	}
	kl.Unlock(2)
	kl.Unlock(1)
}

// TestTryLockHeldKey checks TryLock fails while the key is held and
// succeeds after release.
func TestTryLockHeldKey(t *testing.T) {
	kl := NewKeyedLock()

	kl.Lock(7)
	if kl.TryLock(7) {
		t.Fatal("TryLock should fail while key is held")
	}
	kl.Unlock(7)
	if !kl.TryLock(7) {
		t.Fatal("TryLock should succeed after release")
	}
	kl.Unlock(7)
}

// TestWithLockReleasesOnError checks WithLock releases even when fn errors.
func TestWithLockReleasesOnError(t *testing.T) {
	kl := NewKeyedLock()

	errCalled := false
	_ = kl.WithLock(3, func() error {
		errCalled = true
		return nil
	})
	if !errCalled {
		t.Fatal("WithLock should invoke fn")
	}
	if !kl.TryLock(3) {
		t.Fatal("lock should be free after WithLock returns")
	}
	kl.Unlock(3)
}
