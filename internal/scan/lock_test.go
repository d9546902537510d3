package scan

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// assertHeld fails unless another instance at path sees the lock as taken
func assertHeld(t *testing.T, path string) {
	t.Helper()
	other := NewLeaderLock(path)
	if err := other.TryLock(); !errors.Is(err, ErrLockWouldBlock) {
		unlockLock(t, other)
		t.Errorf("TryLock from another instance = %v, want ErrLockWouldBlock", err)
	}
}

// unlockLock is a test helper that unlocks and logs any error
func unlockLock(t *testing.T, lock *LeaderLock) {
	t.Helper()
	if err := lock.Unlock(); err != nil {
		t.Logf("Warning: Unlock failed: %v", err)
	}
}

func TestLeaderLock_TryLock_Success(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "nested", LockFilename)

	lock := NewLeaderLock(lockPath)
	defer unlockLock(t, lock)

	if err := lock.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	assertHeld(t, lockPath)
}

func TestLeaderLock_TryLock_AlreadyHeld(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), LockFilename)

	lock1 := NewLeaderLock(lockPath)
	if err := lock1.TryLock(); err != nil {
		t.Fatalf("First TryLock failed: %v", err)
	}
	defer unlockLock(t, lock1)

	lock2 := NewLeaderLock(lockPath)
	err := lock2.TryLock()
	if !errors.Is(err, ErrLockWouldBlock) {
		t.Errorf("Expected ErrLockWouldBlock, got: %v", err)
	}
	unlockLock(t, lock1)
	if err := lock2.TryLock(); err != nil {
		t.Errorf("TryLock after release failed: %v", err)
	}
	unlockLock(t, lock2)
}

func TestLeaderLock_LockWithContext_Timeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), LockFilename)

	lock1 := NewLeaderLock(lockPath)
	if err := lock1.TryLock(); err != nil {
		t.Fatalf("First TryLock failed: %v", err)
	}
	defer unlockLock(t, lock1)

	lock2 := NewLeaderLock(lockPath)
	start := time.Now()
	err := lock2.LockWithContext(context.Background(), 100*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got: %v", err)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Expected at least 100ms to elapse, got %v", elapsed)
	}
}

func TestLeaderLock_LockWithContext_ParentCancelled(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), LockFilename)

	lock1 := NewLeaderLock(lockPath)
	if err := lock1.TryLock(); err != nil {
		t.Fatalf("First TryLock failed: %v", err)
	}
	defer unlockLock(t, lock1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewLeaderLock(lockPath).LockWithContext(ctx, 5*time.Second)
	if errors.Is(err, ErrLockTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the caller's context error, got: %v", err)
	}
}

func TestLeaderLock_LockWithContext_AcquiresAfterRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), LockFilename)

	lock1 := NewLeaderLock(lockPath)
	lock2 := NewLeaderLock(lockPath)

	if err := lock1.TryLock(); err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}

	var wg sync.WaitGroup
	var lock2Err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		lock2Err = lock2.LockWithContext(context.Background(), 2*time.Second)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Failed to unlock first lock: %v", err)
	}
	wg.Wait()

	if lock2Err != nil {
		t.Errorf("Expected second lock to succeed after release, got: %v", lock2Err)
	}
	assertHeld(t, lockPath)
	unlockLock(t, lock2)
}

func TestLeaderLock_Unlock_NotHeld(t *testing.T) {
	lock := NewLeaderLock(filepath.Join(t.TempDir(), LockFilename))
	if err := lock.Unlock(); err != nil {
		t.Errorf("Unlock on unheld lock returned error: %v", err)
	}
}
