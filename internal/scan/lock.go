package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// LockFilename is the name of the scan lock file
	LockFilename = "scan.lock"

	lockRetryDelay = 50 * time.Millisecond
)

var (
	// ErrLockTimeout indicates the lock acquisition timed out
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrLockWouldBlock indicates the lock is held by another process
	ErrLockWouldBlock = errors.New("lock is held by another process")
)

// LeaderLock elects the single process allowed to scan a vault.
// The lock is released by the OS when the process exits or crashes.
type LeaderLock struct {
	lock *flock.Flock
}

// NewLeaderLock creates a lock at the given path.
// The parent directories are created on first acquisition.
func NewLeaderLock(path string) *LeaderLock {
	return &LeaderLock{lock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking.
// Returns ErrLockWouldBlock if another process holds it.
func (l *LeaderLock) TryLock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	acquired, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("flock failed: %w", err)
	}
	if !acquired {
		return ErrLockWouldBlock
	}
	return nil
}

// LockWithContext blocks until the lock is acquired, timeout expires or the
// context is canceled.
func (l *LeaderLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acquired, err := l.lock.TryLockContext(waitCtx, lockRetryDelay)
	switch {
	case acquired:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		return ErrLockTimeout
	}
	return err
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *LeaderLock) Unlock() error {
	return l.lock.Unlock()
}

func (l *LeaderLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}
