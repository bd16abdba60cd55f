package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ErrLocked is returned when another session holds the workspace.
var ErrLocked = errors.New("workspace locked")

// LockOwner is written into the lock file so a refused session can say who
// holds the workspace. The flock itself is the lock.
type LockOwner struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Interface string    `json:"interface"` // "studio" or "cli"
	Since     time.Time `json:"since"`
}

// FileLock guards a workspace with an exclusive flock on a single file.
// The kernel drops the flock when its holder exits, so a refused Acquire
// always means a live holder.
type FileLock struct {
	path  string
	owner string
	file  *os.File
}

// NewFileLock creates a lock on path, recording owner as the interface type.
func NewFileLock(path, owner string) *FileLock {
	return &FileLock{path: path, owner: owner}
}

// acquireAttempts bounds retries when the lock file is replaced under us.
const acquireAttempts = 5

// Acquire takes the lock without blocking or returns an error wrapping
// ErrLocked that names the current holder.
func (l *FileLock) Acquire() error {
	if l.file != nil {
		return errors.New("lock already acquired")
	}

	for range acquireAttempts {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return fmt.Errorf("open lock file: %w", err)
		}

		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			_ = f.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return l.heldError()
			}
			return fmt.Errorf("flock %s: %w", l.path, err)
		}

		// Release unlinks before unlocking. A flock on an unlinked file
		// guards nothing, so start over on whatever is at the path now.
		if !l.isCurrent(f) {
			_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
			_ = f.Close()
			continue
		}

		l.file = f
		if err := l.writeOwner(); err != nil {
			_ = l.Release()
			return fmt.Errorf("write lock owner: %w", err)
		}
		return nil
	}
	return fmt.Errorf("lock file %s kept changing", l.path)
}

// Release removes the lock file and drops the flock. Releasing a lock that
// was never acquired is a no-op.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	var firstErr error
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		firstErr = fmt.Errorf("remove lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("unlock workspace failed", "path", l.path, "error", err)
	}
	if err := f.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close lock file: %w", err)
	}
	return firstErr
}

func (l *FileLock) isCurrent(f *os.File) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

func (l *FileLock) writeOwner() error {
	hostname, _ := os.Hostname()
	data, err := json.MarshalIndent(LockOwner{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Interface: l.owner,
		Since:     time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := l.file.Truncate(0); err != nil {
		return err
	}
	_, err = l.file.WriteAt(data, 0)
	return err
}

func (l *FileLock) heldError() error {
	owner, err := l.readOwner()
	if err != nil {
		// Holder has the flock but has not written its details yet.
		return fmt.Errorf("%w by another session", ErrLocked)
	}
	age := time.Since(owner.Since).Round(time.Second)
	return fmt.Errorf("%w by %s (PID %d, %v ago)", ErrLocked, owner.Interface, owner.PID, age)
}

func (l *FileLock) readOwner() (*LockOwner, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var owner LockOwner
	if err := json.Unmarshal(data, &owner); err != nil {
		return nil, err
	}
	return &owner, nil
}
