package core

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// InstanceLock keeps two fetchers from talking to the nodes at once.
type InstanceLock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock at path without blocking.
func AcquireLock(path string) (*InstanceLock, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return &InstanceLock{lock: lock}, nil
}

func (l *InstanceLock) Release() error {
	return l.lock.Unlock()
}
