package collector

import (
	"context"
	"sync"
)

// JobManager tracks cancel functions of running collection jobs and keeps
// at most one of them active at a time.
type JobManager struct {
	mu      sync.RWMutex
	cancels map[string]context.CancelFunc
}

// NewJobManager creates a new JobManager instance.
func NewJobManager() *JobManager {
	return &JobManager{
		cancels: make(map[string]context.CancelFunc),
	}
}

// TryRegister stores a cancel function for a job unless another job is
// already running. It reports whether the job was registered.
func (jm *JobManager) TryRegister(runID string, cancel context.CancelFunc) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if len(jm.cancels) > 0 {
		return false
	}
	jm.cancels[runID] = cancel
	return true
}

// Cancel invokes the cancel function for a job if it exists.
// Returns true if the job was found and cancelled.
func (jm *JobManager) Cancel(runID string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if cancel, ok := jm.cancels[runID]; ok {
		cancel()
		delete(jm.cancels, runID)
		return true
	}
	return false
}

// Unregister removes a job's cancel function.
// This should be called when a job completes (success, fail, or timeout).
func (jm *JobManager) Unregister(runID string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.cancels, runID)
}

// IsRunning checks if a job is currently registered (running).
func (jm *JobManager) IsRunning(runID string) bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	_, ok := jm.cancels[runID]
	return ok
}

// Active returns the id of the running job, if any.
func (jm *JobManager) Active() (string, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	for id := range jm.cancels {
		return id, true
	}
	return "", false
}
