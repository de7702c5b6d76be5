// executor/status_manager.go

package executor

import (
	"sync"
	"time"
)

// Target outcomes recorded for the run summary and the status view.
const (
	StatusQueued   = "Queued"
	StatusRunning  = "Running"
	StatusUpToDate = "UpToDate"
	StatusBuilt    = "Built"
	StatusRemoved  = "Removed"
	StatusDryRun   = "DryRun"
	StatusFailed   = "Failed"
)

type ExecutionStatus struct {
	Status    string
	StartTime time.Time
	EndTime   time.Time
}

type StatusManager interface {
	SetStatus(name, status string)
	UpdateStatus(name, status string, startTime, endTime time.Time)
	Status(name string) (ExecutionStatus, bool)
	MarkAsFailed(name string)
	FailedCount() int
}

type statusManager struct {
	statusMap     map[string]*ExecutionStatus
	failedTargets []string
	mu            sync.Mutex
}

func NewStatusManager() StatusManager {
	return &statusManager{
		statusMap: make(map[string]*ExecutionStatus),
	}
}

func (sm *statusManager) SetStatus(name, status string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.statusMap[name] = &ExecutionStatus{Status: status}
}

func (sm *statusManager) UpdateStatus(name, status string, startTime, endTime time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, exists := sm.statusMap[name]; !exists {
		sm.statusMap[name] = &ExecutionStatus{}
	}
	sm.statusMap[name].Status = status
	if !startTime.IsZero() {
		sm.statusMap[name].StartTime = startTime
	}
	if !endTime.IsZero() {
		sm.statusMap[name].EndTime = endTime
	}
}

func (sm *statusManager) Status(name string) (ExecutionStatus, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status, exists := sm.statusMap[name]
	if !exists {
		return ExecutionStatus{}, false
	}
	return *status, true
}

func (sm *statusManager) MarkAsFailed(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.failedTargets = append(sm.failedTargets, name)
	if _, exists := sm.statusMap[name]; !exists {
		sm.statusMap[name] = &ExecutionStatus{}
	}
	sm.statusMap[name].Status = StatusFailed
	sm.statusMap[name].EndTime = time.Now()
}

func (sm *statusManager) FailedCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.failedTargets)
}
