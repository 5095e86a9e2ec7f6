// Package testutil holds aggregate test doubles: a hooks recorder and a
// transaction runner that can fail on demand.
package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/neurobridge-coursestore/internal/data/aggregates"
)

// HooksRecorder keeps every hook signal in memory. Safe for concurrent use.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Fallbacks  []string
	ForkSizes  []int
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) locked(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.locked(func() { h.Operations = append(h.Operations, OperationEvent{name, status, dur}) })
}

func (h *HooksRecorder) IncConflict(op string) {
	h.locked(func() { h.Conflicts = append(h.Conflicts, op) })
}

func (h *HooksRecorder) IncRetry(op string) {
	h.locked(func() { h.Retries = append(h.Retries, op) })
}

func (h *HooksRecorder) IncConversionFallback(format string) {
	h.locked(func() { h.Fallbacks = append(h.Fallbacks, format) })
}

func (h *HooksRecorder) ObserveForkSize(sections int) {
	h.locked(func() { h.ForkSizes = append(h.ForkSizes, sections) })
}

// StatusOf is the status of the most recent operation called name, or "".
func (h *HooksRecorder) StatusOf(name string) (status string) {
	h.locked(func() {
		for i := len(h.Operations) - 1; i >= 0 && status == ""; i-- {
			if h.Operations[i].Name == name {
				status = h.Operations[i].Status
			}
		}
	})
	return status
}
