package sniper

import (
	"fmt"
	"sync"
)

// SignalWatcher collects externally produced spam signals and fires as soon
// as any of them is high severity. A single high-severity signal is enough;
// lower severities never fire on their own.
//
// Signals arrive from other goroutines (the control API), so the watcher is
// the one strategy that locks.
type SignalWatcher struct {
	enabled bool

	mu      sync.Mutex
	signals []SpamSignal
}

func NewSignalWatcher(enabled bool) *SignalWatcher {
	return &SignalWatcher{enabled: enabled}
}

func (s *SignalWatcher) Name() StrategyName { return StrategySignal }

// Push ingests a signal. No-op when disabled.
func (s *SignalWatcher) Push(sig SpamSignal) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	s.signals = append(s.signals, sig)
	s.mu.Unlock()
}

// ShouldExit fires on the first high-severity signal seen, regardless of
// arrival order.
func (s *SignalWatcher) ShouldExit(_ float64) (bool, string) {
	if !s.enabled {
		return false, ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.signals {
		if sig.Severity == SeverityHigh {
			return true, fmt.Sprintf("high severity %s signal: %s", sig.Source, sig.Reason)
		}
	}
	return false, ""
}

// Reset drops all ingested signals so the watcher can serve a new position.
func (s *SignalWatcher) Reset() {
	s.mu.Lock()
	s.signals = nil
	s.mu.Unlock()
}

// Pending returns a copy of the currently held signals, for the control API.
func (s *SignalWatcher) Pending() []SpamSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpamSignal, len(s.signals))
	copy(out, s.signals)
	return out
}
