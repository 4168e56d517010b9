package sniper

import (
	"fmt"
	"time"
)

// DrainWatcher fires when liquidity leaves the pool faster than the
// configured tolerance: the magnitudes of all negative deltas inside a
// sliding time window are summed and compared against the trigger. One big
// drain and many small ones are treated identically once the sum passes the
// trigger. Liquidity additions are ignored.
type DrainWatcher struct {
	enabled    bool
	windowMax  time.Duration
	triggerPct float64

	samples []DrainSample
	now     func() time.Time
}

// NewDrainWatcher bounds the window by windowMax; samples older than
// now-windowMax are evicted on each observation.
func NewDrainWatcher(enabled bool, windowMax time.Duration, triggerPct float64) *DrainWatcher {
	return &DrainWatcher{
		enabled:    enabled,
		windowMax:  windowMax,
		triggerPct: triggerPct,
		now:        time.Now,
	}
}

func (s *DrainWatcher) Name() StrategyName { return StrategyDrain }

// PushPoolDelta records a signed pool liquidity change in percent, negative
// meaning removed liquidity.
func (s *DrainWatcher) PushPoolDelta(deltaPct float64) {
	if !s.enabled {
		return
	}
	s.samples = append(s.samples, DrainSample{Timestamp: s.now(), DeltaPercent: deltaPct})
	s.prune()
}

// ShouldExit ignores the current price; the drain test is purely about the
// window contents.
func (s *DrainWatcher) ShouldExit(_ float64) (bool, string) {
	if !s.enabled {
		return false, ""
	}
	s.prune()

	drained := 0.0
	for _, smp := range s.samples {
		if smp.DeltaPercent < 0 {
			drained += -smp.DeltaPercent
		}
	}
	if drained >= s.triggerPct {
		return true, fmt.Sprintf("%.2f%% liquidity drained within %s (trigger %.2f%%)",
			drained, s.windowMax, s.triggerPct)
	}
	return false, ""
}

func (s *DrainWatcher) prune() {
	cutoff := s.now().Add(-s.windowMax)
	kept := s.samples[:0]
	for _, smp := range s.samples {
		if smp.Timestamp.After(cutoff) {
			kept = append(kept, smp)
		}
	}
	s.samples = kept
}
