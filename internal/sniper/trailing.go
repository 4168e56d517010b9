package sniper

import "fmt"

// TrailingStop rides the price up and fires once it falls back through a
// stop that trails the highest price seen.
//
// peak is monotonically non-decreasing for the life of the position; stop is
// recomputed only when peak advances. The stop distance is the low bound of
// the configured [low, high] percent range.
type TrailingStop struct {
	enabled bool
	lowPct  float64

	peak float64
	stop float64
}

// NewTrailingStop builds the strategy. A disabled strategy ignores prices
// and never fires.
func NewTrailingStop(enabled bool, lowPct float64) *TrailingStop {
	return &TrailingStop{enabled: enabled, lowPct: lowPct}
}

func (s *TrailingStop) Name() StrategyName { return StrategyTrailingStop }

// OnPrice records a price observation, advancing the peak and stop when a
// new high is seen.
func (s *TrailingStop) OnPrice(p float64) {
	if !s.enabled || p <= 0 {
		return
	}
	if p > s.peak {
		s.peak = p
		s.stop = s.peak * (1 - s.lowPct/100)
	}
}

// ShouldExit fires once a nonzero stop has been established and the price
// touches it.
func (s *TrailingStop) ShouldExit(p float64) (bool, string) {
	if !s.enabled || s.stop <= 0 {
		return false, ""
	}
	if p <= s.stop {
		return true, fmt.Sprintf("price %.10f fell to trailing stop %.10f (peak %.10f, distance %.1f%%)",
			p, s.stop, s.peak, s.lowPct)
	}
	return false, ""
}

// Peak returns the highest price observed so far.
func (s *TrailingStop) Peak() float64 { return s.peak }

// Stop returns the current stop price, 0 until the first peak is set.
func (s *TrailingStop) Stop() float64 { return s.stop }
