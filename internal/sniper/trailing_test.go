package sniper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailingStop_PeakAndStopAdvance(t *testing.T) {
	s := NewTrailingStop(true, 12)

	s.OnPrice(100)
	assert.Equal(t, 100.0, s.Peak())
	assert.InDelta(t, 88.0, s.Stop(), 1e-9)

	s.OnPrice(120)
	assert.Equal(t, 120.0, s.Peak())
	assert.InDelta(t, 105.6, s.Stop(), 1e-9)

	// A lower price never moves the peak or the stop back down.
	s.OnPrice(90)
	assert.Equal(t, 120.0, s.Peak())
	assert.InDelta(t, 105.6, s.Stop(), 1e-9)
}

func TestTrailingStop_FiresOnStopTouch(t *testing.T) {
	s := NewTrailingStop(true, 12)
	s.OnPrice(100)
	s.OnPrice(120)

	fired, _ := s.ShouldExit(106)
	assert.False(t, fired)

	fired, reason := s.ShouldExit(105.6) // exactly at the stop
	assert.True(t, fired)
	assert.Contains(t, reason, "trailing stop")

	fired, _ = s.ShouldExit(90)
	assert.True(t, fired)
}

func TestTrailingStop_NoFireBeforeFirstPeak(t *testing.T) {
	s := NewTrailingStop(true, 12)
	fired, _ := s.ShouldExit(50)
	assert.False(t, fired, "no stop exists until a peak has been observed")
}

func TestTrailingStop_IgnoresBadPrices(t *testing.T) {
	s := NewTrailingStop(true, 12)
	s.OnPrice(0)
	s.OnPrice(-5)
	assert.Zero(t, s.Peak())
	assert.Zero(t, s.Stop())
}

func TestTrailingStop_Disabled(t *testing.T) {
	s := NewTrailingStop(false, 12)
	s.OnPrice(100)
	s.OnPrice(120)
	fired, _ := s.ShouldExit(1)
	assert.False(t, fired)
	assert.Zero(t, s.Peak())
}
