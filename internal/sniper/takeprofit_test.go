package sniper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeProfit_FiresAtTarget(t *testing.T) {
	s := NewTakeProfit(true, 7)
	s.SetEntry(100)

	fired, _ := s.ShouldExit(106.9)
	assert.False(t, fired)

	fired, reason := s.ShouldExit(107) // exactly the target gain
	assert.True(t, fired)
	assert.Contains(t, reason, "take-profit")

	fired, _ = s.ShouldExit(150)
	assert.True(t, fired)
}

func TestTakeProfit_NeverFiresBelowEntry(t *testing.T) {
	s := NewTakeProfit(true, 7)
	s.SetEntry(100)

	for _, p := range []float64{99, 50, 1, 100} {
		fired, _ := s.ShouldExit(p)
		assert.False(t, fired, "price %.2f is below the target", p)
	}
}

func TestTakeProfit_UnsetEntryIsGuarded(t *testing.T) {
	s := NewTakeProfit(true, 7)
	fired, _ := s.ShouldExit(1000)
	assert.False(t, fired, "an unset entry must never fire")
}

func TestTakeProfit_Disabled(t *testing.T) {
	s := NewTakeProfit(false, 7)
	s.SetEntry(100)
	fired, _ := s.ShouldExit(1000)
	assert.False(t, fired)
}
