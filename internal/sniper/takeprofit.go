package sniper

import "fmt"

// TakeProfit fires once the position gains the configured percent over its
// entry price. Known elsewhere in the codebase's history as "auto scalp".
type TakeProfit struct {
	enabled   bool
	targetPct float64

	entry    float64
	entrySet bool
}

// NewTakeProfit builds the strategy with the target gain in percent.
func NewTakeProfit(enabled bool, targetPct float64) *TakeProfit {
	return &TakeProfit{enabled: enabled, targetPct: targetPct}
}

func (s *TakeProfit) Name() StrategyName { return StrategyTakeProfit }

// SetEntry records the position's entry price. Called exactly once at
// position open.
func (s *TakeProfit) SetEntry(price float64) {
	s.entry = price
	s.entrySet = true
}

// ShouldExit fires when the gain over entry reaches the target. An unset
// entry is a guard, not an error: the strategy just never fires.
func (s *TakeProfit) ShouldExit(p float64) (bool, string) {
	if !s.enabled || !s.entrySet || s.entry <= 0 {
		return false, ""
	}
	gain := (p - s.entry) / s.entry * 100
	if gain >= s.targetPct {
		return true, fmt.Sprintf("gain %.2f%% reached take-profit target %.2f%% (entry %.10f)",
			gain, s.targetPct, s.entry)
	}
	return false, ""
}
