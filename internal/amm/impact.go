// Package amm provides constant-product price impact math used as a
// fallback when no aggregator quote is available.
package amm

import (
	"fmt"
	"math"
)

// Impact is an explicit "known or not" price impact figure. Callers must
// never treat an unknown impact as zero; quote-unavailable and zero-impact
// are different facts.
type Impact struct {
	known   bool
	percent float64
}

// Unknown returns an impact whose value could not be determined.
func Unknown() Impact {
	return Impact{}
}

// Percent returns a known impact of p percent.
func Percent(p float64) Impact {
	return Impact{known: true, percent: p}
}

// Known reports whether the impact carries a usable value.
func (i Impact) Known() bool { return i.known }

// Value returns the impact in percent. Only meaningful when Known.
func (i Impact) Value() float64 { return i.percent }

// Exceeds reports whether a known impact is above the given percent cap.
// An unknown impact never exceeds anything; the caller decides what to do
// with missing data.
func (i Impact) Exceeds(capPct float64) bool {
	return i.known && i.percent > capPct
}

func (i Impact) String() string {
	if !i.known {
		return "unknown"
	}
	return fmt.Sprintf("%.2f%%", i.percent)
}

// Estimate computes the expected price impact of buying with solIn SOL
// against a constant-product pool holding solReserve / tokenReserve.
//
// After the trade the SOL reserve grows to solReserve+solIn and the token
// reserve shrinks to k/newSolReserve with k = solReserve*tokenReserve. The
// impact is the relative move between the pre- and post-trade spot price,
// reported as an absolute percent.
//
// Degenerate inputs yield Unknown, not zero: the caller must fall back to
// an external quote when reserves are absent.
func Estimate(solReserve, tokenReserve, solIn float64) Impact {
	if solReserve <= 0 || tokenReserve <= 0 || solIn <= 0 {
		return Unknown()
	}

	k := solReserve * tokenReserve
	newSolReserve := solReserve + solIn
	newTokenReserve := k / newSolReserve

	priceBefore := solReserve / tokenReserve
	priceAfter := newSolReserve / newTokenReserve

	return Percent(math.Abs((priceAfter - priceBefore) / priceBefore * 100))
}
