package sniper

import (
	"errors"
	"fmt"
)

// ErrPoolTimeout is returned when no pool appeared within the configured
// wait deadline. The attempt is over; the core never retries on its own.
var ErrPoolTimeout = errors.New("pool wait deadline exceeded")

// PolicyError rejects a buy attempt before any funds move: deny-listed
// origin, liquidity below all configured bands, or price impact over the
// threshold. Not retried.
type PolicyError struct {
	Rule   string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy rejection (%s): %s", e.Rule, e.Reason)
}

// ExecutionError wraps a failed buy or sell call.
type ExecutionError struct {
	Op  string // "buy" or "sell"
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s execution failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
