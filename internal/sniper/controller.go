package sniper

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// ExitStrategy is the shape every exit evaluator shares: observations go in
// through strategy-specific methods, ShouldExit answers with a verdict and
// a human-readable reason. The set of implementations is closed; the
// controller depends on knowing all of them to apply its priority order.
type ExitStrategy interface {
	Name() StrategyName
	ShouldExit(price float64) (bool, string)
}

// ControllerState tracks a position's lifecycle.
type ControllerState string

const (
	StateArmed      ControllerState = "ARMED"
	StateMonitoring ControllerState = "MONITORING"
	StateClosed     ControllerState = "CLOSED"
)

// ExitController owns a position after entry: it drives the tick loop,
// feeds every tick to every strategy and terminates on the first strategy
// that fires.
//
// Strategies are evaluated in a fixed priority order each tick: trailing
// stop, take profit, drain, signal. The first winner ends the tick; later
// strategies are not consulted.
type ExitController struct {
	logger *logrus.Logger
	price  PriceSource

	trailing   *TrailingStop
	takeProfit *TakeProfit
	drain      *DrainWatcher
	signals    *SignalWatcher
	priority   []ExitStrategy

	tick    time.Duration
	maxHold time.Duration
	onTick  func(price float64)

	state    ControllerState
	decision *ExitDecision
}

// ControllerOptions collects the controller's dependencies.
type ControllerOptions struct {
	Logger      *logrus.Logger
	PriceSource PriceSource

	Trailing   *TrailingStop
	TakeProfit *TakeProfit
	Drain      *DrainWatcher
	Signals    *SignalWatcher

	TickInterval time.Duration
	MaxHold      time.Duration // 0 = no hold limit

	// OnTick runs after the trailing stop has seen the price and before
	// strategies are evaluated, once per tick.
	OnTick func(price float64)
}

// NewExitController builds a controller in the ARMED state.
func NewExitController(opts ControllerOptions) *ExitController {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 400 * time.Millisecond
	}
	c := &ExitController{
		logger:     opts.Logger,
		price:      opts.PriceSource,
		trailing:   opts.Trailing,
		takeProfit: opts.TakeProfit,
		drain:      opts.Drain,
		signals:    opts.Signals,
		tick:       opts.TickInterval,
		maxHold:    opts.MaxHold,
		onTick:     opts.OnTick,
		state:      StateArmed,
	}
	c.priority = []ExitStrategy{c.trailing, c.takeProfit, c.drain, c.signals}
	return c
}

// Arm records the entry price and moves the controller to MONITORING.
func (c *ExitController) Arm(entryPrice float64) {
	c.takeProfit.SetEntry(entryPrice)
	c.trailing.OnPrice(entryPrice)
	c.state = StateMonitoring
}

// State returns the controller's lifecycle state.
func (c *ExitController) State() ControllerState { return c.state }

// Decision returns the terminal decision, nil until one is made.
func (c *ExitController) Decision() *ExitDecision { return c.decision }

// Run drives the tick loop until a strategy fires, the optional hold limit
// expires, or ctx is cancelled. Ticks are strictly sequential: the next one
// cannot begin before this one's evaluation completes, because there is
// only this loop.
//
// Exactly one ExitDecision is produced; once Run returns the controller is
// CLOSED and cannot be run again.
func (c *ExitController) Run(ctx context.Context, mint solana.PublicKey) (*ExitDecision, error) {
	if c.state != StateMonitoring {
		return nil, fmt.Errorf("controller not monitoring (state %s)", c.state)
	}

	started := time.Now()
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.state = StateClosed
			return nil, ctx.Err()
		case <-ticker.C:
		}

		p, err := c.price.LivePrice(ctx, mint)
		if err != nil {
			// Transient by policy: skip the tick, keep monitoring.
			c.logger.WithError(err).Debug("price fetch failed, skipping tick")
			continue
		}

		c.trailing.OnPrice(p)
		if c.onTick != nil {
			c.onTick(p)
		}

		// Cancellation and the hold limit are checked here, at the same
		// point as strategy evaluation, so no tick is left half-evaluated.
		if err := ctx.Err(); err != nil {
			c.state = StateClosed
			return nil, err
		}
		if c.maxHold > 0 && time.Since(started) >= c.maxHold {
			return c.close(StrategyMaxHold,
				fmt.Sprintf("position held longer than %s", c.maxHold), p), nil
		}

		for _, s := range c.priority {
			fired, reason := s.ShouldExit(p)
			if !fired {
				continue
			}
			return c.close(s.Name(), reason, p), nil
		}
	}
}

func (c *ExitController) close(strategy StrategyName, reason string, price float64) *ExitDecision {
	c.decision = &ExitDecision{
		Strategy:    strategy,
		Reason:      reason,
		PriceAtExit: price,
		DecidedAt:   time.Now(),
	}
	c.state = StateClosed
	c.logger.WithFields(logrus.Fields{
		"strategy": string(strategy),
		"price":    price,
		"reason":   reason,
	}).Info("exit decision")
	return c.decision
}
