package sniper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPrices serves a price sequence, repeating the last entry.
type scriptedPrices struct {
	mu     sync.Mutex
	prices []float64
	errs   []error
	calls  int
}

func (s *scriptedPrices) LivePrice(_ context.Context, _ solana.PublicKey) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	if i >= len(s.prices) {
		i = len(s.prices) - 1
	}
	return s.prices[i], nil
}

func newTestController(prices *scriptedPrices, opts ControllerOptions) *ExitController {
	if opts.PriceSource == nil {
		opts.PriceSource = prices
	}
	if opts.Trailing == nil {
		opts.Trailing = NewTrailingStop(true, 12)
	}
	if opts.TakeProfit == nil {
		opts.TakeProfit = NewTakeProfit(true, 7)
	}
	if opts.Drain == nil {
		opts.Drain = NewDrainWatcher(true, 30*time.Second, 15)
	}
	if opts.Signals == nil {
		opts.Signals = NewSignalWatcher(true)
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Millisecond
	}
	return NewExitController(opts)
}

func TestController_TakeProfitExit(t *testing.T) {
	prices := &scriptedPrices{prices: []float64{101, 120, 90}}
	ctrl := newTestController(prices, ControllerOptions{})
	ctrl.Arm(100)
	assert.Equal(t, StateMonitoring, ctrl.State())

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.NotNil(t, decision)

	// 101 is below the take-profit target, 120 fires take profit first.
	assert.Equal(t, StrategyTakeProfit, decision.Strategy)
	assert.Equal(t, StateClosed, ctrl.State())
}

func TestController_TrailingWinsTies(t *testing.T) {
	// Entry 100, peak 104 puts the stop at 91.52. A crash to 90 satisfies
	// the trailing stop; take profit is not consulted after the winner.
	prices := &scriptedPrices{prices: []float64{104, 90}}
	ctrl := newTestController(prices, ControllerOptions{
		TakeProfit: NewTakeProfit(true, 1000), // out of reach
	})
	ctrl.Arm(100)

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategyTrailingStop, decision.Strategy)
	assert.Equal(t, 90.0, decision.PriceAtExit)
}

func TestController_PriorityOverSignal(t *testing.T) {
	// Both trailing stop and a high-severity signal are satisfied on the
	// same tick; the fixed order picks the trailing stop.
	signals := NewSignalWatcher(true)
	signals.Push(SpamSignal{Source: SignalSourceSocial, Severity: SeverityHigh, Reason: "rug"})

	prices := &scriptedPrices{prices: []float64{50}}
	ctrl := newTestController(prices, ControllerOptions{
		TakeProfit: NewTakeProfit(true, 1000),
		Signals:    signals,
	})
	ctrl.Arm(100)

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategyTrailingStop, decision.Strategy)
}

func TestController_SignalExit(t *testing.T) {
	signals := NewSignalWatcher(true)
	prices := &scriptedPrices{prices: []float64{100, 100, 100}}
	ctrl := newTestController(prices, ControllerOptions{Signals: signals})
	ctrl.Arm(100)

	go func() {
		time.Sleep(5 * time.Millisecond)
		signals.Push(SpamSignal{Source: SignalSourceOnchain, Severity: SeverityHigh, Reason: "mint authority abuse"})
	}()

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategySignal, decision.Strategy)
	assert.Contains(t, decision.Reason, "mint authority abuse")
}

func TestController_PriceErrorsSkipTick(t *testing.T) {
	prices := &scriptedPrices{
		prices: []float64{0, 0, 120},
		errs:   []error{errors.New("timeout"), errors.New("rate limited"), nil},
	}
	ctrl := newTestController(prices, ControllerOptions{})
	ctrl.Arm(100)

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategyTakeProfit, decision.Strategy)
	assert.GreaterOrEqual(t, prices.calls, 3, "failed ticks must not end monitoring")
}

func TestController_MaxHold(t *testing.T) {
	prices := &scriptedPrices{prices: []float64{100}}
	ctrl := newTestController(prices, ControllerOptions{
		TakeProfit: NewTakeProfit(true, 1000),
		MaxHold:    20 * time.Millisecond,
	})
	ctrl.Arm(100)

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategyMaxHold, decision.Strategy)
}

func TestController_ContextCancel(t *testing.T) {
	prices := &scriptedPrices{prices: []float64{100}}
	ctrl := newTestController(prices, ControllerOptions{
		TakeProfit: NewTakeProfit(true, 1000),
	})
	ctrl.Arm(100)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	decision, err := ctrl.Run(ctx, solana.NewWallet().PublicKey())
	assert.Nil(t, decision)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, ctrl.State())
	assert.Nil(t, ctrl.Decision())
}

func TestController_CannotRunTwice(t *testing.T) {
	prices := &scriptedPrices{prices: []float64{120}}
	ctrl := newTestController(prices, ControllerOptions{})
	ctrl.Arm(100)

	first, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	assert.Nil(t, second)
	assert.Error(t, err, "a closed controller produces no further decisions")
	assert.Same(t, first, ctrl.Decision())
}

func TestController_OnTickRunsBeforeEvaluation(t *testing.T) {
	// The drain sample pushed by onTick must be visible to the drain
	// watcher on the very same tick.
	drain := NewDrainWatcher(true, 30*time.Second, 15)
	prices := &scriptedPrices{prices: []float64{100}}
	ctrl := newTestController(prices, ControllerOptions{
		TakeProfit: NewTakeProfit(true, 1000),
		Drain:      drain,
		OnTick:     func(float64) { drain.PushPoolDelta(-20) },
	})
	ctrl.Arm(100)

	decision, err := ctrl.Run(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, StrategyDrain, decision.Strategy)
}
