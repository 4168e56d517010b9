package sniper

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// WaitForPool polls the prober at pollInterval spacing until a tradeable
// pool for mint shows up, and gives up with ErrPoolTimeout once maxWait has
// elapsed since the first probe. Probe errors are transient by definition:
// they count as "no pool yet" and neither abort the wait nor reset the
// deadline. Nothing is cached across calls; every invocation starts its own
// deadline clock.
func WaitForPool(
	ctx context.Context,
	logger *logrus.Logger,
	mint solana.PublicKey,
	prober PoolProber,
	maxWait time.Duration,
	pollInterval time.Duration,
) (*PoolInfo, error) {
	if logger == nil {
		logger = logrus.New()
	}

	deadline := time.Now().Add(maxWait)
	attempt := 0

	logger.WithFields(logrus.Fields{
		"mint":     mint.String(),
		"max_wait": maxWait,
		"interval": pollInterval,
	}).Info("waiting for pool")

	for {
		attempt++
		pool, err := prober.ProbePool(ctx, mint)
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Debug("pool probe failed, treating as not ready")
		} else if pool != nil {
			logger.WithFields(logrus.Fields{
				"mint":    mint.String(),
				"pool":    pool.Address.String(),
				"amm":     string(pool.Kind),
				"attempt": attempt,
			}).Info("pool detected")
			return pool, nil
		}

		// Deadline is checked against wall-clock elapsed time, so a slow
		// probe cannot extend the wait.
		if time.Now().After(deadline) {
			return nil, ErrPoolTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
