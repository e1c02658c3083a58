// Package chainclient defines the consumed "chain client" interface of
// §6: the external collaborator that delivers confirmed blocks and their
// transactions. This package never talks to a concrete node; a real
// adapter (e.g. a JSON-RPC client against ravend) implements ChainClient
// and is wired in at cmd/stateengine's composition root.
package chainclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/namesys/stateengine/internal/chain"
)

// Confirmations is the number of blocks a tip must be behind before the
// engine treats it as settled (§6).
const Confirmations = 6

// ChainClient is the minimal view of the underlying chain the engine
// depends on: the currently indexable range, and an iterator over one
// block's transactions.
type ChainClient interface {
	GetIndexRange(ctx context.Context) (first, tip int64, err error)
	TxIterator(ctx context.Context, blockID int64) (<-chan chain.RawTx, error)
}

// Dialer opens (or reopens) a ChainClient connection. Concrete adapters
// supply this; Reconnector retries it with backoff on failure.
type Dialer func(ctx context.Context) (ChainClient, error)

// Reconnector wraps a Dialer with exponential backoff capped at 300s with
// jitter (§5's "Backoff" requirement), so a chain-client connection drop
// doesn't bring the engine down — it just stalls at the current block
// until the connection recovers.
type Reconnector struct {
	dial Dialer
	log  *zap.Logger
}

// NewReconnector builds a Reconnector around dial. log may be nil.
func NewReconnector(dial Dialer, log *zap.Logger) *Reconnector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconnector{dial: dial, log: log}
}

// Connect blocks, retrying dial with backoff, until it succeeds or ctx is
// canceled.
func (r *Reconnector) Connect(ctx context.Context) (ChainClient, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry indefinitely; only ctx cancellation stops us
	policy.MaxInterval = 300 * time.Second

	var client ChainClient
	operation := func() error {
		c, err := r.dial(ctx)
		if err != nil {
			r.log.Warn("chain client dial failed, retrying", zap.Error(err))
			return err
		}
		client = c
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return client, nil
}
