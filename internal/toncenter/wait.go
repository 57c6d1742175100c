package toncenter

import (
	"context"
	"errors"
	"time"
)

// waitWindow is how many recent transactions each poll inspects
const waitWindow = 10

// DefaultWaitTimeout bounds WaitForTransaction when no timeout is given
const DefaultWaitTimeout = 60 * time.Second

// WaitForTransaction polls the address history until a transaction with
// the given logical time shows up. It stops with ErrConfirmationTimeout
// once timeout elapses and with ctx.Err() when ctx is cancelled first.
// Gateway errors end the wait immediately.
func (c *Client) WaitForTransaction(ctx context.Context, address, lt string, timeout time.Duration) (*Transaction, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		txs, err := c.GetTransactions(pollCtx, address, waitWindow, nil)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, waitError(ctx, pollCtx)
			}
			return nil, err
		}
		for i := range txs {
			if txs[i].LT() == lt {
				return &txs[i], nil
			}
		}

		select {
		case <-pollCtx.Done():
			return nil, waitError(ctx, pollCtx)
		case <-ticker.C:
		}
	}
}

// waitError tells a caller cancellation apart from the wait running out
func waitError(parent, poll context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(poll.Err(), context.DeadlineExceeded) {
		return ErrConfirmationTimeout
	}
	return poll.Err()
}
