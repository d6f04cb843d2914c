package relay

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/cashweb-relay/internal/log"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// BatchResult is the outcome of opening one message of a batch.
type BatchResult struct {
	Opened *Opened
	Err    error
}

// OpenBatch parses and opens msgs concurrently with at most workers
// goroutines (GOMAXPROCS when workers <= 0). results[i] belongs to msgs[i].
//
// A failing message does not stop the others. The returned error is non-nil
// only when ctx is cancelled; messages not started by then report ctx.Err().
func OpenBatch(ctx context.Context, msgs []*Message, priv *crypto.PrivateKey, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(msgs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(msgs); j++ {
				results[j].Err = err
			}
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Opened, results[i].Err = openOne(msg, priv)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("batch opened", zap.Int("messages", len(msgs)), zap.Int("failed", failed), zap.Int("workers", workers))

	return results, ctx.Err()
}

func openOne(msg *Message, priv *crypto.PrivateKey) (*Opened, error) {
	parsed, err := msg.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return parsed.Open(priv)
}
