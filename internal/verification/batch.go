package verification

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds simultaneous consulta calls during batch fan-out.
// Items are independent, so the bound is purely about being polite to SAT's
// connection handling, not about ordering.
const batchConcurrency = 5

// Verifier is the single-call contract the batch coordinator fans out over.
// *Client satisfies it; tests substitute stubs.
type Verifier interface {
	Verify(ctx context.Context, req Request) (Result, error)
}

// VerifyBatch runs every request through the verifier with per-item failure
// isolation: one item failing never prevents the rest from being attempted.
// Results are written by index, so the output order always matches the input
// order regardless of completion order. Cancelling ctx aborts in-flight calls
// without corrupting sibling items.
func VerifyBatch(ctx context.Context, v Verifier, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			item := BatchItem{Request: req}
			result, err := v.Verify(ctx, req)
			if err != nil {
				item.Error = err.Error()
				item.Err = err
			} else {
				item.Result = result
			}
			items[i] = item
			return nil
		})
	}
	// Workers capture failures per item and never return errors themselves.
	_ = g.Wait()
	return items
}
