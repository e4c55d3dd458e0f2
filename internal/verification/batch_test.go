package verification

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier answers per-UUID from a fixed table.
type stubVerifier struct {
	mu      sync.Mutex
	results map[string]Result
	errs    map[string]error
	calls   atomic.Int64
	active  atomic.Int64
	peak    atomic.Int64
}

func (s *stubVerifier) Verify(_ context.Context, req Request) (Result, error) {
	s.calls.Add(1)
	if n := s.active.Add(1); n > s.peak.Load() {
		s.peak.Store(n)
	}
	defer s.active.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[req.UUID]; ok {
		return Result{}, err
	}
	return s.results[req.UUID], nil
}

func TestVerifyBatch_MixedOutcomes(t *testing.T) {
	stub := &stubVerifier{
		results: map[string]Result{
			"uuid-1": {Estado: "Vigente"},
		},
		errs: map[string]error{
			"uuid-2": &TransportError{Cause: fmt.Errorf("connection refused")},
		},
	}

	reqs := []Request{
		{UUID: "uuid-1", EmisorRFC: "AAA010101AAA"},
		{UUID: "uuid-2", EmisorRFC: "BBB010101BBB"},
	}
	items := VerifyBatch(context.Background(), stub, reqs)
	require.Len(t, items, 2)

	assert.Equal(t, "uuid-1", items[0].Request.UUID)
	assert.Empty(t, items[0].Error)
	assert.NoError(t, items[0].Err)
	assert.Equal(t, "Vigente", items[0].Result.Estado)

	assert.Equal(t, "uuid-2", items[1].Request.UUID)
	assert.Contains(t, items[1].Error, "connection refused")
	assert.Empty(t, items[1].Result.Estado)

	// The typed failure survives for in-process callers.
	var te *TransportError
	assert.ErrorAs(t, items[1].Err, &te)
}

func TestVerifyBatch_PreservesInputOrder(t *testing.T) {
	stub := &stubVerifier{results: map[string]Result{}}
	var reqs []Request
	for i := 0; i < 50; i++ {
		uuid := fmt.Sprintf("uuid-%02d", i)
		stub.results[uuid] = Result{Estado: uuid}
		reqs = append(reqs, Request{UUID: uuid})
	}

	items := VerifyBatch(context.Background(), stub, reqs)
	require.Len(t, items, 50)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("uuid-%02d", i), item.Request.UUID)
		assert.Equal(t, item.Request.UUID, item.Result.Estado)
	}
}

func TestVerifyBatch_AllItemsAttemptedDespiteFailures(t *testing.T) {
	stub := &stubVerifier{
		results: map[string]Result{},
		errs: map[string]error{
			"uuid-0": &ServiceError{StatusCode: 500, Body: "boom"},
		},
	}
	reqs := []Request{{UUID: "uuid-0"}, {UUID: "uuid-1"}, {UUID: "uuid-2"}}

	items := VerifyBatch(context.Background(), stub, reqs)
	assert.Equal(t, int64(3), stub.calls.Load())
	assert.NotEmpty(t, items[0].Error)
	assert.Empty(t, items[1].Error)
	assert.Empty(t, items[2].Error)
}

func TestVerifyBatch_BoundsConcurrency(t *testing.T) {
	stub := &stubVerifier{results: map[string]Result{}}
	var reqs []Request
	for i := 0; i < 40; i++ {
		reqs = append(reqs, Request{UUID: fmt.Sprintf("uuid-%d", i)})
	}

	VerifyBatch(context.Background(), stub, reqs)
	assert.LessOrEqual(t, stub.peak.Load(), int64(batchConcurrency))
}

func TestVerifyBatch_Empty(t *testing.T) {
	items := VerifyBatch(context.Background(), &stubVerifier{}, nil)
	assert.Empty(t, items)
}
