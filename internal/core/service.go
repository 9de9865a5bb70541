// Package core implements the fleet assignment coordinator: transactional
// create/update/delete for drivers, trucks, and loads, the load status
// guard, commit-time consistency rules, and read projections consumed by
// external presentation layers.
package core

import (
	"context"
	"time"

	"fleetcore/internal/readmodel"
	"fleetcore/pkg/domain"
)

type (
	// Driver aliases domain.Driver.
	Driver = domain.Driver
	// Truck aliases domain.Truck.
	Truck = domain.Truck
	// Load aliases domain.Load.
	Load = domain.Load
	// Result aliases domain.Result.
	Result = domain.Result
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
)

// Service is the assignment coordinator. It owns no durable state: every
// decision is computed from a fresh in-transaction read against the store.
type Service struct {
	store       PersistentStore
	documents   DocumentStore
	metrics     MetricsRecorder
	projections *readmodel.Cache[any]
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics wires a metrics recorder observing every coordinator operation.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithDocumentStore wires the blob backend used for truck documents.
func WithDocumentStore(store DocumentStore) Option {
	return func(s *Service) { s.documents = store }
}

// NewService constructs a coordinator backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	// The default size never triggers the LRU constructor error.
	cache, _ := readmodel.New[any](0)
	s := &Service{store: store, projections: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// runTx executes fn transactionally and records the operation outcome. Every
// committed mutation drops the projection cache; cascades can touch any
// collection, so per-collection invalidation buys nothing here.
func (s *Service) runTx(ctx context.Context, op string, fn func(Transaction) error) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	if err == nil {
		s.projections.InvalidateAll()
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}
	return res, err
}

func strPtr(v string) *string {
	return &v
}
