// Package memory provides the in-memory implementation of the fleet
// persistence store. It is the transactional engine shared by the sqlite and
// postgres backends and the default store for tests.
//
// Concurrency is optimistic: a transaction runs against a cloned snapshot
// while recording every document and collection it read. At commit the
// recorded versions are validated against the live state; on a mismatch the
// whole callback re-executes from scratch with exponential backoff, up to a
// bounded attempt count, after which a domain.ConflictError surfaces.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the
// domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 2 * time.Millisecond
	maxRetryBackoff     = 50 * time.Millisecond
)

// Store provides an optimistic in-memory transactional store for the fleet
// domain.
type Store struct {
	mu           sync.RWMutex
	state        memoryState
	docVersions  map[string]uint64
	collVersions map[domain.EntityType]uint64
	engine       *RulesEngine
	nowFn        func() time.Time
	maxAttempts  int
	retryBackoff time.Duration
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:        newMemoryState(),
		docVersions:  make(map[string]uint64),
		collVersions: make(map[domain.EntityType]uint64),
		engine:       engine,
		nowFn:        func() time.Time { return time.Now().UTC() },
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

func docKey(entity domain.EntityType, id string) string {
	return string(entity) + "/" + id
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot. Version
// counters restart at zero; in-flight transactions begun before the import
// will fail their commit validation and retry.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
	s.docVersions = make(map[string]uint64)
	s.collVersions = make(map[domain.EntityType]uint64)
	for _, entity := range []domain.EntityType{domain.EntityDriver, domain.EntityTruck, domain.EntityLoad} {
		s.collVersions[entity]++
	}
}

// transaction is a mutation set staged against a snapshot of the store.
type transaction struct {
	store     *Store
	state     memoryState
	baseDocs  map[string]uint64
	baseColls map[domain.EntityType]uint64
	docReads  map[string]struct{}
	collReads map[domain.EntityType]struct{}
	changes   []Change
	now       time.Time
}

func (s *Store) begin() *transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	baseDocs := make(map[string]uint64, len(s.docVersions))
	for k, v := range s.docVersions {
		baseDocs[k] = v
	}
	baseColls := make(map[domain.EntityType]uint64, len(s.collVersions))
	for k, v := range s.collVersions {
		baseColls[k] = v
	}
	return &transaction{
		store:     s,
		state:     s.state.clone(),
		baseDocs:  baseDocs,
		baseColls: baseColls,
		docReads:  make(map[string]struct{}),
		collReads: make(map[domain.EntityType]struct{}),
		now:       s.nowFn(),
	}
}

// RunInTransaction executes fn within an optimistic transactional copy of the
// store state. fn may run multiple times; errors returned by fn abort the
// transaction without retry.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	backoff := s.retryBackoff
	attempts := s.maxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tx := s.begin()
		if err := fn(tx); err != nil {
			return Result{}, err
		}
		res, committed, err := s.commit(ctx, tx)
		if err != nil {
			return res, err
		}
		if committed {
			return res, nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	return Result{}, domain.ConflictError{Message: "transaction aborted by concurrent writes", Attempts: attempts}
}

// commit validates the transaction's read set against the live state and,
// when clean, evaluates rules and applies the staged changes atomically.
// The boolean result reports whether the commit was applied; false means the
// read set went stale and the caller should retry.
func (s *Store) commit(ctx context.Context, tx *transaction) (Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range tx.docReads {
		if s.docVersions[key] != tx.baseDocs[key] {
			return Result{}, false, nil
		}
	}
	for entity := range tx.collReads {
		if s.collVersions[entity] != tx.baseColls[entity] {
			return Result{}, false, nil
		}
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, false, err
		}
		result = res
		if res.HasBlocking() {
			return res, false, domain.RuleViolationError{Result: res}
		}
	}

	for _, change := range tx.changes {
		s.applyChange(change)
	}
	return result, true, nil
}

func (s *Store) applyChange(change Change) {
	switch change.Entity {
	case domain.EntityDriver:
		switch change.Action {
		case domain.ActionDelete:
			before := change.Before.(Driver)
			delete(s.state.drivers, before.ID)
			s.bump(domain.EntityDriver, before.ID)
		default:
			after := change.After.(Driver)
			s.state.drivers[after.ID] = cloneDriver(after)
			s.bump(domain.EntityDriver, after.ID)
		}
	case domain.EntityTruck:
		switch change.Action {
		case domain.ActionDelete:
			before := change.Before.(Truck)
			delete(s.state.trucks, before.ID)
			s.bump(domain.EntityTruck, before.ID)
		default:
			after := change.After.(Truck)
			s.state.trucks[after.ID] = cloneTruck(after)
			s.bump(domain.EntityTruck, after.ID)
		}
	case domain.EntityLoad:
		switch change.Action {
		case domain.ActionDelete:
			before := change.Before.(Load)
			delete(s.state.loads, before.ID)
			s.bump(domain.EntityLoad, before.ID)
		default:
			after := change.After.(Load)
			s.state.loads[after.ID] = cloneLoad(after)
			s.bump(domain.EntityLoad, after.ID)
		}
	}
}

func (s *Store) bump(entity domain.EntityType, id string) {
	s.docVersions[docKey(entity, id)]++
	s.collVersions[entity]++
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// GetDriver returns a driver outside any transaction. The result may be
// stale with respect to concurrent commits.
func (s *Store) GetDriver(id string) (Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.drivers[id]
	if !ok {
		return Driver{}, false
	}
	return cloneDriver(d), true
}

// GetTruck returns a truck outside any transaction.
func (s *Store) GetTruck(id string) (Truck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.trucks[id]
	if !ok {
		return Truck{}, false
	}
	return cloneTruck(t), true
}

// GetLoad returns a load outside any transaction.
func (s *Store) GetLoad(id string) (Load, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.loads[id]
	if !ok {
		return Load{}, false
	}
	return cloneLoad(l), true
}

// ListDrivers returns all drivers, newest first.
func (s *Store) ListDrivers() []Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDrivers(&s.state)
}

// ListTrucks returns all trucks, newest first.
func (s *Store) ListTrucks() []Truck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTrucks(&s.state)
}

// ListLoads returns all loads, newest first.
func (s *Store) ListLoads() []Load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLoads(&s.state)
}

func listDrivers(state *memoryState) []Driver {
	out := make([]Driver, 0, len(state.drivers))
	for _, d := range state.drivers {
		out = append(out, cloneDriver(d))
	}
	sortByCreatedDesc(out, func(d Driver) time.Time { return d.CreatedAt }, func(d Driver) string { return d.ID })
	return out
}

func listTrucks(state *memoryState) []Truck {
	out := make([]Truck, 0, len(state.trucks))
	for _, t := range state.trucks {
		out = append(out, cloneTruck(t))
	}
	sortByCreatedDesc(out, func(t Truck) time.Time { return t.CreatedAt }, func(t Truck) string { return t.ID })
	return out
}

func listLoads(state *memoryState) []Load {
	out := make([]Load, 0, len(state.loads))
	for _, l := range state.loads {
		out = append(out, cloneLoad(l))
	}
	sortByCreatedDesc(out, func(l Load) time.Time { return l.CreatedAt }, func(l Load) string { return l.ID })
	return out
}

// transactionView exposes a read-only snapshot to rules and projections.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListDrivers() []Driver { return listDrivers(v.state) }
func (v transactionView) ListTrucks() []Truck   { return listTrucks(v.state) }
func (v transactionView) ListLoads() []Load     { return listLoads(v.state) }

func (v transactionView) FindDriver(id string) (Driver, bool) {
	d, ok := v.state.drivers[id]
	if !ok {
		return Driver{}, false
	}
	return cloneDriver(d), true
}

func (v transactionView) FindTruck(id string) (Truck, bool) {
	t, ok := v.state.trucks[id]
	if !ok {
		return Truck{}, false
	}
	return cloneTruck(t), true
}

func (v transactionView) FindLoad(id string) (Load, bool) {
	l, ok := v.state.loads[id]
	if !ok {
		return Load{}, false
	}
	return cloneLoad(l), true
}

func (v transactionView) ListLoadsByDriver(driverID string, statuses ...domain.LoadStatus) []Load {
	return filterLoads(v.state, func(l Load) bool { return l.DriverID == driverID }, statuses)
}

func (v transactionView) ListLoadsByTruck(truckID string, statuses ...domain.LoadStatus) []Load {
	return filterLoads(v.state, func(l Load) bool { return l.TruckID == truckID }, statuses)
}

func filterLoads(state *memoryState, match func(Load) bool, statuses []domain.LoadStatus) []Load {
	var out []Load
	for _, l := range state.loads {
		if !match(l) {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, l.Status) {
			continue
		}
		out = append(out, cloneLoad(l))
	}
	sortByCreatedDesc(out, func(l Load) time.Time { return l.CreatedAt }, func(l Load) string { return l.ID })
	return out
}

func containsStatus(statuses []domain.LoadStatus, status domain.LoadStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// recordChange appends a change entry to the staged mutation set.
func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) readDoc(entity domain.EntityType, id string) {
	tx.docReads[docKey(entity, id)] = struct{}{}
}

func (tx *transaction) readCollection(entity domain.EntityType) {
	tx.collReads[entity] = struct{}{}
}

// Snapshot returns a read-only view over the transactional state. Reads
// through the view register collection reads so queries stay conflict-safe.
func (tx *transaction) Snapshot() TransactionView {
	return trackedView{tx: tx, view: newTransactionView(&tx.state)}
}

// trackedView forwards to the snapshot view while recording reads in the
// owning transaction's read set.
type trackedView struct {
	tx   *transaction
	view TransactionView
}

func (v trackedView) ListDrivers() []Driver {
	v.tx.readCollection(domain.EntityDriver)
	return v.view.ListDrivers()
}

func (v trackedView) ListTrucks() []Truck {
	v.tx.readCollection(domain.EntityTruck)
	return v.view.ListTrucks()
}

func (v trackedView) ListLoads() []Load {
	v.tx.readCollection(domain.EntityLoad)
	return v.view.ListLoads()
}

func (v trackedView) FindDriver(id string) (Driver, bool) {
	v.tx.readDoc(domain.EntityDriver, id)
	return v.view.FindDriver(id)
}

func (v trackedView) FindTruck(id string) (Truck, bool) {
	v.tx.readDoc(domain.EntityTruck, id)
	return v.view.FindTruck(id)
}

func (v trackedView) FindLoad(id string) (Load, bool) {
	v.tx.readDoc(domain.EntityLoad, id)
	return v.view.FindLoad(id)
}

func (v trackedView) ListLoadsByDriver(driverID string, statuses ...domain.LoadStatus) []Load {
	v.tx.readCollection(domain.EntityLoad)
	return v.view.ListLoadsByDriver(driverID, statuses...)
}

func (v trackedView) ListLoadsByTruck(truckID string, statuses ...domain.LoadStatus) []Load {
	v.tx.readCollection(domain.EntityLoad)
	return v.view.ListLoadsByTruck(truckID, statuses...)
}

// FindDriver exposes driver lookup within the transaction scope.
func (tx *transaction) FindDriver(id string) (Driver, bool) {
	tx.readDoc(domain.EntityDriver, id)
	d, ok := tx.state.drivers[id]
	if !ok {
		return Driver{}, false
	}
	return cloneDriver(d), true
}

// FindTruck exposes truck lookup within the transaction scope.
func (tx *transaction) FindTruck(id string) (Truck, bool) {
	tx.readDoc(domain.EntityTruck, id)
	t, ok := tx.state.trucks[id]
	if !ok {
		return Truck{}, false
	}
	return cloneTruck(t), true
}

// FindLoad exposes load lookup within the transaction scope.
func (tx *transaction) FindLoad(id string) (Load, bool) {
	tx.readDoc(domain.EntityLoad, id)
	l, ok := tx.state.loads[id]
	if !ok {
		return Load{}, false
	}
	return cloneLoad(l), true
}

// CreateDriver stores a new driver within the transaction.
func (tx *transaction) CreateDriver(d Driver) (Driver, error) {
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	tx.readDoc(domain.EntityDriver, d.ID)
	if _, exists := tx.state.drivers[d.ID]; exists {
		return Driver{}, domain.ConflictError{Message: fmt.Sprintf("driver %q already exists", d.ID)}
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.drivers[d.ID] = cloneDriver(d)
	tx.recordChange(Change{Entity: domain.EntityDriver, Action: domain.ActionCreate, After: cloneDriver(d)})
	return cloneDriver(d), nil
}

// UpdateDriver mutates a driver using the provided mutator function.
func (tx *transaction) UpdateDriver(id string, mutator func(*Driver) error) (Driver, error) {
	tx.readDoc(domain.EntityDriver, id)
	current, ok := tx.state.drivers[id]
	if !ok {
		return Driver{}, domain.NotFoundError{Entity: domain.EntityDriver, ID: id}
	}
	before := cloneDriver(current)
	if err := mutator(&current); err != nil {
		return Driver{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.drivers[id] = cloneDriver(current)
	tx.recordChange(Change{Entity: domain.EntityDriver, Action: domain.ActionUpdate, Before: before, After: cloneDriver(current)})
	return cloneDriver(current), nil
}

// DeleteDriver removes a driver from the transaction state.
func (tx *transaction) DeleteDriver(id string) error {
	tx.readDoc(domain.EntityDriver, id)
	current, ok := tx.state.drivers[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDriver, ID: id}
	}
	delete(tx.state.drivers, id)
	tx.recordChange(Change{Entity: domain.EntityDriver, Action: domain.ActionDelete, Before: cloneDriver(current)})
	return nil
}

// CreateTruck stores a new truck within the transaction.
func (tx *transaction) CreateTruck(t Truck) (Truck, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	tx.readDoc(domain.EntityTruck, t.ID)
	if _, exists := tx.state.trucks[t.ID]; exists {
		return Truck{}, domain.ConflictError{Message: fmt.Sprintf("truck %q already exists", t.ID)}
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.trucks[t.ID] = cloneTruck(t)
	tx.recordChange(Change{Entity: domain.EntityTruck, Action: domain.ActionCreate, After: cloneTruck(t)})
	return cloneTruck(t), nil
}

// UpdateTruck mutates a truck using the provided mutator function.
func (tx *transaction) UpdateTruck(id string, mutator func(*Truck) error) (Truck, error) {
	tx.readDoc(domain.EntityTruck, id)
	current, ok := tx.state.trucks[id]
	if !ok {
		return Truck{}, domain.NotFoundError{Entity: domain.EntityTruck, ID: id}
	}
	before := cloneTruck(current)
	if err := mutator(&current); err != nil {
		return Truck{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.trucks[id] = cloneTruck(current)
	tx.recordChange(Change{Entity: domain.EntityTruck, Action: domain.ActionUpdate, Before: before, After: cloneTruck(current)})
	return cloneTruck(current), nil
}

// DeleteTruck removes a truck from the transaction state.
func (tx *transaction) DeleteTruck(id string) error {
	tx.readDoc(domain.EntityTruck, id)
	current, ok := tx.state.trucks[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTruck, ID: id}
	}
	delete(tx.state.trucks, id)
	tx.recordChange(Change{Entity: domain.EntityTruck, Action: domain.ActionDelete, Before: cloneTruck(current)})
	return nil
}

// CreateLoad stores a new load within the transaction.
func (tx *transaction) CreateLoad(l Load) (Load, error) {
	if l.ID == "" {
		l.ID = tx.store.newID()
	}
	tx.readDoc(domain.EntityLoad, l.ID)
	if _, exists := tx.state.loads[l.ID]; exists {
		return Load{}, domain.ConflictError{Message: fmt.Sprintf("load %q already exists", l.ID)}
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.loads[l.ID] = cloneLoad(l)
	tx.recordChange(Change{Entity: domain.EntityLoad, Action: domain.ActionCreate, After: cloneLoad(l)})
	return cloneLoad(l), nil
}

// UpdateLoad mutates a load using the provided mutator function.
func (tx *transaction) UpdateLoad(id string, mutator func(*Load) error) (Load, error) {
	tx.readDoc(domain.EntityLoad, id)
	current, ok := tx.state.loads[id]
	if !ok {
		return Load{}, domain.NotFoundError{Entity: domain.EntityLoad, ID: id}
	}
	before := cloneLoad(current)
	if err := mutator(&current); err != nil {
		return Load{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.loads[id] = cloneLoad(current)
	tx.recordChange(Change{Entity: domain.EntityLoad, Action: domain.ActionUpdate, Before: before, After: cloneLoad(current)})
	return cloneLoad(current), nil
}

// DeleteLoad removes a load from the transaction state.
func (tx *transaction) DeleteLoad(id string) error {
	tx.readDoc(domain.EntityLoad, id)
	current, ok := tx.state.loads[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityLoad, ID: id}
	}
	delete(tx.state.loads, id)
	tx.recordChange(Change{Entity: domain.EntityLoad, Action: domain.ActionDelete, Before: cloneLoad(current)})
	return nil
}
