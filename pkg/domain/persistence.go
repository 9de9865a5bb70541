package domain

import "context"

// Transaction exposes the fleet operations a persistence implementation must
// support within one atomic scope. Writes issued through a Transaction are
// invisible until commit. The callback owning the Transaction may be
// re-executed from scratch on conflict, so it must be side-effect-free with
// respect to anything outside the store.
type Transaction interface {
	Snapshot() TransactionView
	CreateDriver(Driver) (Driver, error)
	UpdateDriver(id string, mutator func(*Driver) error) (Driver, error)
	DeleteDriver(id string) error
	CreateTruck(Truck) (Truck, error)
	UpdateTruck(id string, mutator func(*Truck) error) (Truck, error)
	DeleteTruck(id string) error
	CreateLoad(Load) (Load, error)
	UpdateLoad(id string, mutator func(*Load) error) (Load, error)
	DeleteLoad(id string) error
	FindDriver(id string) (Driver, bool)
	FindTruck(id string) (Truck, bool)
	FindLoad(id string) (Load, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// in-transaction queries. List results are ordered by creation time,
// newest first.
type TransactionView interface {
	ListDrivers() []Driver
	ListTrucks() []Truck
	ListLoads() []Load
	FindDriver(id string) (Driver, bool)
	FindTruck(id string) (Truck, bool)
	FindLoad(id string) (Load, bool)
	ListLoadsByDriver(driverID string, statuses ...LoadStatus) []Load
	ListLoadsByTruck(truckID string, statuses ...LoadStatus) []Load
}

// PersistentStore is the minimal abstraction over durable backends. The
// transaction primitive is optimistic: fn re-runs when a conflicting
// concurrent commit touched any document or collection it read, up to a
// bounded attempt count, after which a ConflictError surfaces.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetDriver(id string) (Driver, bool)
	GetTruck(id string) (Truck, bool)
	GetLoad(id string) (Load, bool)
	ListDrivers() []Driver
	ListTrucks() []Truck
	ListLoads() []Load
}
