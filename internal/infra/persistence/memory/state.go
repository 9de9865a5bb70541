package memory

import (
	"sort"
	"time"

	"fleetcore/pkg/domain"
)

type (
	// Driver aliases domain.Driver for in-memory persistence operations.
	Driver = domain.Driver
	// Truck aliases domain.Truck.
	Truck = domain.Truck
	// Load aliases domain.Load.
	Load = domain.Load
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	drivers map[string]Driver
	trucks  map[string]Truck
	loads   map[string]Load
}

func newMemoryState() memoryState {
	return memoryState{
		drivers: make(map[string]Driver),
		trucks:  make(map[string]Truck),
		loads:   make(map[string]Load),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.drivers {
		cloned.drivers[k] = cloneDriver(v)
	}
	for k, v := range s.trucks {
		cloned.trucks[k] = cloneTruck(v)
	}
	for k, v := range s.loads {
		cloned.loads[k] = cloneLoad(v)
	}
	return cloned
}

func cloneDriver(d Driver) Driver {
	cp := d
	cp.TruckID = cloneStringPtr(d.TruckID)
	return cp
}

func cloneTruck(t Truck) Truck {
	cp := t
	cp.DriverID = cloneStringPtr(t.DriverID)
	cp.DocumentURL = cloneStringPtr(t.DocumentURL)
	return cp
}

func cloneLoad(l Load) Load {
	cp := l
	if l.RouteInfo != nil {
		route := *l.RouteInfo
		cp.RouteInfo = &route
	}
	if l.DepartureTime != nil {
		t := *l.DepartureTime
		cp.DepartureTime = &t
	}
	return cp
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// Snapshot captures a point-in-time clone of the store state for export to
// durable backends.
type Snapshot struct {
	Drivers map[string]Driver `json:"drivers"`
	Trucks  map[string]Truck  `json:"trucks"`
	Loads   map[string]Load   `json:"loads"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Drivers: make(map[string]Driver, len(state.drivers)),
		Trucks:  make(map[string]Truck, len(state.trucks)),
		Loads:   make(map[string]Load, len(state.loads)),
	}
	for k, v := range state.drivers {
		s.Drivers[k] = cloneDriver(v)
	}
	for k, v := range state.trucks {
		s.Trucks[k] = cloneTruck(v)
	}
	for k, v := range state.loads {
		s.Loads[k] = cloneLoad(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Drivers {
		state.drivers[k] = cloneDriver(v)
	}
	for k, v := range s.Trucks {
		state.trucks[k] = cloneTruck(v)
	}
	for k, v := range s.Loads {
		state.loads[k] = cloneLoad(v)
	}
	return state
}

// migrateSnapshot repairs snapshots produced by older builds or hand-edited
// fixtures: nil buckets become empty, identifier fields are re-normalized,
// dangling truck references are cleared, and Truck.DriverID is rebuilt from
// the driver side so the bidirectional link stays symmetric.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Drivers == nil {
		snapshot.Drivers = map[string]Driver{}
	}
	if snapshot.Trucks == nil {
		snapshot.Trucks = map[string]Truck{}
	}
	if snapshot.Loads == nil {
		snapshot.Loads = map[string]Load{}
	}

	truckExists := func(id string) bool {
		_, ok := snapshot.Trucks[id]
		return ok
	}
	driverExists := func(id string) bool {
		_, ok := snapshot.Drivers[id]
		return ok
	}

	for id, driver := range snapshot.Drivers {
		driver.LicenseNumber = domain.NormalizeLicenseNumber(driver.LicenseNumber)
		if driver.TruckID != nil && !truckExists(*driver.TruckID) {
			driver.TruckID = nil
		}
		snapshot.Drivers[id] = driver
	}

	for id, truck := range snapshot.Trucks {
		truck.LicensePlate = domain.NormalizeLicensePlate(truck.LicensePlate)
		if truck.Status == "" {
			truck.Status = domain.TruckStatusActive
		}
		truck.DriverID = nil
		for driverID, driver := range snapshot.Drivers {
			if driver.TruckID != nil && *driver.TruckID == id {
				assigned := driverID
				truck.DriverID = &assigned
				break
			}
		}
		snapshot.Trucks[id] = truck
	}

	for id, load := range snapshot.Loads {
		if load.Status == "" {
			load.Status = domain.LoadStatusPlanned
		}
		if load.TruckID != "" && !truckExists(load.TruckID) {
			load.TruckID = ""
		}
		if load.DriverID != "" && !driverExists(load.DriverID) {
			load.DriverID = ""
		}
		snapshot.Loads[id] = load
	}

	return snapshot
}

func sortByCreatedDesc[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci.Equal(cj) {
			return id(items[i]) > id(items[j])
		}
		return ci.After(cj)
	})
}
