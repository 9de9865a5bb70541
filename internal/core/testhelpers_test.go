package core

import (
	"context"
	"fmt"
	"testing"

	"fleetcore/internal/infra/persistence/memory"
	"fleetcore/pkg/domain"
)

func newTestService(opts ...Option) *Service {
	return NewService(memory.NewStore(DefaultRulesEngine()), opts...)
}

var fixtureSeq int

func nextFixture() int {
	fixtureSeq++
	return fixtureSeq
}

func seedTruck(t *testing.T, s *Service) Truck {
	t.Helper()
	n := nextFixture()
	truck, _, err := s.CreateTruck(context.Background(), Truck{
		LicensePlate: fmt.Sprintf("TRK-%04d", n),
		Model:        "Volvo FH",
		CapacityKg:   20000,
		Year:         2021,
	})
	if err != nil {
		t.Fatalf("seed truck: %v", err)
	}
	return truck
}

func seedDriver(t *testing.T, s *Service, truckID *string) Driver {
	t.Helper()
	n := nextFixture()
	driver, _, err := s.CreateDriver(context.Background(), Driver{
		Name:          fmt.Sprintf("Driver %d", n),
		LicenseNumber: fmt.Sprintf("CNH-%04d", n),
		Phone:         fmt.Sprintf("+55 11 9%07d", n),
		TruckID:       truckID,
	})
	if err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return driver
}

func seedLoad(t *testing.T, s *Service, driverID, truckID string, weight float64) Load {
	t.Helper()
	n := nextFixture()
	load, _, err := s.CreateLoad(context.Background(), Load{
		Description: fmt.Sprintf("Cargo %d", n),
		WeightKg:    weight,
		Origin:      "Santos",
		Destination: "Campinas",
		DriverID:    driverID,
		TruckID:     truckID,
	})
	if err != nil {
		t.Fatalf("seed load: %v", err)
	}
	return load
}

func linkedPair(t *testing.T, s *Service) (Driver, Truck) {
	t.Helper()
	truck := seedTruck(t, s)
	driver := seedDriver(t, s, strPtr(truck.ID))
	truck, ok := s.GetTruck(context.Background(), truck.ID)
	if !ok {
		t.Fatal("seeded truck vanished")
	}
	return driver, truck
}

func assertSymmetry(t *testing.T, s *Service) {
	t.Helper()
	ctx := context.Background()
	var drivers []Driver
	var trucks []Truck
	if err := s.Store().View(ctx, func(v TransactionView) error {
		drivers = v.ListDrivers()
		trucks = v.ListTrucks()
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	byID := make(map[string]Driver, len(drivers))
	for _, d := range drivers {
		byID[d.ID] = d
	}
	for _, tr := range trucks {
		if tr.DriverID == nil {
			continue
		}
		d, ok := byID[*tr.DriverID]
		if !ok {
			t.Fatalf("truck %s references missing driver %s", tr.ID, *tr.DriverID)
		}
		if d.TruckID == nil || *d.TruckID != tr.ID {
			t.Fatalf("asymmetric link: truck %s -> driver %s, driver -> %v", tr.ID, d.ID, d.TruckID)
		}
	}
	for _, d := range drivers {
		if d.TruckID == nil {
			continue
		}
		found := false
		for _, tr := range trucks {
			if tr.ID == *d.TruckID {
				found = true
				if tr.DriverID == nil || *tr.DriverID != d.ID {
					t.Fatalf("asymmetric link: driver %s -> truck %s, truck -> %v", d.ID, tr.ID, tr.DriverID)
				}
			}
		}
		if !found {
			t.Fatalf("driver %s references missing truck %s", d.ID, *d.TruckID)
		}
	}
}

func statusPtr(v domain.LoadStatus) *domain.LoadStatus {
	return &v
}

func truckStatusPtr(v domain.TruckStatus) *domain.TruckStatus {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}
