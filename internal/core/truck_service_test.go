package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fleetcore/pkg/domain"
)

func TestCreateTruckDefaultsAndNormalization(t *testing.T) {
	s := newTestService()
	truck, _, err := s.CreateTruck(context.Background(), Truck{
		LicensePlate: " abc-9999 ",
		Model:        "Scania R450",
		CapacityKg:   18000,
		Year:         2020,
		DriverID:     strPtr("smuggled"),
	})
	if err != nil {
		t.Fatalf("create truck: %v", err)
	}
	if truck.LicensePlate != "ABC-9999" {
		t.Fatalf("plate not normalized: %q", truck.LicensePlate)
	}
	if truck.Status != domain.TruckStatusActive {
		t.Fatalf("status not defaulted: %q", truck.Status)
	}
	if truck.DriverID != nil {
		t.Fatalf("new truck must not carry a driver link: %+v", truck)
	}
}

func TestCreateTruckValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	var ve domain.ValidationError

	_, _, err := s.CreateTruck(ctx, Truck{Model: "M", CapacityKg: 1, Year: 2020})
	if !errors.As(err, &ve) {
		t.Fatalf("missing plate accepted: %v", err)
	}
	_, _, err = s.CreateTruck(ctx, Truck{LicensePlate: "A", CapacityKg: 1, Year: 2020})
	if !errors.As(err, &ve) {
		t.Fatalf("missing model accepted: %v", err)
	}
	_, _, err = s.CreateTruck(ctx, Truck{LicensePlate: "A", Model: "M", CapacityKg: 0, Year: 2020})
	if !errors.As(err, &ve) {
		t.Fatalf("zero capacity accepted: %v", err)
	}
	_, _, err = s.CreateTruck(ctx, Truck{LicensePlate: "A", Model: "M", CapacityKg: -5, Year: 2020})
	if !errors.As(err, &ve) {
		t.Fatalf("negative capacity accepted: %v", err)
	}
	_, _, err = s.CreateTruck(ctx, Truck{LicensePlate: "A", Model: "M", CapacityKg: 1, Year: 2020, Status: "retired"})
	if !errors.As(err, &ve) {
		t.Fatalf("unknown status accepted: %v", err)
	}
}

func TestCreateTruckDuplicatePlate(t *testing.T) {
	s := newTestService()
	first := seedTruck(t, s)
	_, _, err := s.CreateTruck(context.Background(), Truck{
		LicensePlate: strings.ToLower(first.LicensePlate),
		Model:        "Clone",
		CapacityKg:   1000,
		Year:         2020,
	})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, first.LicensePlate) {
		t.Fatalf("expected duplicate plate error, got %v", err)
	}
}

func TestUpdateTruckCapacityDecreaseGuard(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 12000)

	_, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{CapacityKg: float64Ptr(10000)})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, load.Description) {
		t.Fatalf("expected capacity guard naming the load, got %v", err)
	}

	// Above the heaviest active load the decrease commits.
	updated, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{CapacityKg: float64Ptr(12500)})
	if err != nil {
		t.Fatalf("legal decrease rejected: %v", err)
	}
	if updated.CapacityKg != 12500 {
		t.Fatalf("capacity not applied: %+v", updated)
	}

	// Delivered loads do not pin capacity.
	if _, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusDelivered)}); err != nil {
		t.Fatalf("deliver load: %v", err)
	}
	if _, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{CapacityKg: float64Ptr(1000)}); err != nil {
		t.Fatalf("decrease with only delivered loads rejected: %v", err)
	}
}

func TestUpdateTruckMaintenanceWarnsOnActiveLoads(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	seedLoad(t, s, driver.ID, truck.ID, 5000)

	updated, res, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{Status: truckStatusPtr(domain.TruckStatusMaintenance)})
	if err != nil {
		t.Fatalf("maintenance update should commit: %v", err)
	}
	if updated.Status != domain.TruckStatusMaintenance {
		t.Fatalf("status not applied: %+v", updated)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "truck_maintenance" {
		t.Fatalf("expected maintenance warning, got %+v", res.Violations)
	}

	// Without active loads the same transition is silent.
	quiet := seedTruck(t, s)
	_, res, err = s.UpdateTruck(ctx, quiet.ID, TruckPatch{Status: truckStatusPtr(domain.TruckStatusMaintenance)})
	if err != nil {
		t.Fatalf("quiet maintenance update: %v", err)
	}
	if len(res.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Violations)
	}
}

func TestUpdateTruckDocumentURLClear(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	truck := seedTruck(t, s)

	updated, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{DocumentURL: strPtr("https://docs/abc.pdf")})
	if err != nil {
		t.Fatalf("set document url: %v", err)
	}
	if updated.DocumentURL == nil || *updated.DocumentURL != "https://docs/abc.pdf" {
		t.Fatalf("document url not set: %+v", updated)
	}
	updated, _, err = s.UpdateTruck(ctx, truck.ID, TruckPatch{DocumentURL: strPtr("")})
	if err != nil {
		t.Fatalf("clear document url: %v", err)
	}
	if updated.DocumentURL != nil {
		t.Fatalf("document url not cleared: %+v", updated)
	}
}

func TestDeleteTruckGuards(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	_, err := s.DeleteTruck(ctx, truck.ID)
	var ri domain.ReferentialIntegrityError
	if !errors.As(err, &ri) || ri.ReferencedBy != domain.EntityDriver {
		t.Fatalf("expected driver-link guard, got %v", err)
	}

	if _, _, err := s.UpdateDriver(ctx, driver.ID, DriverPatch{TruckID: strPtr("")}); err != nil {
		t.Fatalf("unlink driver: %v", err)
	}
	// Unlinking cascaded the planned load off the truck; point it back to
	// exercise the active-load guard.
	if _, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{TruckID: strPtr(truck.ID)}); err != nil {
		t.Fatalf("reattach load: %v", err)
	}
	_, err = s.DeleteTruck(ctx, truck.ID)
	if !errors.As(err, &ri) || ri.ReferencedBy != domain.EntityLoad {
		t.Fatalf("expected active-load guard, got %v", err)
	}

	if _, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusDelivered)}); err != nil {
		t.Fatalf("deliver load: %v", err)
	}
	if _, err := s.DeleteTruck(ctx, truck.ID); err != nil {
		t.Fatalf("delete after guards cleared: %v", err)
	}
	if _, ok := s.GetTruck(ctx, truck.ID); ok {
		t.Fatal("truck survived delete")
	}
}

func TestUpdateTruckUnknownID(t *testing.T) {
	s := newTestService()
	_, _, err := s.UpdateTruck(context.Background(), "missing", TruckPatch{Model: strPtr("X")})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
