package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fleetcore/pkg/domain"
)

func TestCreateLoadDefaultsToPlanned(t *testing.T) {
	s := newTestService()
	driver, truck := linkedPair(t, s)

	load, _, err := s.CreateLoad(context.Background(), Load{
		Description: "Cement bags",
		WeightKg:    8000,
		Origin:      "Santos",
		Destination: "Sorocaba",
		DriverID:    driver.ID,
		TruckID:     truck.ID,
	})
	if err != nil {
		t.Fatalf("create load: %v", err)
	}
	if load.Status != domain.LoadStatusPlanned {
		t.Fatalf("status not defaulted: %q", load.Status)
	}
}

func TestCreateLoadRejectsNonPlannedStatus(t *testing.T) {
	s := newTestService()
	driver, truck := linkedPair(t, s)

	_, _, err := s.CreateLoad(context.Background(), Load{
		Description: "Cement bags",
		WeightKg:    8000,
		Origin:      "Santos",
		Destination: "Sorocaba",
		Status:      domain.LoadStatusInRoute,
		DriverID:    driver.ID,
		TruckID:     truck.ID,
	})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "planned") {
		t.Fatalf("expected planned-only error, got %v", err)
	}
}

func TestCreateLoadReferenceAndCapacityChecks(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)

	var nf domain.NotFoundError
	_, _, err := s.CreateLoad(ctx, Load{Description: "x", WeightKg: 1, Origin: "a", Destination: "b", DriverID: "ghost", TruckID: truck.ID})
	if !errors.As(err, &nf) || nf.Entity != domain.EntityDriver {
		t.Fatalf("expected driver NotFoundError, got %v", err)
	}
	_, _, err = s.CreateLoad(ctx, Load{Description: "x", WeightKg: 1, Origin: "a", Destination: "b", DriverID: driver.ID, TruckID: "ghost"})
	if !errors.As(err, &nf) || nf.Entity != domain.EntityTruck {
		t.Fatalf("expected truck NotFoundError, got %v", err)
	}

	var ve domain.ValidationError
	_, _, err = s.CreateLoad(ctx, Load{Description: "x", WeightKg: truck.CapacityKg + 1, Origin: "a", Destination: "b", DriverID: driver.ID, TruckID: truck.ID})
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "capacity") {
		t.Fatalf("expected capacity error, got %v", err)
	}
	_, _, err = s.CreateLoad(ctx, Load{Description: "x", WeightKg: -1, Origin: "a", Destination: "b", DriverID: driver.ID, TruckID: truck.ID})
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "positive") {
		t.Fatalf("expected weight error, got %v", err)
	}
}

func TestLoadLifecycleTransitions(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	inRoute, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusInRoute)})
	if err != nil {
		t.Fatalf("planned -> in-route: %v", err)
	}
	if inRoute.Status != domain.LoadStatusInRoute {
		t.Fatalf("status not applied: %+v", inRoute)
	}

	delivered, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusDelivered)})
	if err != nil {
		t.Fatalf("in-route -> delivered: %v", err)
	}
	if delivered.Status != domain.LoadStatusDelivered {
		t.Fatalf("status not applied: %+v", delivered)
	}

	// Delivered is terminal: every further mutation fails.
	_, _, err = s.UpdateLoad(ctx, load.ID, LoadPatch{Description: strPtr("renamed")})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "delivered") {
		t.Fatalf("expected terminal-state error, got %v", err)
	}
}

func TestInRouteRequiresActiveTruckWithDriver(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	if _, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{Status: truckStatusPtr(domain.TruckStatusMaintenance)}); err != nil {
		t.Fatalf("move truck to maintenance: %v", err)
	}
	_, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusInRoute)})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "maintenance") {
		t.Fatalf("expected maintenance error, got %v", err)
	}

	if _, _, err := s.UpdateTruck(ctx, truck.ID, TruckPatch{Status: truckStatusPtr(domain.TruckStatusActive)}); err != nil {
		t.Fatalf("reactivate truck: %v", err)
	}
	// Unlink the driver; in-route also requires an assigned driver. The
	// unlink cascades the planned load off the truck, so point it back first.
	if _, _, err := s.UpdateDriver(ctx, driver.ID, DriverPatch{TruckID: strPtr("")}); err != nil {
		t.Fatalf("unlink driver: %v", err)
	}
	if _, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{TruckID: strPtr(truck.ID)}); err != nil {
		t.Fatalf("reattach load: %v", err)
	}
	_, _, err = s.UpdateLoad(ctx, load.ID, LoadPatch{Status: statusPtr(domain.LoadStatusInRoute)})
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "no driver") {
		t.Fatalf("expected driverless error, got %v", err)
	}
}

func TestUpdateLoadWeightRecheck(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	_, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{WeightKg: float64Ptr(truck.CapacityKg + 500)})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Message, "capacity") {
		t.Fatalf("expected capacity error on weight bump, got %v", err)
	}
	if _, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{WeightKg: float64Ptr(truck.CapacityKg)}); err != nil {
		t.Fatalf("weight at capacity rejected: %v", err)
	}
}

func TestUpdateLoadRouteInfoLifecycle(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	route := domain.RouteInfo{
		DistanceMeters:    103000,
		DurationSeconds:   5400,
		Geometry:          "encoded-polyline",
		OriginCoords:      domain.Coordinates{Lat: -23.96, Lng: -46.33},
		DestinationCoords: domain.Coordinates{Lat: -22.90, Lng: -47.06},
	}
	departure := time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)
	updated, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{RouteInfo: &route, DepartureTime: &departure})
	if err != nil {
		t.Fatalf("set route info: %v", err)
	}
	if updated.RouteInfo == nil || updated.RouteInfo.Geometry != "encoded-polyline" {
		t.Fatalf("route info not stored: %+v", updated.RouteInfo)
	}
	if updated.DepartureTime == nil || !updated.DepartureTime.Equal(departure) {
		t.Fatalf("departure time not stored: %+v", updated.DepartureTime)
	}
	if !updated.RouteInfo.Matches(route.OriginCoords, route.DestinationCoords) {
		t.Fatal("stored route should match its endpoints")
	}

	cleared, _, err := s.UpdateLoad(ctx, load.ID, LoadPatch{ClearRouteInfo: true})
	if err != nil {
		t.Fatalf("clear route info: %v", err)
	}
	if cleared.RouteInfo != nil {
		t.Fatalf("route info not cleared: %+v", cleared.RouteInfo)
	}
}

func TestDeleteLoadUnconditional(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	driver, truck := linkedPair(t, s)
	load := seedLoad(t, s, driver.ID, truck.ID, 5000)

	if _, err := s.DeleteLoad(ctx, load.ID); err != nil {
		t.Fatalf("delete load: %v", err)
	}
	if _, ok := s.GetLoad(ctx, load.ID); ok {
		t.Fatal("load survived delete")
	}

	_, err := s.DeleteLoad(ctx, load.ID)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError on double delete, got %v", err)
	}
}
