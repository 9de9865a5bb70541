package core

import (
	"errors"
	"strings"
	"testing"

	"fleetcore/pkg/domain"
)

func TestValidateStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from, to domain.LoadStatus
		ok       bool
	}{
		{domain.LoadStatusPlanned, domain.LoadStatusPlanned, true},
		{domain.LoadStatusPlanned, domain.LoadStatusInRoute, true},
		{domain.LoadStatusPlanned, domain.LoadStatusDelivered, true},
		{domain.LoadStatusInRoute, domain.LoadStatusInRoute, true},
		{domain.LoadStatusInRoute, domain.LoadStatusDelivered, true},
		{domain.LoadStatusInRoute, domain.LoadStatusPlanned, false},
		{domain.LoadStatusDelivered, domain.LoadStatusPlanned, false},
		{domain.LoadStatusDelivered, domain.LoadStatusInRoute, false},
		{domain.LoadStatusDelivered, domain.LoadStatusDelivered, true},
	}
	for _, tc := range cases {
		err := ValidateStatusTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s should be legal: %v", tc.from, tc.to, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s -> %s should be illegal", tc.from, tc.to)
		}
	}

	if err := ValidateStatusTransition(domain.LoadStatusPlanned, "lost"); err == nil {
		t.Error("unknown target status accepted")
	}
}

func TestValidateLoadAgainstTruckPreconditions(t *testing.T) {
	truck := domain.Truck{
		Base:         domain.Base{ID: "t-1"},
		LicensePlate: "GRD-0001",
		CapacityKg:   10000,
		Status:       domain.TruckStatusActive,
		DriverID:     strPtr("d-1"),
	}

	planned := domain.Load{Status: domain.LoadStatusPlanned, WeightKg: 9000}
	if err := ValidateLoadAgainstTruck(planned, truck); err != nil {
		t.Fatalf("planned within capacity rejected: %v", err)
	}

	heavy := domain.Load{Status: domain.LoadStatusPlanned, WeightKg: 10001}
	var ve domain.ValidationError
	if err := ValidateLoadAgainstTruck(heavy, truck); !errors.As(err, &ve) || !strings.Contains(ve.Message, "capacity") {
		t.Fatalf("overweight accepted: %v", err)
	}

	inRoute := domain.Load{Status: domain.LoadStatusInRoute, WeightKg: 9000}
	if err := ValidateLoadAgainstTruck(inRoute, truck); err != nil {
		t.Fatalf("in-route on active truck rejected: %v", err)
	}

	maintenance := truck
	maintenance.Status = domain.TruckStatusMaintenance
	if err := ValidateLoadAgainstTruck(inRoute, maintenance); !errors.As(err, &ve) || !strings.Contains(ve.Message, "maintenance") {
		t.Fatalf("in-route on maintenance truck accepted: %v", err)
	}

	driverless := truck
	driverless.DriverID = nil
	if err := ValidateLoadAgainstTruck(inRoute, driverless); !errors.As(err, &ve) || !strings.Contains(ve.Message, "no driver") {
		t.Fatalf("in-route on driverless truck accepted: %v", err)
	}

	// Planned loads on a maintenance truck are fine; only in-route needs an
	// operational truck.
	if err := ValidateLoadAgainstTruck(planned, maintenance); err != nil {
		t.Fatalf("planned on maintenance truck rejected: %v", err)
	}
}

func TestValidateLoadWeight(t *testing.T) {
	if err := ValidateLoadWeight(0); err == nil {
		t.Error("zero weight accepted")
	}
	if err := ValidateLoadWeight(-10); err == nil {
		t.Error("negative weight accepted")
	}
	if err := ValidateLoadWeight(0.5); err != nil {
		t.Errorf("positive weight rejected: %v", err)
	}
}
