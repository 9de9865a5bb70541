package core

import (
	"fmt"

	"fleetcore/pkg/domain"
)

// The load status guard is pure validation shared by form-level checks and
// persistence-time enforcement. It never touches the store; callers pass the
// candidate load together with the truck it references, both read from the
// same transaction snapshot.

var loadTransitions = map[domain.LoadStatus]map[domain.LoadStatus]struct{}{
	domain.LoadStatusPlanned: {
		domain.LoadStatusInRoute:   {},
		domain.LoadStatusDelivered: {},
	},
	domain.LoadStatusInRoute: {
		domain.LoadStatusDelivered: {},
	},
	domain.LoadStatusDelivered: {},
}

// ValidateLoadWeight checks the standalone weight constraint.
func ValidateLoadWeight(weightKg float64) error {
	if weightKg <= 0 {
		return domain.ValidationError{Entity: domain.EntityLoad, Message: "weight must be a positive number"}
	}
	return nil
}

// ValidateLoadAgainstTruck validates a candidate load against the truck it
// references: weight within capacity and, for in-route loads, an active
// truck with a driver assigned.
func ValidateLoadAgainstTruck(load domain.Load, truck domain.Truck) error {
	if err := ValidateLoadWeight(load.WeightKg); err != nil {
		return err
	}
	if load.WeightKg > truck.CapacityKg {
		return domain.ValidationError{
			Entity:   domain.EntityLoad,
			EntityID: load.ID,
			Message:  fmt.Sprintf("weight exceeds truck capacity (%.0f kg)", truck.CapacityKg),
		}
	}
	if load.Status == domain.LoadStatusInRoute {
		if truck.Status != domain.TruckStatusActive {
			return domain.ValidationError{
				Entity:   domain.EntityLoad,
				EntityID: load.ID,
				Message:  fmt.Sprintf("cannot be in route: truck %s is in maintenance", truck.LicensePlate),
			}
		}
		if truck.DriverID == nil {
			return domain.ValidationError{
				Entity:   domain.EntityLoad,
				EntityID: load.ID,
				Message:  fmt.Sprintf("cannot be in route: truck %s has no driver assigned", truck.LicensePlate),
			}
		}
	}
	return nil
}

// ValidateStatusTransition checks the load status state machine: planned may
// move to in-route or delivered, in-route may move to delivered, delivered
// is terminal. Transition into delivered is additionally gated by an
// out-of-band user confirmation, which is a presentation concern; the guard
// only checks machine legality.
func ValidateStatusTransition(from, to domain.LoadStatus) error {
	if !domain.ValidLoadStatus(to) {
		return domain.ValidationError{Entity: domain.EntityLoad, Message: fmt.Sprintf("unknown status %q", to)}
	}
	if from == to {
		return nil
	}
	if from == domain.LoadStatusDelivered {
		return domain.ValidationError{Entity: domain.EntityLoad, Message: "delivered is a terminal status"}
	}
	if _, ok := loadTransitions[from][to]; !ok {
		return domain.ValidationError{Entity: domain.EntityLoad, Message: fmt.Sprintf("illegal status transition %s -> %s", from, to)}
	}
	return nil
}
