package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// LoadCapacityRule blocks any commit in which a planned or in-route load
// weighs more than the capacity of the truck it references. Delivered loads
// are historical records and exempt.
func LoadCapacityRule() domain.Rule {
	return loadCapacityRule{}
}

type loadCapacityRule struct{}

func (loadCapacityRule) Name() string { return "load_capacity" }

func (loadCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, load := range view.ListLoads() {
		if load.Delivered() || load.TruckID == "" {
			continue
		}
		truck, ok := view.FindTruck(load.TruckID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "load_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("load %q references missing truck %s", load.Description, load.TruckID),
				Entity:   domain.EntityLoad,
				EntityID: load.ID,
			})
			continue
		}
		if load.WeightKg > truck.CapacityKg {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "load_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("load %q (%.0f kg) exceeds capacity of truck %s (%.0f kg)", load.Description, load.WeightKg, truck.LicensePlate, truck.CapacityKg),
				Entity:   domain.EntityLoad,
				EntityID: load.ID,
			})
		}
	}
	return res, nil
}
