package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// DefaultRulesEngine returns the engine enforcing the fleet consistency
// invariants at commit time. The coordinator performs the same checks
// imperatively to produce precise typed errors; the engine is the safety net
// that re-verifies every candidate commit, including cascades.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LinkSymmetryRule())
	engine.Register(LoadCapacityRule())
	engine.Register(LoadStatusRule())
	engine.Register(TruckMaintenanceRule())
	return engine
}

// LinkSymmetryRule blocks any commit that would leave the driver/truck
// bidirectional link asymmetric: truck.driverId == d.id iff
// driver.truckId == truck.id for every pair.
func LinkSymmetryRule() domain.Rule {
	return linkSymmetryRule{}
}

type linkSymmetryRule struct{}

func (linkSymmetryRule) Name() string { return "link_symmetry" }

func (linkSymmetryRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, truck := range view.ListTrucks() {
		if truck.DriverID == nil {
			continue
		}
		driver, ok := view.FindDriver(*truck.DriverID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "link_symmetry",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("truck %s references missing driver %s", truck.LicensePlate, *truck.DriverID),
				Entity:   domain.EntityTruck,
				EntityID: truck.ID,
			})
			continue
		}
		if driver.TruckID == nil || *driver.TruckID != truck.ID {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "link_symmetry",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("truck %s links driver %s but the driver does not link back", truck.LicensePlate, driver.Name),
				Entity:   domain.EntityTruck,
				EntityID: truck.ID,
			})
		}
	}
	for _, driver := range view.ListDrivers() {
		if driver.TruckID == nil {
			continue
		}
		truck, ok := view.FindTruck(*driver.TruckID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "link_symmetry",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("driver %s references missing truck %s", driver.Name, *driver.TruckID),
				Entity:   domain.EntityDriver,
				EntityID: driver.ID,
			})
			continue
		}
		if truck.DriverID == nil || *truck.DriverID != driver.ID {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "link_symmetry",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("driver %s links truck %s but the truck does not link back", driver.Name, truck.LicensePlate),
				Entity:   domain.EntityDriver,
				EntityID: driver.ID,
			})
		}
	}
	return res, nil
}
