package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// TruckMaintenanceRule warns, without blocking, when a commit moves a truck
// into maintenance while planned or in-route loads still reference it. The
// presentation layer surfaces the warning as a confirmation step.
func TruckMaintenanceRule() domain.Rule {
	return truckMaintenanceRule{}
}

type truckMaintenanceRule struct{}

func (truckMaintenanceRule) Name() string { return "truck_maintenance" }

func (truckMaintenanceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityTruck || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Truck)
		after, okAfter := change.After.(domain.Truck)
		if !okBefore || !okAfter {
			continue
		}
		if before.Status == domain.TruckStatusMaintenance || after.Status != domain.TruckStatusMaintenance {
			continue
		}
		active := 0
		for _, load := range view.ListLoads() {
			if load.TruckID == after.ID && load.Active() {
				active++
			}
		}
		if active > 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "truck_maintenance",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("truck %s entering maintenance still has %d active load(s)", after.LicensePlate, active),
				Entity:   domain.EntityTruck,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
