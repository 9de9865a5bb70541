package core

import (
	"context"

	"fleetcore/pkg/domain"
)

// LoadStatusRule blocks illegal load lifecycle moves surfacing in the
// change set: mutations of delivered loads, transitions outside the
// planned -> in-route -> delivered machine, and in-route loads whose truck
// is in maintenance or driverless in the candidate state.
func LoadStatusRule() domain.Rule {
	return loadStatusRule{}
}

type loadStatusRule struct{}

func (loadStatusRule) Name() string { return "load_status" }

func (loadStatusRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityLoad || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Load)
		after, okAfter := change.After.(domain.Load)
		if !okBefore || !okAfter {
			continue
		}
		if before.Delivered() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "load_status",
				Severity: domain.SeverityBlock,
				Message:  "delivered loads are immutable",
				Entity:   domain.EntityLoad,
				EntityID: after.ID,
			})
			continue
		}
		if before.Status != after.Status {
			if err := ValidateStatusTransition(before.Status, after.Status); err != nil {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "load_status",
					Severity: domain.SeverityBlock,
					Message:  err.Error(),
					Entity:   domain.EntityLoad,
					EntityID: after.ID,
				})
				continue
			}
		}
		if after.Status == domain.LoadStatusInRoute {
			if truck, ok := view.FindTruck(after.TruckID); ok {
				if err := ValidateLoadAgainstTruck(after, truck); err != nil {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     "load_status",
						Severity: domain.SeverityBlock,
						Message:  err.Error(),
						Entity:   domain.EntityLoad,
						EntityID: after.ID,
					})
				}
			}
		}
	}
	return res, nil
}
