package core

import (
	"context"
	"time"

	"fleetcore/pkg/domain"
)

// LoadPatch describes a partial load update. Fields are applied only when
// non-nil. RouteInfo is stored verbatim as supplied by the external routing
// collaborator; ClearRouteInfo drops a stored route that went stale.
type LoadPatch struct {
	Description    *string
	WeightKg       *float64
	Origin         *string
	Destination    *string
	Status         *domain.LoadStatus
	DriverID       *string
	TruckID        *string
	RouteInfo      *domain.RouteInfo
	ClearRouteInfo bool
	DepartureTime  *time.Time
}

// CreateLoad persists a new load. Loads start in the planned state; the
// referenced driver and truck must exist and the load must pass the status
// guard against the truck read in the same transaction.
func (s *Service) CreateLoad(ctx context.Context, load Load) (Load, Result, error) {
	if load.Status == "" {
		load.Status = domain.LoadStatusPlanned
	}
	if load.Status != domain.LoadStatusPlanned {
		return Load{}, Result{}, domain.ValidationError{Entity: domain.EntityLoad, Message: "new loads start as planned"}
	}
	if err := validateLoadFields(load); err != nil {
		return Load{}, Result{}, err
	}
	var created Load
	res, err := s.runTx(ctx, "create_load", func(tx Transaction) error {
		if _, ok := tx.FindDriver(load.DriverID); !ok {
			return domain.NotFoundError{Entity: domain.EntityDriver, ID: load.DriverID}
		}
		truck, ok := tx.FindTruck(load.TruckID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityTruck, ID: load.TruckID}
		}
		if err := ValidateLoadAgainstTruck(load, truck); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateLoad(load)
		return err
	})
	return created, res, err
}

// UpdateLoad merges field patches inside one transaction. Delivered loads
// are terminal and reject every mutation; status changes run the transition
// state machine and, for in-route, the truck preconditions; weight and
// truck changes re-run the capacity check.
func (s *Service) UpdateLoad(ctx context.Context, id string, patch LoadPatch) (Load, Result, error) {
	var updated Load
	res, err := s.runTx(ctx, "update_load", func(tx Transaction) error {
		current, ok := tx.FindLoad(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityLoad, ID: id}
		}
		if current.Delivered() {
			return domain.ValidationError{
				Entity:   domain.EntityLoad,
				EntityID: id,
				Message:  "load has been delivered and can no longer be changed",
			}
		}

		candidate := applyLoadPatch(current, patch)
		if err := validateLoadFields(candidate); err != nil {
			return err
		}
		if patch.Status != nil {
			if err := ValidateStatusTransition(current.Status, *patch.Status); err != nil {
				return err
			}
		}
		if candidate.DriverID != current.DriverID {
			if _, ok := tx.FindDriver(candidate.DriverID); !ok {
				return domain.NotFoundError{Entity: domain.EntityDriver, ID: candidate.DriverID}
			}
		}
		truck, ok := tx.FindTruck(candidate.TruckID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityTruck, ID: candidate.TruckID}
		}
		if !candidate.Delivered() {
			if err := ValidateLoadAgainstTruck(candidate, truck); err != nil {
				return err
			}
		}

		var err error
		updated, err = tx.UpdateLoad(id, func(l *Load) error {
			*l = candidate
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteLoad removes a load. Loads hold no inbound references, so deletion
// is unconditional.
func (s *Service) DeleteLoad(ctx context.Context, id string) (Result, error) {
	return s.runTx(ctx, "delete_load", func(tx Transaction) error {
		return tx.DeleteLoad(id)
	})
}

func applyLoadPatch(current Load, patch LoadPatch) Load {
	candidate := current
	if patch.Description != nil {
		candidate.Description = *patch.Description
	}
	if patch.WeightKg != nil {
		candidate.WeightKg = *patch.WeightKg
	}
	if patch.Origin != nil {
		candidate.Origin = *patch.Origin
	}
	if patch.Destination != nil {
		candidate.Destination = *patch.Destination
	}
	if patch.Status != nil {
		candidate.Status = *patch.Status
	}
	if patch.DriverID != nil {
		candidate.DriverID = *patch.DriverID
	}
	if patch.TruckID != nil {
		candidate.TruckID = *patch.TruckID
	}
	if patch.ClearRouteInfo {
		candidate.RouteInfo = nil
	} else if patch.RouteInfo != nil {
		route := *patch.RouteInfo
		candidate.RouteInfo = &route
	}
	if patch.DepartureTime != nil {
		t := *patch.DepartureTime
		candidate.DepartureTime = &t
	}
	return candidate
}

func validateLoadFields(l Load) error {
	if l.Description == "" {
		return domain.ValidationError{Entity: domain.EntityLoad, EntityID: l.ID, Message: "description is required"}
	}
	if err := ValidateLoadWeight(l.WeightKg); err != nil {
		return err
	}
	if l.Origin == "" || l.Destination == "" {
		return domain.ValidationError{Entity: domain.EntityLoad, EntityID: l.ID, Message: "origin and destination are required"}
	}
	if l.DriverID == "" {
		return domain.ValidationError{Entity: domain.EntityLoad, EntityID: l.ID, Message: "driver is required"}
	}
	if l.TruckID == "" {
		return domain.ValidationError{Entity: domain.EntityLoad, EntityID: l.ID, Message: "truck is required"}
	}
	return nil
}
