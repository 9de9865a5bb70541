package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// TruckPatch describes a partial truck update. Fields are applied only when
// non-nil. DocumentURL pointing at an empty string clears the stored URL.
// Driver (re)linking is intentionally absent: assignments are edited from
// the driver side only.
type TruckPatch struct {
	LicensePlate *string
	Model        *string
	CapacityKg   *float64
	Year         *int
	Status       *domain.TruckStatus
	DocumentURL  *string
}

// CreateTruck persists a new truck. The license plate is normalized and its
// uniqueness enforced inside the transaction. New trucks never carry a
// driver link.
func (s *Service) CreateTruck(ctx context.Context, truck Truck) (Truck, Result, error) {
	truck.LicensePlate = domain.NormalizeLicensePlate(truck.LicensePlate)
	if truck.Status == "" {
		truck.Status = domain.TruckStatusActive
	}
	if err := validateTruckFields(truck); err != nil {
		return Truck{}, Result{}, err
	}
	truck.DriverID = nil
	var created Truck
	res, err := s.runTx(ctx, "create_truck", func(tx Transaction) error {
		if err := ensureLicensePlateUnique(tx, truck.LicensePlate, ""); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateTruck(truck)
		return err
	})
	return created, res, err
}

// UpdateTruck merges field patches inside one transaction. A capacity
// decrease is rejected while any planned or in-route load referencing the
// truck weighs more than the new capacity. Moving the truck into
// maintenance while active loads exist commits, but the Result carries a
// warning the presentation layer must confirm with the user.
func (s *Service) UpdateTruck(ctx context.Context, id string, patch TruckPatch) (Truck, Result, error) {
	var updated Truck
	res, err := s.runTx(ctx, "update_truck", func(tx Transaction) error {
		current, ok := tx.FindTruck(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityTruck, ID: id}
		}

		if patch.LicensePlate != nil {
			normalized := domain.NormalizeLicensePlate(*patch.LicensePlate)
			if normalized == "" {
				return domain.ValidationError{Entity: domain.EntityTruck, EntityID: id, Message: "license plate is required"}
			}
			if normalized != current.LicensePlate {
				if err := ensureLicensePlateUnique(tx, normalized, id); err != nil {
					return err
				}
			}
			patch.LicensePlate = strPtr(normalized)
		}

		if patch.Status != nil && !domain.ValidTruckStatus(*patch.Status) {
			return domain.ValidationError{Entity: domain.EntityTruck, EntityID: id, Message: fmt.Sprintf("unknown status %q", *patch.Status)}
		}

		if patch.CapacityKg != nil {
			if *patch.CapacityKg <= 0 {
				return domain.ValidationError{Entity: domain.EntityTruck, EntityID: id, Message: "capacity must be a positive number"}
			}
			if *patch.CapacityKg < current.CapacityKg {
				active := tx.Snapshot().ListLoadsByTruck(id, domain.LoadStatusPlanned, domain.LoadStatusInRoute)
				for _, load := range active {
					if load.WeightKg > *patch.CapacityKg {
						return domain.ValidationError{
							Entity:   domain.EntityTruck,
							EntityID: id,
							Message:  fmt.Sprintf("insufficient capacity for active load %q (%.0f kg)", load.Description, load.WeightKg),
						}
					}
				}
			}
		}

		var err error
		updated, err = tx.UpdateTruck(id, func(t *Truck) error {
			if patch.LicensePlate != nil {
				t.LicensePlate = *patch.LicensePlate
			}
			if patch.Model != nil {
				t.Model = *patch.Model
			}
			if patch.CapacityKg != nil {
				t.CapacityKg = *patch.CapacityKg
			}
			if patch.Year != nil {
				t.Year = *patch.Year
			}
			if patch.Status != nil {
				t.Status = *patch.Status
			}
			if patch.DocumentURL != nil {
				if *patch.DocumentURL == "" {
					t.DocumentURL = nil
				} else {
					t.DocumentURL = strPtr(*patch.DocumentURL)
				}
			}
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteTruck removes a truck. Deletion is blocked with a
// ReferentialIntegrityError while a driver is linked; the error names the
// driver.
func (s *Service) DeleteTruck(ctx context.Context, id string) (Result, error) {
	return s.runTx(ctx, "delete_truck", func(tx Transaction) error {
		current, ok := tx.FindTruck(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityTruck, ID: id}
		}
		if current.DriverID != nil {
			name := *current.DriverID
			if driver, ok := tx.FindDriver(*current.DriverID); ok {
				name = driver.Name
			}
			return domain.ReferentialIntegrityError{
				Entity:       domain.EntityTruck,
				EntityID:     id,
				ReferencedBy: domain.EntityDriver,
				Message:      fmt.Sprintf("truck %s is linked to driver %s; unlink the driver first", current.LicensePlate, name),
			}
		}
		if active := tx.Snapshot().ListLoadsByTruck(id, domain.LoadStatusPlanned, domain.LoadStatusInRoute); len(active) > 0 {
			return domain.ReferentialIntegrityError{
				Entity:       domain.EntityTruck,
				EntityID:     id,
				ReferencedBy: domain.EntityLoad,
				Message:      fmt.Sprintf("truck %s has active loads; deliver or reassign them first", current.LicensePlate),
			}
		}
		return tx.DeleteTruck(id)
	})
}

func validateTruckFields(t Truck) error {
	if t.LicensePlate == "" {
		return domain.ValidationError{Entity: domain.EntityTruck, Message: "license plate is required"}
	}
	if t.Model == "" {
		return domain.ValidationError{Entity: domain.EntityTruck, Message: "model is required"}
	}
	if t.CapacityKg <= 0 {
		return domain.ValidationError{Entity: domain.EntityTruck, Message: "capacity must be a positive number"}
	}
	if t.Year <= 0 {
		return domain.ValidationError{Entity: domain.EntityTruck, Message: "year is required"}
	}
	if !domain.ValidTruckStatus(t.Status) {
		return domain.ValidationError{Entity: domain.EntityTruck, Message: fmt.Sprintf("unknown status %q", t.Status)}
	}
	return nil
}

// ensureLicensePlateUnique mirrors ensureLicenseNumberUnique for trucks.
func ensureLicensePlateUnique(tx Transaction, plate, excludeID string) error {
	for _, t := range tx.Snapshot().ListTrucks() {
		if t.ID == excludeID {
			continue
		}
		if t.LicensePlate == plate {
			return domain.ValidationError{
				Entity:  domain.EntityTruck,
				Message: fmt.Sprintf("license plate %s already registered", plate),
			}
		}
	}
	return nil
}
