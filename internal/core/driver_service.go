package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// DriverPatch describes a partial driver update. Fields are applied only
// when non-nil. TruckID moves the truck assignment; pointing it at an empty
// string clears the assignment.
type DriverPatch struct {
	Name          *string
	LicenseNumber *string
	Phone         *string
	TruckID       *string
}

// CreateDriver persists a new driver inside one transaction. When the input
// carries a truck reference the target truck is linked atomically; a truck
// already linked to another driver fails with a ConflictError, an unknown
// truck id with a NotFoundError.
func (s *Service) CreateDriver(ctx context.Context, driver Driver) (Driver, Result, error) {
	driver.LicenseNumber = domain.NormalizeLicenseNumber(driver.LicenseNumber)
	if err := validateDriverFields(driver); err != nil {
		return Driver{}, Result{}, err
	}
	var created Driver
	res, err := s.runTx(ctx, "create_driver", func(tx Transaction) error {
		if err := ensureLicenseNumberUnique(tx, driver.LicenseNumber, ""); err != nil {
			return err
		}
		if driver.TruckID != nil {
			truck, ok := tx.FindTruck(*driver.TruckID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityTruck, ID: *driver.TruckID}
			}
			if truck.DriverID != nil {
				return domain.ConflictError{Message: fmt.Sprintf("truck %s already linked to another driver", truck.LicensePlate)}
			}
		}
		var err error
		created, err = tx.CreateDriver(driver)
		if err != nil {
			return err
		}
		if created.TruckID != nil {
			_, err = tx.UpdateTruck(*created.TruckID, func(t *Truck) error {
				t.DriverID = strPtr(created.ID)
				return nil
			})
		}
		return err
	})
	return created, res, err
}

// UpdateDriver merges field patches inside one transaction. When the patch
// moves the truck assignment it blocks while in-route loads exist, cascades
// planned loads onto the new truck id, unlinks the old truck, and links the
// new one; the whole mutation commits atomically or not at all.
func (s *Service) UpdateDriver(ctx context.Context, id string, patch DriverPatch) (Driver, Result, error) {
	var updated Driver
	res, err := s.runTx(ctx, "update_driver", func(tx Transaction) error {
		current, ok := tx.FindDriver(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDriver, ID: id}
		}

		if patch.LicenseNumber != nil {
			normalized := domain.NormalizeLicenseNumber(*patch.LicenseNumber)
			if normalized == "" {
				return domain.ValidationError{Entity: domain.EntityDriver, EntityID: id, Message: "license number is required"}
			}
			if normalized != current.LicenseNumber {
				if err := ensureLicenseNumberUnique(tx, normalized, id); err != nil {
					return err
				}
			}
			patch.LicenseNumber = strPtr(normalized)
		}

		moving, target := truckAssignmentChange(current.TruckID, patch.TruckID)
		if moving {
			if target != nil {
				truck, ok := tx.FindTruck(*target)
				if !ok {
					return domain.NotFoundError{Entity: domain.EntityTruck, ID: *target}
				}
				if truck.DriverID != nil && *truck.DriverID != id {
					return domain.ConflictError{Message: fmt.Sprintf("truck %s already linked to another driver", truck.LicensePlate)}
				}
			}

			if inRoute := tx.Snapshot().ListLoadsByDriver(id, domain.LoadStatusInRoute); len(inRoute) > 0 {
				return domain.ValidationError{
					Entity:   domain.EntityDriver,
					EntityID: id,
					Message:  "cannot change truck assignment while loads are in route",
				}
			}

			// Cascade: planned loads follow the driver to the new truck.
			for _, load := range tx.Snapshot().ListLoadsByDriver(id, domain.LoadStatusPlanned) {
				newTruckID := ""
				if target != nil {
					newTruckID = *target
				}
				if _, err := tx.UpdateLoad(load.ID, func(l *Load) error {
					l.TruckID = newTruckID
					return nil
				}); err != nil {
					return err
				}
			}

			if current.TruckID != nil {
				if _, err := tx.UpdateTruck(*current.TruckID, func(t *Truck) error {
					t.DriverID = nil
					return nil
				}); err != nil {
					return err
				}
			}
			if target != nil {
				if _, err := tx.UpdateTruck(*target, func(t *Truck) error {
					t.DriverID = strPtr(id)
					return nil
				}); err != nil {
					return err
				}
			}
		}

		var err error
		updated, err = tx.UpdateDriver(id, func(d *Driver) error {
			if patch.Name != nil {
				d.Name = *patch.Name
			}
			if patch.LicenseNumber != nil {
				d.LicenseNumber = *patch.LicenseNumber
			}
			if patch.Phone != nil {
				d.Phone = *patch.Phone
			}
			if moving {
				d.TruckID = target
			}
			return nil
		})
		return err
	})
	return updated, res, err
}

// DeleteDriver removes a driver. Deletion is blocked with a
// ReferentialIntegrityError while the driver is linked to a truck; the error
// names the truck's plate so the caller can surface it directly.
func (s *Service) DeleteDriver(ctx context.Context, id string) (Result, error) {
	return s.runTx(ctx, "delete_driver", func(tx Transaction) error {
		current, ok := tx.FindDriver(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityDriver, ID: id}
		}
		if current.TruckID != nil {
			plate := *current.TruckID
			if truck, ok := tx.FindTruck(*current.TruckID); ok {
				plate = truck.LicensePlate
			}
			return domain.ReferentialIntegrityError{
				Entity:       domain.EntityDriver,
				EntityID:     id,
				ReferencedBy: domain.EntityTruck,
				Message:      fmt.Sprintf("driver %s is linked to truck %s; unlink the truck first", current.Name, plate),
			}
		}
		return tx.DeleteDriver(id)
	})
}

func validateDriverFields(d Driver) error {
	if d.Name == "" {
		return domain.ValidationError{Entity: domain.EntityDriver, Message: "name is required"}
	}
	if d.LicenseNumber == "" {
		return domain.ValidationError{Entity: domain.EntityDriver, Message: "license number is required"}
	}
	if d.Phone == "" {
		return domain.ValidationError{Entity: domain.EntityDriver, Message: "phone is required"}
	}
	return nil
}

// truckAssignmentChange interprets a patch against the current assignment.
// It returns whether the assignment moves and the target truck id (nil when
// clearing).
func truckAssignmentChange(current *string, patched *string) (bool, *string) {
	if patched == nil {
		return false, nil
	}
	if *patched == "" {
		return current != nil, nil
	}
	if current != nil && *current == *patched {
		return false, nil
	}
	return true, strPtr(*patched)
}

// ensureLicenseNumberUnique scans the driver collection within the
// transaction snapshot. The scan registers a collection read, so a
// concurrent conflicting create forces this transaction to retry rather
// than commit a duplicate.
func ensureLicenseNumberUnique(tx Transaction, license, excludeID string) error {
	for _, d := range tx.Snapshot().ListDrivers() {
		if d.ID == excludeID {
			continue
		}
		if d.LicenseNumber == license {
			return domain.ValidationError{
				Entity:  domain.EntityDriver,
				Message: fmt.Sprintf("license number %s already registered to %s", license, d.Name),
			}
		}
	}
	return nil
}
