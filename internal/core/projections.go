package core

import (
	"context"

	"fleetcore/pkg/domain"
)

// Read projections are non-transactional conveniences for presentation
// layers. Each runs against a single consistent snapshot but offers no
// protection against a write committing immediately after; callers needing
// a linearizable answer must go through a coordinator mutation, which
// re-checks inside the transaction.

// ListDrivers returns all drivers, newest first.
func (s *Service) ListDrivers(_ context.Context) []Driver {
	return s.store.ListDrivers()
}

// ListTrucks returns all trucks, newest first.
func (s *Service) ListTrucks(_ context.Context) []Truck {
	return s.store.ListTrucks()
}

// ListLoads returns all loads, newest first.
func (s *Service) ListLoads(_ context.Context) []Load {
	return s.store.ListLoads()
}

// GetDriver fetches one driver by id.
func (s *Service) GetDriver(_ context.Context, id string) (Driver, bool) {
	return s.store.GetDriver(id)
}

// GetTruck fetches one truck by id.
func (s *Service) GetTruck(_ context.Context, id string) (Truck, bool) {
	return s.store.GetTruck(id)
}

// GetLoad fetches one load by id.
func (s *Service) GetLoad(_ context.Context, id string) (Load, bool) {
	return s.store.GetLoad(id)
}

// DriverActiveLoads returns the driver's in-route loads.
func (s *Service) DriverActiveLoads(ctx context.Context, driverID string) ([]Load, error) {
	var out []Load
	err := s.store.View(ctx, func(v TransactionView) error {
		out = v.ListLoadsByDriver(driverID, domain.LoadStatusInRoute)
		return nil
	})
	return out, err
}

// TruckActiveLoads returns the planned and in-route loads referencing the
// truck.
func (s *Service) TruckActiveLoads(ctx context.Context, truckID string) ([]Load, error) {
	var out []Load
	err := s.store.View(ctx, func(v TransactionView) error {
		out = v.ListLoadsByTruck(truckID, domain.LoadStatusPlanned, domain.LoadStatusInRoute)
		return nil
	})
	return out, err
}

// AvailableTrucks returns active trucks with no driver linked, the candidate
// set for an assignment form. Results are cached until the next committed
// mutation.
func (s *Service) AvailableTrucks(ctx context.Context) ([]Truck, error) {
	if cached, ok := s.projections.Get("trucks", "available"); ok {
		if trucks, ok := cached.([]Truck); ok {
			return trucks, nil
		}
	}
	var out []Truck
	err := s.store.View(ctx, func(v TransactionView) error {
		for _, t := range v.ListTrucks() {
			if t.DriverID == nil && t.Status == domain.TruckStatusActive {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.projections.Put("trucks", "available", out)
	return out, nil
}

// TruckWithDriver pairs a truck with its linked driver, when any.
type TruckWithDriver struct {
	Truck  Truck
	Driver *Driver
}

// TrucksWithDrivers returns every truck joined with its linked driver. The
// join reads both collections from one snapshot, so the symmetry invariant
// holds within the result. Results are cached until the next committed
// mutation.
func (s *Service) TrucksWithDrivers(ctx context.Context) ([]TruckWithDriver, error) {
	if cached, ok := s.projections.Get("trucks", "with_drivers"); ok {
		if rows, ok := cached.([]TruckWithDriver); ok {
			return rows, nil
		}
	}
	var out []TruckWithDriver
	err := s.store.View(ctx, func(v TransactionView) error {
		for _, t := range v.ListTrucks() {
			row := TruckWithDriver{Truck: t}
			if t.DriverID != nil {
				if d, ok := v.FindDriver(*t.DriverID); ok {
					row.Driver = &d
				}
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.projections.Put("trucks", "with_drivers", out)
	return out, nil
}

// LicenseNumberAvailable reports whether no driver other than excludeID holds
// the given license number. The answer is advisory; creates and updates
// re-check inside their transaction.
func (s *Service) LicenseNumberAvailable(ctx context.Context, license, excludeID string) (bool, error) {
	license = domain.NormalizeLicenseNumber(license)
	available := true
	err := s.store.View(ctx, func(v TransactionView) error {
		for _, d := range v.ListDrivers() {
			if d.ID != excludeID && d.LicenseNumber == license {
				available = false
				return nil
			}
		}
		return nil
	})
	return available, err
}

// LicensePlateAvailable reports whether no truck other than excludeID holds
// the given plate. Advisory, like LicenseNumberAvailable.
func (s *Service) LicensePlateAvailable(ctx context.Context, plate, excludeID string) (bool, error) {
	plate = domain.NormalizeLicensePlate(plate)
	available := true
	err := s.store.View(ctx, func(v TransactionView) error {
		for _, t := range v.ListTrucks() {
			if t.ID != excludeID && t.LicensePlate == plate {
				available = false
				return nil
			}
		}
		return nil
	})
	return available, err
}
