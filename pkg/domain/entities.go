// Package domain defines the fleet entities, value types, persistence
// contracts, and rule evaluation primitives used by fleetcore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in a fleet collection.
type EntityType string

// Collection identifiers used in Change records and persistence buckets.
const (
	// EntityDriver identifies a driver record.
	EntityDriver EntityType = "driver"
	// EntityTruck identifies a truck record.
	EntityTruck EntityType = "truck"
	// EntityLoad identifies a load record.
	EntityLoad EntityType = "load"
)

// TruckStatus enumerates operational states of a truck.
type TruckStatus string

// Canonical truck statuses.
const (
	TruckStatusActive      TruckStatus = "active"
	TruckStatusMaintenance TruckStatus = "maintenance"
)

// LoadStatus enumerates the load delivery lifecycle.
type LoadStatus string

// Canonical load statuses. Delivered is terminal.
const (
	LoadStatusPlanned   LoadStatus = "planned"
	LoadStatusInRoute   LoadStatus = "in-route"
	LoadStatusDelivered LoadStatus = "delivered"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock aborts the transaction.
	SeverityBlock Severity = "block"
	// SeverityWarn is surfaced to the caller but allows commit.
	SeverityWarn Severity = "warn"
)

// Base contains common fields for all fleet records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Driver represents a driver document. TruckID is a bare cross-reference
// resolved through the store inside a transaction, never a live pointer.
type Driver struct {
	Base
	Name          string  `json:"name"`
	LicenseNumber string  `json:"license_number"`
	Phone         string  `json:"phone"`
	TruckID       *string `json:"truck_id"`
}

// Truck represents a truck document. DriverID mirrors Driver.TruckID; the
// pair is kept symmetric by the assignment coordinator.
type Truck struct {
	Base
	LicensePlate string      `json:"license_plate"`
	Model        string      `json:"model"`
	CapacityKg   float64     `json:"capacity_kg"`
	Year         int         `json:"year"`
	Status       TruckStatus `json:"status"`
	DriverID     *string     `json:"driver_id"`
	DocumentURL  *string     `json:"document_url,omitempty"`
}

// Load represents a transported load document.
type Load struct {
	Base
	Description   string     `json:"description"`
	WeightKg      float64    `json:"weight_kg"`
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	Status        LoadStatus `json:"status"`
	DriverID      string     `json:"driver_id"`
	TruckID       string     `json:"truck_id"`
	RouteInfo     *RouteInfo `json:"route_info,omitempty"`
	DepartureTime *time.Time `json:"departure_time,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteInfo is produced by the external routing collaborator and stored
// verbatim. The core never interprets Geometry; it only compares the
// endpoint coordinates to decide whether a stored route went stale.
type RouteInfo struct {
	DistanceMeters    float64     `json:"distance_meters"`
	DurationSeconds   float64     `json:"duration_seconds"`
	Geometry          string      `json:"geometry"`
	OriginCoords      Coordinates `json:"origin_coords"`
	DestinationCoords Coordinates `json:"destination_coords"`
}

// Matches reports whether the stored route still describes the given
// endpoints. A false result means the geometry is stale and the caller
// should recompute the route externally.
func (r *RouteInfo) Matches(origin, destination Coordinates) bool {
	if r == nil {
		return false
	}
	return r.OriginCoords == origin && r.DestinationCoords == destination
}

// Delivered reports whether the load reached its terminal state.
func (l Load) Delivered() bool {
	return l.Status == LoadStatusDelivered
}

// Active reports whether the load still occupies truck capacity.
func (l Load) Active() bool {
	return l.Status == LoadStatusPlanned || l.Status == LoadStatusInRoute
}

// NormalizeLicenseNumber canonicalizes a driver license number for storage
// and uniqueness comparison.
func NormalizeLicenseNumber(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// NormalizeLicensePlate canonicalizes a truck license plate.
func NormalizeLicensePlate(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// ValidTruckStatus reports whether v is a recognized truck status.
func ValidTruckStatus(v TruckStatus) bool {
	return v == TruckStatusActive || v == TruckStatusMaintenance
}

// ValidLoadStatus reports whether v is a recognized load status.
func ValidLoadStatus(v LoadStatus) bool {
	return v == LoadStatusPlanned || v == LoadStatusInRoute || v == LoadStatusDelivered
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured per transaction.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine. Warn violations are
// carried to the caller alongside a successful commit.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations carried by the result.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}
