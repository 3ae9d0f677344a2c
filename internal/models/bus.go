package models

// BusStatus is the operational state of a bus.
type BusStatus string

const (
	BusStatusActive      BusStatus = "Active"
	BusStatusInactive    BusStatus = "Inactive"
	BusStatusMaintenance BusStatus = "Maintenance"
)

// Valid reports whether s is a known status.
func (s BusStatus) Valid() bool {
	switch s {
	case BusStatusActive, BusStatusInactive, BusStatusMaintenance:
		return true
	}
	return false
}

// BusRow is a bus document as read from the store. Any field may be missing.
type BusRow struct {
	ID              string  `db:"id"`
	BusNumber       *string `db:"bus_number"`
	Capacity        *int64  `db:"capacity"`
	Status          *string `db:"status"`
	AssignedRouteID *string `db:"assigned_route_id"`
}

// Bus is a validated bus record.
type Bus struct {
	ID              string    `json:"id" validate:"required"`
	Number          string    `json:"busNumber"`
	Capacity        int       `json:"capacity" validate:"gt=0"`
	Status          BusStatus `json:"status" validate:"oneof=Active Inactive Maintenance"`
	AssignedRouteID *string   `json:"assignedRouteId,omitempty"`
}

// BusUpdate carries the partial fields of a single bus write. Nil fields are left untouched.
type BusUpdate struct {
	Status             *BusStatus
	AssignedRouteID    *string
	ClearAssignedRoute bool
}
