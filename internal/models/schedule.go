package models

// EverydayToken marks a schedule that runs on every weekday.
const EverydayToken = "Everyday"

// ScheduleRow is a schedule document as read from the store.
type ScheduleRow struct {
	ID            string  `db:"id"`
	RouteID       *string `db:"route_id"`
	BusID         *string `db:"bus_id"`
	DepartureTime *string `db:"departure_time"`
	ArrivalTime   *string `db:"arrival_time"`
	DayOfWeek     *string `db:"day_of_week"`
	ParentID      *string `db:"parent_schedule_id"`
}

// Schedule is a recurring trip definition, optionally bound to a bus.
// DepartureTime and ArrivalTime are day-local "HH:MM" values.
type Schedule struct {
	ID            string  `db:"id" json:"id" validate:"required"`
	RouteID       string  `db:"route_id" json:"routeId" validate:"required"`
	BusID         *string `db:"bus_id" json:"busId,omitempty"`
	DepartureTime string  `db:"departure_time" json:"departureTime"`
	ArrivalTime   string  `db:"arrival_time" json:"arrivalTime"`
	DayOfWeek     string  `db:"day_of_week" json:"dayOfWeek"`
	// ParentID links an extra trip to the schedule whose overflow it carries.
	ParentID      *string `db:"parent_schedule_id" json:"parentScheduleId,omitempty"`
}

// HasBus reports whether a bus reference is set.
func (s Schedule) HasBus() bool {
	return s.BusID != nil && *s.BusID != ""
}

// IsExtraTrip reports whether the schedule was added to carry another schedule's overflow.
func (s Schedule) IsExtraTrip() bool {
	return s.ParentID != nil && *s.ParentID != ""
}
