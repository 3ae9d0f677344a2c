package service

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

var reservationDateLayouts = []string{
	models.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// NormalizeDate reduces a stored date or timestamp to the calendar date it names.
// The written date is kept as-is; no timezone conversion is applied.
func NormalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range reservationDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(models.DateLayout), true
		}
	}
	return "", false
}

// RecordValidator maps loosely typed store rows onto validated records.
// Rows that cannot be mapped are dropped with a warning.
type RecordValidator struct {
	validate        *validator.Validate
	defaultCapacity int
	logger          *zap.Logger
}

func NewRecordValidator(defaultCapacity int, validate *validator.Validate, logger *zap.Logger) *RecordValidator {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultAdvisorPolicy().DefaultBusCapacity
	}
	return &RecordValidator{validate: validate, defaultCapacity: defaultCapacity, logger: logger}
}

// Buses keeps rows with a known status; missing or non-positive capacity becomes the default.
func (v *RecordValidator) Buses(rows []models.BusRow) []models.Bus {
	out := make([]models.Bus, 0, len(rows))
	for _, row := range rows {
		bus := models.Bus{
			ID:              row.ID,
			Number:          deref(row.BusNumber),
			Status:          canonicalBusStatus(deref(row.Status)),
			AssignedRouteID: nonEmpty(row.AssignedRouteID),
		}
		if bus.Number == "" {
			bus.Number = row.ID
		}
		if row.Capacity == nil || *row.Capacity <= 0 {
			v.logger.Warn("bus capacity missing, using default",
				zap.String("bus_id", row.ID),
				zap.Int("default_capacity", v.defaultCapacity),
			)
			bus.Capacity = v.defaultCapacity
		} else {
			bus.Capacity = int(*row.Capacity)
		}
		if err := v.validate.Struct(bus); err != nil {
			v.logger.Warn("quarantined bus record", zap.String("bus_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, bus)
	}
	return out
}

// Schedules keeps rows that reference a route. A missing weekday list is kept; it never operates.
func (v *RecordValidator) Schedules(rows []models.ScheduleRow) []models.Schedule {
	out := make([]models.Schedule, 0, len(rows))
	for _, row := range rows {
		schedule := models.Schedule{
			ID:            row.ID,
			RouteID:       strings.TrimSpace(deref(row.RouteID)),
			BusID:         nonEmpty(row.BusID),
			DepartureTime: strings.TrimSpace(deref(row.DepartureTime)),
			ArrivalTime:   strings.TrimSpace(deref(row.ArrivalTime)),
			DayOfWeek:     deref(row.DayOfWeek),
			ParentID:      nonEmpty(row.ParentID),
		}
		if err := v.validate.Struct(schedule); err != nil {
			v.logger.Warn("quarantined schedule record", zap.String("schedule_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, schedule)
	}
	return out
}

// Reservations normalizes dates and drops rows without a schedule, a parsable date or a known status.
func (v *RecordValidator) Reservations(rows []models.ReservationRow) []models.Reservation {
	out := make([]models.Reservation, 0, len(rows))
	for _, row := range rows {
		date, ok := NormalizeDate(deref(row.ReservationDate))
		if !ok {
			v.logger.Warn("quarantined reservation with unparsable date",
				zap.String("reservation_id", row.ID),
				zap.String("reservation_date", deref(row.ReservationDate)),
			)
			continue
		}
		reservation := models.Reservation{
			ID:         row.ID,
			StudentID:  deref(row.StudentID),
			BusID:      nonEmpty(row.BusID),
			ScheduleID: deref(row.ScheduleID),
			Date:       date,
			Status:     models.ReservationStatus(strings.TrimSpace(deref(row.Status))),
			BookedAt:   row.BookingTime,
		}
		if err := v.validate.Struct(reservation); err != nil {
			v.logger.Warn("quarantined reservation record", zap.String("reservation_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, reservation)
	}
	return out
}

func canonicalBusStatus(raw string) models.BusStatus {
	raw = strings.TrimSpace(raw)
	for _, status := range []models.BusStatus{models.BusStatusActive, models.BusStatusInactive, models.BusStatusMaintenance} {
		if strings.EqualFold(raw, string(status)) {
			return status
		}
	}
	return models.BusStatus(raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
