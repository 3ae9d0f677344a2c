package service

import (
	"strings"
	"time"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

// ParseTargetDate parses a YYYY-MM-DD calendar date. The result is midnight UTC so that
// the weekday is that of the written date.
func ParseTargetDate(raw string) (time.Time, error) {
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

// OperatingSchedules returns the schedules whose weekday list names date's weekday or
// contains the Everyday token. Schedules without a weekday list never operate.
func OperatingSchedules(date time.Time, schedules []models.Schedule) []models.Schedule {
	weekday := date.Weekday().String()
	operating := make([]models.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		if runsOn(schedule.DayOfWeek, weekday) {
			operating = append(operating, schedule)
		}
	}
	return operating
}

func runsOn(dayOfWeek, weekday string) bool {
	for _, token := range strings.Split(dayOfWeek, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.EqualFold(token, weekday) || strings.EqualFold(token, models.EverydayToken) {
			return true
		}
	}
	return false
}

// AvailableBuses returns Active buses not referenced by any operating schedule.
func AvailableBuses(buses []models.Bus, operating []models.Schedule) []models.Bus {
	return idleWithStatus(buses, operating, models.BusStatusActive)
}

// IdleInactiveBuses returns Inactive buses not referenced by any operating schedule.
func IdleInactiveBuses(buses []models.Bus, operating []models.Schedule) []models.Bus {
	return idleWithStatus(buses, operating, models.BusStatusInactive)
}

func idleWithStatus(buses []models.Bus, operating []models.Schedule, status models.BusStatus) []models.Bus {
	busy := busyBusIDs(operating)
	out := make([]models.Bus, 0)
	for _, bus := range buses {
		if bus.Status != status {
			continue
		}
		if _, taken := busy[bus.ID]; taken {
			continue
		}
		out = append(out, bus)
	}
	return out
}

func busyBusIDs(operating []models.Schedule) map[string]struct{} {
	busy := make(map[string]struct{}, len(operating))
	for _, schedule := range operating {
		if schedule.HasBus() {
			busy[*schedule.BusID] = struct{}{}
		}
	}
	return busy
}
