package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

func TestOperatingSchedulesMatchesWeekdayOrEveryday(t *testing.T) {
	monday, err := ParseTargetDate("2025-03-03")
	require.NoError(t, err)

	schedules := []models.Schedule{
		{ID: "mon", DayOfWeek: "Monday"},
		{ID: "spaced", DayOfWeek: " Sunday ,  Monday "},
		{ID: "lower", DayOfWeek: "monday"},
		{ID: "every", DayOfWeek: "Everyday"},
		{ID: "tue", DayOfWeek: "Tuesday, Wednesday"},
		{ID: "empty", DayOfWeek: ""},
		{ID: "commas", DayOfWeek: " , ,"},
		{ID: "partial", DayOfWeek: "Mon"},
	}

	operating := OperatingSchedules(monday, schedules)
	ids := make([]string, 0, len(operating))
	for _, s := range operating {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"mon", "spaced", "lower", "every"}, ids)
}

func TestParseTargetDateRejectsGarbage(t *testing.T) {
	_, err := ParseTargetDate("03/03/2025")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailableAndIdleInactiveBuses(t *testing.T) {
	operating := []models.Schedule{
		{ID: "s1", BusID: strPtr("busy-active")},
		{ID: "s2", BusID: strPtr("busy-inactive")},
		{ID: "s3"},
	}
	buses := []models.Bus{
		{ID: "busy-active", Status: models.BusStatusActive},
		{ID: "free-active", Status: models.BusStatusActive},
		{ID: "busy-inactive", Status: models.BusStatusInactive},
		{ID: "free-inactive", Status: models.BusStatusInactive},
		{ID: "shop", Status: models.BusStatusMaintenance},
	}

	available := AvailableBuses(buses, operating)
	require.Len(t, available, 1)
	assert.Equal(t, "free-active", available[0].ID)

	idle := IdleInactiveBuses(buses, operating)
	require.Len(t, idle, 1)
	assert.Equal(t, "free-inactive", idle[0].ID)
}
