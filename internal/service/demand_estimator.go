package service

import "github.com/campus-shuttle/shuttle-api/internal/models"

// EstimateDemand counts Booked reservations per operating schedule on date (YYYY-MM-DD).
// Every operating schedule gets an entry, zero when nothing is booked.
func EstimateDemand(operating []models.Schedule, date string, reservations []models.Reservation) map[string]int {
	demand := make(map[string]int, len(operating))
	for _, schedule := range operating {
		demand[schedule.ID] = 0
	}
	for _, reservation := range reservations {
		if reservation.Status != models.ReservationStatusBooked || reservation.Date != date {
			continue
		}
		if _, ok := demand[reservation.ScheduleID]; ok {
			demand[reservation.ScheduleID]++
		}
	}
	return demand
}
