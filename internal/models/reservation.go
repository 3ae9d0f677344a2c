package models

import "time"

// ReservationStatus is the lifecycle state of a seat reservation.
type ReservationStatus string

const (
	ReservationStatusBooked    ReservationStatus = "Booked"
	ReservationStatusCancelled ReservationStatus = "Cancelled"
	ReservationStatusBoarded   ReservationStatus = "Boarded"
)

// DateLayout is the normalized calendar-date representation.
const DateLayout = "2006-01-02"

// ReservationRow is a reservation document as read from the store.
type ReservationRow struct {
	ID              string     `db:"id"`
	StudentID       *string    `db:"student_id"`
	BusID           *string    `db:"bus_id"`
	ScheduleID      *string    `db:"schedule_id"`
	ReservationDate *string    `db:"reservation_date"`
	Status          *string    `db:"status"`
	BookingTime     *time.Time `db:"booking_time"`
}

// Reservation is a validated reservation. Date is always DateLayout.
type Reservation struct {
	ID         string            `json:"id"`
	StudentID  string            `json:"studentId"`
	BusID      *string           `json:"busId,omitempty"`
	ScheduleID string            `json:"scheduleId" validate:"required"`
	Date       string            `json:"reservationDate" validate:"required,datetime=2006-01-02"`
	Status     ReservationStatus `json:"status" validate:"oneof=Booked Cancelled Boarded"`
	BookedAt   *time.Time        `json:"bookingTime,omitempty"`
}
