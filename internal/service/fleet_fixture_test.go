package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

// memoryFleet is an in-memory store implementing every reader and writer the advisor uses.
type memoryFleet struct {
	mu            sync.Mutex
	buses         []models.BusRow
	routes        []models.Route
	schedules     []models.ScheduleRow
	reservations  []models.ReservationRow
	announcements []models.Announcement
	logs          []models.ActionLog

	busUpdates      int
	scheduleUpdates int
	failOn          map[string]error
	listCalls       int
}

func newMemoryFleet() *memoryFleet {
	return &memoryFleet{failOn: map[string]error{}}
}

func (f *memoryFleet) addRoute(id, origin, destination string) {
	f.routes = append(f.routes, models.Route{ID: id, Origin: origin, Destination: destination})
}

func (f *memoryFleet) addBus(id string, capacity int64, status models.BusStatus) {
	f.buses = append(f.buses, models.BusRow{ID: id, BusNumber: strPtr("B-" + id), Capacity: int64Ptr(capacity), Status: strPtr(string(status))})
}

func (f *memoryFleet) addSchedule(id, routeID, busID, days, departure string) {
	row := models.ScheduleRow{ID: id, RouteID: strPtr(routeID), DayOfWeek: strPtr(days), DepartureTime: strPtr(departure), ArrivalTime: strPtr(departure)}
	if busID != "" {
		row.BusID = strPtr(busID)
	}
	f.schedules = append(f.schedules, row)
}

func (f *memoryFleet) book(scheduleID, date string, n int, status models.ReservationStatus) {
	for i := 0; i < n; i++ {
		f.reservations = append(f.reservations, models.ReservationRow{
			ID:              fmt.Sprintf("%s-%s-%d-%d", scheduleID, status, len(f.reservations), i),
			StudentID:       strPtr("student"),
			ScheduleID:      strPtr(scheduleID),
			ReservationDate: strPtr(date),
			Status:          strPtr(string(status)),
		})
	}
}

func (f *memoryFleet) fail(op string) error {
	return f.failOn[op]
}

type fleetBuses struct{ *memoryFleet }
type fleetRoutes struct{ *memoryFleet }
type fleetSchedules struct{ *memoryFleet }
type fleetReservations struct{ *memoryFleet }
type fleetAnnouncements struct{ *memoryFleet }
type fleetLogs struct{ *memoryFleet }

func (f fleetBuses) List(ctx context.Context) ([]models.BusRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := f.fail("list_buses"); err != nil {
		return nil, err
	}
	return append([]models.BusRow(nil), f.buses...), nil
}

func (f fleetBuses) Update(ctx context.Context, id string, update models.BusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("update_bus"); err != nil {
		return err
	}
	for i := range f.buses {
		if f.buses[i].ID != id {
			continue
		}
		if update.Status != nil {
			f.buses[i].Status = strPtr(string(*update.Status))
		}
		if update.ClearAssignedRoute {
			f.buses[i].AssignedRouteID = nil
		} else if update.AssignedRouteID != nil {
			f.buses[i].AssignedRouteID = strPtr(*update.AssignedRouteID)
		}
		f.busUpdates++
		return nil
	}
	return sql.ErrNoRows
}

func (f fleetRoutes) List(ctx context.Context) ([]models.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list_routes"); err != nil {
		return nil, err
	}
	return append([]models.Route(nil), f.routes...), nil
}

func (f fleetSchedules) List(ctx context.Context) ([]models.ScheduleRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list_schedules"); err != nil {
		return nil, err
	}
	return append([]models.ScheduleRow(nil), f.schedules...), nil
}

func (f fleetSchedules) SetBus(ctx context.Context, scheduleID, busID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("set_schedule_bus"); err != nil {
		return err
	}
	for i := range f.schedules {
		if f.schedules[i].ID == scheduleID {
			f.schedules[i].BusID = strPtr(busID)
			f.scheduleUpdates++
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f fleetSchedules) ClearBus(ctx context.Context, busID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("clear_bus"); err != nil {
		return 0, err
	}
	var n int64
	for i := range f.schedules {
		if f.schedules[i].BusID != nil && *f.schedules[i].BusID == busID {
			f.schedules[i].BusID = nil
			n++
		}
	}
	f.scheduleUpdates += int(n)
	return n, nil
}

func (f fleetSchedules) Create(ctx context.Context, schedule *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_schedule"); err != nil {
		return err
	}
	if schedule.ID == "" {
		schedule.ID = fmt.Sprintf("sch-extra-%d", len(f.schedules))
	}
	f.schedules = append(f.schedules, models.ScheduleRow{
		ID:            schedule.ID,
		RouteID:       strPtr(schedule.RouteID),
		BusID:         schedule.BusID,
		DepartureTime: strPtr(schedule.DepartureTime),
		ArrivalTime:   strPtr(schedule.ArrivalTime),
		DayOfWeek:     strPtr(schedule.DayOfWeek),
		ParentID:      schedule.ParentID,
	})
	return nil
}

func (f fleetReservations) List(ctx context.Context) ([]models.ReservationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list_reservations"); err != nil {
		return nil, err
	}
	return append([]models.ReservationRow(nil), f.reservations...), nil
}

func (f fleetReservations) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ReservationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReservationRow
	for _, r := range f.reservations {
		if r.ScheduleID != nil && *r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fleetAnnouncements) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_announcement"); err != nil {
		return nil, err
	}
	ann := models.Announcement{
		ID:       fmt.Sprintf("ann-%d", len(f.announcements)+1),
		Title:    req.Title,
		Message:  req.Message,
		BusID:    req.BusID,
		RouteID:  req.RouteID,
		IsActive: true,
	}
	f.announcements = append(f.announcements, ann)
	return &ann, nil
}

func (f fleetLogs) Create(ctx context.Context, log *models.ActionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create_log"); err != nil {
		return err
	}
	log.ID = fmt.Sprintf("log-%d", len(f.logs)+1)
	if log.Status == "" {
		log.Status = models.ActionStatusPending
	}
	f.logs = append(f.logs, *log)
	return nil
}

func (f fleetLogs) Update(ctx context.Context, log *models.ActionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.logs {
		if f.logs[i].ID == log.ID {
			copied := *log
			copied.Steps = append(models.ActionSteps(nil), log.Steps...)
			f.logs[i] = copied
		}
	}
	return nil
}

func (f fleetLogs) ListRecent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ActionLog(nil), f.logs...), nil
}

func (f *memoryFleet) advisor() *AdvisorService {
	return NewAdvisorService(AdvisorServiceConfig{
		Buses:        fleetBuses{f},
		Routes:       fleetRoutes{f},
		Schedules:    fleetSchedules{f},
		Reservations: fleetReservations{f},
	})
}

func (f *memoryFleet) actions(clearsSchedules bool) *ActionService {
	return NewActionService(ActionServiceConfig{
		Advisor:                   f.advisor(),
		Buses:                     fleetBuses{f},
		Schedules:                 fleetSchedules{f},
		Announcements:             fleetAnnouncements{f},
		Logs:                      fleetLogs{f},
		DeactivateClearsSchedules: clearsSchedules,
	})
}
