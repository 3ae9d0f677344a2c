package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

type busReader interface {
	List(ctx context.Context) ([]models.BusRow, error)
}

type routeReader interface {
	List(ctx context.Context) ([]models.Route, error)
}

type scheduleReader interface {
	List(ctx context.Context) ([]models.ScheduleRow, error)
}

type reservationReader interface {
	List(ctx context.Context) ([]models.ReservationRow, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ReservationRow, error)
}

type advisorMetrics interface {
	ObserveAdvisoryPass(duration time.Duration, err error)
	ObserveSuggestions(suggestions []models.Suggestion)
}

// FleetState is one consistent read of the four advisory inputs.
type FleetState struct {
	Buses            []models.Bus
	Routes           []models.Route
	Schedules        []models.Schedule
	Reservations     []models.Reservation
	QuarantinedBuses map[string]struct{} // bus rows that failed validation
}

// Bus looks up a bus by id.
func (f *FleetState) Bus(id string) (models.Bus, bool) {
	for _, bus := range f.Buses {
		if bus.ID == id {
			return bus, true
		}
	}
	return models.Bus{}, false
}

// Route looks up a route by id.
func (f *FleetState) Route(id string) (models.Route, bool) {
	for _, route := range f.Routes {
		if route.ID == id {
			return route, true
		}
	}
	return models.Route{}, false
}

// Schedule looks up a schedule by id.
func (f *FleetState) Schedule(id string) (models.Schedule, bool) {
	for _, schedule := range f.Schedules {
		if schedule.ID == id {
			return schedule, true
		}
	}
	return models.Schedule{}, false
}

// AdvisorServiceConfig wires the advisor dependencies.
type AdvisorServiceConfig struct {
	Buses        busReader
	Routes       routeReader
	Schedules    scheduleReader
	Reservations reservationReader
	Records      *RecordValidator
	Generator    *SuggestionGenerator
	Metrics      advisorMetrics
	LoadTimeout  time.Duration
	Logger       *zap.Logger
}

// AdvisorService runs advisory passes: load, resolve, estimate, classify.
type AdvisorService struct {
	buses        busReader
	routes       routeReader
	schedules    scheduleReader
	reservations reservationReader
	records      *RecordValidator
	generator    *SuggestionGenerator
	metrics      advisorMetrics
	loadTimeout  time.Duration
	logger       *zap.Logger

	passes singleflight.Group
}

func NewAdvisorService(cfg AdvisorServiceConfig) *AdvisorService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Records == nil {
		cfg.Records = NewRecordValidator(0, nil, cfg.Logger)
	}
	if cfg.Generator == nil {
		cfg.Generator = NewSuggestionGenerator(DefaultAdvisorPolicy(), cfg.Logger)
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	return &AdvisorService{
		buses:        cfg.Buses,
		routes:       cfg.Routes,
		schedules:    cfg.Schedules,
		reservations: cfg.Reservations,
		records:      cfg.Records,
		generator:    cfg.Generator,
		metrics:      cfg.Metrics,
		loadTimeout:  cfg.LoadTimeout,
		logger:       cfg.Logger,
	}
}

// Load reads all four collections concurrently. Any failure aborts the whole load.
func (s *AdvisorService) Load(ctx context.Context) (*FleetState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	var (
		busRows         []models.BusRow
		routes          []models.Route
		scheduleRows    []models.ScheduleRow
		reservationRows []models.ReservationRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		busRows, err = s.buses.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		routes, err = s.routes.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		scheduleRows, err = s.schedules.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		reservationRows, err = s.reservations.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("advisor load failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrAdvisorLoad.Code, appErrors.ErrAdvisorLoad.Status, appErrors.ErrAdvisorLoad.Message)
	}

	buses := s.records.Buses(busRows)
	return &FleetState{
		Buses:            buses,
		Routes:           routes,
		Schedules:        s.records.Schedules(scheduleRows),
		Reservations:     s.records.Reservations(reservationRows),
		QuarantinedBuses: quarantinedIDs(busRows, buses),
	}, nil
}

func quarantinedIDs(rows []models.BusRow, kept []models.Bus) map[string]struct{} {
	valid := make(map[string]struct{}, len(kept))
	for _, bus := range kept {
		valid[bus.ID] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := valid[row.ID]; !ok {
			out[row.ID] = struct{}{}
		}
	}
	return out
}

// Advise runs a full advisory pass for date (YYYY-MM-DD). Concurrent calls for the same
// date share one pass; nothing is kept once the pass returns.
func (s *AdvisorService) Advise(ctx context.Context, date string) (*models.AdvisoryPass, error) {
	return s.run(ctx, date, false)
}

// Refresh is Advise without joining a pass that started earlier. Used after writes.
func (s *AdvisorService) Refresh(ctx context.Context, date string) (*models.AdvisoryPass, error) {
	return s.run(ctx, date, true)
}

func (s *AdvisorService) run(ctx context.Context, date string, fresh bool) (*models.AdvisoryPass, error) {
	target, err := ParseTargetDate(date)
	if err != nil {
		return nil, err
	}
	key := target.Format(models.DateLayout)
	if fresh {
		s.passes.Forget(key)
	}

	ch := s.passes.DoChan(key, func() (interface{}, error) {
		// shared by every caller waiting on this date
		return s.advise(context.WithoutCancel(ctx), target)
	})
	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrAdvisorLoad.Code, appErrors.ErrAdvisorLoad.Status, appErrors.ErrAdvisorLoad.Message)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AdvisoryPass), nil
	}
}

func (s *AdvisorService) advise(ctx context.Context, target time.Time) (*models.AdvisoryPass, error) {
	start := time.Now()
	state, err := s.Load(ctx)
	if err != nil {
		s.observe(time.Since(start), err)
		return nil, err
	}
	pass := s.Compute(target, state)
	s.observe(time.Since(start), nil)
	if s.metrics != nil {
		s.metrics.ObserveSuggestions(pass.Suggestions)
	}
	s.logger.Debug("advisory pass complete",
		zap.String("date", pass.Date),
		zap.Int("operating", pass.Operating),
		zap.Int("suggestions", len(pass.Suggestions)),
	)
	return pass, nil
}

// Compute classifies an already loaded state for target.
func (s *AdvisorService) Compute(target time.Time, state *FleetState) *models.AdvisoryPass {
	date := target.Format(models.DateLayout)
	operating := OperatingSchedules(target, state.Schedules)
	demand := EstimateDemand(operating, date, state.Reservations)
	suggestions, skipped := s.generator.Generate(SuggestionInput{
		Operating:   operating,
		Demand:      demand,
		Buses:       state.Buses,
		Routes:      state.Routes,
		Quarantined: state.QuarantinedBuses,
	})
	return &models.AdvisoryPass{
		Date:        date,
		Weekday:     target.Weekday().String(),
		Suggestions: suggestions,
		Operating:   len(operating),
		Skipped:     skipped,
	}
}

// Occupancy is the seat picture of one schedule on a date.
type Occupancy struct {
	ScheduleID string        `json:"scheduleId"`
	Date       string        `json:"date"`
	Operating  bool          `json:"operating"`
	Route      *models.Route `json:"route,omitempty"`
	Bus        *models.Bus   `json:"bus,omitempty"`
	ExtraTrips int           `json:"extraTrips"`
	Booked     int           `json:"booked"`
	Capacity   int           `json:"capacity"`
	Remaining  int           `json:"remaining"`
}

// Occupancy counts booked seats for one schedule using the same rules as the advisor.
func (s *AdvisorService) Occupancy(ctx context.Context, scheduleID, date string) (*Occupancy, error) {
	target, err := ParseTargetDate(date)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	var (
		busRows         []models.BusRow
		routes          []models.Route
		scheduleRows    []models.ScheduleRow
		reservationRows []models.ReservationRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		busRows, err = s.buses.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		routes, err = s.routes.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		scheduleRows, err = s.schedules.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		reservationRows, err = s.reservations.ListBySchedule(gctx, scheduleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAdvisorLoad.Code, appErrors.ErrAdvisorLoad.Status, appErrors.ErrAdvisorLoad.Message)
	}

	state := &FleetState{
		Buses:     s.records.Buses(busRows),
		Routes:    routes,
		Schedules: s.records.Schedules(scheduleRows),
	}
	schedule, ok := state.Schedule(scheduleID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}

	key := target.Format(models.DateLayout)
	out := &Occupancy{
		ScheduleID: scheduleID,
		Date:       key,
		Operating:  len(OperatingSchedules(target, []models.Schedule{schedule})) == 1,
	}
	if route, ok := state.Route(schedule.RouteID); ok {
		out.Route = &route
	}
	if schedule.HasBus() {
		if bus, ok := state.Bus(*schedule.BusID); ok {
			out.Bus = &bus
			out.Capacity = bus.Capacity
		}
	}
	for _, extra := range state.Schedules {
		if !extra.IsExtraTrip() || *extra.ParentID != scheduleID || !extra.HasBus() {
			continue
		}
		if bus, ok := state.Bus(*extra.BusID); ok && bus.Status == models.BusStatusActive {
			out.ExtraTrips++
			out.Capacity += bus.Capacity
		}
	}
	if out.Operating {
		out.Booked = EstimateDemand([]models.Schedule{schedule}, key, s.records.Reservations(reservationRows))[scheduleID]
	}
	if out.Remaining = out.Capacity - out.Booked; out.Remaining < 0 {
		out.Remaining = 0
	}
	return out, nil
}

func (s *AdvisorService) observe(d time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.metrics.ObserveAdvisoryPass(d, err)
}
