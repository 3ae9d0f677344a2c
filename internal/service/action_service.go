package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

type busWriter interface {
	Update(ctx context.Context, id string, update models.BusUpdate) error
}

type scheduleWriter interface {
	SetBus(ctx context.Context, scheduleID, busID string) error
	ClearBus(ctx context.Context, busID string) (int64, error)
	Create(ctx context.Context, schedule *models.Schedule) error
}

type actionLogStore interface {
	Create(ctx context.Context, log *models.ActionLog) error
	Update(ctx context.Context, log *models.ActionLog) error
	ListRecent(ctx context.Context, limit int) ([]models.ActionLog, error)
}

type announcementCreator interface {
	Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error)
}

type fleetAdvisor interface {
	Load(ctx context.Context) (*FleetState, error)
	Compute(target time.Time, state *FleetState) *models.AdvisoryPass
	Refresh(ctx context.Context, date string) (*models.AdvisoryPass, error)
}

type actionMetrics interface {
	ObserveAction(action models.SuggestionAction, status models.ActionStatus)
}

// ActionRequest identifies what an admin approved.
type ActionRequest struct {
	ActorID    string `validate:"required"`
	ScheduleID string
	BusID      string
	Date       string `validate:"required,datetime=2006-01-02"`
}

// ActionResult reports the applied steps and the advisory pass that followed.
type ActionResult struct {
	Action       models.SuggestionAction `json:"action"`
	ActionLogID  string                  `json:"actionLogId"`
	Status       models.ActionStatus     `json:"status"`
	Steps        models.ActionSteps      `json:"steps"`
	Announcement *models.Announcement    `json:"announcement,omitempty"`
	Pass         *models.AdvisoryPass    `json:"pass,omitempty"`
	ReloadFailed bool                    `json:"reloadFailed,omitempty"`
}

// ActionServiceConfig wires the executor.
type ActionServiceConfig struct {
	Advisor                   fleetAdvisor
	Buses                     busWriter
	Schedules                 scheduleWriter
	Announcements             announcementCreator
	Logs                      actionLogStore
	Metrics                   actionMetrics
	DeactivateClearsSchedules bool
	Validator                 *validator.Validate
	Logger                    *zap.Logger
}

// ActionService applies approved suggestions as ordered, independent store writes.
// Writes stop at the first failure and are never rolled back; the action log records
// which steps landed.
type ActionService struct {
	advisor         fleetAdvisor
	buses           busWriter
	schedules       scheduleWriter
	announcements   announcementCreator
	logs            actionLogStore
	metrics         actionMetrics
	clearsSchedules bool
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewActionService(cfg ActionServiceConfig) *ActionService {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ActionService{
		advisor:         cfg.Advisor,
		buses:           cfg.Buses,
		schedules:       cfg.Schedules,
		announcements:   cfg.Announcements,
		logs:            cfg.Logs,
		metrics:         cfg.Metrics,
		clearsSchedules: cfg.DeactivateClearsSchedules,
		validator:       cfg.Validator,
		logger:          cfg.Logger,
	}
}

// Assign binds an Active, free bus to a schedule.
func (s *ActionService) Assign(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	target, state, err := s.prepare(ctx, req, true, true)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, req, target, state, false)
}

// ActivateAndAssign activates a non-Active, free bus and binds it to a schedule.
func (s *ActionService) ActivateAndAssign(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	target, state, err := s.prepare(ctx, req, true, true)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, req, target, state, true)
}

// Activate sets a bus Active. Schedule references are untouched.
func (s *ActionService) Activate(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	_, state, err := s.prepare(ctx, req, false, true)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, req, state)
}

// AddExtraTrip clones a schedule onto an additional Active, free bus.
func (s *ActionService) AddExtraTrip(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	target, state, err := s.prepare(ctx, req, true, true)
	if err != nil {
		return nil, err
	}
	return s.addExtraTrip(ctx, req, target, state)
}

// Deactivate takes a bus out of service.
func (s *ActionService) Deactivate(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	_, state, err := s.prepare(ctx, req, false, true)
	if err != nil {
		return nil, err
	}
	return s.deactivate(ctx, req, state)
}

// Apply executes the current suggestion for a schedule on req.Date.
func (s *ActionService) Apply(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	target, state, err := s.prepare(ctx, req, true, false)
	if err != nil {
		return nil, err
	}
	pass := s.advisor.Compute(target, state)

	var suggestion *models.Suggestion
	for i := range pass.Suggestions {
		if pass.Suggestions[i].Schedule.ID == req.ScheduleID {
			suggestion = &pass.Suggestions[i]
			break
		}
	}
	if suggestion == nil {
		return nil, appErrors.Clone(appErrors.ErrStaleSuggestion, "schedule has no pending suggestion for this date")
	}

	switch suggestion.Action {
	case models.ActionDeactivate:
		req.BusID = suggestion.CurrentBus.ID
		return s.deactivate(ctx, req, state)
	case models.ActionActivate:
		req.BusID = suggestion.SuggestedBus.ID
		return s.activate(ctx, req, state)
	}

	if suggestion.SuggestedBus == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no suitable bus for this suggestion")
	}
	req.BusID = suggestion.SuggestedBus.ID
	switch suggestion.Action {
	case models.ActionAddExtraTrip:
		return s.addExtraTrip(ctx, req, target, state)
	case models.ActionActivateAndAssign:
		return s.assign(ctx, req, target, state, true)
	default:
		return s.assign(ctx, req, target, state, false)
	}
}

// RecentActions lists the latest action logs.
func (s *ActionService) RecentActions(ctx context.Context, limit int) ([]models.ActionLog, error) {
	logs, err := s.logs.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list action logs")
	}
	return logs, nil
}

func (s *ActionService) prepare(ctx context.Context, req ActionRequest, needSchedule, needBus bool) (time.Time, *FleetState, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid action payload")
	}
	if needSchedule && req.ScheduleID == "" {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "scheduleId is required")
	}
	if needBus && req.BusID == "" {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "busId is required")
	}
	target, err := ParseTargetDate(req.Date)
	if err != nil {
		return time.Time{}, nil, err
	}
	state, err := s.advisor.Load(ctx)
	if err != nil {
		return time.Time{}, nil, err
	}
	return target, state, nil
}

func (s *ActionService) assign(ctx context.Context, req ActionRequest, target time.Time, state *FleetState, activate bool) (*ActionResult, error) {
	schedule, route, bus, err := lookupTrip(state, req)
	if err != nil {
		return nil, err
	}
	if activate && bus.Status == models.BusStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bus is already Active; assign it directly")
	}
	if !activate && bus.Status != models.BusStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bus is %s; activate it first", bus.Status))
	}
	if err := ensureFree(state, target, bus.ID, schedule.ID); err != nil {
		return nil, err
	}

	action := models.ActionAssign
	p := &plan{}
	if activate {
		action = models.ActionActivateAndAssign
		active := models.BusStatusActive
		p.add("activate_bus", bus.ID, func(ctx context.Context) error {
			return s.buses.Update(ctx, bus.ID, models.BusUpdate{Status: &active})
		})
	}
	p.add("set_schedule_bus", schedule.ID, func(ctx context.Context) error {
		return s.schedules.SetBus(ctx, schedule.ID, bus.ID)
	})
	p.add("set_bus_route", bus.ID, func(ctx context.Context) error {
		return s.buses.Update(ctx, bus.ID, models.BusUpdate{AssignedRouteID: &route.ID})
	})
	p.announce(s.announcements, CreateAnnouncementRequest{
		Title: "Bus Assignment: " + route.Destination,
		Message: fmt.Sprintf("For the trip on %s, Bus %s (Capacity: %d) has been assigned to the route from %s to %s.",
			req.Date, bus.Number, bus.Capacity, route.Origin, route.Destination),
		BusID:   &bus.ID,
		RouteID: &route.ID,
	})
	return s.execute(ctx, req, action, p)
}

func (s *ActionService) activate(ctx context.Context, req ActionRequest, state *FleetState) (*ActionResult, error) {
	bus, ok := state.Bus(req.BusID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
	}
	if bus.Status == models.BusStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bus is already Active")
	}

	active := models.BusStatusActive
	p := &plan{}
	p.add("activate_bus", bus.ID, func(ctx context.Context) error {
		return s.buses.Update(ctx, bus.ID, models.BusUpdate{Status: &active})
	})
	p.announce(s.announcements, CreateAnnouncementRequest{
		Title:   "Bus Activated: " + bus.Number,
		Message: fmt.Sprintf("Bus %s (Capacity: %d) is back in service from %s.", bus.Number, bus.Capacity, req.Date),
		BusID:   &bus.ID,
		RouteID: bus.AssignedRouteID,
	})
	return s.execute(ctx, req, models.ActionActivate, p)
}

func (s *ActionService) addExtraTrip(ctx context.Context, req ActionRequest, target time.Time, state *FleetState) (*ActionResult, error) {
	schedule, route, bus, err := lookupTrip(state, req)
	if err != nil {
		return nil, err
	}
	if bus.Status != models.BusStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bus is %s; activate it first", bus.Status))
	}
	if err := ensureFree(state, target, bus.ID, ""); err != nil {
		return nil, err
	}

	parentID := schedule.ID
	if schedule.IsExtraTrip() {
		parentID = *schedule.ParentID
	}
	extra := &models.Schedule{
		RouteID:       schedule.RouteID,
		BusID:         &bus.ID,
		DepartureTime: schedule.DepartureTime,
		ArrivalTime:   schedule.ArrivalTime,
		DayOfWeek:     schedule.DayOfWeek,
		ParentID:      &parentID,
	}
	p := &plan{}
	p.add("create_schedule", schedule.ID, func(ctx context.Context) error {
		return s.schedules.Create(ctx, extra)
	})
	p.announce(s.announcements, CreateAnnouncementRequest{
		Title: "Extra Bus: " + route.Destination,
		Message: fmt.Sprintf("For the trip on %s, an extra Bus %s (Capacity: %d) will run from %s to %s at %s.",
			req.Date, bus.Number, bus.Capacity, route.Origin, route.Destination, schedule.DepartureTime),
		BusID:   &bus.ID,
		RouteID: &route.ID,
	})
	return s.execute(ctx, req, models.ActionAddExtraTrip, p)
}

func (s *ActionService) deactivate(ctx context.Context, req ActionRequest, state *FleetState) (*ActionResult, error) {
	bus, ok := state.Bus(req.BusID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
	}
	if bus.Status == models.BusStatusInactive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bus is already Inactive")
	}

	inactive := models.BusStatusInactive
	update := models.BusUpdate{Status: &inactive}
	p := &plan{}
	if s.clearsSchedules {
		update.ClearAssignedRoute = true
		p.add("clear_schedule_refs", bus.ID, func(ctx context.Context) error {
			_, err := s.schedules.ClearBus(ctx, bus.ID)
			return err
		})
	}
	p.add("deactivate_bus", bus.ID, func(ctx context.Context) error {
		return s.buses.Update(ctx, bus.ID, update)
	})
	p.announce(s.announcements, CreateAnnouncementRequest{
		Title:   "Bus Deactivated: " + bus.Number,
		Message: fmt.Sprintf("Bus %s has been taken out of service from %s.", bus.Number, req.Date),
		BusID:   &bus.ID,
		RouteID: bus.AssignedRouteID,
	})
	return s.execute(ctx, req, models.ActionDeactivate, p)
}

func (s *ActionService) execute(ctx context.Context, req ActionRequest, action models.SuggestionAction, p *plan) (*ActionResult, error) {
	// an action in flight is not cancelled with its request
	ctx = context.WithoutCancel(ctx)

	log := &models.ActionLog{
		Action:     action,
		ActorID:    req.ActorID,
		ScheduleID: optionalID(req.ScheduleID),
		BusID:      optionalID(req.BusID),
		TargetDate: req.Date,
		Steps:      p.planned(),
	}
	if err := s.logs.Create(ctx, log); err != nil {
		s.observe(action, models.ActionStatusFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record action")
	}

	var failure error
	for i, st := range p.steps {
		if err := st.run(ctx); err != nil {
			log.Steps[i].Error = err.Error()
			failure = err
			break
		}
		log.Steps[i].Done = true
	}

	done := log.Steps.Completed()
	switch {
	case failure == nil:
		log.Status = models.ActionStatusCompleted
	case done == 0:
		log.Status = models.ActionStatusFailed
	default:
		log.Status = models.ActionStatusPartial
	}
	if failure != nil {
		msg := failure.Error()
		log.ErrorMessage = &msg
	}
	if err := s.logs.Update(ctx, log); err != nil {
		s.logger.Warn("failed to update action log", zap.String("action_log_id", log.ID), zap.Error(err))
	}
	s.observe(action, log.Status)

	if failure != nil {
		s.logger.Error("advisor action failed",
			zap.String("action", string(action)),
			zap.String("action_log_id", log.ID),
			zap.Int("completed_steps", done),
			zap.Int("planned_steps", len(log.Steps)),
			zap.Error(failure),
		)
		details := map[string]interface{}{"actionLogId": log.ID, "steps": log.Steps}
		if done == 0 {
			return nil, appErrors.WithDetails(appErrors.Wrap(failure, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message), details)
		}
		return nil, appErrors.WithDetails(appErrors.Wrap(failure, appErrors.ErrPartialAction.Code, appErrors.ErrPartialAction.Status, appErrors.ErrPartialAction.Message), details)
	}

	s.logger.Info("advisor action applied",
		zap.String("action", string(action)),
		zap.String("actor_id", req.ActorID),
		zap.String("action_log_id", log.ID),
	)
	result := &ActionResult{
		Action:       action,
		ActionLogID:  log.ID,
		Status:       log.Status,
		Steps:        log.Steps,
		Announcement: p.announcement,
	}
	pass, err := s.advisor.Refresh(ctx, req.Date)
	if err != nil {
		s.logger.Warn("reload after action failed", zap.String("action_log_id", log.ID), zap.Error(err))
		result.ReloadFailed = true
		return result, nil
	}
	result.Pass = pass
	return result, nil
}

func (s *ActionService) observe(action models.SuggestionAction, status models.ActionStatus) {
	if s.metrics != nil {
		s.metrics.ObserveAction(action, status)
	}
}

type step struct {
	name   string
	target string
	run    func(context.Context) error
}

type plan struct {
	steps        []step
	announcement *models.Announcement
}

func (p *plan) add(name, target string, run func(context.Context) error) {
	p.steps = append(p.steps, step{name: name, target: target, run: run})
}

// announce appends the announcement write; it is always the last step.
func (p *plan) announce(creator announcementCreator, req CreateAnnouncementRequest) {
	target := ""
	if req.RouteID != nil {
		target = *req.RouteID
	}
	p.add("create_announcement", target, func(ctx context.Context) error {
		announcement, err := creator.Create(ctx, req)
		if err != nil {
			return err
		}
		p.announcement = announcement
		return nil
	})
}

func (p *plan) planned() models.ActionSteps {
	steps := make(models.ActionSteps, len(p.steps))
	for i, st := range p.steps {
		steps[i] = models.ActionStep{Name: st.name, Target: st.target}
	}
	return steps
}

func lookupTrip(state *FleetState, req ActionRequest) (models.Schedule, models.Route, models.Bus, error) {
	schedule, ok := state.Schedule(req.ScheduleID)
	if !ok {
		return models.Schedule{}, models.Route{}, models.Bus{}, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	route, ok := state.Route(schedule.RouteID)
	if !ok {
		return models.Schedule{}, models.Route{}, models.Bus{}, appErrors.Clone(appErrors.ErrNotFound, "route of schedule not found")
	}
	bus, ok := state.Bus(req.BusID)
	if !ok {
		return models.Schedule{}, models.Route{}, models.Bus{}, appErrors.Clone(appErrors.ErrNotFound, "bus not found")
	}
	return schedule, route, bus, nil
}

// ensureFree rejects a bus already bound to another schedule operating on target.
func ensureFree(state *FleetState, target time.Time, busID, exceptScheduleID string) error {
	for _, schedule := range OperatingSchedules(target, state.Schedules) {
		if schedule.ID == exceptScheduleID || !schedule.HasBus() {
			continue
		}
		if *schedule.BusID == busID {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "bus already serves another trip on this date"),
				map[string]string{"scheduleId": schedule.ID},
			)
		}
	}
	return nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
