package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	"github.com/campus-shuttle/shuttle-api/pkg/config"
)

const underutilizationEpsilon = 1e-9

// AdvisorPolicy holds the tunable constants of the advisor.
type AdvisorPolicy struct {
	UnderutilizationThreshold float64
	DefaultBusCapacity        int
}

// DefaultAdvisorPolicy returns the stock thresholds.
func DefaultAdvisorPolicy() AdvisorPolicy {
	return AdvisorPolicy{
		UnderutilizationThreshold: config.DefaultUnderutilizationThreshold,
		DefaultBusCapacity:        config.DefaultBusCapacity,
	}
}

func (p AdvisorPolicy) normalized() AdvisorPolicy {
	if p.UnderutilizationThreshold <= 0 || p.UnderutilizationThreshold >= 1 {
		p.UnderutilizationThreshold = config.DefaultUnderutilizationThreshold
	}
	if p.DefaultBusCapacity <= 0 {
		p.DefaultBusCapacity = config.DefaultBusCapacity
	}
	return p
}

// SuggestionInput is everything one classification pass reads.
type SuggestionInput struct {
	Operating   []models.Schedule
	Demand      map[string]int
	Buses       []models.Bus
	Routes      []models.Route
	Quarantined map[string]struct{} // bus ids dropped at the record boundary
}

// SuggestionGenerator classifies operating schedules into corrective actions.
type SuggestionGenerator struct {
	policy AdvisorPolicy
	logger *zap.Logger
}

// NewSuggestionGenerator constructs a generator; out-of-range policy values fall back to defaults.
func NewSuggestionGenerator(policy AdvisorPolicy, logger *zap.Logger) *SuggestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionGenerator{policy: policy.normalized(), logger: logger}
}

// Generate yields at most one suggestion per operating schedule, ordered by category
// precedence, then demand descending, then departure time and schedule id.
// Schedules whose route cannot be resolved are skipped and returned by id.
func (g *SuggestionGenerator) Generate(in SuggestionInput) ([]models.Suggestion, []string) {
	routes := make(map[string]models.Route, len(in.Routes))
	for _, route := range in.Routes {
		routes[route.ID] = route
	}
	buses := make(map[string]models.Bus, len(in.Buses))
	for _, bus := range in.Buses {
		buses[bus.ID] = bus
	}
	available := sortByFit(AvailableBuses(in.Buses, in.Operating))
	idleInactive := sortByFit(IdleInactiveBuses(in.Buses, in.Operating))
	extras := extraTripsByParent(in.Operating)

	suggestions := make([]models.Suggestion, 0)
	var skipped []string
	for _, schedule := range in.Operating {
		route, ok := routes[schedule.RouteID]
		if !ok {
			g.logger.Warn("skipping schedule with unknown route",
				zap.String("schedule_id", schedule.ID),
				zap.String("route_id", schedule.RouteID),
			)
			skipped = append(skipped, schedule.ID)
			continue
		}

		var current *models.Bus
		if schedule.HasBus() {
			if bus, ok := buses[*schedule.BusID]; ok {
				current = &bus
			} else if isQuarantined(schedule, in.Quarantined) {
				g.logger.Warn("schedule references quarantined bus",
					zap.String("schedule_id", schedule.ID),
					zap.String("bus_id", *schedule.BusID),
				)
			} else {
				g.logger.Warn("schedule references unknown bus",
					zap.String("schedule_id", schedule.ID),
					zap.String("bus_id", *schedule.BusID),
				)
			}
		}

		// an extra trip is part of its parent's seat pool; only a stopped bus is reported
		if _, grouped := extras.parentOperating[schedule.ID]; grouped {
			if current != nil && current.Status != models.BusStatusActive {
				s := g.activationNeeded(current, in.Demand[schedule.ID], available, idleInactive)
				s.Schedule, s.Route, s.CurrentBus, s.Demand = schedule, route, current, in.Demand[schedule.ID]
				suggestions = append(suggestions, s)
			}
			continue
		}

		demand := in.Demand[schedule.ID]
		trip := tripContext{
			schedule:    schedule,
			current:     current,
			demand:      demand,
			extraSeats:  extras.seats(schedule.ID, buses),
			quarantined: isQuarantined(schedule, in.Quarantined),
		}
		suggestion, ok := g.classify(trip, available, idleInactive)
		if !ok {
			continue
		}
		suggestion.Schedule = schedule
		suggestion.Route = route
		suggestion.CurrentBus = current
		suggestion.Demand = demand
		suggestions = append(suggestions, suggestion)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Category.Rank() != b.Category.Rank() {
			return a.Category.Rank() < b.Category.Rank()
		}
		if a.Demand != b.Demand {
			return a.Demand > b.Demand
		}
		if a.Schedule.DepartureTime != b.Schedule.DepartureTime {
			return a.Schedule.DepartureTime < b.Schedule.DepartureTime
		}
		return a.Schedule.ID < b.Schedule.ID
	})
	return suggestions, skipped
}

// tripContext is one operating schedule as the classifier sees it.
type tripContext struct {
	schedule    models.Schedule
	current     *models.Bus
	demand      int
	extraSeats  int // Active capacity on this schedule's extra trips
	quarantined bool
}

func (t tripContext) seats() int {
	return t.current.Capacity + t.extraSeats
}

func (t tripContext) carriedBy() string {
	if t.extraSeats == 0 {
		return fmt.Sprintf("bus %s (capacity %d)", t.current.Number, t.current.Capacity)
	}
	return fmt.Sprintf("bus %s and its extra trips (capacity %d)", t.current.Number, t.seats())
}

func (g *SuggestionGenerator) classify(trip tripContext, available, idleInactive []models.Bus) (models.Suggestion, bool) {
	schedule, current, demand := trip.schedule, trip.current, trip.demand
	switch {
	case current != nil && current.Status != models.BusStatusActive:
		return g.activationNeeded(current, demand, available, idleInactive), true

	case current != nil && demand > trip.seats():
		overflow := demand - trip.seats()
		s := models.Suggestion{Category: models.CategoryAddExtraBus, Action: models.ActionAddExtraTrip}
		if candidate := tightestFit(available, overflow); candidate != nil {
			s.SuggestedBus = candidate
			s.Reason = fmt.Sprintf("%d booked on %s, %d over; run bus %s (capacity %d) as an extra trip.",
				demand, trip.carriedBy(), overflow, candidate.Number, candidate.Capacity)
		} else {
			s.Reason = fmt.Sprintf("%d booked on %s, %d over; no suitable bus with at least %d seats is free.",
				demand, trip.carriedBy(), overflow, overflow)
		}
		return s, true

	case current == nil:
		s := models.Suggestion{Category: models.CategoryAssignmentNeeded, Action: models.ActionAssign}
		lead := "No bus assigned"
		switch {
		case trip.quarantined:
			lead = fmt.Sprintf("Assigned bus %s has an invalid record and was ignored", *schedule.BusID)
		case schedule.HasBus():
			lead = fmt.Sprintf("Assigned bus %s does not exist", *schedule.BusID)
		}
		if candidate := tightestFit(available, demand); candidate != nil {
			s.SuggestedBus = candidate
			s.Reason = fmt.Sprintf("%s; bus %s (capacity %d) fits %d booked seats.", lead, candidate.Number, candidate.Capacity, demand)
		} else if candidate := tightestFit(idleInactive, demand); candidate != nil {
			s.Action = models.ActionActivateAndAssign
			s.SuggestedBus = candidate
			s.Reason = fmt.Sprintf("%s; no active bus fits %d booked seats, activate bus %s (capacity %d).", lead, demand, candidate.Number, candidate.Capacity)
		} else {
			s.Reason = fmt.Sprintf("%s; no suitable bus with at least %d seats.", lead, demand)
		}
		return s, true

	case g.belowThreshold(demand, trip.seats()):
		return models.Suggestion{
			Category: models.CategoryUnderutilized,
			Action:   models.ActionDeactivate,
			Reason: fmt.Sprintf("Only %d of %d seats booked on %s; consider deactivating bus %s.",
				demand, trip.seats(), trip.carriedBy(), current.Number),
		}, true
	}
	return models.Suggestion{}, false
}

func (g *SuggestionGenerator) activationNeeded(current *models.Bus, demand int, available, idleInactive []models.Bus) models.Suggestion {
	s := models.Suggestion{Category: models.CategoryActivationNeeded}
	if current.Status == models.BusStatusInactive {
		bus := *current
		s.Action = models.ActionActivate
		s.SuggestedBus = &bus
		s.Reason = fmt.Sprintf("Bus %s is Inactive; reactivate it for %d booked seats.", current.Number, demand)
		return s
	}

	if candidate := tightestFit(available, demand); candidate != nil {
		s.Action = models.ActionAssign
		s.SuggestedBus = candidate
		s.Reason = fmt.Sprintf("Bus %s is in %s; assign bus %s (capacity %d) instead.", current.Number, current.Status, candidate.Number, candidate.Capacity)
		return s
	}
	if candidate := tightestFit(idleInactive, demand); candidate != nil {
		s.Action = models.ActionActivateAndAssign
		s.SuggestedBus = candidate
		s.Reason = fmt.Sprintf("Bus %s is in %s; activate bus %s (capacity %d) instead.", current.Number, current.Status, candidate.Number, candidate.Capacity)
		return s
	}
	s.Action = models.ActionAssign
	s.Reason = fmt.Sprintf("Bus %s is in %s; no suitable bus with at least %d seats.", current.Number, current.Status, demand)
	return s
}

func (g *SuggestionGenerator) belowThreshold(demand, capacity int) bool {
	return float64(demand) < g.policy.UnderutilizationThreshold*float64(capacity)-underutilizationEpsilon
}

// tripGroups indexes operating extra trips by the operating schedule they extend.
type tripGroups struct {
	byParent map[string][]models.Schedule
	// parentOperating holds ids of extra trips whose parent operates on the same date.
	parentOperating map[string]struct{}
}

func extraTripsByParent(operating []models.Schedule) tripGroups {
	ids := make(map[string]struct{}, len(operating))
	for _, schedule := range operating {
		ids[schedule.ID] = struct{}{}
	}
	groups := tripGroups{byParent: map[string][]models.Schedule{}, parentOperating: map[string]struct{}{}}
	for _, schedule := range operating {
		if !schedule.IsExtraTrip() {
			continue
		}
		if _, ok := ids[*schedule.ParentID]; !ok {
			continue
		}
		groups.byParent[*schedule.ParentID] = append(groups.byParent[*schedule.ParentID], schedule)
		groups.parentOperating[schedule.ID] = struct{}{}
	}
	return groups
}

// seats sums the capacity of Active buses on the extra trips of parentID.
func (t tripGroups) seats(parentID string, buses map[string]models.Bus) int {
	total := 0
	for _, extra := range t.byParent[parentID] {
		if !extra.HasBus() {
			continue
		}
		if bus, ok := buses[*extra.BusID]; ok && bus.Status == models.BusStatusActive {
			total += bus.Capacity
		}
	}
	return total
}

func isQuarantined(schedule models.Schedule, quarantined map[string]struct{}) bool {
	if !schedule.HasBus() {
		return false
	}
	_, ok := quarantined[*schedule.BusID]
	return ok
}

// sortByFit orders buses by capacity then id, so the first match is the tightest fit.
func sortByFit(buses []models.Bus) []models.Bus {
	sort.SliceStable(buses, func(i, j int) bool {
		if buses[i].Capacity != buses[j].Capacity {
			return buses[i].Capacity < buses[j].Capacity
		}
		return buses[i].ID < buses[j].ID
	})
	return buses
}

// tightestFit returns the first bus in sorted with capacity >= need.
func tightestFit(sorted []models.Bus, need int) *models.Bus {
	for i := range sorted {
		if sorted[i].Capacity >= need {
			bus := sorted[i]
			return &bus
		}
	}
	return nil
}
