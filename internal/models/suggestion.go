package models

// SuggestionCategory classifies an operating schedule that needs attention.
type SuggestionCategory string

const (
	CategoryActivationNeeded SuggestionCategory = "ACTIVATION_NEEDED"
	CategoryAddExtraBus      SuggestionCategory = "ADD_EXTRA_BUS"
	CategoryAssignmentNeeded SuggestionCategory = "ASSIGNMENT_NEEDED"
	CategoryUnderutilized    SuggestionCategory = "UNDERUTILIZED"
)

// Categories lists every category in precedence order.
var Categories = []SuggestionCategory{
	CategoryActivationNeeded,
	CategoryAddExtraBus,
	CategoryAssignmentNeeded,
	CategoryUnderutilized,
}

// Rank is the sort precedence; lower sorts first.
func (c SuggestionCategory) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// Label is the human readable category name.
func (c SuggestionCategory) Label() string {
	switch c {
	case CategoryActivationNeeded:
		return "Activation Needed"
	case CategoryAddExtraBus:
		return "Add Extra Bus"
	case CategoryAssignmentNeeded:
		return "Assignment Needed"
	case CategoryUnderutilized:
		return "Underutilized"
	}
	return string(c)
}

// SuggestionAction names the executor operation that resolves a suggestion.
type SuggestionAction string

const (
	ActionAssign            SuggestionAction = "assign"
	ActionActivate          SuggestionAction = "activate"
	ActionActivateAndAssign SuggestionAction = "activate_and_assign"
	ActionAddExtraTrip      SuggestionAction = "add_extra_trip"
	ActionDeactivate        SuggestionAction = "deactivate"
)

// Suggestion is one corrective action produced by an advisory pass. Never persisted.
type Suggestion struct {
	Category     SuggestionCategory `json:"category"`
	Action       SuggestionAction   `json:"action"`
	Schedule     Schedule           `json:"schedule"`
	Route        Route              `json:"route"`
	CurrentBus   *Bus               `json:"currentBus"`
	Demand       int                `json:"demand"`
	SuggestedBus *Bus               `json:"suggestedBus"`
	Reason       string             `json:"reason"`
}

// AdvisoryPass is the result of one read-compute cycle for a date.
type AdvisoryPass struct {
	Date        string       `json:"date"`
	Weekday     string       `json:"weekday"`
	Suggestions []Suggestion `json:"suggestions"`
	Operating   int          `json:"operatingSchedules"`
	Skipped     []string     `json:"skippedSchedules,omitempty"`
}
