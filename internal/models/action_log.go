package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionStatus is the final outcome of an executed action.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "PENDING"
	ActionStatusCompleted ActionStatus = "COMPLETED"
	ActionStatusPartial   ActionStatus = "PARTIAL"
	ActionStatusFailed    ActionStatus = "FAILED"
)

// ActionStep is one planned store write of an action.
type ActionStep struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Done   bool   `json:"done"`
	Error  string `json:"error,omitempty"`
}

// ActionSteps persists as a JSON array.
type ActionSteps []ActionStep

// Value marshals the steps for persistence.
func (s ActionSteps) Value() (driver.Value, error) {
	if s == nil {
		s = ActionSteps{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal action steps: %w", err)
	}
	return string(data), nil
}

// Scan unmarshals JSON payloads into the steps slice.
func (s *ActionSteps) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ActionSteps", value)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal action steps: %w", err)
	}
	return nil
}

// Completed counts the steps that were applied.
func (s ActionSteps) Completed() int {
	n := 0
	for _, step := range s {
		if step.Done {
			n++
		}
	}
	return n
}

// ActionLog records the intended and applied writes of one advisor action.
type ActionLog struct {
	ID           string           `db:"id" json:"id"`
	Action       SuggestionAction `db:"action" json:"action"`
	ActorID      string           `db:"actor_id" json:"actorId"`
	ScheduleID   *string          `db:"schedule_id" json:"scheduleId,omitempty"`
	BusID        *string          `db:"bus_id" json:"busId,omitempty"`
	TargetDate   string           `db:"target_date" json:"date"`
	Status       ActionStatus     `db:"status" json:"status"`
	Steps        ActionSteps      `db:"steps" json:"steps"`
	ErrorMessage *string          `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}
