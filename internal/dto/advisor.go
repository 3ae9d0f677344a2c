package dto

// ActionPayload is the body of every POST /advisor/actions/* call.
// Date defaults to today in the advisor timezone.
type ActionPayload struct {
	ScheduleID string `json:"scheduleId" validate:"omitempty,max=64"`
	BusID      string `json:"busId" validate:"omitempty,max=64"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ReportRequest captures POST /advisor/reports.
type ReportRequest struct {
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}
