package dto

// UpdateAnnouncementRequest toggles visibility of an announcement.
type UpdateAnnouncementRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
