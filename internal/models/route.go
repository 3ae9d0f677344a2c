package models

// Route is read-only input to the advisor.
type Route struct {
	ID          string   `db:"id" json:"id"`
	Origin      string   `db:"origin" json:"origin"`
	Destination string   `db:"destination" json:"destination"`
	Via         *string  `db:"via" json:"via,omitempty"`
	DistanceKm  *float64 `db:"distance_km" json:"distanceKm,omitempty"`
}

// Label renders "origin - destination".
func (r Route) Label() string {
	return r.Origin + " - " + r.Destination
}
