package project

import "time"

// Project is a construction site workers are assigned to.
type Project struct {
	ID        string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Project) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}
