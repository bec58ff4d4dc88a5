package types

import "time"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoLocation pairs a street address with its coordinates. Embedded into
// models with a column prefix per usage site.
type GeoLocation struct {
	Address string  `json:"address" gorm:"type:text"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// TrackedLocation is a GPS snapshot with the time it was reported.
type TrackedLocation struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ReportedAt time.Time `json:"reported_at"`
}
