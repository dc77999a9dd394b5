package models

import "encoding/json"

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a longitude/latitude pair.
func NewGeoPoint(lon, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Lon returns the longitude or 0 when the point is unset.
func (p GeoPoint) Lon() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude or 0 when the point is unset.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[1]
}

// IsZero reports whether the point carries no coordinates.
func (p GeoPoint) IsZero() bool {
	return len(p.Coordinates) != 2
}

// PopulatedUser is a reference to a user that is either a bare ID or a full
// embedded profile, so callers can't dereference an unpopulated relation.
type PopulatedUser struct {
	ID   string `json:"id"`
	Full *User  `json:"profile,omitempty"`
}

// Populated reports whether the full profile is embedded.
func (p PopulatedUser) Populated() bool { return p.Full != nil }

// MarshalJSON renders the bare ID as a plain string and a populated
// reference as the full profile object.
func (p PopulatedUser) MarshalJSON() ([]byte, error) {
	if p.Full != nil {
		return json.Marshal(p.Full)
	}
	return json.Marshal(p.ID)
}
