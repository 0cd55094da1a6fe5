package models

// GeoPoint represents a geographical location with latitude and longitude coordinates.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}
