package gis

import "math"

// EarthRadius in meters
const EarthRadius = 6378137

// Degrees to radians conversion
const degToRad = math.Pi / 180

// Point is an immutable geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Validate() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Haversine distance between two points in meters
func Haversine(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad

	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad

	sinDlat := math.Sin(dLat / 2)
	sinDlng := math.Sin(dLng / 2)

	aVal := sinDlat*sinDlat + sinDlng*sinDlng*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(aVal), math.Sqrt(1-aVal))
	return EarthRadius * c
}
