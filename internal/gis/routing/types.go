package routing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"routesight/internal/gis"
)

type TravelMode string

const (
	TravelModeDrive    TravelMode = "DRIVE"
	TravelModeTwoWheel TravelMode = "TWO_WHEELER"
	TravelModeWalk     TravelMode = "WALK"
)

func (m TravelMode) IsValid() bool {
	switch m {
	case TravelModeDrive, TravelModeTwoWheel, TravelModeWalk:
		return true
	default:
		return false
	}
}

type RoutingPreference string

const (
	PreferTrafficAware   RoutingPreference = "TRAFFIC_AWARE"
	PreferTrafficUnaware RoutingPreference = "TRAFFIC_UNAWARE"
)

type RouteRequest struct {
	Origin            gis.Point         `json:"origin"`
	Destination       gis.Point         `json:"destination"`
	TravelMode        TravelMode        `json:"travelMode"`
	RoutingPreference RoutingPreference `json:"routingPreference"`
	Alternatives      bool              `json:"alternatives"`
}

func (r RouteRequest) Validate() error {
	if !r.Origin.Validate() {
		return errors.New("invalid origin")
	}
	if !r.Destination.Validate() {
		return errors.New("invalid destination")
	}
	if !r.TravelMode.IsValid() {
		return fmt.Errorf("travel mode %q is invalid", r.TravelMode)
	}
	return nil
}

// Wire types, matching the provider's response shape.

// wireDuration is the provider's "123s" duration encoding.
type wireDuration string

func (d wireDuration) Seconds() float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(string(d), "s"), 64)
	if err != nil {
		return 0
	}
	return v
}

type routeResponse struct {
	Routes []wireRoute `json:"routes"`
}

type wireRoute struct {
	DistanceMeters float64      `json:"distanceMeters"`
	Duration       wireDuration `json:"duration"`
	Polyline       wirePolyline `json:"polyline"`
	Legs           []wireLeg    `json:"legs"`
}

type wirePolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}

type wireLeg struct {
	Steps []wireStep `json:"steps"`
}

type wireStep struct {
	DistanceMeters float64      `json:"distanceMeters"`
	Duration       wireDuration `json:"duration"`
	StartLocation  wireLocation `json:"startLocation"`
	EndLocation    wireLocation `json:"endLocation"`
	Polyline       wirePolyline `json:"polyline"`
}

type wireLocation struct {
	LatLng gis.Point `json:"latLng"`
}

// Domain types returned to callers. Immutable once produced.

type Step struct {
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartLocation   gis.Point `json:"start_location"`
	EndLocation     gis.Point `json:"end_location"`
	EncodedPolyline string    `json:"encoded_polyline"`
}

type RouteCandidate struct {
	Label           string  `json:"label"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	EncodedPolyline string  `json:"encoded_polyline"`
	Steps           []Step  `json:"steps"`
}

func (w wireRoute) toCandidate(label string) RouteCandidate {
	candidate := RouteCandidate{
		Label:           label,
		DistanceMeters:  w.DistanceMeters,
		DurationSeconds: w.Duration.Seconds(),
		EncodedPolyline: w.Polyline.EncodedPolyline,
	}
	for _, leg := range w.Legs {
		for _, s := range leg.Steps {
			candidate.Steps = append(candidate.Steps, Step{
				DistanceMeters:  s.DistanceMeters,
				DurationSeconds: s.Duration.Seconds(),
				StartLocation:   s.StartLocation.LatLng,
				EndLocation:     s.EndLocation.LatLng,
				EncodedPolyline: s.Polyline.EncodedPolyline,
			})
		}
	}
	return candidate
}
