package gis

import "math"

// polyline5 precision used by Google-style encoded polylines.
const polylinePrecision = 1e-5

// endpointDuplicateToleranceMeters is how close the final path vertex may be
// to the last emitted sample before appending it would create a near-duplicate.
const endpointDuplicateToleranceMeters = 5

// DecodePolyline decodes a Google polyline5 encoded string into its vertices.
// Truncated input yields the vertices decoded so far.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
func DecodePolyline(encoded string) []Point {
	points := make([]Point, 0, len(encoded)/4+1)
	index, lat, lng := 0, 0, 0

	readVarint := func() (int, bool) {
		result, shift := 0, 0
		for {
			if index >= len(encoded) {
				return 0, false
			}
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}
		return (result >> 1) ^ (-(result & 1)), true
	}

	for index < len(encoded) {
		dLat, ok := readVarint()
		if !ok {
			break
		}
		dLng, ok := readVarint()
		if !ok {
			break
		}
		lat += dLat
		lng += dLng
		points = append(points, Point{
			Lat: float64(lat) * polylinePrecision,
			Lng: float64(lng) * polylinePrecision,
		})
	}
	return points
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(points []Point) string {
	var out []byte
	prevLat, prevLng := 0, 0

	writeVarint := func(v int) {
		v <<= 1
		if v < 0 {
			v = ^v
		}
		for v >= 0x20 {
			out = append(out, byte(0x20|(v&0x1f))+63)
			v >>= 5
		}
		out = append(out, byte(v)+63)
	}

	for _, p := range points {
		lat := int(math.Round(p.Lat / polylinePrecision))
		lng := int(math.Round(p.Lng / polylinePrecision))
		writeVarint(lat - prevLat)
		writeVarint(lng - prevLng)
		prevLat, prevLng = lat, lng
	}
	return string(out)
}

// SampledPoint is one element of a resampled path. Index is the ordinal
// position along the path, used for ordering and debugging only.
type SampledPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Index uint    `json:"index"`
}

func (s SampledPoint) Point() Point {
	return Point{Lat: s.Lat, Lng: s.Lng}
}

// Resample decodes an encoded polyline and walks it emitting evenly spaced
// samples every intervalMeters, linearly interpolating within each segment.
// Segment lengths are on the order of hundreds of meters, so linear lat/lng
// interpolation is an acceptable approximation. The final vertex is appended
// unless the last sample already sits within 5 meters of it. Empty or
// single-vertex polylines yield no samples.
func Resample(encoded string, intervalMeters float64) []SampledPoint {
	return ResampleVertices(DecodePolyline(encoded), intervalMeters)
}

// ResampleVertices is a single pass over consecutive vertex pairs with a
// running cumulative distance; no backtracking.
func ResampleVertices(vertices []Point, intervalMeters float64) []SampledPoint {
	if len(vertices) < 2 || intervalMeters <= 0 {
		return nil
	}

	samples := []SampledPoint{{Lat: vertices[0].Lat, Lng: vertices[0].Lng, Index: 0}}
	nextIndex := uint(1)
	cumulative := 0.0

	for i := 0; i < len(vertices)-1; i++ {
		a, b := vertices[i], vertices[i+1]
		segLen := Haversine(a, b)
		if segLen == 0 {
			continue
		}
		segStart := cumulative
		segEnd := cumulative + segLen

		for target := float64(nextIndex) * intervalMeters; target <= segEnd; target = float64(nextIndex) * intervalMeters {
			frac := (target - segStart) / segLen
			samples = append(samples, SampledPoint{
				Lat:   a.Lat + (b.Lat-a.Lat)*frac,
				Lng:   a.Lng + (b.Lng-a.Lng)*frac,
				Index: nextIndex,
			})
			nextIndex++
		}
		cumulative = segEnd
	}

	last := vertices[len(vertices)-1]
	tail := samples[len(samples)-1]
	if Haversine(tail.Point(), last) > endpointDuplicateToleranceMeters {
		samples = append(samples, SampledPoint{Lat: last.Lat, Lng: last.Lng, Index: nextIndex})
	}
	return samples
}
