package gis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePolyline_KnownValue(t *testing.T) {
	// Example from the Google polyline algorithm documentation.
	points := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")

	require.Len(t, points, 3)
	assert.InDelta(t, 38.5, points[0].Lat, 1e-9)
	assert.InDelta(t, -120.2, points[0].Lng, 1e-9)
	assert.InDelta(t, 40.7, points[1].Lat, 1e-9)
	assert.InDelta(t, -120.95, points[1].Lng, 1e-9)
	assert.InDelta(t, 43.252, points[2].Lat, 1e-9)
	assert.InDelta(t, -126.453, points[2].Lng, 1e-9)
}

func TestEncodePolyline_RoundTrip(t *testing.T) {
	original := []Point{
		{Lat: 48.85837, Lng: 2.29448},
		{Lat: 48.86037, Lng: 2.29748},
		{Lat: 48.86437, Lng: 2.30148},
	}

	decoded := DecodePolyline(EncodePolyline(original))
	require.Len(t, decoded, len(original))
	for i := range original {
		assert.InDelta(t, original[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, original[i].Lng, decoded[i].Lng, 1e-5)
	}
}

func TestDecodePolyline_Empty(t *testing.T) {
	assert.Empty(t, DecodePolyline(""))
}

func TestResample_EmptyAndSingleVertex(t *testing.T) {
	assert.Empty(t, Resample("", 30))
	assert.Empty(t, Resample(EncodePolyline([]Point{{Lat: 48.85, Lng: 2.29}}), 30))
}

func TestResample_Deterministic(t *testing.T) {
	encoded := EncodePolyline([]Point{
		{Lat: 48.85, Lng: 2.29},
		{Lat: 48.853, Lng: 2.294},
		{Lat: 48.857, Lng: 2.30},
	})

	first := Resample(encoded, 30)
	second := Resample(encoded, 30)
	assert.Equal(t, first, second)
}

func TestResample_StartsAtPathStart(t *testing.T) {
	start := Point{Lat: 48.85, Lng: 2.29}
	encoded := EncodePolyline([]Point{start, {Lat: 48.853, Lng: 2.294}})

	samples := Resample(encoded, 30)
	require.NotEmpty(t, samples)
	assert.InDelta(t, start.Lat, samples[0].Lat, 1e-5)
	assert.InDelta(t, start.Lng, samples[0].Lng, 1e-5)
	assert.Equal(t, uint(0), samples[0].Index)
}

func TestResample_SpacingInvariant(t *testing.T) {
	encoded := EncodePolyline([]Point{
		{Lat: 45.0, Lng: 5.0},
		{Lat: 45.002, Lng: 5.001},
		{Lat: 45.004, Lng: 5.004},
		{Lat: 45.005, Lng: 5.009},
	})

	const interval = 30.0
	samples := Resample(encoded, interval)
	require.Greater(t, len(samples), 3)

	// All consecutive interior pairs sit ~interval apart; the final segment
	// may be shorter.
	for i := 0; i < len(samples)-2; i++ {
		d := Haversine(samples[i].Point(), samples[i+1].Point())
		assert.InDelta(t, interval, d, 2.0, "samples %d and %d", i, i+1)
	}

	for i, s := range samples {
		assert.Equal(t, uint(i), s.Index)
	}
}

func TestResample_400MetersAt30(t *testing.T) {
	// Two points ~400m apart along a meridian.
	encoded := EncodePolyline([]Point{
		{Lat: 0, Lng: 0},
		{Lat: 0.0036, Lng: 0},
	})

	samples := Resample(encoded, 30)

	// Start + at least 13 interior samples + the appended endpoint.
	require.GreaterOrEqual(t, len(samples), 15)
	last := samples[len(samples)-1]
	assert.InDelta(t, 0.0036, last.Lat, 1e-9)
}

func TestResample_SkipsNearDuplicateEndpoint(t *testing.T) {
	// Path length a hair over 60m: the sample at 60m lands within 5m of the
	// final vertex, so the endpoint must not be appended again.
	encoded := EncodePolyline([]Point{
		{Lat: 0, Lng: 0},
		{Lat: 0.00055, Lng: 0},
	})

	samples := Resample(encoded, 30)
	require.NotEmpty(t, samples)
	tail := samples[len(samples)-1]
	prev := samples[len(samples)-2]
	assert.Greater(t, Haversine(prev.Point(), tail.Point()), 5.0)
}

func TestResample_ZeroLengthSegments(t *testing.T) {
	p := Point{Lat: 45.0, Lng: 5.0}
	withDupes := EncodePolyline([]Point{p, p, {Lat: 45.002, Lng: 5.001}, {Lat: 45.002, Lng: 5.001}, {Lat: 45.004, Lng: 5.004}})
	without := EncodePolyline([]Point{p, {Lat: 45.002, Lng: 5.001}, {Lat: 45.004, Lng: 5.004}})

	assert.Equal(t, Resample(without, 30), Resample(withDupes, 30))
}
