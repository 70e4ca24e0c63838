package gis

import (
	"fmt"
	"math"
)

type TileStatus string

const (
	TileStatusPending  TileStatus = "pending"
	TileStatusFetching TileStatus = "fetching"
	TileStatusCached   TileStatus = "cached"
)

// TileRef addresses one slippy-map tile. Center is the geographic center of
// the tile, which is what gets requested from the imagery provider; static
// image APIs serve images centered on a point, not on tile boundaries.
// Status is a snapshot of the cache at the time of the last check, not a
// guarantee.
type TileRef struct {
	TileID string     `json:"tile_id"`
	Center Point      `json:"center"`
	Zoom   uint8      `json:"zoom"`
	Status TileStatus `json:"status"`
}

// TileID is the deterministic cache key for (zoom, x, y).
func TileID(zoom uint8, x, y int) string {
	return fmt.Sprintf("t_%d_%d_%d", zoom, x, y)
}

// TileXY projects a coordinate to slippy-map tile indices using the standard
// Web Mercator formula.
func TileXY(p Point, zoom uint8) (int, int) {
	numTiles := float64(int(1) << zoom)
	latRad := p.Lat * degToRad
	x := int(math.Floor((p.Lng + 180) / 360 * numTiles))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * numTiles))
	return x, y
}

// TileCenter is the inverse projection of (x, y) offset by half a tile.
func TileCenter(zoom uint8, x, y int) Point {
	numTiles := float64(int(1) << zoom)
	lng := (float64(x)+0.5)/numTiles*360 - 180
	n := math.Pi - 2*math.Pi*(float64(y)+0.5)/numTiles
	lat := math.Atan(math.Sinh(n)) / degToRad
	return Point{Lat: lat, Lng: lng}
}

// TileGrid maps sampled points to the deduplicated set of tiles covering
// them. Multiple samples falling in the same tile produce one TileRef.
func TileGrid(samples []SampledPoint, zoom uint8) []TileRef {
	seen := make(map[string]struct{}, len(samples))
	tiles := make([]TileRef, 0, len(samples))

	for _, s := range samples {
		x, y := TileXY(s.Point(), zoom)
		id := TileID(zoom, x, y)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		tiles = append(tiles, TileRef{
			TileID: id,
			Center: TileCenter(zoom, x, y),
			Zoom:   zoom,
			Status: TileStatusPending,
		})
	}
	return tiles
}
