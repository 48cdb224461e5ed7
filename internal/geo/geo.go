// Package geo provides great-circle distance and bounding-box helpers used to
// answer "restaurants near a point" queries.
package geo

import (
	"math"
	"sort"
)

const (
	// EarthRadiusKm is the mean Earth radius used by HaversineKm.
	EarthRadiusKm = 6371.0

	// KmPerDegree is the approximate length of one degree of latitude.
	KmPerDegree = 111.32

	// boxEpsilon pads every box edge so points exactly on the radius survive
	// floating-point rounding.
	boxEpsilon = 1e-9
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within the legal coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push a just past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance returns the haversine distance from p to q in kilometres.
func (p Point) Distance(q Point) float64 {
	return HaversineKm(p.Lat, p.Lng, q.Lat, q.Lng)
}

// BoundingBox is a lat/lng window used as a cheap pre-filter.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// BoundingBoxFor returns a box that contains every point within radiusKm of
// (lat, lng). The box may be larger than necessary but never smaller: the
// 111.32 km/degree approximation is widened to the exact spherical extent
// wherever that is larger, latitude is clamped at the poles, and the full
// longitude range is used when the circle reaches a pole or wraps the
// antimeridian.
func BoundingBoxFor(lat, lng, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}

	angular := radiusKm / EarthRadiusKm // radians
	latDelta := math.Max(radiusKm/KmPerDegree, toDegrees(angular)) + boxEpsilon

	box := BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
	}

	cosLat := math.Cos(toRadians(lat))
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat <= 0 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.MinLng, box.MaxLng = -180, 180
		return box
	}

	approx := radiusKm / (KmPerDegree * cosLat)
	ratio := math.Sin(angular) / cosLat
	if ratio >= 1 || angular >= math.Pi/2 {
		box.MinLng, box.MaxLng = -180, 180
		return box
	}
	lngDelta := math.Max(approx, toDegrees(math.Asin(ratio))) + boxEpsilon

	box.MinLng = lng - lngDelta
	box.MaxLng = lng + lngDelta
	if box.MinLng < -180 || box.MaxLng > 180 {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Match is an item that survived the exact distance filter.
type Match[T any] struct {
	Item       T
	DistanceKm float64
}

// WithinRadius keeps the items whose exact distance from center is at most
// radiusKm and returns them nearest first. locate extracts an item's position.
func WithinRadius[T any](center Point, radiusKm float64, items []T, locate func(T) Point) []Match[T] {
	matches := make([]Match[T], 0, len(items))
	for _, item := range items {
		d := center.Distance(locate(item))
		if d <= radiusKm {
			matches = append(matches, Match[T]{Item: item, DistanceKm: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
