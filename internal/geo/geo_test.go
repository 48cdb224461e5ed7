package geo

import (
	"math"
	"math/rand"
	"testing"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", -6.2, 106.8, -6.2, 106.8, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111.195, 0.01},
		{"jakarta to bandung", -6.2088, 106.8456, -6.9175, 107.6191, 116.3, 1.0},
		{"antipodes", 0, 0, 0, 180, math.Pi * EarthRadiusKm, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_IdentityAndSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		a := randomPoint(rng)
		b := randomPoint(rng)

		if d := HaversineKm(a.Lat, a.Lng, a.Lat, a.Lng); d != 0 {
			t.Fatalf("HaversineKm(p, p) = %f for %+v, want 0", d, a)
		}
		ab := HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
		ba := HaversineKm(b.Lat, b.Lng, a.Lat, a.Lng)
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric distance for %+v, %+v: %f vs %f", a, b, ab, ba)
		}
	}
}

func TestHaversineKm_Antipodal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	halfCircumference := math.Pi * EarthRadiusKm

	for i := 0; i < 5000; i++ {
		a := randomPoint(rng)
		lng := a.Lng + 180
		if lng > 180 {
			lng -= 360
		}
		b := Point{Lat: -a.Lat, Lng: lng}

		ab := HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
		ba := HaversineKm(b.Lat, b.Lng, a.Lat, a.Lng)
		if math.IsNaN(ab) || math.IsNaN(ba) {
			t.Fatalf("HaversineKm(%+v, %+v) = NaN", a, b)
		}
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("asymmetric antipodal distance for %+v: %f vs %f", a, ab, ba)
		}
		if math.Abs(ab-halfCircumference) > 1e-3 {
			t.Fatalf("HaversineKm(%+v, %+v) = %f, want %f", a, b, ab, halfCircumference)
		}
	}
}

func TestBoundingBoxFor_NoFalseNegativesOnBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	radii := []float64{0.5, 1, 5, 25, 100, 500}

	for i := 0; i < 2000; i++ {
		center := Point{Lat: rng.Float64()*170 - 85, Lng: rng.Float64()*360 - 180}
		radius := radii[rng.Intn(len(radii))]
		box := BoundingBoxFor(center.Lat, center.Lng, radius)

		for _, bearing := range []float64{0, 90, 180, 270, rng.Float64() * 360} {
			p := destination(center, bearing, radius)
			if !box.Contains(p.Lat, p.Lng) {
				t.Fatalf("box %+v for center %+v radius %.1f misses boundary point %+v (bearing %.1f, distance %f)",
					box, center, radius, p, bearing, center.Distance(p))
			}
		}
	}
}

func TestBoundingBoxFor_MaxLongitudeExtent(t *testing.T) {
	// The widest point of the circle sits poleward of the centre latitude,
	// which is where a naive cos(lat) box under-covers.
	center := Point{Lat: 60, Lng: 10}
	radius := 500.0
	box := BoundingBoxFor(center.Lat, center.Lng, radius)

	for bearing := 0.0; bearing < 360; bearing += 0.25 {
		p := destination(center, bearing, radius)
		if !box.Contains(p.Lat, p.Lng) {
			t.Fatalf("box %+v misses %+v at bearing %.2f", box, p, bearing)
		}
	}
}

func TestBoundingBoxFor_PolesAndAntimeridian(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		radius   float64
	}{
		{"near north pole", 89.9, 0, 50},
		{"near south pole", -89.95, 45, 20},
		{"antimeridian east", 0, 179.99, 10},
		{"antimeridian west", 10, -179.95, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := BoundingBoxFor(tt.lat, tt.lng, tt.radius)
			if box.MinLng != -180 || box.MaxLng != 180 {
				t.Errorf("expected full longitude range, got [%f, %f]", box.MinLng, box.MaxLng)
			}
			if box.MinLat < -90 || box.MaxLat > 90 {
				t.Errorf("latitude not clamped: [%f, %f]", box.MinLat, box.MaxLat)
			}
		})
	}
}

func TestBoundingBoxFor_IsApproximatelyTight(t *testing.T) {
	box := BoundingBoxFor(-6.2, 106.8, 10)
	latSpan := box.MaxLat - box.MinLat
	if latSpan < 2*10/KmPerDegree || latSpan > 2*10/KmPerDegree*1.01 {
		t.Errorf("latitude span %f not close to %f", latSpan, 2*10/KmPerDegree)
	}
}

func TestWithinRadius(t *testing.T) {
	center := Point{Lat: -6.2, Lng: 106.8}
	items := []Point{
		{Lat: -6.25, Lng: 106.8}, // ~5.6 km
		{Lat: -6.2, Lng: 106.8},  // 0 km
		{Lat: -7.0, Lng: 106.8},  // ~89 km
	}

	matches := WithinRadius(center, 10, items, func(p Point) Point { return p })

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].DistanceKm != 0 {
		t.Errorf("nearest match distance = %f, want 0", matches[0].DistanceKm)
	}
	if matches[1].DistanceKm < 5 || matches[1].DistanceKm > 6 {
		t.Errorf("second match distance = %f, want ~5.6", matches[1].DistanceKm)
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{90, 180}, true},
		{Point{-90, -180}, true},
		{Point{90.0001, 0}, false},
		{Point{0, -180.1}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func randomPoint(rng *rand.Rand) Point {
	return Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
}

// destination returns the point reached by travelling distanceKm from p
// along the given initial bearing on the haversine sphere.
func destination(p Point, bearingDeg, distanceKm float64) Point {
	delta := distanceKm / EarthRadiusKm
	theta := toRadians(bearingDeg)
	phi1 := toRadians(p.Lat)
	lambda1 := toRadians(p.Lng)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	lng := math.Mod(toDegrees(lambda2)+540, 360) - 180
	return Point{Lat: toDegrees(phi2), Lng: lng}
}
