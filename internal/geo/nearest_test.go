package geo

import (
	"math"
	"testing"
)

func TestNearestOnSegment(t *testing.T) {
	a := LatLon{Lat: 41.0, Lon: 29.0}
	b := LatLon{Lat: 41.0, Lon: 29.01}

	tests := []struct {
		name string
		p    LatLon
		want LatLon
	}{
		{"above the middle", LatLon{Lat: 41.001, Lon: 29.005}, LatLon{Lat: 41.0, Lon: 29.005}},
		{"before the start", LatLon{Lat: 41.0005, Lon: 28.99}, a},
		{"past the end", LatLon{Lat: 40.999, Lon: 29.02}, b},
		{"on the segment", LatLon{Lat: 41.0, Lon: 29.002}, LatLon{Lat: 41.0, Lon: 29.002}},
	}
	for _, tt := range tests {
		got, dist := NearestOnSegment(tt.p, a, b)
		if math.Abs(got.Lat-tt.want.Lat) > 1e-12 || math.Abs(got.Lon-tt.want.Lon) > 1e-12 {
			t.Errorf("%s: nearest = %v, want %v", tt.name, got, tt.want)
		}
		if want := Haversine(tt.p, tt.want); math.Abs(dist-want) > 1e-6 {
			t.Errorf("%s: distance = %v, want %v", tt.name, dist, want)
		}
	}

	// A degenerate segment snaps to its start.
	p := LatLon{Lat: 41.001, Lon: 29.0}
	got, dist := NearestOnSegment(p, a, a)
	if got != a || math.Abs(dist-Haversine(p, a)) > 1e-9 {
		t.Errorf("zero-length segment = (%v, %v), want (%v, %v)", got, dist, a, Haversine(p, a))
	}
}

func TestNearestOnPolyline(t *testing.T) {
	line := []LatLon{{41.0, 29.0}, {41.0, 29.01}, {41.01, 29.01}}

	got, dist := NearestOnPolyline(LatLon{Lat: 41.005, Lon: 29.012}, line)
	if math.Abs(got.Lat-41.005) > 1e-12 || math.Abs(got.Lon-29.01) > 1e-12 {
		t.Errorf("nearest = %v, want the second leg at 41.005", got)
	}
	if dist <= 0 || dist > 200 {
		t.Errorf("distance = %v, want roughly 170 m", dist)
	}

	p := LatLon{Lat: 1, Lon: 2}
	if got, dist := NearestOnPolyline(p, nil); got != p || dist != 0 {
		t.Errorf("empty polyline = (%v, %v), want (%v, 0)", got, dist, p)
	}
	if got, dist := NearestOnPolyline(p, line[:1]); got != line[0] || dist != Haversine(p, line[0]) {
		t.Errorf("single point = (%v, %v), want %v", got, dist, line[0])
	}
}
