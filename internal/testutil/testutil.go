// Package testutil provides waypoint fixtures shared by the HTTP and CLI
// tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StepDeg is the latitude step between fixture points, about 10 m.
const StepDeg = 0.0000898

// RouteJSON returns a waypoint document of n points heading north from
// 37,-122, one second apart and climbing 1 m every 10 points. A positive
// speedKmh is attached to every point.
func RouteJSON(n int, speedKmh float64) string {
	pts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := fmt.Sprintf(`{"lat":%.8f,"lon":-122.0,"elevation":%d,"timestamp":%d`, 37.0+float64(i)*StepDeg, i/10, i)
		if speedKmh > 0 {
			p += fmt.Sprintf(`,"speed_kmh":%g`, speedKmh)
		}
		pts = append(pts, p+"}")
	}
	return `{"route":[` + strings.Join(pts, ",") + `]}`
}

// WriteRoute writes RouteJSON(n, speedKmh) to dir/route.json and returns the
// path.
func WriteRoute(t testing.TB, dir string, n int, speedKmh float64) string {
	t.Helper()
	path := filepath.Join(dir, "route.json")
	if err := os.WriteFile(path, []byte(RouteJSON(n, speedKmh)), 0o644); err != nil {
		t.Fatalf("write route: %v", err)
	}
	return path
}
