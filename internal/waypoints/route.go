// Package waypoints reads waypoint documents and writes enriched run
// documents.
//
// A waypoint document is JSON, either {"route": [...]} or a top-level array
// of points. Points need lat and lon; everything else is optional.
package waypoints

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/trajectory/internal/fsutil"
	"github.com/banshee-data/trajectory/internal/geo"
)

var (
	ErrTooFewPoints     = errors.New("waypoints: need at least 2 valid points")
	ErrUnsupportedShape = errors.New("waypoints: expected {\"route\": [...]} or a top-level array")
)

// MinPoints is the smallest route the pipeline can process.
const MinPoints = 2

// maxDocumentSize bounds documents read from disk or the network.
const maxDocumentSize = 32 << 20

// Point is one waypoint. Optional fields are nil when absent.
type Point struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Elevation float64  `json:"elevation"`
	Timestamp float64  `json:"timestamp"` // seconds
	SpeedKmh  *float64 `json:"speed_kmh,omitempty"`
	SlopeDeg  *float64 `json:"slope_deg,omitempty"`
	Distance  *float64 `json:"distance,omitempty"` // meters to the next target

	// FunctionalClass is the road class, 1 for motorways and higher for
	// smaller roads.
	FunctionalClass *int `json:"functional_class,omitempty"`
}

// LatLon returns the point's coordinate.
func (p Point) LatLon() geo.LatLon { return geo.LatLon{Lat: p.Lat, Lon: p.Lon} }

// rawPoint distinguishes missing lat/lon from zero.
type rawPoint struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Elevation *float64 `json:"elevation"`
	Timestamp *float64 `json:"timestamp"`
	SpeedKmh  *float64 `json:"speed_kmh"`
	SlopeDeg  *float64 `json:"slope_deg"`
	Distance  *float64 `json:"distance"`
	FC        *int     `json:"functional_class"`
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (r rawPoint) point() (Point, bool) {
	if r.Lat == nil || r.Lon == nil || !finite(*r.Lat) || !finite(*r.Lon) {
		return Point{}, false
	}
	p := Point{Lat: *r.Lat, Lon: *r.Lon, SpeedKmh: r.SpeedKmh, SlopeDeg: r.SlopeDeg, Distance: r.Distance, FunctionalClass: r.FC}
	if r.Elevation != nil {
		p.Elevation = *r.Elevation
	}
	if r.Timestamp != nil {
		p.Timestamp = *r.Timestamp
	}
	return p, true
}

// Parse decodes a waypoint document. Points without a finite lat/lon are
// dropped; fewer than MinPoints survivors is ErrTooFewPoints.
func Parse(data []byte) ([]Point, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnsupportedShape
	}

	var items []rawPoint
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode route array: %w", err)
		}
	case '{':
		var doc struct {
			Route json.RawMessage `json:"route"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode route document: %w", err)
		}
		route := bytes.TrimSpace(doc.Route)
		if len(route) == 0 || route[0] != '[' {
			return nil, ErrUnsupportedShape
		}
		if err := json.Unmarshal(route, &items); err != nil {
			return nil, fmt.Errorf("decode route: %w", err)
		}
	default:
		return nil, ErrUnsupportedShape
	}

	points := make([]Point, 0, len(items))
	for _, it := range items {
		if p, ok := it.point(); ok {
			points = append(points, p)
		}
	}
	if len(points) < MinPoints {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}
	return points, nil
}

// Read parses a document from r, reading at most 32 MiB.
func Read(r io.Reader) ([]Point, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read route: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("route document exceeds %d bytes", maxDocumentSize)
	}
	return Parse(data)
}

// Load reads and parses the document at path.
func Load(fsys fsutil.FileSystem, path string) ([]Point, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route %s: %w", path, err)
	}
	return Parse(data)
}

// LatLons returns the coordinates of points.
func LatLons(points []Point) []geo.LatLon {
	out := make([]geo.LatLon, len(points))
	for i, p := range points {
		out[i] = p.LatLon()
	}
	return out
}

// HasSpeeds reports whether every point carries speed_kmh.
func HasSpeeds(points []Point) bool {
	for _, p := range points {
		if p.SpeedKmh == nil {
			return false
		}
	}
	return len(points) > 0
}
