package geo

import "math"

// WGS84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// ECEF is an earth-centred earth-fixed position in meters.
type ECEF struct {
	X, Y, Z float64
}

// ENU is a local east/north/up offset in meters.
type ENU struct {
	E, N, U float64
}

// GeodeticToECEF converts latitude, longitude (degrees) and altitude (m).
func GeodeticToECEF(lat, lon, alt float64) ECEF {
	latR, lonR := degToRad(lat), degToRad(lon)
	sinLat, cosLat := math.Sin(latR), math.Cos(latR)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	return ECEF{
		X: (n + alt) * cosLat * math.Cos(lonR),
		Y: (n + alt) * cosLat * math.Sin(lonR),
		Z: (n*(1-wgs84E2) + alt) * sinLat,
	}
}

// ECEFToENU expresses p relative to the reference geodetic position.
func ECEFToENU(p ECEF, lat0, lon0, alt0 float64) ENU {
	ref := GeodeticToECEF(lat0, lon0, alt0)
	dx, dy, dz := p.X-ref.X, p.Y-ref.Y, p.Z-ref.Z

	sinLat, cosLat := math.Sin(degToRad(lat0)), math.Cos(degToRad(lat0))
	sinLon, cosLon := math.Sin(degToRad(lon0)), math.Cos(degToRad(lon0))

	return ENU{
		E: -sinLon*dx + cosLon*dy,
		N: -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz,
		U: cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz,
	}
}

// ENUSeries converts a polyline to ENU offsets anchored at its first point.
// Altitudes are taken from alts when it has the same length as points and
// are zero otherwise.
func ENUSeries(points []LatLon, alts []float64) []ENU {
	if len(points) == 0 {
		return nil
	}
	alt := func(i int) float64 {
		if len(alts) == len(points) {
			return alts[i]
		}
		return 0
	}

	lat0, lon0, alt0 := points[0].Lat, points[0].Lon, alt(0)
	out := make([]ENU, len(points))
	for i, p := range points {
		out[i] = ECEFToENU(GeodeticToECEF(p.Lat, p.Lon, alt(i)), lat0, lon0, alt0)
	}
	return out
}

// Curvature estimates planar curvature (1/m) at each vertex from the Menger
// curvature of its neighbouring triplet. Endpoints copy their interior
// neighbour; polylines shorter than three points have zero curvature.
func Curvature(points []LatLon) []float64 {
	k := make([]float64, len(points))
	if len(points) < 3 {
		return k
	}

	enu := ENUSeries(points, nil)
	for i := 1; i < len(points)-1; i++ {
		p1, p2, p3 := enu[i-1], enu[i], enu[i+1]
		a := math.Hypot(p2.E-p1.E, p2.N-p1.N)
		b := math.Hypot(p3.E-p2.E, p3.N-p2.N)
		c := math.Hypot(p3.E-p1.E, p3.N-p1.N)
		if a*b*c == 0 {
			continue
		}
		// twice the triangle area
		area2 := math.Abs((p2.E-p1.E)*(p3.N-p1.N) - (p2.N-p1.N)*(p3.E-p1.E))
		k[i] = 2 * area2 / (a * b * c)
	}
	k[0] = k[1]
	k[len(k)-1] = k[len(k)-2]
	return k
}
