package geo

import "math"

// Projection is an equirectangular local frame anchored at an origin fix.
// X grows east and Y grows north, both in meters. Distances are accurate for
// routes spanning a few kilometres, which is the regime the estimator runs in.
type Projection struct {
	Origin LatLon
}

// NewProjection returns a projection anchored at origin.
func NewProjection(origin LatLon) Projection {
	return Projection{Origin: origin}
}

// ToLocal projects a coordinate into the local frame. The longitude scale
// uses the cosine of the mean latitude between origin and point.
func (p Projection) ToLocal(c LatLon) (x, y float64) {
	meanLat := degToRad((p.Origin.Lat + c.Lat) * 0.5)
	x = degToRad(c.Lon-p.Origin.Lon) * EarthRadius * math.Cos(meanLat)
	y = degToRad(c.Lat-p.Origin.Lat) * EarthRadius
	return x, y
}

// ToLatLon inverts ToLocal exactly: latitude is recovered first, then the
// longitude scale uses the same mean latitude ToLocal applied.
func (p Projection) ToLatLon(x, y float64) LatLon {
	lat := p.Origin.Lat + radToDeg(y/EarthRadius)
	meanLat := degToRad((p.Origin.Lat + lat) * 0.5)
	return LatLon{
		Lat: lat,
		Lon: p.Origin.Lon + radToDeg(x/(EarthRadius*math.Cos(meanLat))),
	}
}
