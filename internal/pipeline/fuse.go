package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/trajectory/internal/ekf"
	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/banshee-data/trajectory/internal/monitoring"
	"github.com/banshee-data/trajectory/internal/timeutil"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
)

var logf = monitoring.Component("pipeline")

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// segments holds per-point kinematics derived from consecutive fixes. Index
// i describes the segment from point i-1 to i; index 0 is zero.
type segments struct {
	dist     []float64 // m
	heading  []float64 // rad, compass bearing
	slopeDeg []float64
	total    float64
}

func buildSegments(route []waypoints.Point) segments {
	n := len(route)
	s := segments{
		dist:     make([]float64, n),
		heading:  make([]float64, n),
		slopeDeg: make([]float64, n),
	}
	for i := 1; i < n; i++ {
		a, b := route[i-1].LatLon(), route[i].LatLon()
		d := geo.Haversine(a, b)
		s.dist[i] = d
		s.total += d
		s.heading[i] = geo.Bearing(a, b)
		s.slopeDeg[i] = geo.SlopeDeg(route[i].Elevation-route[i-1].Elevation, math.Max(d, 1e-3))
	}
	return s
}

// Fuse runs the route through the motion estimator.
//
// Fixes are projected into a local frame anchored at the first point. Each
// step corrects the filter with the fix, records the fused estimate, then
// predicts forward with the longitudinal acceleration and yaw rate derived
// from consecutive fixes. Step intervals come from timestamps and are clamped
// to [MinStepDt, MaxStepDt].
func Fuse(route []waypoints.Point, opts Options) (*waypoints.Document, error) {
	if len(route) < waypoints.MinPoints {
		return nil, fmt.Errorf("fuse: %w: got %d", waypoints.ErrTooFewPoints, len(route))
	}
	watch := timeutil.StartStopwatch(opts.clock())

	proj := geo.NewProjection(route[0].LatLon())
	seg := buildSegments(route)

	initDt := opts.InitialDt
	if dt0 := route[1].Timestamp - route[0].Timestamp; finite(dt0) && dt0 > 0 {
		initDt = clamp(dt0, opts.MinStepDt, opts.MaxStepDt)
	}

	n := len(route)
	rawSpeed := make([]float64, n)
	for i := 1; i < n; i++ {
		dt := route[i].Timestamp - route[i-1].Timestamp
		if finite(dt) {
			dt = clamp(dt, opts.MinStepDt, opts.MaxStepDt)
		} else {
			dt = initDt
		}
		rawSpeed[i] = seg.dist[i] / math.Max(dt, 1e-6)
	}

	x0, y0 := proj.ToLocal(route[0].LatLon())
	filter := ekf.New(initDt, opts.EKF)
	filter.Observer = opts.Observer
	filter.Initialize(ekf.State{X: x0, Y: y0})

	prevSpeed := rawSpeed[1]
	prevHeading := seg.heading[1]
	prevTs := route[0].Timestamp
	elapsed := 0.0

	frames := make([]waypoints.Frame, 0, n)
	for i, pt := range route {
		dt := clamp(pt.Timestamp-prevTs, opts.MinStepDt, opts.MaxStepDt)
		if i == 0 {
			dt = initDt
		} else {
			filter.SetStepInterval(dt)
		}
		prevTs = pt.Timestamp
		elapsed += dt

		mx, my := proj.ToLocal(pt.LatLon())
		if err := filter.Update(ekf.Measurement{X: mx, Y: my}); err != nil {
			return nil, fmt.Errorf("fuse point %d: %w", i+1, err)
		}
		est := filter.State()
		fused := proj.ToLatLon(est.X, est.Y)

		speed, heading := prevSpeed, prevHeading
		if i > 0 {
			speed, heading = rawSpeed[i], seg.heading[i]
		}

		var yawRate, accel float64
		if i > 0 {
			yawRate = geo.Wrap(heading-prevHeading) / dt
			accel = clamp((speed-prevSpeed)/dt, opts.MaxLongDecel, opts.MaxLongAccel)
		}
		yawRate = clamp(yawRate, -opts.MaxYawRate, opts.MaxYawRate)

		filter.Predict(accel, yawRate)

		r := opts.IMU.Sample(accel, speed, yawRate, heading)
		frames = append(frames, waypoints.Frame{
			Waypoint:        i + 1,
			Lat:             pt.Lat,
			Lon:             pt.Lon,
			Elevation:       pt.Elevation,
			FusedLat:        fused.Lat,
			FusedLon:        fused.Lon,
			Distance:        seg.dist[i],
			SpeedKmh:        units.MpsToKmh(speed),
			TargetSpeedKmh:  targetKmh(pt, speed),
			AccelerationMs2: accel,
			HeadingDeg:      units.RadToDeg(heading),
			SlopeDeg:        seg.slopeDeg[i],
			TimeSec:         elapsed,
			IMU:             imuBlock(r),
			VehicleState: waypoints.VehicleAttitude{
				VelocityMs: speed,
				HeadingRad: heading,
				PitchRad:   units.DegToRad(seg.slopeDeg[max(i, 1)]),
			},
			EKF: &waypoints.Estimate{
				X:      est.X,
				Y:      est.Y,
				VX:     est.VX,
				VY:     est.VY,
				YawDeg: units.RadToDeg(est.Yaw),
			},
		})

		prevSpeed = speed
		prevHeading = heading
	}

	doc := &waypoints.Document{
		RunID:          opts.newID(),
		Mode:           waypoints.ModeFuse,
		CreatedAt:      watch.Started(),
		Route:          route,
		EnhancedResult: frames,
		Statistics:     summarize(frames, seg.total, route[n-1].Timestamp-route[0].Timestamp),
	}
	doc.Statistics.ProcessingMs = watch.ElapsedMs()
	logf("fused %d points over %.1f m", n, seg.total)
	return doc, nil
}

// targetKmh prefers the document's own target speed when present.
func targetKmh(pt waypoints.Point, speed float64) float64 {
	if pt.SpeedKmh != nil {
		return *pt.SpeedKmh
	}
	return units.MpsToKmh(speed)
}
