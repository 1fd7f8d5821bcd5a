package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/trajectory/internal/dynamics"
	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/banshee-data/trajectory/internal/planner"
	"github.com/banshee-data/trajectory/internal/timeutil"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
)

// TargetSpeeds returns the per-point target speeds in m/s for route: the
// document's own speed_kmh when every point has one, otherwise a planned
// profile. Planned limits come from the road class, grade and bends at each
// point and never exceed the legal limit of the road class, or
// DefaultSpeedLimitKmh where the class is unknown.
func TargetSpeeds(route []waypoints.Point, opts Options) ([]float64, error) {
	if waypoints.HasSpeeds(route) {
		out := make([]float64, len(route))
		for i, p := range route {
			out[i] = math.Max(0, units.KmhToMps(*p.SpeedKmh))
		}
		return out, nil
	}

	prof, err := planner.Plan(waypoints.LatLons(route), RouteLimits(route, opts), opts.SimulationDt, opts.Plan)
	if err != nil {
		return nil, fmt.Errorf("plan target speeds: %w", err)
	}
	return prof.Speeds, nil
}

// RouteLimits returns the free-flow limit in m/s at every point of route:
// the smart target speed, further capped by the speed a bend allows from
// the third point on.
func RouteLimits(route []waypoints.Point, opts Options) []float64 {
	roads := make([]planner.RoadPoint, len(route))
	for i, p := range route {
		roads[i] = planner.RoadPoint{LatLon: p.LatLon(), Elevation: p.Elevation}
		if p.FunctionalClass != nil {
			roads[i].FunctionalClass = *p.FunctionalClass
		}
	}
	kmh := planner.SmartTargets(roads, opts.DefaultSpeedLimitKmh)

	seg := buildSegments(route)
	limits := make([]float64, len(route))
	for i := range limits {
		if i >= 2 {
			turn := geo.Wrap(seg.heading[i] - seg.heading[i-1])
			kmh[i] = math.Min(kmh[i], planner.CurveSpeedKmh(turn, math.Max(1, seg.dist[i])))
		}
		limits[i] = units.KmhToMps(kmh[i])
	}
	return limits
}

// Simulate drives the vehicle model along route, one SimulationDt step per
// point. The target speed is slew-limited to TargetRampRate so step changes
// in the plan do not produce impulsive commands.
func Simulate(route []waypoints.Point, opts Options) (*waypoints.Document, error) {
	if len(route) < waypoints.MinPoints {
		return nil, fmt.Errorf("simulate: %w: got %d", waypoints.ErrTooFewPoints, len(route))
	}
	watch := timeutil.StartStopwatch(opts.clock())

	targets, err := TargetSpeeds(route, opts)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	n := len(route)
	dt := opts.SimulationDt
	seg := buildSegments(route)

	engine := dynamics.New(dt, opts.Params, opts.Controller)
	if opts.EngineLogf != nil {
		engine.Logf = opts.EngineLogf
	}
	state := engine.InitialState()

	filtered := targets[0]
	maxDelta := opts.TargetRampRate * dt

	// heading of the segment leaving each point; the last point keeps the
	// heading it arrived on
	headingAt := func(i int) float64 {
		if i+1 < n {
			return seg.heading[i+1]
		}
		return seg.heading[i]
	}

	frames := make([]waypoints.Frame, 0, n)
	prevHeading := headingAt(0)
	for i, pt := range route {
		filtered += clamp(targets[i]-filtered, -maxDelta, maxDelta)
		target := math.Max(0, filtered)

		slope := seg.slopeDeg[max(i, 1)]
		if pt.SlopeDeg != nil {
			slope = *pt.SlopeDeg
		}
		distance := 0.0
		switch {
		case pt.Distance != nil:
			distance = *pt.Distance
		case i+1 < n:
			distance = seg.dist[i+1]
		}

		state.Grade = units.DegToRad(slope)
		state.Elevation = pt.Elevation

		var cmd dynamics.Command
		state, cmd = engine.AdvanceWithCommand(state, target, distance)

		heading := headingAt(i)
		yawRate := 0.0
		if i > 0 && dt > 0 {
			yawRate = geo.Wrap(heading-prevHeading) / dt
		}
		prevHeading = heading

		r := opts.IMU.Sample(state.Acceleration, state.Speed, yawRate, heading)
		frames = append(frames, waypoints.Frame{
			Waypoint:        i + 1,
			Lat:             pt.Lat,
			Lon:             pt.Lon,
			Elevation:       pt.Elevation,
			FusedLat:        pt.Lat,
			FusedLon:        pt.Lon,
			Distance:        seg.dist[i],
			SpeedKmh:        units.MpsToKmh(state.Speed),
			TargetSpeedKmh:  units.MpsToKmh(targets[i]),
			AccelerationMs2: state.Acceleration,
			HeadingDeg:      units.RadToDeg(heading),
			SlopeDeg:        slope,
			TimeSec:         float64(i) * dt,
			IMU:             imuBlock(r),
			VehicleState: waypoints.VehicleAttitude{
				VelocityMs: state.Speed,
				HeadingRad: heading,
				PitchRad:   state.Grade,
			},
			Engine: &waypoints.Drivetrain{
				RPM:             state.EngineRPM,
				Gear:            state.Gear,
				ThrottlePercent: state.Throttle,
				BrakePercent:    state.Brake,
			},
			Physics: &waypoints.Forces{
				EngineForceN:  cmd.EngineForce,
				DragForceN:    cmd.DragForce,
				RollingForceN: cmd.RollingForce,
				GradeForceN:   cmd.GradeForce,
				BrakeForceN:   cmd.BrakeForce,
				NetForceN:     cmd.NetForce,
			},
		})
	}

	doc := &waypoints.Document{
		RunID:          opts.newID(),
		Mode:           waypoints.ModeSimulate,
		CreatedAt:      watch.Started(),
		Route:          route,
		EnhancedResult: frames,
		Statistics:     summarize(frames, seg.total, float64(n-1)*dt),
	}
	doc.Statistics.ProcessingMs = watch.ElapsedMs()
	logf("simulated %d points, final speed %.1f km/h", n, units.MpsToKmh(state.Speed))
	return doc, nil
}
