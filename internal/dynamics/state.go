package dynamics

// VehicleState is the per-step record a simulation run carries forward.
type VehicleState struct {
	Speed        float64 `json:"speed_ms"` // never negative
	Acceleration float64 `json:"acceleration_ms2"`
	Position     float64 `json:"position_m"` // along the route
	Grade        float64 `json:"grade_rad"`
	Elevation    float64 `json:"elevation_m"`
	EngineRPM    float64 `json:"engine_rpm"`
	Gear         int     `json:"gear"`
	Throttle     float64 `json:"throttle_percent"`
	Brake        float64 `json:"brake_percent"`
}

// InitialState returns a stationary vehicle idling in first gear.
func (e Engine) InitialState() VehicleState {
	return VehicleState{EngineRPM: e.Params.IdleRPM, Gear: 1}
}

// Advance integrates one explicit Euler step of e.Dt towards target and
// returns the new state. Speed is floored at zero. Gear and RPM are
// reselected for the new speed; throttle and brake are those commanded for
// the step.
func (e Engine) Advance(s VehicleState, target, distanceToTarget float64) VehicleState {
	next, _ := e.AdvanceWithCommand(s, target, distanceToTarget)
	return next
}

// AdvanceWithCommand is Advance that also returns the controller breakdown
// for the step.
func (e Engine) AdvanceWithCommand(s VehicleState, target, distanceToTarget float64) (VehicleState, Command) {
	dt := e.Dt
	v0 := nonNegative(s.Speed)
	cmd := e.Compute(v0, target, s.Grade, distanceToTarget)
	a := cmd.Acceleration

	next := s
	next.Acceleration = a
	next.Speed = nonNegative(v0 + a*dt)
	next.Position = s.Position + v0*dt + 0.5*a*dt*dt
	next.Throttle = cmd.Throttle
	next.Brake = cmd.Brake
	next.Gear = e.SelectGear(next.Speed, nonNegative(target))
	next.EngineRPM = e.EngineRPM(next.Speed, next.Gear)
	return next, cmd
}
