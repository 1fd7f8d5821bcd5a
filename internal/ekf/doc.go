// Package ekf implements the motion estimator: an extended Kalman filter over
// a planar vehicle state (x, y, vx, vy, yaw).
//
// Prediction integrates a body-frame forward acceleration and a yaw rate with
// constant-acceleration kinematics. Covariance is propagated with the linear
// constant-velocity Jacobian; the yaw/acceleration coupling is left to the
// process noise. Updates correct against a 2-D position fix in the same local
// frame.
//
// A Filter belongs to one trajectory run and is not safe for concurrent use.
package ekf
