package waypoints

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/trajectory/internal/fsutil"
)

// Run modes.
const (
	ModeFuse     = "fuse"
	ModeSimulate = "simulate"
)

// IMU is the synthetic inertial block of a frame.
type IMU struct {
	AccelX float64 `json:"accel_x"`
	AccelY float64 `json:"accel_y"`
	AccelZ float64 `json:"accel_z"`
	GyroX  float64 `json:"gyro_x"`
	GyroY  float64 `json:"gyro_y"`
	GyroZ  float64 `json:"gyro_z"`
	MagX   float64 `json:"mag_x"`
	MagY   float64 `json:"mag_y"`
	MagZ   float64 `json:"mag_z"`
}

// VehicleAttitude is the vehicle_state block of a frame.
type VehicleAttitude struct {
	VelocityMs float64 `json:"velocity_ms"`
	HeadingRad float64 `json:"heading_rad"`
	PitchRad   float64 `json:"pitch_rad"`
	RollRad    float64 `json:"roll_rad"`
}

// Estimate is the fused EKF state of a frame.
type Estimate struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	YawDeg float64 `json:"yaw_deg"`
}

// Drivetrain is the engine block of a simulated frame.
type Drivetrain struct {
	RPM             float64 `json:"rpm"`
	Gear            int     `json:"gear"`
	ThrottlePercent float64 `json:"throttle_percent"`
	BrakePercent    float64 `json:"brake_percent"`
}

// Forces is the physics block of a simulated frame, in newtons.
type Forces struct {
	EngineForceN  float64 `json:"engine_force_n"`
	DragForceN    float64 `json:"drag_force_n"`
	RollingForceN float64 `json:"rolling_force_n"`
	GradeForceN   float64 `json:"grade_force_n"`
	BrakeForceN   float64 `json:"brake_force_n"`
	NetForceN     float64 `json:"net_force_n"`
}

// Frame is one enriched output record.
type Frame struct {
	Waypoint  int     `json:"waypoint"` // 1-based
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation float64 `json:"elevation"`
	FusedLat  float64 `json:"fused_lat"`
	FusedLon  float64 `json:"fused_lon"`

	Distance        float64 `json:"distance"` // meters from the previous point
	SpeedKmh        float64 `json:"speed_kmh"`
	TargetSpeedKmh  float64 `json:"target_speed_kmh"`
	AccelerationMs2 float64 `json:"acceleration_ms2"`
	HeadingDeg      float64 `json:"heading_deg"`
	SlopeDeg        float64 `json:"slope_deg"`
	TimeSec         float64 `json:"time_sec"`

	IMU          IMU             `json:"imu"`
	VehicleState VehicleAttitude `json:"vehicle_state"`
	EKF          *Estimate       `json:"ekf,omitempty"`
	Engine       *Drivetrain     `json:"engine,omitempty"`
	Physics      *Forces         `json:"physics,omitempty"`
}

// Statistics summarises a run.
type Statistics struct {
	TotalDistanceM float64 `json:"total_distance_m"`
	NumPoints      int     `json:"num_points"`
	DurationS      float64 `json:"duration_s"`
	MeanSpeedKmh   float64 `json:"mean_speed_kmh"`
	MaxSpeedKmh    float64 `json:"max_speed_kmh"`
	SpeedStdKmh    float64 `json:"speed_std_kmh"`
	AccelRMS       float64 `json:"accel_rms_ms2"`
	ProcessingMs   float64 `json:"processing_ms"`
}

// Document is the enriched run written after fusion or simulation.
type Document struct {
	RunID          string     `json:"run_id"`
	Mode           string     `json:"mode"`
	CreatedAt      time.Time  `json:"created_at"`
	Route          []Point    `json:"route"`
	EnhancedResult []Frame    `json:"enhanced_result"`
	Statistics     Statistics `json:"statistics"`
}

// WriteDocument writes doc as indented JSON to path atomically.
func WriteDocument(fsys fsutil.FileSystem, path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run document: %w", err)
	}
	if err := fsutil.WriteFileAtomic(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("write run document %s: %w", path, err)
	}
	return nil
}

// ReadDocument loads a document previously written by WriteDocument.
func ReadDocument(fsys fsutil.FileSystem, path string) (*Document, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run document %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode run document %s: %w", path, err)
	}
	return &doc, nil
}
