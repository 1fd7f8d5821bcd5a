package pipeline

import (
	"math"

	"github.com/banshee-data/trajectory/internal/imu"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func imuBlock(r imu.Reading) waypoints.IMU {
	return waypoints.IMU{
		AccelX: r.Accel.X,
		AccelY: r.Accel.Y,
		AccelZ: r.Accel.Z,
		GyroX:  r.Gyro.X,
		GyroY:  r.Gyro.Y,
		GyroZ:  r.Gyro.Z,
		MagX:   r.Mag.X,
		MagY:   r.Mag.Y,
		MagZ:   r.Mag.Z,
	}
}

// summarize computes run statistics over the output frames.
func summarize(frames []waypoints.Frame, totalDistance, duration float64) waypoints.Statistics {
	st := waypoints.Statistics{
		TotalDistanceM: totalDistance,
		NumPoints:      len(frames),
		DurationS:      duration,
	}
	if len(frames) == 0 {
		return st
	}

	speeds := make([]float64, len(frames))
	accels := make([]float64, len(frames))
	for i, f := range frames {
		speeds[i] = f.SpeedKmh
		accels[i] = f.AccelerationMs2
	}

	st.MeanSpeedKmh = stat.Mean(speeds, nil)
	st.MaxSpeedKmh = floats.Max(speeds)
	if len(speeds) > 1 {
		st.SpeedStdKmh = stat.StdDev(speeds, nil)
	}
	st.AccelRMS = math.Sqrt(floats.Dot(accels, accels) / float64(len(accels)))
	return st
}
