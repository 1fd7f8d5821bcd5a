package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleRun() *waypoints.Document {
	frames := make([]waypoints.Frame, 20)
	for i := range frames {
		frames[i] = waypoints.Frame{
			Waypoint:        i + 1,
			Lat:             37.0 + float64(i)*1e-4,
			Lon:             -122.0,
			FusedLat:        37.0 + float64(i)*1e-4 + 2e-6,
			FusedLon:        -122.0 + 1e-6,
			SpeedKmh:        float64(i) * 2,
			TargetSpeedKmh:  36,
			AccelerationMs2: 0.5,
			TimeSec:         float64(i) * 0.5,
		}
	}
	return &waypoints.Document{RunID: "chart-run", Mode: waypoints.ModeSimulate, EnhancedResult: frames}
}

func TestSpeedChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SpeedChart(&buf, sampleRun(), units.KMPH))

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "renders a full page")
	assert.Contains(t, html, "chart-run")
	assert.Contains(t, html, "target")
	assert.Contains(t, html, "acceleration")
}

func TestSpeedChart_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, SpeedChart(&buf, nil, units.KMPH), ErrEmptyRun)
	assert.ErrorIs(t, SpeedChart(&buf, &waypoints.Document{}, units.KMPH), ErrEmptyRun)

	err := SpeedChart(&buf, sampleRun(), "furlongs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid units")
}

func TestSpeedIn(t *testing.T) {
	assert.InDelta(t, 36.0, speedIn(36, units.KMPH), 1e-9)
	assert.InDelta(t, 10.0, speedIn(36, units.MPS), 1e-9)
	assert.InDelta(t, 22.369362920544, speedIn(36, units.MPH), 1e-9)
}

func TestTrackPlot(t *testing.T) {
	p, err := TrackPlot(sampleRun())
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "chart-run")
	assert.InDelta(t, 0, p.Y.Min, 1e-6, "track starts at the origin")
	assert.Greater(t, p.Y.Max, 200.0)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	_, err = TrackPlot(nil)
	assert.ErrorIs(t, err, ErrEmptyRun)
}

func TestSpeedPlot(t *testing.T) {
	p, err := SpeedPlot(sampleRun())
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.InDelta(t, 38, p.Y.Max, 1e-9)

	_, err = SpeedPlot(&waypoints.Document{})
	assert.ErrorIs(t, err, ErrEmptyRun)
}

func TestSavePlot(t *testing.T) {
	p, err := SpeedPlot(sampleRun())
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "speed.png")
	require.NoError(t, SavePlot(p, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	err = SavePlot(p, filepath.Join(dir, "speed.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported plot format")
}
