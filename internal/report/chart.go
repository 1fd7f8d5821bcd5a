// Package report renders runs as an interactive HTML speed chart (go-echarts)
// and static PNG plots (gonum/plot).
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrEmptyRun is returned when a run has no frames to draw.
var ErrEmptyRun = errors.New("run has no frames")

func speedIn(kmh float64, speedUnits string) float64 {
	return units.ConvertSpeed(units.KmhToMps(kmh), speedUnits)
}

// SpeedChart writes an HTML page with the run's speed against target speed
// and its longitudinal acceleration, both against time. Speeds are shown in
// speedUnits.
func SpeedChart(w io.Writer, doc *waypoints.Document, speedUnits string) error {
	if doc == nil || len(doc.EnhancedResult) == 0 {
		return ErrEmptyRun
	}
	if !units.IsValid(speedUnits) {
		return fmt.Errorf("invalid units %q: must be one of %s", speedUnits, units.GetValidUnitsString())
	}

	frames := doc.EnhancedResult
	x := make([]string, len(frames))
	speed := make([]opts.LineData, len(frames))
	target := make([]opts.LineData, len(frames))
	accel := make([]opts.LineData, len(frames))
	for i, f := range frames {
		x[i] = strconv.FormatFloat(f.TimeSec, 'f', 1, 64)
		speed[i] = opts.LineData{Value: speedIn(f.SpeedKmh, speedUnits)}
		target[i] = opts.LineData{Value: speedIn(f.TargetSpeedKmh, speedUnits)}
		accel[i] = opts.LineData{Value: f.AccelerationMs2}
	}

	speedLine := charts.NewLine()
	speedLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Run " + doc.RunID, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Speed",
			Subtitle: fmt.Sprintf("run=%s mode=%s points=%d", doc.RunID, doc.Mode, len(frames)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed (" + speedUnits + ")", NameLocation: "middle", NameGap: 40}),
	)
	speedLine.SetXAxis(x).
		AddSeries("speed", speed, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)})).
		AddSeries("target", target, charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)}))

	accelLine := charts.NewLine()
	accelLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Acceleration"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m/s²", NameLocation: "middle", NameGap: 40}),
	)
	accelLine.SetXAxis(x).
		AddSeries("acceleration", accel, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.AddCharts(speedLine, accelLine)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
