package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	rawColor    = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	fusedColor  = color.RGBA{R: 40, G: 110, B: 200, A: 255}
	targetColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color, dashed bool) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s line: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	if dashed {
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func configureLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// TrackPlot draws the raw and fused tracks in the local frame anchored at the
// first raw fix.
func TrackPlot(doc *waypoints.Document) (*plot.Plot, error) {
	if doc == nil || len(doc.EnhancedResult) == 0 {
		return nil, ErrEmptyRun
	}
	frames := doc.EnhancedResult
	proj := geo.NewProjection(geo.LatLon{Lat: frames[0].Lat, Lon: frames[0].Lon})

	raw := make(plotter.XYs, len(frames))
	fused := make(plotter.XYs, len(frames))
	for i, f := range frames {
		raw[i].X, raw[i].Y = proj.ToLocal(geo.LatLon{Lat: f.Lat, Lon: f.Lon})
		fused[i].X, fused[i].Y = proj.ToLocal(geo.LatLon{Lat: f.FusedLat, Lon: f.FusedLon})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s - Track (%s)", doc.RunID, doc.Mode)
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"
	p.Add(plotter.NewGrid())

	if err := addLine(p, "raw", raw, rawColor, true); err != nil {
		return nil, err
	}
	if err := addLine(p, "fused", fused, fusedColor, false); err != nil {
		return nil, err
	}
	configureLegend(p)
	return p, nil
}

// SpeedPlot draws speed and target speed in km/h against time.
func SpeedPlot(doc *waypoints.Document) (*plot.Plot, error) {
	if doc == nil || len(doc.EnhancedResult) == 0 {
		return nil, ErrEmptyRun
	}
	frames := doc.EnhancedResult
	speed := make(plotter.XYs, len(frames))
	target := make(plotter.XYs, len(frames))
	for i, f := range frames {
		speed[i] = plotter.XY{X: f.TimeSec, Y: f.SpeedKmh}
		target[i] = plotter.XY{X: f.TimeSec, Y: f.TargetSpeedKmh}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s - Speed", doc.RunID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Speed (km/h)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	if err := addLine(p, "target", target, targetColor, true); err != nil {
		return nil, err
	}
	if err := addLine(p, "speed", speed, fusedColor, false); err != nil {
		return nil, err
	}
	configureLegend(p)
	return p, nil
}

// WritePNG encodes p as a PNG to w.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlot writes p to path; the format follows the file extension (png,
// svg, pdf).
func SavePlot(p *plot.Plot, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".jpg", ".jpeg":
	default:
		return fmt.Errorf("unsupported plot format %q", filepath.Ext(path))
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
