package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/trajectory/internal/config"
	"github.com/banshee-data/trajectory/internal/db"
	"github.com/banshee-data/trajectory/internal/fsutil"
	"github.com/banshee-data/trajectory/internal/pipeline"
	"github.com/banshee-data/trajectory/internal/planner"
	"github.com/banshee-data/trajectory/internal/report"
	"github.com/banshee-data/trajectory/internal/security"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"gonum.org/v1/plot"
)

// loadTuning returns the tuning config at path, or the built-in defaults when
// path is empty.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// openStore opens and migrates the run store at path.
func openStore(path string) (*db.DB, error) {
	store, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.MigrateUp(db.MigrationsFS()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func handleRun(mode string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	in := fs.String("in", "", "Waypoint document (required)")
	out := fs.String("out", "run.json", "Enriched run document")
	configPath := fs.String("config", "", "Tuning config JSON")
	dbPath := fs.String("db", "", "Store the run in this sqlite database")
	plotPath := fs.String("plot", "", "Write a track plot (png, svg or pdf)")
	chartPath := fs.String("chart", "", "Write an HTML speed chart")
	speedPlotPath := fs.String("speed-plot", "", "Write a speed plot (png, svg or pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	for _, path := range []string{*out, *plotPath, *chartPath, *speedPlotPath} {
		if path == "" {
			continue
		}
		if err := security.ValidateOutputPath(path); err != nil {
			return err
		}
	}

	cfg, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	opts := pipeline.OptionsFromTuning(cfg)

	fsys := fsutil.OSFileSystem{}
	route, err := waypoints.Load(fsys, *in)
	if err != nil {
		return err
	}

	var doc *waypoints.Document
	if mode == waypoints.ModeSimulate {
		doc, err = pipeline.Simulate(route, opts)
	} else {
		doc, err = pipeline.Fuse(route, opts)
	}
	if err != nil {
		return err
	}

	if err := waypoints.WriteDocument(fsys, *out, doc); err != nil {
		return err
	}
	log.Printf("wrote %s run %s (%d frames) to %s", doc.Mode, doc.RunID, len(doc.EnhancedResult), *out)

	if *dbPath != "" {
		store, err := openStore(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(doc); err != nil {
			return err
		}
	}

	plots := []struct {
		path string
		draw func(*waypoints.Document) (*plot.Plot, error)
	}{
		{*plotPath, report.TrackPlot},
		{*speedPlotPath, report.SpeedPlot},
	}
	for _, pl := range plots {
		if pl.path == "" {
			continue
		}
		p, err := pl.draw(doc)
		if err != nil {
			return err
		}
		if err := report.SavePlot(p, pl.path); err != nil {
			return err
		}
	}

	if *chartPath != "" {
		err := fsutil.WriteRendered(fsys, *chartPath, func(w io.Writer) error {
			return report.SpeedChart(w, doc, cfg.GetUnits())
		})
		if err != nil {
			return err
		}
	}

	st := doc.Statistics
	fmt.Fprintf(stdout, "%s: %d points, %.1f m, %.1f s, mean %.1f km/h, max %.1f km/h\n",
		doc.RunID, st.NumPoints, st.TotalDistanceM, st.DurationS, st.MeanSpeedKmh, st.MaxSpeedKmh)
	return nil
}

func handlePlan(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	in := fs.String("in", "", "Waypoint document (required)")
	configPath := fs.String("config", "", "Tuning config JSON")
	limitKmh := fs.Float64("limit", 0, "Flat speed limit in km/h (default: per-point limits from road class, grade and bends)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	cfg, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	route, err := waypoints.Load(fsutil.OSFileSystem{}, *in)
	if err != nil {
		return err
	}

	opts := pipeline.OptionsFromTuning(cfg)
	limits := pipeline.RouteLimits(route, opts)
	if *limitKmh > 0 {
		for i := range limits {
			limits[i] = units.KmhToMps(*limitKmh)
		}
	}
	points := waypoints.LatLons(route)
	prof, err := planner.Plan(points, limits, opts.SimulationDt, opts.Plan)
	if err != nil {
		return err
	}
	pb, err := planner.Play(points, prof.Speeds, opts.SimulationDt, opts.Plan)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(planOutput{Profile: prof, Playback: pb})
}

// planOutput is what plan prints: the profile fields at the top level and
// the vehicle playback under "playback".
type planOutput struct {
	planner.Profile
	Playback planner.Playback `json:"playback"`
}
