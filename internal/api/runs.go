package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/trajectory/internal/db"
	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/banshee-data/trajectory/internal/httputil"
	"github.com/banshee-data/trajectory/internal/pipeline"
	"github.com/banshee-data/trajectory/internal/planner"
	"github.com/banshee-data/trajectory/internal/report"
	"github.com/banshee-data/trajectory/internal/security"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/waypoints"
	"gonum.org/v1/plot"
)

// runFunc is pipeline.Fuse or pipeline.Simulate.
type runFunc func([]waypoints.Point, pipeline.Options) (*waypoints.Document, error)

// RunSummaryAPI is a stored run with speeds in the server's display units.
type RunSummaryAPI struct {
	RunID          string    `json:"run_id"`
	Mode           string    `json:"mode"`
	CreatedAt      time.Time `json:"created_at"`
	NumPoints      int       `json:"num_points"`
	TotalDistanceM float64   `json:"total_distance_m"`
	DurationS      float64   `json:"duration_s"`
	MeanSpeed      float64   `json:"mean_speed"`
	MaxSpeed       float64   `json:"max_speed"`
	Units          string    `json:"units"`
}

func (s *Server) summaryToAPI(r db.RunSummary) RunSummaryAPI {
	return RunSummaryAPI{
		RunID:          r.RunID,
		Mode:           r.Mode,
		CreatedAt:      r.CreatedAt,
		NumPoints:      r.NumPoints,
		TotalDistanceM: r.TotalDistanceM,
		DurationS:      r.DurationS,
		MeanSpeed:      units.ConvertSpeed(units.KmhToMps(r.MeanSpeedKmh), s.units),
		MaxSpeed:       units.ConvertSpeed(units.KmhToMps(r.MaxSpeedKmh), s.units),
		Units:          s.units,
	}
}

// createRun handles POST /api/runs/fuse and /api/runs/simulate. The body is
// a waypoint document; the stored run is returned.
func (s *Server) createRun(run runFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}

		route, err := waypoints.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("Invalid waypoint document: %v", err))
			return
		}

		doc, err := run(route, s.opts)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, waypoints.ErrTooFewPoints) {
				status = http.StatusBadRequest
			}
			httputil.WriteJSONError(w, status, err.Error())
			return
		}

		if err := s.db.SaveRun(doc); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to store run: %v", err))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, doc)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	out := make([]RunSummaryAPI, len(runs))
	for i, run := range runs {
		out[i] = s.summaryToAPI(run)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// handleRunByID handles GET/DELETE /api/runs/:id, GET /api/runs/:id/chart
// and the GET /api/runs/:id/track.png and speed.png plots.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		httputil.BadRequest(w, "Missing run ID")
		return
	}
	id := pathParts[0]

	view := ""
	switch len(pathParts) {
	case 1:
	case 2:
		view = pathParts[1]
	default:
		httputil.NotFound(w, "Not found")
		return
	}

	switch {
	case view == "" && r.Method == http.MethodGet:
		s.getRun(w, id)
	case view == "" && r.Method == http.MethodDelete:
		s.deleteRun(w, id)
	case view == "chart" && r.Method == http.MethodGet:
		s.runChart(w, id)
	case view == "track.png" && r.Method == http.MethodGet:
		s.runPlot(w, id, "track", report.TrackPlot)
	case view == "speed.png" && r.Method == http.MethodGet:
		s.runPlot(w, id, "speed", report.SpeedPlot)
	case view != "chart" && view != "track.png" && view != "speed.png" && view != "":
		httputil.NotFound(w, "Not found")
	default:
		httputil.MethodNotAllowed(w)
	}
}

// loadRun writes the error response itself and returns nil when the run
// cannot be loaded.
func (s *Server) loadRun(w http.ResponseWriter, id string) *waypoints.Document {
	doc, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "Run not found")
		return nil
	}
	if err != nil {
		log.Printf("Error loading run %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to load run")
		return nil
	}
	return doc
}

func (s *Server) getRun(w http.ResponseWriter, id string) {
	if doc := s.loadRun(w, id); doc != nil {
		httputil.WriteJSON(w, http.StatusOK, doc)
	}
}

func (s *Server) deleteRun(w http.ResponseWriter, id string) {
	err := s.db.DeleteRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "Run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to delete run: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runChart(w http.ResponseWriter, id string) {
	doc := s.loadRun(w, id)
	if doc == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.SpeedChart(&buf, doc, s.units); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteBody(w, "text/html; charset=utf-8", "", buf.Bytes())
}

// runPlot renders one of the report plots as a PNG download named
// <run>-<name>.png.
func (s *Server) runPlot(w http.ResponseWriter, id, name string, draw func(*waypoints.Document) (*plot.Plot, error)) {
	doc := s.loadRun(w, id)
	if doc == nil {
		return
	}
	p, err := draw(doc)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
		return
	}
	var buf bytes.Buffer
	if err := report.WritePNG(&buf, p); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
		return
	}
	httputil.WriteBody(w, "image/png", security.SanitizeFilename(doc.RunID)+"-"+name+".png", buf.Bytes())
}

// PlanRequest is the body of POST /api/plan. Polyline points are
// [lat, lon] pairs; speed limits are m/s per point or per segment.
type PlanRequest struct {
	Polyline      [][2]float64 `json:"polyline"`
	SpeedLimitMps []float64    `json:"speed_limit_mps"`
	Dt            float64      `json:"dt"`
}

// PlanResponse carries the planned speeds and the speeds a vehicle playing
// the plan back reaches, both in display units.
type PlanResponse struct {
	Speeds        []float64 `json:"speeds"`
	Units         string    `json:"units"`
	DistanceKm    float64   `json:"distance_km"`
	ETAMinutes    float64   `json:"eta_minutes"`
	VehicleSpeeds []float64 `json:"vehicle_speeds"`
	HeadingsDeg   []float64 `json:"headings_deg"`
	AccelLong     []float64 `json:"accel_long_ms2"`
	GyroZ         []float64 `json:"gyro_z_rps"`
	VehicleETA    float64   `json:"eta_minutes_vehicle"`
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}
	if len(req.Polyline) < 2 {
		httputil.BadRequest(w, "Polyline too short")
		return
	}
	if len(req.SpeedLimitMps) == 0 {
		httputil.BadRequest(w, "Missing speed limits")
		return
	}
	if req.Dt <= 0 {
		req.Dt = s.opts.SimulationDt
	}

	points := make([]geo.LatLon, len(req.Polyline))
	for i, p := range req.Polyline {
		points[i] = geo.LatLon{Lat: p[0], Lon: p[1]}
	}
	prof, err := planner.Plan(points, req.SpeedLimitMps, req.Dt, s.opts.Plan)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, planner.ErrLimitMismatch) || errors.Is(err, planner.ErrTooShort) {
			status = http.StatusBadRequest
		}
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	pb, err := planner.Play(points, prof.Speeds, req.Dt, s.opts.Plan)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PlanResponse{
		Speeds:        s.displaySpeeds(prof.Speeds),
		Units:         s.units,
		DistanceKm:    prof.DistanceKm,
		ETAMinutes:    prof.ETAMinutes,
		VehicleSpeeds: s.displaySpeeds(pb.Speeds),
		HeadingsDeg:   pb.HeadingsDeg,
		AccelLong:     pb.AccelLong,
		GyroZ:         pb.GyroZ,
		VehicleETA:    pb.ETAMinutes,
	})
}

func (s *Server) displaySpeeds(mps []float64) []float64 {
	out := make([]float64, len(mps))
	for i, v := range mps {
		out[i] = units.ConvertSpeed(v, s.units)
	}
	return out
}

// SnapRequest is the body of POST /api/snap: a [lat, lon] point and the
// polyline to snap it onto.
type SnapRequest struct {
	Point    [2]float64   `json:"point"`
	Polyline [][2]float64 `json:"polyline"`
}

// SnapResponse is the nearest point on the polyline and its distance.
type SnapResponse struct {
	Point     [2]float64 `json:"point"`
	DistanceM float64    `json:"distance_m"`
}

func (s *Server) snap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req SnapRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}
	if len(req.Polyline) == 0 {
		httputil.BadRequest(w, "Missing polyline")
		return
	}

	line := make([]geo.LatLon, len(req.Polyline))
	for i, p := range req.Polyline {
		line[i] = geo.LatLon{Lat: p[0], Lon: p[1]}
	}
	q, d := geo.NearestOnPolyline(geo.LatLon{Lat: req.Point[0], Lon: req.Point[1]}, line)
	httputil.WriteJSON(w, http.StatusOK, SnapResponse{Point: [2]float64{q.Lat, q.Lon}, DistanceM: d})
}
