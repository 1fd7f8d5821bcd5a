package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.VehicleMassKg == nil || *cfg.VehicleMassKg != 1400.0 {
		t.Errorf("Expected VehicleMassKg 1400, got %v", cfg.VehicleMassKg)
	}
	if cfg.ControllerKp == nil || *cfg.ControllerKp != 0.25 {
		t.Errorf("Expected ControllerKp 0.25, got %v", cfg.ControllerKp)
	}
	if cfg.Units == nil || *cfg.Units != "kmph" {
		t.Errorf("Expected Units 'kmph', got %v", cfg.Units)
	}
	if len(cfg.GearRatios) != GearCount {
		t.Errorf("Expected %d gear ratios, got %d", GearCount, len(cfg.GearRatios))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestEmptyConfigGettersReturnDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ekf initial dt", cfg.GetEKFInitialDt(), 0.1},
		{"ekf initial covariance", cfg.GetEKFInitialCovariance(), 10.0},
		{"ekf measurement noise", cfg.GetEKFMeasurementNoise(), 3.0},
		{"min step dt", cfg.GetMinStepDt(), 0.05},
		{"max step dt", cfg.GetMaxStepDt(), 2.0},
		{"max long decel", cfg.GetMaxLongDecel(), -3.0},
		{"idle rpm", cfg.GetIdleRPM(), 800.0},
		{"max brake force", cfg.GetMaxBrakeForceN(), 9000.0},
		{"final drive", cfg.GetFinalDriveRatio(), 4.35},
		{"traction limit", cfg.GetTractionLimit(), 4.0},
		{"abs limit", cfg.GetABSLimit(), 8.0},
		{"plan brake decel", cfg.GetPlanBrakeDecel(), 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	want := []float64{3.54, 2.06, 1.36, 1.03, 0.84, 0.70}
	if diff := cmp.Diff(want, cfg.GetGearRatios()); diff != "" {
		t.Errorf("GetGearRatios() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetGearRatiosReturnsCopy(t *testing.T) {
	cfg := &TuningConfig{GearRatios: []float64{4, 3, 2, 1.5, 1, 0.8}}
	got := cfg.GetGearRatios()
	got[0] = 99
	if cfg.GearRatios[0] != 4 {
		t.Errorf("GetGearRatios leaked internal slice")
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "vehicle_mass_kg": 1500,
  "frontal_area_m2": 2.5,
  "drag_coefficient": 0.35,
  "max_brake_force_n": 8000,
  "units": "mph"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetVehicleMassKg() != 1500 {
		t.Errorf("GetVehicleMassKg() = %f, want 1500", cfg.GetVehicleMassKg())
	}
	if cfg.GetDragCoefficient() != 0.35 {
		t.Errorf("GetDragCoefficient() = %f, want 0.35", cfg.GetDragCoefficient())
	}
	if cfg.GetUnits() != "mph" {
		t.Errorf("GetUnits() = %q, want mph", cfg.GetUnits())
	}
	// omitted fields fall back to defaults
	if cfg.GetMaxTorqueNm() != 220 {
		t.Errorf("GetMaxTorqueNm() = %f, want default 220", cfg.GetMaxTorqueNm())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.yaml")
		_ = os.WriteFile(path, []byte("{}"), 0644)
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for non-json extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadTuningConfig(filepath.Join(tmpDir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		_ = os.WriteFile(path, []byte("{not json"), 0644)
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.json")
		_ = os.WriteFile(path, []byte(`{"vehicle_mass_kg": -1}`), 0644)
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected validation error for negative mass")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config", EmptyTuningConfig(), false},
		{"defaults", DefaultTuningConfig(), false},
		{"zero mass", &TuningConfig{VehicleMassKg: ptrFloat64(0)}, true},
		{"negative process noise", &TuningConfig{EKFProcessNoiseVel: ptrFloat64(-0.1)}, true},
		{"min dt above max dt", &TuningConfig{MinStepDt: ptrFloat64(3), MaxStepDt: ptrFloat64(2)}, true},
		{"rpm bands out of order", &TuningConfig{IdleRPM: ptrFloat64(5000)}, true},
		{"accel clamp not straddling zero", &TuningConfig{AccelMin: ptrFloat64(1)}, true},
		{"wrong gear count", &TuningConfig{GearRatios: []float64{3, 2, 1}}, true},
		{"non-positive gear ratio", &TuningConfig{GearRatios: []float64{3, 2, 1, 0, 0.8, 0.7}}, true},
		{"bad units", &TuningConfig{Units: ptrString("furlongs")}, true},
		{"good units", &TuningConfig{Units: ptrString("mps")}, false},
		{"declination east", &TuningConfig{MagDeclinationRad: ptrFloat64(0.1)}, false},
		{"declination past pi", &TuningConfig{MagDeclinationRad: ptrFloat64(4)}, true},
		{"declination nan", &TuningConfig{MagDeclinationRad: ptrFloat64(math.NaN())}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfigMatchesBuiltins(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	builtin := DefaultTuningConfig()
	if diff := cmp.Diff(builtin, fromFile); diff != "" {
		t.Errorf("config/tuning.defaults.json drifted from built-in defaults (-builtin +file):\n%s", diff)
	}
}
