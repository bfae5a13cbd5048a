package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/fountain/config"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}
	// Nil manager methods are no-ops
	if err := om.WritePerf(PerfStatsCSV{}); err != nil {
		t.Errorf("WritePerf on nil: %v", err)
	}
	if err := om.WriteBenchmark([]BenchmarkResult{{Mode: "scalar"}}); err != nil {
		t.Errorf("WriteBenchmark on nil: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("expected empty Dir, got %q", om.Dir())
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestOutputManager_WritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WritePerf(PerfStatsCSV{Frame: 60, Mode: "parallel", Particles: 10}); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WritePerf(PerfStatsCSV{Frame: 120, Mode: "blas", Particles: 10}); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteBenchmark([]BenchmarkResult{{Mode: "scalar", Frames: 3}, {Mode: "device", Skipped: "unavailable"}}); err != nil {
		t.Fatalf("WriteBenchmark: %v", err)
	}
	if err := om.WriteBenchmark([]BenchmarkResult{{Mode: "vector8", Frames: 3}}); err != nil {
		t.Fatalf("WriteBenchmark: %v", err)
	}
	if err := om.WriteConfig(config.Defaults()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	perfData, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(perfData), "frame,mode"); n != 1 {
		t.Errorf("expected exactly one perf header, got %d", n)
	}
	var perfRows []PerfStatsCSV
	if err := gocsv.UnmarshalBytes(perfData, &perfRows); err != nil {
		t.Fatalf("parsing perf.csv: %v", err)
	}
	if len(perfRows) != 2 || perfRows[1].Mode != "blas" || perfRows[1].Frame != 120 {
		t.Errorf("unexpected perf rows: %+v", perfRows)
	}

	benchData, err := os.ReadFile(filepath.Join(dir, "benchmark.csv"))
	if err != nil {
		t.Fatal(err)
	}
	var benchRows []BenchmarkResult
	if err := gocsv.UnmarshalBytes(benchData, &benchRows); err != nil {
		t.Fatalf("parsing benchmark.csv: %v", err)
	}
	if len(benchRows) != 3 {
		t.Fatalf("expected 3 benchmark rows, got %d", len(benchRows))
	}
	if benchRows[1].Skipped != "unavailable" || benchRows[2].Mode != "vector8" {
		t.Errorf("unexpected benchmark rows: %+v", benchRows)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("expected config snapshot: %v", err)
	}
}
