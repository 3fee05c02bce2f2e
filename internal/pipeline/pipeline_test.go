package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/ditchline/internal/ditchdb"
	"github.com/banshee-data/ditchline/internal/raster"
	"github.com/banshee-data/ditchline/internal/rasterio"
	"github.com/banshee-data/ditchline/internal/threshold"
	"github.com/banshee-data/ditchline/internal/timeutil"
)

func ptr(v float64) *float64 { return &v }

func mustRaster(t *testing.T, width, height int, values []float64, nodata *float64) *raster.Raster {
	t.Helper()
	r, err := raster.New(width, height, values, nodata)
	if err != nil {
		t.Fatalf("raster.New(%dx%d): %v", width, height, err)
	}
	return r
}

func TestProcess_ScalarStrategy(t *testing.T) {
	residual := mustRaster(t, 2, 2, []float64{
		-0.3, -0.1,
		0.2, -0.2,
	}, nil)
	roads := mustRaster(t, 2, 2, []float64{
		1, 1,
		0, 0,
	}, nil)

	// fixed cutoff via a percentile low enough to flag the two lowest
	outcome, err := Process(residual, roads, &threshold.Percentile{P: 40})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// p40 over sorted [-0.3,-0.2,-0.1,0.2] = -0.21..., flags only -0.3
	if got := countSet(outcome.Candidates); got != 1 {
		t.Fatalf("candidate cells = %d, want 1", got)
	}
	// -0.3 sits in the road buffer, so it survives fusion
	if got := countSet(outcome.Fused); got != 1 {
		t.Fatalf("fused cells = %d, want 1", got)
	}
}

func TestProcess_ShapeMismatchFailsEarly(t *testing.T) {
	residual := mustRaster(t, 2, 2, []float64{1, 2, 3, 4}, nil)
	roads := mustRaster(t, 3, 2, []float64{1, 1, 1, 0, 0, 0}, nil)

	_, err := Process(residual, roads, &threshold.GlobalStatistical{K: 1.5})
	if !errors.Is(err, raster.ErrShapeMismatch) {
		t.Fatalf("error = %v, want raster.ErrShapeMismatch", err)
	}
}

func TestProcess_StrategyErrorsPropagate(t *testing.T) {
	residual := mustRaster(t, 2, 2, []float64{5, 5, 5, 5}, nil)
	roads := mustRaster(t, 2, 2, []float64{1, 1, 1, 1}, nil)

	_, err := Process(residual, roads, &threshold.GlobalStatistical{K: 1.5})
	if !errors.Is(err, threshold.ErrDegenerateInput) {
		t.Fatalf("error = %v, want threshold.ErrDegenerateInput", err)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	residual := mustRaster(t, 3, 2, []float64{
		-0.5, 0.1, -9999,
		0.2, -0.4, 0.0,
	}, ptr(-9999))
	roads := mustRaster(t, 3, 2, []float64{
		1, 1, 1,
		0, 1, 0,
	}, ptr(-9999))

	residualPath := filepath.Join(dir, "residual.asc")
	roadsPath := filepath.Join(dir, "roads.asc")
	outPath := filepath.Join(dir, "ditches.asc")
	if err := rasterio.WriteFile(residualPath, residual); err != nil {
		t.Fatalf("write residual: %v", err)
	}
	if err := rasterio.WriteFile(roadsPath, roads); err != nil {
		t.Fatalf("write roads: %v", err)
	}

	db, err := ditchdb.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := ditchdb.NewRunStore(db)

	summary, err := Run(Config{
		Residual: residualPath,
		RoadMask: roadsPath,
		Output:   outPath,
		Strategy: &threshold.Percentile{P: 25},
		Store:    store,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// p25 over sorted [-0.5,-0.4,0,0.1,0.2] = -0.4: only -0.5 flags,
	// and it lies inside the road buffer
	if summary.ValidCells != 5 {
		t.Fatalf("valid cells = %d, want 5", summary.ValidCells)
	}
	if summary.CandidateCells != 1 || summary.FusedCells != 1 {
		t.Fatalf("candidates/fused = %d/%d, want 1/1", summary.CandidateCells, summary.FusedCells)
	}
	if summary.Threshold == nil {
		t.Fatalf("scalar strategy should report a threshold")
	}
	if summary.ResidualMin != -0.5 || summary.ResidualMax != 0.2 {
		t.Fatalf("residual range [%g,%g], want [-0.5,0.2]", summary.ResidualMin, summary.ResidualMax)
	}

	// output raster written and loadable
	fused, err := rasterio.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := fused.At(0, 0); got != 1 {
		t.Fatalf("fused (0,0) = %g, want 1", got)
	}
	if !fused.IsNoData(fused.At(0, 2)) {
		t.Fatalf("fused (0,2) should stay nodata")
	}

	// run recorded
	if summary.RunID == "" {
		t.Fatalf("run id missing from summary")
	}
	run, err := store.GetRun(summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Strategy != "percentile" {
		t.Fatalf("recorded strategy = %q, want percentile", run.Strategy)
	}
	if run.CandidateCells != 1 {
		t.Fatalf("recorded candidates = %d, want 1", run.CandidateCells)
	}
}

func TestRun_FrozenClock(t *testing.T) {
	dir := t.TempDir()

	residual := mustRaster(t, 2, 2, []float64{-0.5, 0.1, 0.2, -0.4}, nil)
	roads := mustRaster(t, 2, 2, []float64{1, 1, 1, 1}, nil)

	residualPath := filepath.Join(dir, "residual.asc")
	roadsPath := filepath.Join(dir, "roads.asc")
	if err := rasterio.WriteFile(residualPath, residual); err != nil {
		t.Fatalf("write residual: %v", err)
	}
	if err := rasterio.WriteFile(roadsPath, roads); err != nil {
		t.Fatalf("write roads: %v", err)
	}

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	summary, err := Run(Config{
		Residual: residualPath,
		RoadMask: roadsPath,
		Output:   filepath.Join(dir, "out.asc"),
		Strategy: &threshold.Percentile{P: 30},
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Duration != 0 {
		t.Fatalf("duration = %v with a frozen clock, want 0", summary.Duration)
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(Config{
		Residual: filepath.Join(dir, "missing.asc"),
		RoadMask: filepath.Join(dir, "roads.asc"),
		Output:   filepath.Join(dir, "out.asc"),
		Strategy: &threshold.GlobalStatistical{K: 1.5},
	})
	if err == nil {
		t.Fatalf("expected error for missing input")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want wrapped os.ErrNotExist", err)
	}
}
