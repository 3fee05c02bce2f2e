// Command ditchline extracts likely roadside-ditch locations from an
// elevation-residual raster: it thresholds the residual with the
// selected strategy, fuses the candidate mask with a road-proximity
// mask, writes the fused raster and optionally records the run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/ditchline/internal/config"
	"github.com/banshee-data/ditchline/internal/ditchdb"
	"github.com/banshee-data/ditchline/internal/pipeline"
	"github.com/banshee-data/ditchline/internal/threshold"
)

func main() {
	var (
		residualPath = flag.String("residual", "", "path to elevation-residual raster (.asc, .grid, .grid.gz)")
		roadsPath    = flag.String("roads", "", "path to road-proximity mask raster, same grid as the residual")
		outPath      = flag.String("out", "", "path for the fused output raster")
		strategyName = flag.String("strategy", threshold.NameGlobalStatistical,
			"threshold strategy: global_statistical, percentile, local_adaptive or clustering")

		k          = flag.Float64("k", threshold.DefaultK, "global_statistical: threshold at mean - k*sigma")
		percentile = flag.Float64("percentile", 10, "percentile: threshold at the p-th percentile, 0 < p < 100")
		blockSize  = flag.Int("block-size", 31, "local_adaptive: odd window side length in cells")
		method     = flag.String("method", "mean", "local_adaptive: window weighting, mean or gaussian")
		offset     = flag.Float64("offset", 0, "local_adaptive: subtracted from each local mean")
		workers    = flag.Int("workers", 0, "local_adaptive: row-partition parallelism, 0 = GOMAXPROCS")
		clusters   = flag.Int("clusters", 2, "clustering: number of k-means centroids")
		seed       = flag.Int64("seed", 0, "clustering: PRNG seed for reproducible thresholds")

		configPath    = flag.String("config", "", "optional JSON defaults file for strategy parameters")
		dbPath        = flag.String("db", "", "optional sqlite runs database; runs are recorded when set")
		migrationsDir = flag.String("migrations", "migrations", "path to runs database migrations")
		verbose       = flag.Bool("verbose", false, "enable debug logging")
		asJSON        = flag.Bool("json", false, "print the run summary as JSON")
	)
	flag.Parse()

	if *residualPath == "" || *roadsPath == "" || *outPath == "" {
		log.Printf("missing required flags: -residual, -roads and -out")
		flag.Usage()
		os.Exit(2)
	}

	// A defaults file fills in any strategy parameter the command line
	// left at its built-in default; explicit flags always win.
	if *configPath != "" {
		defaults, err := config.LoadStrategyDefaults(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if !set["strategy"] {
			*strategyName = defaults.GetStrategy()
		}
		if !set["k"] {
			*k = defaults.GetK()
		}
		if !set["percentile"] {
			*percentile = defaults.GetPercentile()
		}
		if !set["block-size"] {
			*blockSize = defaults.GetBlockSize()
		}
		if !set["method"] {
			*method = defaults.GetMethod()
		}
		if !set["offset"] {
			*offset = defaults.GetOffset()
		}
		if !set["workers"] {
			*workers = defaults.GetWorkers()
		}
		if !set["clusters"] {
			*clusters = defaults.GetClusters()
		}
		if !set["seed"] {
			*seed = defaults.GetSeed()
		}
	}

	strategy, err := threshold.ParseStrategy(*strategyName, threshold.Params{
		K:         *k,
		P:         *percentile,
		BlockSize: *blockSize,
		Method:    *method,
		Offset:    *offset,
		Clusters:  *clusters,
		Seed:      *seed,
		Workers:   *workers,
	})
	if err != nil {
		log.Fatalf("strategy selection: %v", err)
	}

	cfg := pipeline.Config{
		Residual: *residualPath,
		RoadMask: *roadsPath,
		Output:   *outPath,
		Strategy: strategy,
		Verbose:  *verbose,
	}

	if *dbPath != "" {
		db, err := ditchdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("open runs db: %v", err)
		}
		defer db.Close()
		if err := db.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("migrate runs db: %v", err)
		}
		cfg.Store = ditchdb.NewRunStore(db)
	}

	summary, err := pipeline.Run(cfg)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	if *asJSON {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			log.Fatalf("marshal summary: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	if summary.Threshold != nil {
		fmt.Printf("threshold: %g\n", *summary.Threshold)
	}
	fmt.Printf("valid cells: %d\n", summary.ValidCells)
	fmt.Printf("candidate cells: %d\n", summary.CandidateCells)
	fmt.Printf("fused cells: %d\n", summary.FusedCells)
	if summary.RunID != "" {
		fmt.Printf("run id: %s\n", summary.RunID)
	}
}
