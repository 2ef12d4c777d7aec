package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"time"

	"mapgen/internal/archive"
	"mapgen/internal/indexdb"
	"mapgen/internal/pipeline"
)

type aggregate struct {
	runs        int
	errors      int
	failedTiles int
	forcedRuns  int
	regions     int
	waterCells  int
	features    int
}

func main() {
	var o pipeline.Overrides
	o.Bind(flag.CommandLine)
	count := flag.Int("count", 32, "number of consecutive seeds to run, starting at -seed")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	top := flag.Int("top", 5, "number of runs to list, ranked by region count")
	archiveDir := flag.String("archive", "", "directory to archive every run into (disabled when empty)")
	indexPath := flag.String("index", "", "SQLite index for archived runs (needs -archive)")
	flag.Parse()
	log.SetFlags(0)

	cfg, err := o.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *count <= 0 {
		log.Fatalf("-count must be positive")
	}

	var idx *indexdb.SQLiteIndex
	if *indexPath != "" {
		if *archiveDir == "" {
			log.Fatalf("-index needs -archive")
		}
		if idx, err = indexdb.OpenSQLite(*indexPath); err != nil {
			log.Fatalf("index: %v", err)
		}
		defer idx.Close()
	}

	seeds := make([]int64, *count)
	for i := range seeds {
		seeds[i] = cfg.Seed + int64(i)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Sweeping %d seeds from %d (%d workers, %dx%d, stages %v)\n",
		len(seeds), cfg.Seed, *workers, cfg.Width, cfg.Height, cfg.Stages)

	start := time.Now()
	var all []pipeline.SweepResult
	var agg aggregate
	for res := range pipeline.Sweep(ctx, cfg, seeds, *workers, *archiveDir != "") {
		agg.runs++
		if res.Err != nil {
			agg.errors++
			fmt.Printf("seed %d: %v\n", res.Seed, res.Err)
			continue
		}
		s := res.Summary
		if s.TilesFailed {
			agg.failedTiles++
			fmt.Printf("seed %d: tile collapse failed after %d backtracks\n", res.Seed, s.Backtracks)
		}
		if s.TilesForced > 0 {
			agg.forcedRuns++
		}
		agg.regions += s.Regions
		agg.waterCells += s.WaterCells
		agg.features += s.Features
		if res.Artifacts != nil {
			path, m, err := archive.Save(*archiveDir, res.Artifacts, cfg.Stages)
			if err != nil {
				log.Fatalf("archive seed %d: %v", res.Seed, err)
			}
			idx.RecordMap(path, m.Header, s)
			res.Artifacts = nil
		}
		all = append(all, res)
	}
	if idx != nil {
		if err := idx.Flush(ctx); err != nil {
			log.Printf("index flush: %v", err)
		}
	}
	elapsed := time.Since(start)

	sort.Slice(all, func(i, j int) bool {
		if all[i].Summary.Regions != all[j].Summary.Regions {
			return all[i].Summary.Regions > all[j].Summary.Regions
		}
		return all[i].Seed < all[j].Seed
	})
	fmt.Printf("\nTop %d by regions (elapsed %s):\n", min(*top, len(all)), elapsed.Round(time.Millisecond))
	for i := 0; i < len(all) && i < *top; i++ {
		fmt.Printf("%2d) %s (%s)\n", i+1, all[i].Summary, all[i].Elapsed.Round(time.Millisecond))
	}

	ok := agg.runs - agg.errors
	if ok == 0 {
		fmt.Printf("\nNo successful runs out of %d\n", agg.runs)
		return
	}
	fmt.Printf("\nRuns %d (errors %d): mean regions %.1f, mean water cells %.1f, mean features %.1f, forced runs %d, failed tile runs %d\n",
		agg.runs, agg.errors,
		float64(agg.regions)/float64(ok),
		float64(agg.waterCells)/float64(ok),
		float64(agg.features)/float64(ok),
		agg.forcedRuns, agg.failedTiles)
}
