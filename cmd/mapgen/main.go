package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"mapgen/internal/archive"
	"mapgen/internal/indexdb"
	"mapgen/internal/pipeline"
	"mapgen/internal/render"
	"mapgen/internal/tiles"
)

func main() {
	var o pipeline.Overrides
	o.Bind(flag.CommandLine)
	out := flag.String("out", "out", "directory for PNG layers and the archive")
	layers := flag.String("layers", "biomes,regions,terrain,tiles", "comma separated layers to write as PNG (empty for none)")
	scale := flag.Int("scale", 2, "pixels per cell in PNG layers")
	noArchive := flag.Bool("no-archive", false, "skip writing the .map.zst archive")
	indexPath := flag.String("index", "", "SQLite index to record the archive in (disabled when empty)")
	params := flag.Bool("params", false, "print the resolved parameters and exit")
	verbose := flag.Bool("v", false, "log engine warnings")
	flag.Parse()
	log.SetFlags(0)

	cfg, err := o.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *params {
		printParameters(cfg)
		return
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "mapgen: ", 0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	runner.OnEvent = func(ev pipeline.Event) {
		if ev.Err == nil {
			fmt.Printf("[%d/%d] %s (%s)\n", ev.Index+1, ev.Total, ev.Stage, ev.Elapsed.Round(time.Millisecond))
		}
	}
	art, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	summary := pipeline.Summarize(art)

	if *layers != "" {
		for _, name := range strings.Split(*layers, ",") {
			layer, err := render.ParseLayer(name)
			if err != nil {
				log.Fatalf("layers: %v", err)
			}
			img, err := render.Compose(art, layer, *scale, cfg.Terrain.WaterThreshold)
			if err != nil {
				fmt.Printf("skip %s: %v\n", layer, err)
				continue
			}
			path := filepath.Join(*out, fmt.Sprintf("seed%d-%s.png", cfg.Seed, layer))
			if err := render.WritePNG(path, img); err != nil {
				log.Fatalf("write %s: %v", path, err)
			}
			fmt.Printf("wrote %s\n", path)
		}
	}

	if !*noArchive {
		path, m, err := archive.Save(*out, art, cfg.Stages)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		fmt.Printf("wrote %s (digest %s)\n", path, m.Header.Digest)
		if *indexPath != "" {
			if err := record(ctx, *indexPath, path, m.Header, summary, cfg); err != nil {
				log.Fatalf("index: %v", err)
			}
		}
	}

	fmt.Println(summary)
}

func record(ctx context.Context, dbPath, path string, h archive.Header, s pipeline.Summary, cfg pipeline.Config) error {
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()
	if cfg.Has(pipeline.StageTiles) {
		rs, err := tiles.DefaultRuleSet()
		if cfg.Tiles.Rules != "" {
			rs, err = tiles.LoadRuleSet(cfg.Tiles.Rules)
		}
		if err != nil {
			return err
		}
		if err := idx.UpsertRuleSet(ctx, rs); err != nil {
			return err
		}
	}
	idx.RecordMap(path, h, s)
	return idx.Flush(ctx)
}

func printParameters(cfg pipeline.Config) {
	for _, g := range cfg.Parameters().Groups {
		fmt.Printf("%s", g.Name)
		if g.Summary != "" {
			fmt.Printf("  (%s)", g.Summary)
		}
		fmt.Println()
		for _, p := range g.Params {
			fmt.Printf("  %-20s %-8s %s\n", p.Key, p.Type, p.Value)
		}
	}
}
