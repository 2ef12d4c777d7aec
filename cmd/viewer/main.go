//go:build ebiten

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"mapgen/internal/app"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	layer, err := cfg.Validate()
	if err != nil {
		log.Fatal(err)
	}
	pc, err := cfg.Pipeline.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	viewer, err := app.NewViewer(pc, layer, cfg.Step, log.New(os.Stderr, "viewer: ", 0))
	if err != nil {
		log.Fatal(err)
	}
	game := app.New(viewer, cfg.Scale, cfg.HUDWidth)

	ebiten.SetWindowTitle(fmt.Sprintf("mapgen: seed %d", pc.Seed))
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(pc.Width*cfg.Scale+cfg.HUDWidth, pc.Height*cfg.Scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
