package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"mapgen/internal/archive"
	"mapgen/internal/indexdb"
	"mapgen/internal/pipeline"
	"mapgen/internal/transport/ws"
)

// store archives finished runs and records them in the index.
type store struct {
	dir string
	idx *indexdb.SQLiteIndex
}

func (s *store) Record(_ context.Context, cfg pipeline.Config, a *pipeline.Artifacts) (string, error) {
	path, m, err := archive.Save(s.dir, a, cfg.Stages)
	if err != nil {
		return m.Header.Digest, err
	}
	s.idx.RecordMap(path, m.Header, pipeline.Summarize(a))
	return m.Header.Digest, nil
}

func main() {
	var o pipeline.Overrides
	o.Bind(flag.CommandLine)
	addr := flag.String("addr", ":8080", "listen address")
	archiveDir := flag.String("archive", "", "directory to archive generated maps into (disabled when empty)")
	indexPath := flag.String("index", "", "SQLite index of archived maps (needs -archive)")
	maxSide := flag.Int("max-side", ws.DefaultMaxSide, "largest width or height a client may request")
	flag.Parse()

	logger := log.New(os.Stderr, "mapserve: ", log.LstdFlags)

	cfg, err := o.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	srv := ws.NewServer(cfg, logger)
	srv.MaxSide = *maxSide

	var idx *indexdb.SQLiteIndex
	if *indexPath != "" {
		if *archiveDir == "" {
			logger.Fatalf("-index needs -archive")
		}
		if idx, err = indexdb.OpenSQLite(*indexPath); err != nil {
			logger.Fatalf("index: %v", err)
		}
		defer idx.Close()
	}
	if *archiveDir != "" {
		srv.Recorder = &store{dir: *archiveDir, idx: idx}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if idx != nil {
		mux.HandleFunc("GET /maps/{digest}", func(w http.ResponseWriter, r *http.Request) {
			if err := idx.Flush(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			row, err := idx.Lookup(r.Context(), r.PathValue("digest"))
			if errors.Is(err, indexdb.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(row)
		})
	}

	hs := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s (default %dx%d seed %d)", *addr, cfg.Width, cfg.Height, cfg.Seed)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}
