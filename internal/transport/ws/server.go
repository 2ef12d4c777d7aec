// Package ws streams pipeline runs over a websocket. A client sends
// GENERATE requests; the server answers with one STAGE message per
// completed stage followed by DONE or ERROR.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mapgen/internal/pipeline"
)

// DefaultMaxSide bounds the map dimensions a client may request.
const DefaultMaxSide = 1024

// Recorder persists a finished run and returns its digest.
type Recorder interface {
	Record(ctx context.Context, cfg pipeline.Config, a *pipeline.Artifacts) (string, error)
}

type Server struct {
	base pipeline.Config
	log  *log.Logger

	// MaxSide caps requested width and height.
	MaxSide int
	// Recorder, when set, stores every successful run.
	Recorder Recorder

	upgrader websocket.Upgrader
}

func NewServer(base pipeline.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		base:    base,
		log:     logger,
		MaxSide: DefaultMaxSide,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := decodeBase(msg)
			if err != nil {
				if writeJSON(conn, ErrorMsg{Type: TypeError, Error: "malformed message"}) != nil {
					return
				}
				continue
			}
			if base.Type != TypeGenerate {
				if writeJSON(conn, ErrorMsg{Type: TypeError, Error: fmt.Sprintf("unexpected message type %q", base.Type)}) != nil {
					return
				}
				continue
			}
			var req GenerateMsg
			if err := json.Unmarshal(msg, &req); err != nil {
				if writeJSON(conn, ErrorMsg{Type: TypeError, Error: "malformed GENERATE"}) != nil {
					return
				}
				continue
			}
			if err := s.generate(ctx, conn, req); err != nil {
				s.log.Printf("ws: %v", err)
				return
			}
		}
	}
}

// generate runs one request. Only connection write failures are returned;
// pipeline failures are reported to the client.
func (s *Server) generate(ctx context.Context, conn *websocket.Conn, req GenerateMsg) error {
	fail := func(err error) error {
		return writeJSON(conn, ErrorMsg{Type: TypeError, ID: req.ID, Error: err.Error()})
	}
	if req.ProtocolVersion != Version {
		return fail(fmt.Errorf("bad protocol_version %q", req.ProtocolVersion))
	}
	cfg, err := s.configFor(req)
	if err != nil {
		return fail(err)
	}
	runner, err := pipeline.NewRunner(cfg, s.log)
	if err != nil {
		return fail(err)
	}

	var writeErr error
	runner.OnEvent = func(ev pipeline.Event) {
		if ev.Err != nil || writeErr != nil {
			return
		}
		writeErr = writeJSON(conn, StageMsg{
			Type:      TypeStage,
			ID:        req.ID,
			Stage:     ev.Stage,
			Index:     ev.Index,
			Total:     ev.Total,
			ElapsedMS: ev.Elapsed.Milliseconds(),
		})
	}
	for {
		done, err := runner.Step(ctx)
		if writeErr != nil {
			return writeErr
		}
		if err != nil {
			return fail(err)
		}
		if done {
			break
		}
	}

	art := runner.Artifacts()
	out := DoneMsg{Type: TypeDone, ID: req.ID, Summary: pipeline.Summarize(art)}
	if s.Recorder != nil {
		digest, err := s.Recorder.Record(ctx, runner.Config(), art)
		if err != nil {
			s.log.Printf("ws: record seed %d: %v", cfg.Seed, err)
		}
		out.Digest = digest
	}
	return writeJSON(conn, out)
}

func (s *Server) configFor(req GenerateMsg) (pipeline.Config, error) {
	cfg := s.base
	cfg.Stages = append([]string(nil), cfg.Stages...)
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Width != 0 {
		cfg.Width = req.Width
	}
	if req.Height != 0 {
		cfg.Height = req.Height
	}
	if len(req.Stages) > 0 {
		cfg.Stages = append([]string(nil), req.Stages...)
	}
	if s.MaxSide > 0 && (cfg.Width > s.MaxSide || cfg.Height > s.MaxSide) {
		return cfg, fmt.Errorf("%w: size %dx%d exceeds %d", pipeline.ErrInvalidConfig, cfg.Width, cfg.Height, s.MaxSide)
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
