package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mapgen/internal/pipeline"
)

type memRecorder struct {
	mu    sync.Mutex
	seeds []int64
}

func (m *memRecorder) Record(_ context.Context, cfg pipeline.Config, _ *pipeline.Artifacts) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds = append(m.seeds, cfg.Seed)
	return "digest", nil
}

func (m *memRecorder) Seeds() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.seeds...)
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := decodeBase(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return base.Type, msg
}

func baseConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Width, cfg.Height = 32, 32
	cfg.Tiles.Width, cfg.Tiles.Height = 4, 4
	cfg.Terrain.Octaves = 2
	cfg.Normalize()
	return cfg
}

func TestGenerateStreamsStages(t *testing.T) {
	rec := &memRecorder{}
	s := NewServer(baseConfig(), nil)
	s.Recorder = rec
	conn := dial(t, s)

	seed := int64(11)
	send(t, conn, GenerateMsg{Type: TypeGenerate, ProtocolVersion: Version, ID: "r1", Seed: &seed})

	var stages []string
	for {
		typ, msg := recv(t, conn)
		if typ == TypeDone {
			var done DoneMsg
			if err := json.Unmarshal(msg, &done); err != nil {
				t.Fatalf("done: %v", err)
			}
			if done.ID != "r1" || done.Digest != "digest" || done.Summary.Seed != 11 || done.Summary.Width != 32 {
				t.Fatalf("unexpected DONE %+v", done)
			}
			break
		}
		if typ != TypeStage {
			t.Fatalf("unexpected %s: %s", typ, msg)
		}
		var st StageMsg
		if err := json.Unmarshal(msg, &st); err != nil {
			t.Fatalf("stage: %v", err)
		}
		if st.Index != len(stages) || st.Total != 4 {
			t.Fatalf("stage %+v out of order", st)
		}
		stages = append(stages, st.Stage)
	}
	if strings.Join(stages, ",") != "voronoi,tiles,terrain,features" {
		t.Fatalf("stages = %v", stages)
	}
	if seeds := rec.Seeds(); len(seeds) != 1 || seeds[0] != 11 {
		t.Fatalf("recorder saw %v", seeds)
	}

	// The connection stays open for further requests.
	send(t, conn, GenerateMsg{Type: TypeGenerate, ProtocolVersion: Version, Stages: []string{"terrain"}})
	if typ, _ := recv(t, conn); typ != TypeStage {
		t.Fatalf("second request: got %s", typ)
	}
	if typ, _ := recv(t, conn); typ != TypeDone {
		t.Fatalf("second request: got %s", typ)
	}
}

func TestRejectsBadRequests(t *testing.T) {
	s := NewServer(baseConfig(), nil)
	s.MaxSide = 64
	conn := dial(t, s)

	cases := []any{
		map[string]string{"type": "HELLO"},
		GenerateMsg{Type: TypeGenerate, ProtocolVersion: "0"},
		GenerateMsg{Type: TypeGenerate, ProtocolVersion: Version, Width: 65},
		GenerateMsg{Type: TypeGenerate, ProtocolVersion: Version, Stages: []string{"lakes"}},
		GenerateMsg{Type: TypeGenerate, ProtocolVersion: Version, Stages: []string{"features"}},
	}
	for i, c := range cases {
		send(t, conn, c)
		typ, msg := recv(t, conn)
		if typ != TypeError {
			t.Fatalf("case %d: expected ERROR, got %s", i, msg)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if typ, _ := recv(t, conn); typ != TypeError {
		t.Fatalf("malformed json: got %s", typ)
	}
}
