// Package archive stores generated maps as zstd-compressed files: one JSON
// header line followed by a gob-encoded body.
package archive

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"mapgen/internal/core"
	"mapgen/internal/features"
	"mapgen/internal/pipeline"
	"mapgen/internal/tiles"
	"mapgen/internal/voronoi"
)

// Version is the current archive format version.
const Version = 1

// Ext is the conventional archive file extension.
const Ext = ".map.zst"

// ErrVersion reports an archive written in an unsupported format.
var ErrVersion = errors.New("archive: unsupported version")

type Header struct {
	Version int      `json:"version"`
	Seed    int64    `json:"seed"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Stages  []string `json:"stages"`
	Digest  string   `json:"digest"`
}

type TileV1 struct {
	Rule     int  `json:"rule"`
	Rotation int  `json:"rotation"`
	Forced   bool `json:"forced,omitempty"`
	Placed   bool `json:"placed"`
}

type FeatureV1 struct {
	Kind   uint8 `json:"kind"`
	Region int   `json:"region"`
	X      int   `json:"x"`
	Y      int   `json:"y"`
}

type MapV1 struct {
	Header Header `json:"header"`

	Regions []int     `json:"regions,omitempty"`
	Colors  []uint8   `json:"colors,omitempty"`
	Height  []float64 `json:"height,omitempty"`
	Water   []bool    `json:"water,omitempty"`

	TileW      int      `json:"tile_w,omitempty"`
	TileH      int      `json:"tile_h,omitempty"`
	TileRules  []string `json:"tile_rules,omitempty"`
	Tiles      []TileV1 `json:"tiles,omitempty"`
	TileFailed bool     `json:"tile_failed,omitempty"`

	Features []FeatureV1 `json:"features,omitempty"`
}

// FromArtifacts flattens a pipeline run into an archive body and stamps
// its digest.
func FromArtifacts(a *pipeline.Artifacts, stages []string) MapV1 {
	m := MapV1{Header: Header{Version: Version, Seed: a.Seed, Stages: append([]string(nil), stages...)}}
	if a.Regions != nil {
		m.Header.Width, m.Header.Height = a.Regions.W, a.Regions.H
		m.Regions = append([]int(nil), a.Regions.Cells()...)
	}
	if a.Colors != nil {
		m.Colors = make([]uint8, len(a.Colors.Cells()))
		for i, c := range a.Colors.Cells() {
			m.Colors[i] = uint8(c)
		}
	}
	if a.Height != nil {
		m.Header.Width, m.Header.Height = a.Height.W, a.Height.H
		m.Height = append([]float64(nil), a.Height.Cells()...)
	}
	if a.Water != nil {
		m.Water = append([]bool(nil), a.Water.Cells()...)
	}
	if a.Tiles != nil {
		m.TileW, m.TileH = a.Tiles.W, a.Tiles.H
		m.Tiles = make([]TileV1, len(a.Tiles.Cells()))
		for i, c := range a.Tiles.Cells() {
			m.Tiles[i] = TileV1{Rule: c.Rule, Rotation: c.Rotation, Forced: c.Forced, Placed: c.Placed}
		}
		m.TileFailed = a.TileFailed
		for _, r := range a.TileRules {
			m.TileRules = append(m.TileRules, r.Name)
		}
	}
	for _, f := range a.Features {
		m.Features = append(m.Features, FeatureV1{Kind: uint8(f.Kind), Region: f.Region, X: f.Pos.X, Y: f.Pos.Y})
	}
	m.Header.Digest = Digest(m)
	return m
}

// RegionGrid rebuilds the region grid, or nil when absent.
func (m MapV1) RegionGrid() *core.Grid[int] {
	if len(m.Regions) == 0 {
		return nil
	}
	return core.GridFrom(m.Header.Width, m.Header.Height, append([]int(nil), m.Regions...))
}

// ColorGrid rebuilds the biome grid, or nil when absent.
func (m MapV1) ColorGrid() *core.Grid[voronoi.Color] {
	if len(m.Colors) == 0 {
		return nil
	}
	cells := make([]voronoi.Color, len(m.Colors))
	for i, c := range m.Colors {
		cells[i] = voronoi.Color(c)
	}
	return core.GridFrom(m.Header.Width, m.Header.Height, cells)
}

// HeightGrid rebuilds the heightmap, or nil when absent.
func (m MapV1) HeightGrid() *core.Grid[float64] {
	if len(m.Height) == 0 {
		return nil
	}
	return core.GridFrom(m.Header.Width, m.Header.Height, append([]float64(nil), m.Height...))
}

// WaterGrid rebuilds the water mask, or nil when absent.
func (m MapV1) WaterGrid() *core.Grid[bool] {
	if len(m.Water) == 0 {
		return nil
	}
	return core.GridFrom(m.Header.Width, m.Header.Height, append([]bool(nil), m.Water...))
}

// TileGrid rebuilds the collapsed tile grid, or nil when absent.
func (m MapV1) TileGrid() *core.Grid[tiles.Cell] {
	if len(m.Tiles) == 0 {
		return nil
	}
	cells := make([]tiles.Cell, len(m.Tiles))
	for i, t := range m.Tiles {
		cells[i] = tiles.Cell{Rule: t.Rule, Rotation: t.Rotation, Forced: t.Forced, Placed: t.Placed}
	}
	return core.GridFrom(m.TileW, m.TileH, cells)
}

// Placements rebuilds the feature plan.
func (m MapV1) Placements() []features.Placement {
	out := make([]features.Placement, 0, len(m.Features))
	for _, f := range m.Features {
		out = append(out, features.Placement{Kind: features.Kind(f.Kind), Region: f.Region, Pos: core.Pt(f.X, f.Y)})
	}
	return out
}

// Write stores m at path, creating parent directories. A failed write
// removes the partial file.
func Write(path string, m MapV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()
	if err := encode(f, m); err != nil {
		return err
	}
	return f.Close()
}

// encode writes the compressed archive to w. The zstd frame is complete
// only when encode returns nil.
func encode(w io.Writer, m MapV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := writeBody(bw, m); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func writeBody(bw *bufio.Writer, m MapV1) error {
	hb, err := json.Marshal(m.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&m); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Name returns the conventional file name of an archive.
func Name(h Header) string {
	d := h.Digest
	if len(d) > 12 {
		d = d[:12]
	}
	return fmt.Sprintf("seed%d-%dx%d-%s%s", h.Seed, h.Width, h.Height, d, Ext)
}

// Save archives a run under dir with its conventional name and returns the
// absolute path written.
func Save(dir string, a *pipeline.Artifacts, stages []string) (string, MapV1, error) {
	m := FromArtifacts(a, stages)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", m, err
	}
	path := filepath.Join(dir, Name(m.Header))
	if err := Write(path, m); err != nil {
		return "", m, err
	}
	return path, m, nil
}

// Read loads an archive and checks its version and digest.
func Read(path string) (MapV1, error) {
	var m MapV1
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return m, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return m, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&m); err != nil {
		return m, fmt.Errorf("gob decode: %w", err)
	}
	if m.Header.Version != Version {
		return m, fmt.Errorf("%w: %d", ErrVersion, m.Header.Version)
	}
	if d := Digest(m); d != m.Header.Digest {
		return m, fmt.Errorf("%s: digest mismatch %s != %s", path, d, m.Header.Digest)
	}
	return m, nil
}

// ReadHeader decodes only the JSON header line of an archive.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// Digest hashes the map content. The header digest field is excluded.
func Digest(m MapV1) string {
	h := sha256.New()
	var tmp [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}

	writeU64(uint64(m.Header.Seed))
	writeU64(uint64(m.Header.Width))
	writeU64(uint64(m.Header.Height))
	writeU64(uint64(len(m.Regions)))
	for _, v := range m.Regions {
		writeU64(uint64(v))
	}
	h.Write(m.Colors)
	writeU64(uint64(len(m.Height)))
	for _, v := range m.Height {
		writeU64(math.Float64bits(v))
	}
	writeU64(uint64(len(m.Water)))
	for _, w := range m.Water {
		h.Write([]byte{boolByte(w)})
	}
	writeU64(uint64(m.TileW))
	writeU64(uint64(m.TileH))
	for _, t := range m.Tiles {
		writeU64(uint64(t.Rule))
		writeU64(uint64(t.Rotation))
		h.Write([]byte{boolByte(t.Forced), boolByte(t.Placed)})
	}
	h.Write([]byte{boolByte(m.TileFailed)})
	writeU64(uint64(len(m.Features)))
	for _, f := range m.Features {
		h.Write([]byte{f.Kind})
		writeU64(uint64(f.Region))
		writeU64(uint64(f.X))
		writeU64(uint64(f.Y))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
