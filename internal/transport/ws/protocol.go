package ws

import (
	"encoding/json"

	"mapgen/internal/pipeline"
)

// Version is the protocol version carried by every request.
const Version = "1"

// Message types.
const (
	TypeGenerate = "GENERATE"
	TypeStage    = "STAGE"
	TypeDone     = "DONE"
	TypeError    = "ERROR"
)

// BaseMessage carries the fields shared by every message.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func decodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// GenerateMsg asks the server to run the pipeline. Zero fields keep the
// server defaults.
type GenerateMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	Stages          []string `json:"stages,omitempty"`
}

// StageMsg reports one completed stage.
type StageMsg struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Stage     string `json:"stage"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// DoneMsg closes a successful run.
type DoneMsg struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Digest  string           `json:"digest,omitempty"`
	Summary pipeline.Summary `json:"summary"`
}

// ErrorMsg reports a rejected request or a failed run.
type ErrorMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}
