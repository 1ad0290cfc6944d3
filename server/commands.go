package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pthm-cable/flock/boids"
)

//go:embed commands.json
var commandSchemaJSON string

// commandSchema validates inbound websocket commands before any field is
// trusted.
var commandSchema = jsonschema.MustCompileString("commands.json", commandSchemaJSON)

// command is a decoded control message. Value carries float64 for numeric
// parameters and string for boundary_mode.
type command struct {
	Cmd   string `json:"cmd"`
	Name  string `json:"name"`
	Value any    `json:"value"`
	Count int    `json:"count"`
}

// applyCommand validates and executes one raw command payload, returning
// the ack to send back to the issuing client. Rejected commands leave the
// simulation untouched.
func (s *Server) applyCommand(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parsing command: %w", err)
	}
	if err := commandSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("rejecting command: %w", err)
	}

	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("decoding command: %w", err)
	}

	ack := ackMessage{Type: "ack", Cmd: cmd.Cmd}
	switch cmd.Cmd {
	case "set_param":
		if err := s.setParam(cmd); err != nil {
			return nil, err
		}
	case "set_count":
		got := s.engine.SetPopulation(cmd.Count)
		s.runner.Collector().RecordPopulationChange()
		slog.Info("population set", "requested", cmd.Count, "population", got)
	case "add_agents":
		added := s.engine.AddAgents(cmd.Count)
		if added > 0 {
			s.runner.Collector().RecordPopulationChange()
		}
		ack.Added = &added
		slog.Info("agents added", "requested", cmd.Count, "added", added)
	case "pause":
		s.runner.Pause()
	case "resume":
		s.runner.Resume()
	case "reset":
		s.engine.Reset()
		s.runner.Collector().RecordReset()
		slog.Info("world reset", "population", s.engine.Population())
	}
	ack.Population = s.engine.Population()
	return json.Marshal(ack)
}

func (s *Server) setParam(cmd command) error {
	if cmd.Name == "boundary_mode" {
		str, _ := cmd.Value.(string) // schema pinned the type
		mode, err := boids.ParseBoundaryMode(str)
		if err != nil {
			return err
		}
		s.engine.SetBoundaryMode(mode)
	} else {
		val, _ := cmd.Value.(float64)
		if err := s.engine.SetParameter(cmd.Name, val); err != nil {
			return err
		}
	}
	s.runner.Collector().RecordParamChange()
	slog.Info("param set", "name", cmd.Name, "value", cmd.Value)
	return nil
}

// ackMessage confirms an accepted command to the issuing client. Added is
// present only for add_agents, where the clamp can shrink the request.
type ackMessage struct {
	Type       string `json:"t"`
	Cmd        string `json:"cmd"`
	Population int    `json:"population"`
	Added      *int   `json:"added,omitempty"`
}

// errorMessage is sent back to the issuing client when a command fails.
type errorMessage struct {
	Type  string `json:"t"`
	Error string `json:"error"`
}

func encodeError(err error) []byte {
	data, merr := json.Marshal(errorMessage{Type: "error", Error: err.Error()})
	if merr != nil {
		return []byte(`{"t":"error","error":"internal"}`)
	}
	return data
}
