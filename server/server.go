package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/flock/boids"
	"github.com/pthm-cable/flock/sim"
)

// maxCommandBytes bounds inbound websocket messages.
const maxCommandBytes = 4096

// Server ties the engine and runner to the network surface.
type Server struct {
	engine   *sim.Engine
	runner   *sim.Runner
	hub      *Hub
	upgrader websocket.Upgrader
}

// New creates a server around an engine and its runner. The hub is passed
// in because the runner broadcasts through it, and the runner is built
// before the server.
func New(eng *sim.Engine, runner *sim.Runner, hub *Hub) *Server {
	return &Server{
		engine: eng,
		runner: runner,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routing surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/pause", s.handlePause)
	mux.HandleFunc("/api/resume", s.handleResume)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	sub := &subscriber{conn: conn}

	// The init message goes out before the subscriber joins the hub, so
	// every client sees world geometry and parameters before any frame.
	init, err := s.buildInit()
	if err != nil {
		slog.Error("init encode failed", "err", err)
		conn.Close()
		return
	}
	if err := sub.send(init); err != nil {
		conn.Close()
		return
	}

	s.hub.add(sub)
	slog.Info("client connected", "remote", conn.RemoteAddr().String(), "subscribers", s.hub.Subscribers())

	go s.readLoop(sub)
}

// readLoop consumes commands from one client until the connection dies.
func (s *Server) readLoop(sub *subscriber) {
	defer func() {
		s.hub.remove(sub)
		slog.Info("client disconnected", "subscribers", s.hub.Subscribers())
	}()

	sub.conn.SetReadLimit(maxCommandBytes)
	for {
		_, msg, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		ack, err := s.applyCommand(msg)
		if err != nil {
			slog.Warn("command rejected", "err", err)
			if serr := sub.send(encodeError(err)); serr != nil {
				return
			}
			continue
		}
		if serr := sub.send(ack); serr != nil {
			return
		}
	}
}

type worldInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// initMessage is the first message on every websocket connection.
type initMessage struct {
	Type       string         `json:"t"`
	World      worldInfo      `json:"world"`
	Params     map[string]any `json:"params"`
	Capacity   int            `json:"capacity"`
	Population int            `json:"population"`
	Boids      [][5]float64   `json:"b"`
	Frame      uint64         `json:"f"`
	Paused     bool           `json:"p"`
}

func (s *Server) buildInit() ([]byte, error) {
	var f sim.Frame
	s.engine.Snapshot(&f)

	p := s.engine.Params()
	params := make(map[string]any, len(boids.ParamNames())+1)
	for _, name := range boids.ParamNames() {
		v, _ := p.Get(name)
		params[name] = v
	}
	params["boundary_mode"] = p.Boundary.String()

	world := s.engine.World()
	return json.Marshal(initMessage{
		Type:       "init",
		World:      worldInfo{Width: world.Width(), Height: world.Height()},
		Params:     params,
		Capacity:   s.engine.Capacity(),
		Population: f.Count(),
		Boids:      packBoids(&f),
		Frame:      f.Tick,
		Paused:     s.runner.Paused(),
	})
}

// writeControlStatus answers a control endpoint with the post-operation
// simulation state.
func (s *Server) writeControlStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"population": s.engine.Population(),
		"frame":      s.engine.TickCount(),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.runner.Pause()
	s.writeControlStatus(w, "paused")
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.runner.Resume()
	s.writeControlStatus(w, "running")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Reset()
	s.runner.Collector().RecordReset()
	slog.Info("world reset", "population", s.engine.Population())
	s.writeControlStatus(w, "reset")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"tick":        s.engine.TickCount(),
		"population":  s.engine.Population(),
		"subscribers": s.hub.Subscribers(),
		"paused":      s.runner.Paused(),
	})
}
