// Package server exposes the simulation over HTTP: a websocket stream of
// frames with a JSON command channel, and a small REST control surface.
package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/flock/sim"
)

// writeWait bounds how long a single frame write may block before the
// subscriber is dropped.
const writeWait = 10 * time.Second

// subscriber is one connected websocket client.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to conn
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans frames out to websocket subscribers. Slow or dead subscribers
// are dropped rather than letting them stall the tick loop.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

// remove unregisters a subscriber and closes its connection. Only the
// caller that actually removes the entry closes, so concurrent removal
// from the read loop and a failed broadcast is safe.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	if ok {
		delete(h.subs, s)
	}
	h.mu.Unlock()

	if ok {
		s.conn.Close()
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast encodes the frame once and writes it to every subscriber.
// It satisfies sim.FrameFunc.
func (h *Hub) Broadcast(f *sim.Frame, paused bool) {
	data, err := encodeFrame(f, paused)
	if err != nil {
		slog.Error("frame encode failed", "err", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.send(data); err != nil {
			slog.Info("dropping subscriber", "err", err)
			h.remove(s)
		}
	}
}

// frameMessage is the broadcast wire format. Agent rows are packed arrays
// to keep frames compact: [pos_x, pos_y, vel_x, vel_y, size].
type frameMessage struct {
	Type   string       `json:"t"`
	Boids  [][5]float64 `json:"b"`
	Frame  uint64       `json:"f"`
	Paused bool         `json:"p"`
}

func packBoids(f *sim.Frame) [][5]float64 {
	rows := make([][5]float64, f.Count())
	for i := range rows {
		rows[i] = [5]float64{f.PosX[i], f.PosY[i], f.VelX[i], f.VelY[i], f.Size[i]}
	}
	return rows
}

func encodeFrame(f *sim.Frame, paused bool) ([]byte, error) {
	return json.Marshal(frameMessage{
		Type:   "frame",
		Boids:  packBoids(f),
		Frame:  f.Tick,
		Paused: paused,
	})
}
