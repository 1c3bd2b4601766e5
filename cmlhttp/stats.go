// Package cmlhttp exposes a read-only HTTP introspection surface over
// the spec §6 stats taxonomy: wheel load and channel queue depths. It
// is not part of the core; nothing in cml or wheel depends on it.
//
// Routing follows the teacher ecosystem's modules/httpserver
// convention of a chi.Router built once and mounted by the caller.
package cmlhttp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cml-go/cml/wheel"
)

// ChanStats is the subset of cml.Chan[T]'s surface this package needs;
// cml.Chan[T] satisfies it for any T without cmlhttp importing cml (and
// so without cmlhttp needing a type parameter of its own).
type ChanStats interface {
	Name() string
	Stats() (sendQueue, recvQueue int)
}

// Server exposes /stats (wheel + channel summary), /wheel (wheel
// detail) and /channels (per-channel queue depths).
type Server struct {
	wheel    *wheel.Wheel
	channels []ChanStats
}

// NewServer builds an introspection server over w and the given
// channels. Channels may be added later with Register.
func NewServer(w *wheel.Wheel, channels ...ChanStats) *Server {
	return &Server{wheel: w, channels: channels}
}

// Register adds c to the set of channels reported by /channels.
func (s *Server) Register(c ChanStats) {
	s.channels = append(s.channels, c)
}

// Routes builds a chi.Router serving this server's introspection
// endpoints, to be mounted by the caller's own HTTP server.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", s.handleStats)
	r.Get("/wheel", s.handleWheel)
	r.Get("/channels", s.handleChannels)
	return r
}

type channelStat struct {
	Name      string `json:"name"`
	SendQueue int    `json:"sendQueue"`
	RecvQueue int    `json:"recvQueue"`
}

func (s *Server) channelStats() []channelStat {
	out := make([]channelStat, 0, len(s.channels))
	for _, c := range s.channels {
		sq, rq := c.Stats()
		out = append(out, channelStat{Name: c.Name(), SendQueue: sq, RecvQueue: rq})
	}
	return out
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"wheel":    s.wheel.Stats(),
		"channels": s.channelStats(),
	})
}

func (s *Server) handleWheel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.wheel.Stats())
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.channelStats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
