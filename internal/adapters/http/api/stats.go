package api

import (
	"context"
	"net/http"
	"time"
)

// StatsProvider reports engine counters as a flat JSON-able map.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// ClientCounter is implemented by a stream handler that knows how many
// renderers are attached.
type ClientCounter interface {
	Clients() int
}

// StatsHandler serves GET /stats: the engine's own counters plus what the
// server knows on top (uptime and attached stream clients).
type StatsHandler struct {
	engine  StatsProvider
	stream  ClientCounter
	started time.Time
}

// NewStatsHandler creates a stats handler over engine.
func NewStatsHandler(engine StatsProvider) *StatsHandler {
	return &StatsHandler{engine: engine, started: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.engine.GetStats(r.Context())
	server := map[string]interface{}{
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	}
	if h.stream != nil {
		server["streamClients"] = h.stream.Clients()
	}
	stats["server"] = server
	writeJSON(w, http.StatusOK, stats)
}
