package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/wordgraph/internal/domain/model"
)

const defaultHistoryLimit = 10

// HistoryDependencies defines the interface for history reads.
type HistoryDependencies interface {
	History(ctx context.Context, n int) ([]model.Entry, error)
}

// HistoryHandler handles ranked guess history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetHistory handles GET /history?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeEngineError(w, fmt.Errorf("%w: limit %q", ErrBadRequest, s))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeEngineError(w, fmt.Errorf("%w: %d > %d", ErrLimit, n, h.maxLimit))
		return
	}
	entries, err := h.deps.History(r.Context(), n)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
