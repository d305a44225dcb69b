package api

import (
	"net/http"

	"github.com/okian/wordgraph/internal/domain/model"
)

type wordRequest struct {
	Word string `json:"word" validate:"required,max=64"`
}

type guessRequest struct {
	Guess string `json:"guess" validate:"required,max=64"`
}

type rescoreRequest struct {
	Model string `json:"model" validate:"required,max=64"`
}

type snapshotRequest struct {
	Guesses []model.Guess `json:"guesses" validate:"max=1000"`
	Pairs   []model.Pair  `json:"pairs" validate:"max=100000"`
	Partial bool          `json:"partial"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type snapshotResponse struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Retained []string `json:"retained"`
	Restored []string `json:"restored"`
}

// RoundHandler drives a round: word, guesses, hints and rescoring.
type RoundHandler struct {
	engine Engine
}

// NewRoundHandler creates a new round handler.
func NewRoundHandler(engine Engine) *RoundHandler {
	return &RoundHandler{engine: engine}
}

// HandleSetWord handles POST /word.
func (h *RoundHandler) HandleSetWord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req wordRequest
	if err := decode(w, r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.engine.SetWord(r.Context(), req.Word); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleGuess handles POST /guess.
func (h *RoundHandler) HandleGuess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req guessRequest
	if err := decode(w, r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	out, err := h.engine.SubmitGuess(r.Context(), req.Guess)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHint handles GET /hint.
func (h *RoundHandler) HandleHint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	hint, err := h.engine.RequestHint(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

// HandleRescore handles POST /rescore.
func (h *RoundHandler) HandleRescore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req rescoreRequest
	if err := decode(w, r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	out, err := h.engine.Rescore(r.Context(), req.Model)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReset handles POST /reset.
func (h *RoundHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.engine.Reset(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset"})
}

// HandleSnapshot handles POST /snapshot: a caller-supplied snapshot merged
// into the current round.
func (h *RoundHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req snapshotRequest
	if err := decode(w, r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	d, err := h.engine.ApplySnapshot(r.Context(), model.Snapshot{
		Guesses: req.Guesses,
		Pairs:   req.Pairs,
		Partial: req.Partial,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		Added:    d.Added,
		Removed:  d.Removed,
		Retained: d.Retained,
		Restored: d.Restored,
	})
}
