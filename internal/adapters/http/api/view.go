package api

import (
	"fmt"
	"net/http"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Drag phases.
const (
	phaseStart = "start"
	phaseMove  = "move"
	phaseEnd   = "end"
)

// Screen coordinates and deltas are bounded to ±1e9 so view arithmetic
// stays finite.
type dragRequest struct {
	ID    string  `json:"id" validate:"required"`
	Phase string  `json:"phase" validate:"required,oneof=start move end"`
	X     float64 `json:"x" validate:"gte=-1e9,lte=1e9"`
	Y     float64 `json:"y" validate:"gte=-1e9,lte=1e9"`
}

type viewRequest struct {
	Action string  `json:"action" validate:"required,oneof=zoom zoom_to pan reset resize"`
	Factor float64 `json:"factor" validate:"required_if=Action zoom,gte=0"`
	K      float64 `json:"k" validate:"required_if=Action zoom_to,gte=0"`
	X      float64 `json:"x" validate:"gte=-1e9,lte=1e9"`
	Y      float64 `json:"y" validate:"gte=-1e9,lte=1e9"`
	DX     float64 `json:"dx" validate:"gte=-1e9,lte=1e9"`
	DY     float64 `json:"dy" validate:"gte=-1e9,lte=1e9"`
	Width  float64 `json:"width" validate:"required_if=Action resize,lte=1e9"`
	Height float64 `json:"height" validate:"required_if=Action resize,lte=1e9"`
}

// ViewHandler handles pointer gestures and read-only graph views.
type ViewHandler struct {
	engine Engine
}

// NewViewHandler creates a new view handler.
func NewViewHandler(engine Engine) *ViewHandler {
	return &ViewHandler{engine: engine}
}

// HandleDrag handles POST /drag. Points are in screen coordinates.
func (h *ViewHandler) HandleDrag(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dragRequest
	if err := decode(w, r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	ctx := r.Context()
	var err error
	switch req.Phase {
	case phaseStart:
		err = h.engine.DragStart(ctx, req.ID)
	case phaseMove:
		err = h.engine.DragMove(ctx, req.ID, model.Vec{X: req.X, Y: req.Y})
	case phaseEnd:
		err = h.engine.DragEnd(ctx, req.ID)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: req.Phase})
}

// HandleView handles GET /view (the painted view) and POST /view (zoom,
// pan, reset and resize).
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := h.apply(w, r); err != nil {
			writeEngineError(w, err)
			return
		}
	default:
		http.NotFound(w, r)
		return
	}
	v, err := h.engine.View(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ViewHandler) apply(w http.ResponseWriter, r *http.Request) error {
	var req viewRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	ctx := r.Context()
	anchor := model.Vec{X: req.X, Y: req.Y}
	switch req.Action {
	case "zoom":
		return h.engine.Zoom(ctx, req.Factor, anchor)
	case "zoom_to":
		return h.engine.ZoomTo(ctx, req.K, anchor)
	case "pan":
		return h.engine.Pan(ctx, req.DX, req.DY)
	case "reset":
		return h.engine.ResetView(ctx)
	case "resize":
		return h.engine.Resize(ctx, req.Width, req.Height)
	}
	return fmt.Errorf("%w: action %q", ErrBadRequest, req.Action)
}

// HandleGraph handles GET /graph: the raw node and link state.
func (h *ViewHandler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	g, err := h.engine.Graph(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
