package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/round"
	"github.com/predictpool/settlement/pkg/cache"
)

// RoundHandler serves round lifecycle and lookup endpoints.
type RoundHandler struct {
	engine   *engine.Engine
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewRoundHandler creates a round handler. The cache is optional; settled
// rounds are immutable and cached on the lookup path when it is present.
func NewRoundHandler(eng *engine.Engine, c cache.Cache, ttl time.Duration, logger *zap.Logger) *RoundHandler {
	return &RoundHandler{
		engine:   eng,
		cache:    c,
		cacheTTL: ttl,
		logger:   logger,
	}
}

type createRoundRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createRoundResponse struct {
	ID uint64 `json:"id"`
}

// HandleCreate opens a new round.
// POST /api/rounds
func (h *RoundHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	id, err := h.engine.OpenRound(r.Context(), caller(r), req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRoundResponse{ID: id})
}

// HandleList lists all open rounds.
// GET /api/rounds
func (h *RoundHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ListOpenRounds())
}

// HandleGet fetches a single round. Settled rounds are served from the
// cache when possible.
// GET /api/rounds/{id}
func (h *RoundHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid round id"})
		return
	}

	key := roundCacheKey(id)
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if cached, ok := v.(round.Round); ok {
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}
	}

	rnd, err := h.engine.GetRound(id)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.cache != nil && rnd.Status == round.StatusSettled {
		h.cache.Set(key, rnd, h.cacheTTL)
	}

	writeJSON(w, http.StatusOK, rnd)
}

// HandleClose closes an open round.
// POST /api/rounds/{id}/close
func (h *RoundHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid round id"})
		return
	}

	if err := h.engine.CloseRound(r.Context(), caller(r), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type settleRoundRequest struct {
	Result        bool   `json:"result"`
	WinnerAddress string `json:"winner_address"`
}

// HandleSettle settles a closed round and triggers the cross-chain payout
// when a winner address is supplied.
// POST /api/rounds/{id}/settle
func (h *RoundHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid round id"})
		return
	}

	var req settleRoundRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.engine.SettleRound(r.Context(), caller(r), id, req.Result, req.WinnerAddress); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func roundCacheKey(id uint64) string {
	return fmt.Sprintf("round:%d", id)
}
