package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/prediction"
)

// PredictionHandler serves stake placement and claim endpoints.
type PredictionHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewPredictionHandler creates a prediction handler.
func NewPredictionHandler(eng *engine.Engine, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{engine: eng, logger: logger}
}

type placePredictionRequest struct {
	RoundID uint64 `json:"round_id"`
	Side    string `json:"side"`
	Amount  uint64 `json:"amount"`
}

type placePredictionResponse struct {
	Index uint64 `json:"index"`
}

// HandlePlace escrows a stake on one side of an open round.
// POST /api/predictions
func (h *PredictionHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	who := caller(r)
	if who == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + callerHeader + " header"})
		return
	}

	var req placePredictionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	side, err := prediction.ParseSide(req.Side)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	idx, err := h.engine.PlacePrediction(r.Context(), who, req.RoundID, side, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placePredictionResponse{Index: idx})
}

// HandleList returns the caller's predictions.
// GET /api/predictions
func (h *PredictionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	who := caller(r)
	if who == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + callerHeader + " header"})
		return
	}

	writeJSON(w, http.StatusOK, h.engine.PredictionsFor(who))
}

type claimResponse struct {
	Payout uint64 `json:"payout"`
}

// HandleClaim pays out a winning prediction.
// POST /api/predictions/{index}/claim
func (h *PredictionHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	who := caller(r)
	if who == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + callerHeader + " header"})
		return
	}

	index, err := urlUint64(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid prediction index"})
		return
	}

	payout, err := h.engine.ClaimWinnings(r.Context(), who, index)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("claim-served",
		zap.String("caller", who),
		zap.Uint64("prediction-index", index),
		zap.Uint64("payout", payout))

	writeJSON(w, http.StatusOK, claimResponse{Payout: payout})
}
