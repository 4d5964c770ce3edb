package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/storage"
)

// RelayHandler serves the relay service's poll and status-callback
// endpoints.
type RelayHandler struct {
	coordinator *relay.Coordinator
	journal     storage.Journal
	logger      *zap.Logger
}

// NewRelayHandler creates a relay handler. The journal is optional.
func NewRelayHandler(c *relay.Coordinator, journal storage.Journal, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{coordinator: c, journal: journal, logger: logger}
}

// HandlePending returns all transactions awaiting signature or submission.
// GET /api/relay/pending
func (h *RelayHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.ListPending())
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	ExternalTxHash string `json:"external_tx_hash"`
}

// HandleUpdateStatus applies a relay progress report. Repeating the current
// status is a no-op so relay workers can safely retry.
// POST /api/relay/{index}/status
func (h *RelayHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	index, err := urlUint64(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction index"})
		return
	}

	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	status, err := relay.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.coordinator.UpdateStatus(index, status, req.ExternalTxHash); err != nil {
		writeError(w, err)
		return
	}

	if h.journal != nil {
		if tx, err := h.coordinator.Get(index); err == nil {
			if err := h.journal.RelayTransactionChanged(r.Context(), tx); err != nil {
				h.logger.Error("journal-relay-update-failed",
					zap.Uint64("index", index),
					zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

// HandleGet returns one transaction.
// GET /api/relay/{index}
func (h *RelayHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	index, err := urlUint64(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction index"})
		return
	}

	tx, err := h.coordinator.Get(index)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}
