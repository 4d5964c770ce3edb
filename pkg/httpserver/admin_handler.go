package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
)

// Crediter funds accounts on the in-process ledger. Only wired in dev mode;
// production balances come from the chain.
type Crediter interface {
	Credit(account string, amount uint64)
}

// AdminHandler serves the owner-gated configuration surface.
type AdminHandler struct {
	engine *engine.Engine
	faucet Crediter
	logger *zap.Logger
}

// NewAdminHandler creates an admin handler. The faucet is optional.
func NewAdminHandler(eng *engine.Engine, faucet Crediter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{engine: eng, faucet: faucet, logger: logger}
}

// HandlePause sets the pause gate.
// POST /api/admin/pause
func (h *AdminHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Pause(caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// HandleUnpause lifts the pause gate.
// POST /api/admin/unpause
func (h *AdminHandler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Unpause(caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

type setFeeRequest struct {
	FeeBasisPoints uint64 `json:"fee_basis_points"`
}

// HandleSetFee updates the platform fee for future settlements.
// POST /api/admin/fee
func (h *AdminHandler) HandleSetFee(w http.ResponseWriter, r *http.Request) {
	var req setFeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.engine.SetFee(caller(r), req.FeeBasisPoints); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"fee_basis_points": req.FeeBasisPoints})
}

// HandleWithdrawFees transfers accrued fees to the owner.
// POST /api/admin/withdraw-fees
func (h *AdminHandler) HandleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	amount, err := h.engine.WithdrawFees(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"withdrawn": amount})
}

type creditRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// HandleCredit funds an account on the dev ledger.
// POST /api/admin/credit
func (h *AdminHandler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	if caller(r) != h.engine.Owner() {
		writeError(w, engine.ErrUnauthorized)
		return
	}
	if h.faucet == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "faucet not available"})
		return
	}

	var req creditRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	h.faucet.Credit(req.Account, req.Amount)
	h.logger.Info("dev-faucet-credit",
		zap.String("account", req.Account),
		zap.Uint64("amount", req.Amount))

	writeJSON(w, http.StatusOK, map[string]string{"status": "credited"})
}
