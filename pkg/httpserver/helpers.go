package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/ledger"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/round"
)

// callerHeader carries the caller identity. In production this is set by the
// authenticating gateway; the engine treats it as the ledger's caller
// identity primitive.
const callerHeader = "X-Caller-Id"

// errorResponse is the JSON error envelope. The message keeps the full
// wrapped context (ids, expected vs. actual status) so it is actionable by
// the caller.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to an HTTP status and writes the envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps the engine's error taxonomy onto HTTP status codes:
// authorization 401/403, missing records 404, state preconditions 409,
// validation 400, pause gate 503.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrNotYourPrediction):
		return http.StatusForbidden
	case errors.Is(err, round.ErrRoundNotFound),
		errors.Is(err, prediction.ErrPredictionNotFound),
		errors.Is(err, relay.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrRoundNotOpen),
		errors.Is(err, engine.ErrRoundNotClosed),
		errors.Is(err, engine.ErrRoundNotSettled),
		errors.Is(err, engine.ErrAlreadyClaimed),
		errors.Is(err, engine.ErrPredictionIncorrect),
		errors.Is(err, engine.ErrNoWinningPool),
		errors.Is(err, round.ErrInvalidTransition),
		errors.Is(err, relay.ErrInvalidTransition),
		errors.Is(err, relay.ErrDuplicateRound):
		return http.StatusConflict
	case errors.Is(err, round.ErrInvalidTitleLength),
		errors.Is(err, round.ErrDescriptionTooLong),
		errors.Is(err, engine.ErrAmountTooLow),
		errors.Is(err, engine.ErrFeeTooHigh),
		errors.Is(err, prediction.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrContractPaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// caller extracts the caller identity header.
func caller(r *http.Request) string {
	return r.Header.Get(callerHeader)
}

// urlUint64 parses a uint64 path parameter.
func urlUint64(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

// decodeBody decodes the request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
