package engine

import "errors"

// Authorization and state-precondition errors surfaced by the settlement
// engine. Store-level errors (round.ErrRoundNotFound,
// prediction.ErrPredictionNotFound) pass through unwrapped so callers can
// match them with errors.Is.
var (
	// ErrUnauthorized is returned when the caller is not the configured
	// owner. Fatal to the call, never retried.
	ErrUnauthorized = errors.New("caller is not the platform owner")

	// ErrContractPaused is returned when the platform is paused and the
	// operation creates rounds or predictions.
	ErrContractPaused = errors.New("platform is paused")

	// ErrRoundNotOpen is returned when placing a prediction on, or closing,
	// a round that is not open.
	ErrRoundNotOpen = errors.New("round is not open")

	// ErrRoundNotClosed is returned when settling a round that is not
	// closed.
	ErrRoundNotClosed = errors.New("round is not closed")

	// ErrRoundNotSettled is returned when claiming against a round that has
	// no settled result yet.
	ErrRoundNotSettled = errors.New("round is not settled")

	// ErrAmountTooLow is returned when a stake is below the configured
	// minimum.
	ErrAmountTooLow = errors.New("prediction amount below minimum")

	// ErrNotYourPrediction is returned when the claimer is not the
	// predictor.
	ErrNotYourPrediction = errors.New("prediction belongs to another account")

	// ErrAlreadyClaimed is returned on a second claim of the same
	// prediction.
	ErrAlreadyClaimed = errors.New("prediction already claimed")

	// ErrPredictionIncorrect is returned when claiming a prediction on the
	// losing side. Rejected to prevent double-spend attempts, not an error
	// state of the round.
	ErrPredictionIncorrect = errors.New("prediction did not match the result")

	// ErrNoWinningPool guards the impossible case of a winning claim
	// against a zero winning pool.
	ErrNoWinningPool = errors.New("winning pool is empty")

	// ErrFeeTooHigh is returned when setting a platform fee above
	// MaxFeeBasisPoints.
	ErrFeeTooHigh = errors.New("fee exceeds maximum of 1000 basis points")
)
