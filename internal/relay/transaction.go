package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of a cross-chain payout transaction.
// Transitions are forward-only; Confirmed and Failed are terminal.
type Status int

const (
	StatusPending Status = iota
	StatusSigned
	StatusRelayed
	StatusConfirmed
	StatusFailed
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSigned:
		return "signed"
	case StatusRelayed:
		return "relayed"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalJSON encodes the status as its lowercase name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid relay status %s", data)
	}
	parsed, err := ParseStatus(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a status name into a Status.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "pending":
		return StatusPending, nil
	case "signed":
		return StatusSigned, nil
	case "relayed":
		return StatusRelayed, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("invalid relay status %q", v)
	}
}

// terminal reports whether no further transition is reachable.
func (s Status) terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// canAdvanceTo reports whether target is a legal forward step from s.
// Failed is reachable from any non-terminal state; the only other legal
// steps are Signed->Relayed and Relayed->Confirmed.
func (s Status) canAdvanceTo(target Status) bool {
	if s.terminal() {
		return false
	}
	if target == StatusFailed {
		return true
	}
	switch s {
	case StatusSigned:
		return target == StatusRelayed
	case StatusRelayed:
		return target == StatusConfirmed
	default:
		return false
	}
}

var (
	// ErrTransactionNotFound is returned when no transaction exists at the
	// given index.
	ErrTransactionNotFound = errors.New("cross-chain transaction not found")

	// ErrInvalidTransition is returned for a backward, skipping or
	// from-terminal status update.
	ErrInvalidTransition = errors.New("invalid relay status transition")

	// ErrDuplicateRound is returned when a transaction already exists for
	// the round. Settlement creates at most one payout instruction per
	// round; the coordinator enforces it rather than trusting the caller.
	ErrDuplicateRound = errors.New("cross-chain transaction already exists for round")
)

// Transaction records the lifecycle of a single payout-mint instruction to
// the second ledger. Created at settlement, mutated by the signing callback
// and the relay service's status updates, never deleted.
type Transaction struct {
	Index          uint64         `json:"index"`
	RoundID        uint64         `json:"round_id"`
	Winner         common.Address `json:"winner"`
	Amount         uint64         `json:"amount"`
	Status         Status         `json:"status"`
	Nonce          uint64         `json:"nonce"`
	Payload        []byte         `json:"-"`
	SignedPayload  []byte         `json:"signed_payload,omitempty"`
	ExternalTxHash string         `json:"external_tx_hash,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ReadyEvent is emitted when a transaction reaches Signed and its payload is
// ready for the relay service to submit.
type ReadyEvent struct {
	Index         uint64 `json:"index"`
	RoundID       uint64 `json:"round_id"`
	SignedPayload []byte `json:"signed_payload"`
}
