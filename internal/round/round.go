package round

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a round. Transitions are forward-only:
// Open -> Closed -> Settled, no skipping, no reopening.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusSettled
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusSettled:
		return "settled"
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
	switch string(data) {
	case `"open"`:
		*s = StatusOpen
	case `"closed"`:
		*s = StatusClosed
	case `"settled"`:
		*s = StatusSettled
	default:
		return fmt.Errorf("invalid round status %s", data)
	}
	return nil
}

// next returns the only legal successor status. Settled has none.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusOpen:
		return StatusClosed, true
	case StatusClosed:
		return StatusSettled, true
	default:
		return 0, false
	}
}

// Title and description length bounds, enforced at creation.
const (
	MinTitleLen       = 1
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)

// Round is a single binary prediction question with two opposing stake pools.
// Amounts are denominated in the ledger's smallest unit.
type Round struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`

	// ClosedAt and SettledAt are zero until the corresponding transition.
	ClosedAt  time.Time `json:"closed_at"`
	SettledAt time.Time `json:"settled_at"`

	// Result is meaningful only once Status == StatusSettled.
	Result bool `json:"result"`

	// FeeBasisPoints is the platform fee snapshotted at settlement so later
	// fee changes cannot alter payouts on an already settled round.
	FeeBasisPoints uint64 `json:"fee_basis_points"`

	TotalYesAmount uint64 `json:"total_yes_amount"`
	TotalNoAmount  uint64 `json:"total_no_amount"`
	YesCount       uint64 `json:"yes_count"`
	NoCount        uint64 `json:"no_count"`
}

// WinningPool returns the total staked on the side matching the settled
// result. Only valid on a settled round.
func (r *Round) WinningPool() uint64 {
	if r.Result {
		return r.TotalYesAmount
	}
	return r.TotalNoAmount
}

// LosingPool returns the total staked on the side not matching the settled
// result. Only valid on a settled round.
func (r *Round) LosingPool() uint64 {
	if r.Result {
		return r.TotalNoAmount
	}
	return r.TotalYesAmount
}
