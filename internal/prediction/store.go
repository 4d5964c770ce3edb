package prediction

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Side is the outcome a predictor stakes on.
type Side int

const (
	SideNo Side = iota
	SideYes
)

// String returns the uppercase side name.
func (s Side) String() string {
	if s == SideYes {
		return "YES"
	}
	return "NO"
}

// MarshalJSON encodes the side as its name.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ParseSide converts "yes"/"no" (case-insensitive) into a Side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "yes", "YES", "Yes":
		return SideYes, nil
	case "no", "NO", "No":
		return SideNo, nil
	default:
		return 0, fmt.Errorf("invalid side %q: must be yes or no", v)
	}
}

// Matches reports whether the side agrees with a settled round result.
func (s Side) Matches(result bool) bool {
	return (s == SideYes) == result
}

var (
	// ErrPredictionNotFound is returned when no prediction exists at the
	// given index.
	ErrPredictionNotFound = errors.New("prediction not found")

	// ErrInvalidAmount is returned when a prediction amount is zero.
	ErrInvalidAmount = errors.New("prediction amount must be positive")
)

// Prediction is one account's stake on one side of one round. Immutable once
// recorded, except for the Claimed flag which flips exactly once.
type Prediction struct {
	Index     uint64    `json:"index"`
	RoundID   uint64    `json:"round_id"`
	Predictor string    `json:"predictor"`
	Amount    uint64    `json:"amount"`
	Side      Side      `json:"side"`
	PlacedAt  time.Time `json:"placed_at"`
	Claimed   bool      `json:"claimed"`
}

// Store is an append-only log of predictions addressed by stable integer
// index, with a secondary per-account index. Entries are never deleted; a
// claimed prediction stays in the log with its flag set.
type Store struct {
	mu        sync.RWMutex
	log       []Prediction
	byAccount map[string][]uint64
}

// NewStore creates an empty prediction store.
func NewStore() *Store {
	return &Store{byAccount: make(map[string][]uint64)}
}

// Record appends a prediction and returns its index. Business preconditions
// (round open, minimum stake) are the caller's job; only amount > 0 is
// enforced here.
func (s *Store) Record(roundID uint64, predictor string, amount uint64, side Side, placedAt time.Time) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := uint64(len(s.log))
	s.log = append(s.log, Prediction{
		Index:     idx,
		RoundID:   roundID,
		Predictor: predictor,
		Amount:    amount,
		Side:      side,
		PlacedAt:  placedAt,
	})
	s.byAccount[predictor] = append(s.byAccount[predictor], idx)

	return idx, nil
}

// Get returns a copy of the prediction at index.
func (s *Store) Get(index uint64) (Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint64(len(s.log)) {
		return Prediction{}, fmt.Errorf("%w: index %d", ErrPredictionNotFound, index)
	}
	return s.log[index], nil
}

// ForAccount returns copies of all predictions placed by the account, in
// placement order. O(k) in the account's prediction count.
func (s *Store) ForAccount(predictor string) []Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := s.byAccount[predictor]
	out := make([]Prediction, 0, len(indices))
	for _, idx := range indices {
		out = append(out, s.log[idx])
	}
	return out
}

// ForRound returns copies of all predictions on the given round.
func (s *Store) ForRound(roundID uint64) []Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Prediction
	for _, p := range s.log {
		if p.RoundID == roundID {
			out = append(out, p)
		}
	}
	return out
}

// MarkClaimed flips the claimed flag at index. The exactly-once guarantee is
// enforced by the settlement engine under its write lock; the store only
// requires the index to exist.
func (s *Store) MarkClaimed(index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint64(len(s.log)) {
		return fmt.Errorf("%w: index %d", ErrPredictionNotFound, index)
	}
	s.log[index].Claimed = true
	return nil
}

// Len returns the number of predictions ever recorded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}
