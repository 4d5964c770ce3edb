package round

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidTitleLength is returned when a title is empty or longer than
	// MaxTitleLen characters.
	ErrInvalidTitleLength = errors.New("title length must be between 1 and 100 characters")

	// ErrDescriptionTooLong is returned when a description exceeds
	// MaxDescriptionLen characters.
	ErrDescriptionTooLong = errors.New("description must be at most 500 characters")

	// ErrRoundNotFound is returned when no round exists for the given id.
	ErrRoundNotFound = errors.New("round not found")

	// ErrInvalidTransition is returned when a status change would skip a
	// state or move backward.
	ErrInvalidTransition = errors.New("invalid round status transition")
)

// Store is a keyed collection of rounds. Ids are monotonically assigned and
// never reused. All accessors return copies so callers can never observe a
// partially applied transition.
type Store struct {
	mu     sync.RWMutex
	rounds map[uint64]*Round
	order  []uint64
	nextID uint64
}

// NewStore creates an empty round store. The first allocated id is 1.
func NewStore() *Store {
	return &Store{
		rounds: make(map[uint64]*Round),
		nextID: 1,
	}
}

// Create validates the title and description, allocates the next id and
// stores a new open round stamped with createdAt.
func (s *Store) Create(title, description, creator string, createdAt time.Time) (uint64, error) {
	if len(title) < MinTitleLen || len(title) > MaxTitleLen {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTitleLength, len(title))
	}
	if len(description) > MaxDescriptionLen {
		return 0, fmt.Errorf("%w: got %d", ErrDescriptionTooLong, len(description))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	s.rounds[id] = &Round{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		Creator:     creator,
		CreatedAt:   createdAt,
	}
	s.order = append(s.order, id)

	return id, nil
}

// Get returns a copy of the round with the given id.
func (s *Store) Get(id uint64) (Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rounds[id]
	if !ok {
		return Round{}, fmt.Errorf("%w: id %d", ErrRoundNotFound, id)
	}
	return *r, nil
}

// ListOpen returns copies of all open rounds in creation order.
func (s *Store) ListOpen() []Round {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := make([]Round, 0)
	for _, id := range s.order {
		if r := s.rounds[id]; r.Status == StatusOpen {
			open = append(open, *r)
		}
	}
	return open
}

// Len returns the number of rounds ever created.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}

// AddStake accumulates an accepted prediction into the round's pools and
// counters. The caller is responsible for checking the round is open.
func (s *Store) AddStake(id uint64, yes bool, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrRoundNotFound, id)
	}

	if yes {
		r.TotalYesAmount += amount
		r.YesCount++
	} else {
		r.TotalNoAmount += amount
		r.NoCount++
	}
	return nil
}

// Close transitions an open round to closed and stamps closedAt. All fields
// of the transition commit together under the store lock.
func (s *Store) Close(id uint64, closedAt time.Time) error {
	return s.transition(id, StatusClosed, func(r *Round) {
		r.ClosedAt = closedAt
	})
}

// Settle transitions a closed round to settled, recording the outcome, the
// fee in force and settledAt. A settled round is immutable afterwards.
func (s *Store) Settle(id uint64, result bool, feeBasisPoints uint64, settledAt time.Time) error {
	return s.transition(id, StatusSettled, func(r *Round) {
		r.Result = result
		r.FeeBasisPoints = feeBasisPoints
		r.SettledAt = settledAt
	})
}

// transition applies the single legal forward step to target, then runs apply
// while still holding the lock.
func (s *Store) transition(id uint64, target Status, apply func(*Round)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrRoundNotFound, id)
	}

	next, ok := r.Status.next()
	if !ok || next != target {
		return fmt.Errorf("%w: round %d is %s, cannot become %s",
			ErrInvalidTransition, id, r.Status, target)
	}

	r.Status = target
	apply(r)
	return nil
}
