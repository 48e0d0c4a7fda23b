// Package chat holds the advisor conversation session: an append-only
// transcript plus the accumulator that grows exactly one pending model
// turn at a time. The transcript lives only in memory; leaving the
// advisor view discards it.
package chat

import (
	"errors"
	"sync"

	"farmwise/internal/types"
)

// FailureText replaces a truncated turn when the stream ends abnormally.
// Partial output must never be presented as if complete.
const FailureText = "Service unavailable. Try again later."

var (
	// ErrTurnInFlight means a model turn is still accumulating; new
	// submissions are rejected until it reaches a terminal state.
	ErrTurnInFlight = errors.New("chat: a turn is already in flight")
	// ErrNoPendingTurn means a fragment or terminal transition arrived
	// with no turn awaiting it.
	ErrNoPendingTurn = errors.New("chat: no pending turn")
)

type state int

const (
	stateIdle state = iota
	stateAwaiting
	stateAccumulating
)

// Session is safe for concurrent use. Fragments are applied strictly in
// call order, which the transport guarantees equals production order.
type Session struct {
	mu    sync.Mutex
	turns []types.ChatTurn
	st    state
}

func NewSession() *Session {
	return &Session{}
}

// Begin appends the user message and a pending (empty) model turn in one
// step, so the transcript is renderable as "typing" before any fragment
// arrives. It fails if another turn has not yet finalized.
func (s *Session) Begin(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateIdle {
		return ErrTurnInFlight
	}
	s.turns = append(s.turns,
		types.ChatTurn{Role: types.RoleUser, Text: message},
		types.ChatTurn{Role: types.RoleModel, Text: ""},
	)
	s.st = stateAwaiting
	return nil
}

// Append concatenates one fragment onto the pending turn. Fragments are
// never reordered or deduplicated.
func (s *Session) Append(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateAwaiting && s.st != stateAccumulating {
		return ErrNoPendingTurn
	}
	s.turns[len(s.turns)-1].Text += fragment
	s.st = stateAccumulating
	return nil
}

// Finalize marks the pending turn complete; its text becomes immutable.
func (s *Session) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateAwaiting && s.st != stateAccumulating {
		return ErrNoPendingTurn
	}
	s.st = stateIdle
	return nil
}

// Fail replaces the pending turn's text wholesale with the fixed
// failure message and terminates the turn.
func (s *Session) Fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateAwaiting && s.st != stateAccumulating {
		return ErrNoPendingTurn
	}
	s.turns[len(s.turns)-1].Text = FailureText
	s.st = stateIdle
	return nil
}

// InFlight reports whether a model turn is currently awaiting or
// accumulating fragments.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st != stateIdle
}

// Transcript returns a copy of all turns, oldest first.
func (s *Session) Transcript() []types.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// HistoryBefore returns the turns preceding the current in-flight pair,
// i.e. the prior conversation supplied to the request builder.
func (s *Session) HistoryBefore() []types.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.turns)
	if s.st != stateIdle {
		n -= 2 // exclude the in-flight user/model pair
	}
	if n < 0 {
		n = 0
	}
	out := make([]types.ChatTurn, n)
	copy(out, s.turns[:n])
	return out
}

// Reset discards the transcript. Only the session owner (the UI leaving
// the advisor view) calls this, and never mid-turn.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateIdle {
		return ErrTurnInFlight
	}
	s.turns = nil
	return nil
}
