package telegram

import (
	"sync"
	"time"
)

// State is a step of a user's conversation with the bot
type State string

const (
	// waiting for the wallet to show stats for
	StateWaitAddress State = "wait_address"
)

// DefaultStateTTL is how long a conversation step waits for the user's reply
const DefaultStateTTL = 10 * time.Minute

// UserState is the conversation step a user is in
type UserState struct {
	State State
	Since time.Time
}

// StateManager tracks per-user conversation steps. Steps older than the
// TTL are dropped so a forgotten prompt does not capture later messages.
type StateManager struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[int64]UserState
}

// NewStateManager creates a state manager with DefaultStateTTL
func NewStateManager() *StateManager {
	return &StateManager{
		ttl:    DefaultStateTTL,
		now:    time.Now,
		states: make(map[int64]UserState),
	}
}

// Set puts a user into state
func (sm *StateManager) Set(userID int64, state State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[userID] = UserState{State: state, Since: sm.now()}
}

// Get returns a user's current state, nil when there is none or it expired
func (sm *StateManager) Get(userID int64) *UserState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	st, ok := sm.states[userID]
	if !ok {
		return nil
	}
	if sm.now().Sub(st.Since) > sm.ttl {
		delete(sm.states, userID)
		return nil
	}
	return &st
}

// Clear removes a user's state
func (sm *StateManager) Clear(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, userID)
}
