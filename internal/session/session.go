package session

import (
	"sync"
	"time"
)

// State is the explicit login state of a chat.
type State int

const (
	StateLoggedOut State = iota
	StateAwaitingLoginID
	StateAwaitingPassword
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAwaitingLoginID:
		return "awaiting_login_id"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Credentials holds the login fields collected from the chat.
type Credentials struct {
	LoginID  string
	Password string
}

// Complete reports whether both fields have been collected.
func (c Credentials) Complete() bool {
	return c.LoginID != "" && c.Password != ""
}

// Session is the per-chat login record. All fields below the mutex are
// guarded by it; the Manager is the only writer.
type Session struct {
	Key     string // chat key ("channel:chatID")
	Channel string
	ChatID  string

	mu          sync.Mutex
	state       State
	creds       Credentials
	accessToken string
	tokenExpiry time.Time
	relogin     *time.Timer
}

// State returns the current login state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
