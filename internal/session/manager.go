package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coopco/salesbot/internal/bus"
	"github.com/coopco/salesbot/internal/salesapi"
)

var (
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrNoCredentials   = errors.New("credentials incomplete")
	ErrNoLoginFlow     = errors.New("no login in progress")
)

const loginSuccessMessage = `Login successful! You can now request sales reports. Here are your options:
- "Get sales report"
- "Get daily sales report"
- "Get weekly sales report"
- "Get monthly sales report"
- "Get quarterly sales report"
- "Schedule report {type} {HH:MM}" to schedule a report
- "Show scheduled reports" to view all scheduled reports
- "Delete scheduled report {task number}" to delete a scheduled report
- "/command" to see all available commands`

const loginFailedMessage = "Login failed. Please check your credentials and try again."

const reloginMessage = "Reattempting login..."

// Manager owns the per-chat sessions: credential collection, the credential
// exchange against the sales API, token freshness, and the recurring
// re-login timer.
type Manager struct {
	api *salesapi.Client
	bus *bus.MessageBus
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. ttl is the access-token lifetime; if 0,
// defaults to 24 hours.
func NewManager(api *salesapi.Client, msgBus *bus.MessageBus, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		api:      api,
		bus:      msgBus,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for key, creating an empty logged-out one
// if the chat has not been seen before.
func (m *Manager) GetOrCreate(key, channel, chatID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := &Session{Key: key, Channel: channel, ChatID: chatID}
	m.sessions[key] = s
	return s
}

func (m *Manager) get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// State returns the login state of the chat; unseen chats are logged out.
func (m *Manager) State(key string) State {
	s, ok := m.get(key)
	if !ok {
		return StateLoggedOut
	}
	return s.State()
}

// BeginLogin starts credential collection for the chat. Any partially
// collected credentials are discarded first.
func (m *Manager) BeginLogin(key, channel, chatID string) error {
	s := m.GetOrCreate(key, channel, chatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoggedIn {
		return ErrAlreadyLoggedIn
	}
	s.creds = Credentials{}
	s.state = StateAwaitingLoginID
	return nil
}

// SubmitLoginID records the collected login ID and advances to password
// collection. The text is stored verbatim; no content validation.
func (m *Manager) SubmitLoginID(key, loginID string) error {
	s, ok := m.get(key)
	if !ok {
		return ErrNoLoginFlow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingLoginID {
		return ErrNoLoginFlow
	}
	s.creds.LoginID = loginID
	s.state = StateAwaitingPassword
	return nil
}

// SubmitPassword records the collected password, completing the credentials.
// The caller should invoke Login next.
func (m *Manager) SubmitPassword(key, password string) error {
	s, ok := m.get(key)
	if !ok {
		return ErrNoLoginFlow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingPassword {
		return ErrNoLoginFlow
	}
	s.creds.Password = password
	return nil
}

// Login exchanges the collected credentials for an access token and notifies
// the chat of the outcome. On success the session moves to LoggedIn and a
// re-login timer is armed; on failure credentials are cleared and the session
// drops to LoggedOut.
func (m *Manager) Login(ctx context.Context, key string) error {
	s, ok := m.get(key)
	if !ok {
		return ErrNoLoginFlow
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.loginLocked(ctx, s, true)
}

// loginLocked performs the credential exchange. Caller must hold s.mu.
func (m *Manager) loginLocked(ctx context.Context, s *Session, notify bool) error {
	if !s.creds.Complete() {
		s.state = StateLoggedOut
		return ErrNoCredentials
	}

	token, err := m.api.Login(ctx, s.creds.LoginID, s.creds.Password)
	if err != nil {
		slog.Error("login failed", "chat", s.Key, "error", err)
		m.stopReloginLocked(s)
		s.creds = Credentials{}
		s.accessToken = ""
		s.tokenExpiry = time.Time{}
		s.state = StateLoggedOut
		if notify {
			m.send(s, loginFailedMessage)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	s.accessToken = token
	s.tokenExpiry = time.Now().Add(m.ttl)
	s.state = StateLoggedIn
	m.armReloginLocked(s)
	slog.Info("logged in", "chat", s.Key, "expiry", s.tokenExpiry)
	if notify {
		m.send(s, loginSuccessMessage)
	}
	return nil
}

// EnsureValidToken returns a fresh access token, performing a blocking
// re-login with the stored credentials if the token is missing or expired.
// A valid unexpired token is returned without any login call.
func (m *Manager) EnsureValidToken(ctx context.Context, key string) (string, error) {
	s, ok := m.get(key)
	if !ok {
		return "", ErrNotLoggedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}
	if !s.creds.Complete() {
		return "", ErrNotLoggedIn
	}
	slog.Info("token missing or expired, re-authenticating", "chat", key)
	if err := m.loginLocked(ctx, s, false); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Logout clears the session and credentials and cancels the pending
// re-login timer so it cannot fire after logout.
func (m *Manager) Logout(key string) error {
	s, ok := m.get(key)
	if !ok {
		return ErrNotLoggedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLoggedOut {
		return ErrNotLoggedIn
	}
	m.stopReloginLocked(s)
	s.creds = Credentials{}
	s.accessToken = ""
	s.tokenExpiry = time.Time{}
	s.state = StateLoggedOut
	slog.Info("logged out", "chat", key)
	return nil
}

// Close cancels all pending re-login timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		m.stopReloginLocked(s)
		s.mu.Unlock()
	}
}

// armReloginLocked schedules the next re-login, replacing any pending timer.
// Caller must hold s.mu.
func (m *Manager) armReloginLocked(s *Session) {
	if s.relogin != nil {
		s.relogin.Stop()
	}
	key := s.Key
	s.relogin = time.AfterFunc(m.ttl, func() { m.relogin(key) })
}

// stopReloginLocked cancels the pending re-login timer. Caller must hold s.mu.
func (m *Manager) stopReloginLocked(s *Session) {
	if s.relogin != nil {
		s.relogin.Stop()
		s.relogin = nil
	}
}

// relogin is the timer callback: re-authenticate with the stored credentials
// and tell the chat what happened.
func (m *Manager) relogin(key string) {
	s, ok := m.get(key)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Logged out since the timer was armed.
	if !s.creds.Complete() {
		return
	}
	m.send(s, reloginMessage)
	if err := m.loginLocked(context.Background(), s, true); err != nil {
		slog.Warn("scheduled re-login failed", "chat", key, "error", err)
	}
}

func (m *Manager) send(s *Session, text string) {
	m.bus.PublishOutbound(bus.OutboundMessage{
		Channel: s.Channel,
		ChatID:  s.ChatID,
		Content: text,
	})
}
