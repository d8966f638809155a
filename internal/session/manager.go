package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"balama-storefront/internal/domain"
	"balama-storefront/internal/storage"
)

// State is the session lifecycle. Restore moves Uninitialized through
// Loading to one of the two terminal states; Login and Logout move between
// them afterwards.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// ErrNoUser means neither memory nor the persisted store yielded a usable
// user id; the caller must treat it as "re-authenticate".
var ErrNoUser = errors.New("no valid user in session")

// AuthAPI is the slice of the gateway client the session manager needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	Register(ctx context.Context, form domain.RegisterForm) (*domain.RegisterOutcome, error)
}

// Manager owns the device session: the bearer token, the cached user record
// and the derived identity. It is the single place that decides
// authenticated-ness and roles; screens never re-implement those checks.
type Manager struct {
	store storage.KV
	auth  AuthAPI

	mu      sync.RWMutex
	state   State
	token   string
	user    *domain.User
	lastErr string
}

func NewManager(store storage.KV, auth AuthAPI) *Manager {
	return &Manager{
		store: store,
		auth:  auth,
		state: StateUninitialized,
	}
}

// Restore loads a previously persisted session. Both the token and a
// parseable user record are required to come up authenticated; anything
// else, including store I/O errors, lands in Unauthenticated without
// crashing.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	m.state = StateLoading
	m.mu.Unlock()

	token, tokenErr := m.store.Get(ctx, storage.KeyAuthToken)
	userData, userErr := m.store.Get(ctx, storage.KeyUserData)

	if tokenErr == nil && userErr == nil && token != "" && userData != "" {
		var user domain.User
		if err := json.Unmarshal([]byte(userData), &user); err == nil {
			m.mu.Lock()
			m.token = token
			m.user = &user
			m.state = StateAuthenticated
			m.mu.Unlock()
			log.Printf("[SESSION] restored session for %s", user.Email)
			return
		}
		log.Printf("ERROR: parsing persisted user record, treating session as absent")
	}
	for _, err := range []error{tokenErr, userErr} {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ERROR: loading persisted session: %v", err)
		}
	}

	m.mu.Lock()
	m.state = StateUnauthenticated
	m.mu.Unlock()
}

// Login authenticates and persists the session. On any failure the session
// state is left unchanged and the error is kept for passive display.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setError("")

	result, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.setError(err.Error())
		return err
	}
	if result.Token == "" || result.User == nil || result.User.ID == "" {
		err := errors.New("login response missing token or user")
		m.setError(err.Error())
		return err
	}

	if err := m.persist(ctx, result.Token, result.User); err != nil {
		m.setError(err.Error())
		return err
	}

	m.mu.Lock()
	m.token = result.Token
	m.user = result.User
	m.state = StateAuthenticated
	m.mu.Unlock()
	log.Printf("[SESSION] logged in as %s (role %s)", result.User.Email, result.User.Role)
	return nil
}

// Register supports both backend flows: when the response carries a token
// the new user is logged in immediately, otherwise the outcome reports that
// email confirmation is pending and no session is established.
func (m *Manager) Register(ctx context.Context, form domain.RegisterForm) (domain.RegisterOutcome, error) {
	m.setError("")

	outcome, err := m.auth.Register(ctx, form)
	if err != nil {
		m.setError(err.Error())
		return domain.RegisterOutcome{}, err
	}

	if !outcome.SessionEstablished {
		return *outcome, nil
	}

	if err := m.persist(ctx, outcome.Token, outcome.User); err != nil {
		m.setError(err.Error())
		return domain.RegisterOutcome{}, err
	}
	m.mu.Lock()
	m.token = outcome.Token
	m.user = outcome.User
	m.state = StateAuthenticated
	m.mu.Unlock()
	log.Printf("[SESSION] registered and logged in as %s", outcome.User.Email)
	return *outcome, nil
}

func (m *Manager) persist(ctx context.Context, token string, user *domain.User) error {
	if err := m.store.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyUserData, string(userJSON)); err != nil {
		return fmt.Errorf("persist user record: %w", err)
	}
	return nil
}

// Logout clears the persisted session and resets in-memory state. Store
// failures are logged and swallowed; the in-memory session is reset no
// matter what.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Remove(ctx, storage.KeyAuthToken); err != nil {
		log.Printf("ERROR: removing auth token on logout: %v", err)
	}
	if err := m.store.Remove(ctx, storage.KeyUserData); err != nil {
		log.Printf("ERROR: removing user record on logout: %v", err)
	}

	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.state = StateUnauthenticated
	m.lastErr = ""
	m.mu.Unlock()
	log.Printf("[SESSION] logged out")
}

// UserID resolves the current user's id: the in-memory record first, then
// the persisted one, skipping empty and "unknown" sentinel values in both.
func (m *Manager) UserID(ctx context.Context) (string, error) {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()

	if id := usableID(user); id != "" {
		return id, nil
	}

	raw, err := m.store.Get(ctx, storage.KeyUserData)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ERROR: reading persisted user record: %v", err)
		}
		return "", ErrNoUser
	}
	var persisted domain.User
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		log.Printf("ERROR: parsing persisted user record: %v", err)
		return "", ErrNoUser
	}
	if id := usableID(&persisted); id != "" {
		return id, nil
	}
	return "", ErrNoUser
}

// usableID prefers id over userId and excludes the sentinels.
func usableID(user *domain.User) string {
	if user == nil {
		return ""
	}
	for _, id := range []string{user.ID, user.UserID} {
		if id != "" && id != "unknown" {
			return id
		}
	}
	return ""
}

// IsAdmin is the single role predicate: case-insensitive compare of the
// current user's role against "admin", false with no user.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && strings.EqualFold(m.user.Role, "admin")
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns a copy of the cached user record, nil when signed out.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Err is the last user-visible auth error, for passive display on the login
// screen.
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setError(message string) {
	m.mu.Lock()
	m.lastErr = message
	m.mu.Unlock()
}
