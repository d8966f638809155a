package nav

import (
	"log"
	"strings"
	"sync"

	"balama-storefront/internal/session"
)

// Stack is one of the three top-level navigation areas. Exactly one stack
// is active at a time, decided by the session state alone.
type Stack string

const (
	StackLoading Stack = "Loading"
	StackAuth    Stack = "Auth"
	StackMain    Stack = "Main"
)

// Screen names match the route names the screens register under.
type Screen string

const (
	ScreenLogin        Screen = "Login"
	ScreenRegister     Screen = "Register"
	ScreenEmailConfirm Screen = "EmailConfirm"
	ScreenHome         Screen = "Home"
	ScreenMenu         Screen = "Menu"
	ScreenCart         Screen = "Cart"
	ScreenOrders       Screen = "Orders"
	ScreenProfile      Screen = "Profile"
)

// StackFor maps session state to the active stack. Loading and
// Uninitialized both hold the loading stack; screens never render before
// restore finishes.
func StackFor(state session.State) Stack {
	switch state {
	case session.StateAuthenticated:
		return StackMain
	case session.StateUnauthenticated:
		return StackAuth
	default:
		return StackLoading
	}
}

// Dispatcher is the imperative navigation handle. Navigation requests that
// arrive before SetReady are dropped, not queued.
type Dispatcher struct {
	mu      sync.RWMutex
	ready   bool
	current Screen
	params  map[string]string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{current: ScreenLogin}
}

func (d *Dispatcher) SetReady() {
	d.mu.Lock()
	d.ready = true
	d.mu.Unlock()
}

func (d *Dispatcher) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// Navigate records the target screen. Returns false when the dispatcher is
// not ready yet and the request was dropped.
func (d *Dispatcher) Navigate(screen Screen, params map[string]string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		log.Printf("[NAV] dropped navigation to %s: dispatcher not ready", screen)
		return false
	}
	d.current = screen
	d.params = params
	return true
}

func (d *Dispatcher) Current() (Screen, map[string]string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	params := make(map[string]string, len(d.params))
	for k, v := range d.params {
		params[k] = v
	}
	return d.current, params
}

// HandleDeepLink routes a confirmation link to the email-confirm screen.
// The token is everything after the first "token=" in the URL; links with
// no token, or links arriving before the dispatcher is ready, are ignored.
func HandleDeepLink(d *Dispatcher, url string) bool {
	if !strings.Contains(url, "/confirm-email") {
		return false
	}
	_, rest, found := strings.Cut(url, "token=")
	if !found || rest == "" {
		log.Printf("[NAV] confirm-email link without token: %s", url)
		return false
	}
	return d.Navigate(ScreenEmailConfirm, map[string]string{"token": rest})
}
