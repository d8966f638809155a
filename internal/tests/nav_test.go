package tests

import (
	"testing"

	"balama-storefront/internal/nav"
	"balama-storefront/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackFor(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		want  nav.Stack
	}{
		{name: "uninitialized", state: session.StateUninitialized, want: nav.StackLoading},
		{name: "loading", state: session.StateLoading, want: nav.StackLoading},
		{name: "authenticated", state: session.StateAuthenticated, want: nav.StackMain},
		{name: "unauthenticated", state: session.StateUnauthenticated, want: nav.StackAuth},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, nav.StackFor(testCase.state))
		})
	}
}

func TestDispatcher_DropsNavigationUntilReady(t *testing.T) {
	d := nav.NewDispatcher()

	assert.False(t, d.Navigate(nav.ScreenHome, nil))
	screen, _ := d.Current()
	assert.Equal(t, nav.ScreenLogin, screen)

	d.SetReady()

	assert.True(t, d.Navigate(nav.ScreenHome, nil))
	screen, _ = d.Current()
	assert.Equal(t, nav.ScreenHome, screen)
}

func TestHandleDeepLink(t *testing.T) {
	t.Run("routes confirmation link with token", func(t *testing.T) {
		d := nav.NewDispatcher()
		d.SetReady()

		handled := nav.HandleDeepLink(d, "balama://confirm-email?token=abc123")
		require.True(t, handled)

		screen, params := d.Current()
		assert.Equal(t, nav.ScreenEmailConfirm, screen)
		assert.Equal(t, "abc123", params["token"])
	})

	t.Run("ignored before dispatcher is ready", func(t *testing.T) {
		d := nav.NewDispatcher()

		handled := nav.HandleDeepLink(d, "balama://confirm-email?token=abc123")
		assert.False(t, handled)

		screen, _ := d.Current()
		assert.Equal(t, nav.ScreenLogin, screen)
	})

	t.Run("ignored without token", func(t *testing.T) {
		d := nav.NewDispatcher()
		d.SetReady()

		assert.False(t, nav.HandleDeepLink(d, "balama://confirm-email"))
		assert.False(t, nav.HandleDeepLink(d, "balama://confirm-email?token="))
	})

	t.Run("unrelated links are not handled", func(t *testing.T) {
		d := nav.NewDispatcher()
		d.SetReady()

		assert.False(t, nav.HandleDeepLink(d, "balama://orders/o1"))
	})
}
