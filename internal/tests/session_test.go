package tests

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"balama-storefront/internal/domain"
	"balama-storefront/internal/mocks"
	"balama-storefront/internal/session"
	"balama-storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFileBackedManager(t *testing.T, auth session.AuthAPI) (*session.Manager, storage.KV) {
	t.Helper()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	return session.NewManager(store, auth), store
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store restores unauthenticated", func(t *testing.T) {
		manager, _ := newFileBackedManager(t, nil)
		manager.Restore(ctx)
		assert.Equal(t, session.StateUnauthenticated, manager.State())
		assert.False(t, manager.IsAuthenticated())
	})

	t.Run("persisted token and user restore authenticated", func(t *testing.T) {
		manager, store := newFileBackedManager(t, nil)
		require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "jwt-abc"))
		require.NoError(t, store.Set(ctx, storage.KeyUserData,
			`{"id":"u1","email":"a@b.com","role":"customer"}`))

		manager.Restore(ctx)

		assert.Equal(t, session.StateAuthenticated, manager.State())
		user := manager.CurrentUser()
		require.NotNil(t, user)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("token without user record restores unauthenticated", func(t *testing.T) {
		manager, store := newFileBackedManager(t, nil)
		require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "jwt-abc"))

		manager.Restore(ctx)

		assert.Equal(t, session.StateUnauthenticated, manager.State())
	})

	t.Run("corrupt user record restores unauthenticated", func(t *testing.T) {
		manager, store := newFileBackedManager(t, nil)
		require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "jwt-abc"))
		require.NoError(t, store.Set(ctx, storage.KeyUserData, "{not json"))

		manager.Restore(ctx)

		assert.Equal(t, session.StateUnauthenticated, manager.State())
	})
}

func TestManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists token and user", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Login", mock.Anything, "a@b.com", "secret").Return(&domain.AuthResult{
			Token: "jwt-abc",
			User:  &domain.User{ID: "u1", UserID: "u1", Email: "a@b.com", Role: "customer"},
		}, nil)

		manager, store := newFileBackedManager(t, auth)
		manager.Restore(ctx)

		require.NoError(t, manager.Login(ctx, "a@b.com", "secret"))

		assert.Equal(t, session.StateAuthenticated, manager.State())
		assert.Empty(t, manager.Err())

		token, err := store.Get(ctx, storage.KeyAuthToken)
		require.NoError(t, err)
		assert.Equal(t, "jwt-abc", token)
		userData, err := store.Get(ctx, storage.KeyUserData)
		require.NoError(t, err)
		assert.Contains(t, userData, `"u1"`)
	})

	t.Run("backend failure keeps state and records error", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Login", mock.Anything, "a@b.com", "wrong").
			Return(nil, errors.New("invalid credentials"))

		manager, store := newFileBackedManager(t, auth)
		manager.Restore(ctx)

		err := manager.Login(ctx, "a@b.com", "wrong")
		require.Error(t, err)

		assert.Equal(t, session.StateUnauthenticated, manager.State())
		assert.Equal(t, "invalid credentials", manager.Err())
		_, err = store.Get(ctx, storage.KeyAuthToken)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing token in result does not persist anything", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Login", mock.Anything, "a@b.com", "secret").Return(&domain.AuthResult{
			User: &domain.User{ID: "u1"},
		}, nil)

		manager, store := newFileBackedManager(t, auth)
		manager.Restore(ctx)

		require.Error(t, manager.Login(ctx, "a@b.com", "secret"))

		assert.Equal(t, session.StateUnauthenticated, manager.State())
		_, err := store.Get(ctx, storage.KeyAuthToken)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestManager_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("token response establishes session", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Register", mock.Anything, mock.Anything).Return(&domain.RegisterOutcome{
			SessionEstablished: true,
			Token:              "jwt-new",
			User:               &domain.User{ID: "u2", Email: "new@b.com", Role: "customer"},
		}, nil)

		manager, store := newFileBackedManager(t, auth)
		manager.Restore(ctx)

		outcome, err := manager.Register(ctx, domain.RegisterForm{Email: "new@b.com"})
		require.NoError(t, err)
		assert.True(t, outcome.SessionEstablished)
		assert.Equal(t, session.StateAuthenticated, manager.State())

		token, err := store.Get(ctx, storage.KeyAuthToken)
		require.NoError(t, err)
		assert.Equal(t, "jwt-new", token)
	})

	t.Run("confirmation-pending response leaves session alone", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Register", mock.Anything, mock.Anything).Return(&domain.RegisterOutcome{
			SessionEstablished: false,
			Message:            "check your email",
		}, nil)

		manager, store := newFileBackedManager(t, auth)
		manager.Restore(ctx)

		outcome, err := manager.Register(ctx, domain.RegisterForm{Email: "new@b.com"})
		require.NoError(t, err)
		assert.False(t, outcome.SessionEstablished)
		assert.Equal(t, "check your email", outcome.Message)
		assert.Equal(t, session.StateUnauthenticated, manager.State())

		_, err = store.Get(ctx, storage.KeyAuthToken)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestManager_Logout_SurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()

	store := mocks.NewKV(t)
	store.On("Get", mock.Anything, storage.KeyAuthToken).Return("jwt-abc", nil)
	store.On("Get", mock.Anything, storage.KeyUserData).
		Return(`{"id":"u1","role":"admin"}`, nil)
	store.On("Remove", mock.Anything, storage.KeyAuthToken).
		Return(errors.New("disk full"))
	store.On("Remove", mock.Anything, storage.KeyUserData).
		Return(errors.New("disk full"))

	manager := session.NewManager(store, nil)
	manager.Restore(ctx)
	require.Equal(t, session.StateAuthenticated, manager.State())

	manager.Logout(ctx)

	assert.Equal(t, session.StateUnauthenticated, manager.State())
	assert.Nil(t, manager.CurrentUser())
}

func TestManager_UserID(t *testing.T) {
	ctx := context.Background()

	t.Run("in-memory user wins", func(t *testing.T) {
		auth := mocks.NewAuthAPI(t)
		auth.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(&domain.AuthResult{
			Token: "jwt",
			User:  &domain.User{ID: "u1", UserID: "legacy"},
		}, nil)

		manager, _ := newFileBackedManager(t, auth)
		manager.Restore(ctx)
		require.NoError(t, manager.Login(ctx, "a@b.com", "secret"))

		id, err := manager.UserID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u1", id)
	})

	t.Run("sentinel id falls through to secondary field", func(t *testing.T) {
		store := mocks.NewKV(t)
		store.On("Get", mock.Anything, storage.KeyUserData).
			Return(`{"id":"unknown","userId":"u9"}`, nil)

		manager := session.NewManager(store, nil)

		id, err := manager.UserID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u9", id)
	})

	t.Run("no usable id anywhere", func(t *testing.T) {
		manager, _ := newFileBackedManager(t, nil)
		manager.Restore(ctx)

		_, err := manager.UserID(ctx)
		assert.ErrorIs(t, err, session.ErrNoUser)
	})
}

func TestManager_IsAdmin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		role string
		want bool
	}{
		{role: "admin", want: true},
		{role: "Admin", want: true},
		{role: "ADMIN", want: true},
		{role: "customer", want: false},
		{role: "", want: false},
	}

	for _, testCase := range tests {
		t.Run("role "+testCase.role, func(t *testing.T) {
			auth := mocks.NewAuthAPI(t)
			auth.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(&domain.AuthResult{
				Token: "jwt",
				User:  &domain.User{ID: "u1", Role: testCase.role},
			}, nil)

			manager, _ := newFileBackedManager(t, auth)
			manager.Restore(ctx)
			require.NoError(t, manager.Login(ctx, "a@b.com", "secret"))

			assert.Equal(t, testCase.want, manager.IsAdmin())
		})
	}

	t.Run("signed out is never admin", func(t *testing.T) {
		manager, _ := newFileBackedManager(t, nil)
		manager.Restore(ctx)
		assert.False(t, manager.IsAdmin())
	})
}
