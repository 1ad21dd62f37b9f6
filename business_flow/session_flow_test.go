package businessflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/amirphl/dokany-admin/app/services"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/repository"
	testingutil "github.com/amirphl/dokany-admin/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore refuses to persist, so a login cannot complete
type failingStore struct {
	repository.MemoryTokenStore
}

func (s *failingStore) Save(context.Context, string) error {
	return errors.New("disk full")
}

// unreadableStore fails every read while still holding a token
type unreadableStore struct {
	repository.MemoryTokenStore
	clears int
}

func (s *unreadableStore) Load(context.Context) (string, error) {
	return "", errors.New("connection refused")
}

func (s *unreadableStore) Clear(ctx context.Context) error {
	s.clears++
	return s.MemoryTokenStore.Clear(ctx)
}

func newSessionStore(fake *testingutil.FakeDashboardAPI, store repository.TokenStore) *businessflow.SessionStoreImpl {
	var session *businessflow.SessionStoreImpl
	api := services.NewAPIClient(fake.URL(), 5*time.Second, services.TokenSourceFunc(func() string {
		return session.Token()
	}))
	session = businessflow.NewSessionStore(store, services.NewTokenDecoder(""), services.NewAuthClient(api), nil)
	return session
}

func TestSessionBootstrap(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	ctx := context.Background()

	t.Run("LoadingUntilBootstrapped", func(t *testing.T) {
		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		snap := session.Snapshot()
		assert.True(t, snap.Loading)
		assert.False(t, snap.IsAuthenticated)
	})

	t.Run("NoStoredToken", func(t *testing.T) {
		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		snap := session.Bootstrap(ctx)
		assert.False(t, snap.Loading)
		assert.False(t, snap.IsAuthenticated)
		assert.Nil(t, snap.Identity)
		assert.Empty(t, session.Token())
	})

	t.Run("ValidStoredToken", func(t *testing.T) {
		token, err := testingutil.ValidAdminToken()
		require.NoError(t, err)

		session := newSessionStore(fake, repository.NewMemoryTokenStore(token))
		snap := session.Bootstrap(ctx)
		assert.False(t, snap.Loading)
		require.True(t, snap.IsAuthenticated)
		assert.Equal(t, "42", snap.Identity.UserID)
		assert.Equal(t, "admin@dokany.test", snap.Identity.Email)
		assert.Equal(t, "Dokany Admin", snap.Identity.DisplayName)
		assert.Equal(t, token, session.Token())
	})

	t.Run("MalformedTokenIsDiscarded", func(t *testing.T) {
		store := repository.NewMemoryTokenStore("not-a-jwt")
		session := newSessionStore(fake, store)

		snap := session.Bootstrap(ctx)
		assert.False(t, snap.Loading)
		assert.False(t, snap.IsAuthenticated)

		stored, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("ReadErrorKeepsStoredToken", func(t *testing.T) {
		token, err := testingutil.ValidAdminToken()
		require.NoError(t, err)

		store := &unreadableStore{}
		require.NoError(t, store.Save(ctx, token))
		session := newSessionStore(fake, store)

		snap := session.Bootstrap(ctx)
		assert.False(t, snap.Loading)
		assert.False(t, snap.IsAuthenticated)
		assert.Empty(t, session.Token())

		assert.Zero(t, store.clears)
		kept, err := store.MemoryTokenStore.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, token, kept)
	})

	t.Run("ExpiredTokenIsDiscarded", func(t *testing.T) {
		token, err := testingutil.SignAdminToken(testingutil.AdminClaims{
			ID:        "42",
			Email:     "admin@dokany.test",
			ExpiresAt: time.Now().Add(-time.Minute),
		}, "")
		require.NoError(t, err)

		store := repository.NewMemoryTokenStore(token)
		session := newSessionStore(fake, store)

		snap := session.Bootstrap(ctx)
		assert.False(t, snap.IsAuthenticated)
		stored, _ := store.Load(ctx)
		assert.Empty(t, stored)
	})

	t.Run("SnapshotIsACopy", func(t *testing.T) {
		token, err := testingutil.ValidAdminToken()
		require.NoError(t, err)
		session := newSessionStore(fake, repository.NewMemoryTokenStore(token))
		session.Bootstrap(ctx)

		snap := session.Snapshot()
		snap.Identity.Email = "changed@dokany.test"
		assert.Equal(t, "admin@dokany.test", session.Snapshot().Identity.Email)
	})
}

func TestSessionLogin(t *testing.T) {
	ctx := context.Background()
	meta := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")

	t.Run("Success", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()

		token, err := testingutil.ValidAdminToken()
		require.NoError(t, err)
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusOK, map[string]any{
			"token": token,
			"user":  map[string]any{"id": 42, "email": "admin@dokany.test", "name": "Dokany Admin"},
		})

		store := repository.NewMemoryTokenStore("")
		session := newSessionStore(fake, store)
		session.Bootstrap(ctx)

		snap, err := session.Login(ctx, " admin@dokany.test ", "secret123", meta)
		require.NoError(t, err)
		assert.True(t, snap.IsAuthenticated)
		assert.False(t, snap.Loading)
		assert.Equal(t, "42", snap.Identity.UserID)
		assert.Equal(t, token, session.Token())

		stored, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, token, stored)

		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Empty(t, reqs[0].Authorization)
		var body map[string]string
		require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
		assert.Equal(t, "admin@dokany.test", body["email"])
		assert.Equal(t, "secret123", body["password"])
	})

	t.Run("UndecodableTokenFallsBackToReturnedUser", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusOK, map[string]any{
			"token": "opaque-token",
			"user":  map[string]any{"id": "7", "email": "ops@dokany.test", "user_name": "ops"},
		})

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		snap, err := session.Login(ctx, "ops@dokany.test", "secret123", meta)
		require.NoError(t, err)
		assert.Equal(t, "7", snap.Identity.UserID)
		assert.Equal(t, "ops", snap.Identity.DisplayName)
	})

	t.Run("RejectedWithServerMessage", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusUnauthorized, map[string]any{
			"message": "Invalid credentials",
			"error":   "ignored when message is present",
		})

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		snap, err := session.Login(ctx, "admin@dokany.test", "wrongpass", meta)
		require.Error(t, err)
		assert.True(t, businessflow.IsLoginRejected(err))
		assert.Equal(t, "Invalid credentials", businessflow.UserMessage(err))
		assert.False(t, snap.IsAuthenticated)
		assert.False(t, snap.Loading)
	})

	t.Run("RejectedWithErrorField", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusForbidden, map[string]any{
			"error": "Account locked",
		})

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		_, err := session.Login(ctx, "admin@dokany.test", "wrongpass", meta)
		assert.Equal(t, "Account locked", businessflow.UserMessage(err))
	})

	t.Run("RejectedWithoutMessage", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusUnauthorized, nil)

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		_, err := session.Login(ctx, "admin@dokany.test", "wrongpass", meta)
		assert.Equal(t, "Invalid email or password. Please try again.", businessflow.UserMessage(err))
	})

	t.Run("ResponseWithoutTokenIsRejected", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusOK, map[string]any{"user": map[string]any{"id": 1}})

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		snap, err := session.Login(ctx, "admin@dokany.test", "secret123", meta)
		assert.True(t, businessflow.IsLoginRejected(err))
		assert.False(t, snap.IsAuthenticated)
	})

	t.Run("InvalidFormNeverReachesTheAPI", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()

		session := newSessionStore(fake, repository.NewMemoryTokenStore(""))
		session.Bootstrap(ctx)

		_, err := session.Login(ctx, "not-an-email", "123", meta)
		require.Error(t, err)
		assert.True(t, businessflow.IsLoginInvalid(err))

		ve, ok := businessflow.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"email", "password"}, ve.Fields.Fields())
		assert.Equal(t, 0, fake.RequestCount(http.MethodPost, "/auth/admin/login"))
	})

	t.Run("PersistFailureFailsTheLogin", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		token, err := testingutil.ValidAdminToken()
		require.NoError(t, err)
		fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusOK, map[string]any{"token": token})

		session := newSessionStore(fake, &failingStore{})
		snap, err := session.Login(ctx, "admin@dokany.test", "secret123", meta)
		require.Error(t, err)
		assert.ErrorIs(t, err, businessflow.ErrTokenPersistFailed)
		assert.False(t, snap.IsAuthenticated)
		assert.Empty(t, session.Token())
	})
}

func TestSessionLogout(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	ctx := context.Background()

	token, err := testingutil.ValidAdminToken()
	require.NoError(t, err)

	store := repository.NewMemoryTokenStore(token)
	session := newSessionStore(fake, store)
	require.True(t, session.Bootstrap(ctx).IsAuthenticated)

	first := session.Logout(ctx, nil)
	second := session.Logout(ctx, nil)

	assert.Equal(t, first, second)
	assert.False(t, second.IsAuthenticated)
	assert.False(t, second.Loading)
	assert.Empty(t, session.Token())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSessionInvalidate(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	ctx := context.Background()

	token, err := testingutil.ValidAdminToken()
	require.NoError(t, err)

	session := newSessionStore(fake, repository.NewMemoryTokenStore(token))
	session.Bootstrap(ctx)

	snap := session.Invalidate(ctx, "upstream answered 401")
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, session.Snapshot().IsAuthenticated)
}

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidEmailNeverReachesTheAPI", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()

		_, err := newSessionStore(fake, repository.NewMemoryTokenStore("")).RequestPasswordReset(ctx, "nope", nil)
		ve, ok := businessflow.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"email"}, ve.Fields.Fields())
		assert.Empty(t, fake.Requests())
	})

	t.Run("SentWithoutAToken", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/reset-password", http.StatusOK, map[string]any{})

		message, err := newSessionStore(fake, repository.NewMemoryTokenStore("")).RequestPasswordReset(ctx, " admin@dokany.test ", nil)
		require.NoError(t, err)
		assert.Equal(t, services.ResetSentMessage, message)

		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Empty(t, reqs[0].Authorization)
		assert.JSONEq(t, `{"email":"admin@dokany.test"}`, string(reqs[0].Body))
	})

	t.Run("UpstreamMessageIsKept", func(t *testing.T) {
		fake := testingutil.NewFakeDashboardAPI()
		defer fake.Close()
		fake.Respond(http.MethodPost, "/auth/admin/reset-password", http.StatusTooManyRequests, map[string]any{"message": "Try again in a minute"})

		_, err := newSessionStore(fake, repository.NewMemoryTokenStore("")).RequestPasswordReset(ctx, "admin@dokany.test", nil)
		require.Error(t, err)
		assert.Equal(t, "Try again in a minute", businessflow.UserMessage(err))
	})
}
