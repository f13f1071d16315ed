package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/lib/jwt"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

type UserLookupMock struct {
	mock.Mock
}

func (m *UserLookupMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAuthenticate(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken("user-1", "ion@example.com", "")
	require.NoError(t, err)
	other := jwt.NewJWTMaker("other-secret", time.Hour)
	foreign, err := other.GenerateToken("user-1", "ion@example.com", "")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		setupMocks     func(*UserLookupMock)
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			setupMocks:     func(_ *UserLookupMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			setupMocks:     func(_ *UserLookupMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "foreign signature",
			authHeader:     "Bearer " + foreign,
			setupMocks:     func(_ *UserLookupMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "deleted user",
			authHeader: "Bearer " + token,
			setupMocks: func(m *UserLookupMock) {
				m.On("GetUserByID", mock.Anything, "user-1").Return(nil, models.ErrNotFound).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "disabled user",
			authHeader: "Bearer " + token,
			setupMocks: func(m *UserLookupMock) {
				m.On("GetUserByID", mock.Anything, "user-1").
					Return(&models.User{ID: "user-1", Email: "ion@example.com"}, nil).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "valid token uses current admin type",
			authHeader: "Bearer " + token,
			setupMocks: func(m *UserLookupMock) {
				m.On("GetUserByID", mock.Anything, "user-1").
					Return(&models.User{ID: "user-1", Email: "ion@example.com", IsActive: true, AdminType: access.AdminModerator}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserLookupMock)
			tt.setupMocks(users)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.IdentityFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user-1", id.UserID)
				assert.Equal(t, access.AdminModerator, id.AdminType)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.Authenticate(maker, users, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			users.AssertExpectations(t)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)

	t.Run("anonymous request passes through", func(t *testing.T) {
		users := new(UserLookupMock)
		var anonymous bool
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			_, ok := middlewarectx.IdentityFrom(r.Context())
			anonymous = !ok
		})

		rec := httptest.NewRecorder()
		middlewarectx.OptionalAuth(maker, users, newNoopLogger())(next).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/santiere/1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, anonymous)
	})

	t.Run("invalid token treated as anonymous", func(t *testing.T) {
		users := new(UserLookupMock)
		var anonymous bool
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			_, ok := middlewarectx.IdentityFrom(r.Context())
			anonymous = !ok
		})

		req := httptest.NewRequest(http.MethodGet, "/santiere/1", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		middlewarectx.OptionalAuth(maker, users, newNoopLogger())(next).ServeHTTP(rec, req)

		assert.True(t, anonymous)
	})

	t.Run("valid token sets identity", func(t *testing.T) {
		token, err := maker.GenerateToken("user-2", "ana@example.com", "")
		require.NoError(t, err)
		users := new(UserLookupMock)
		users.On("GetUserByID", mock.Anything, "user-2").
			Return(&models.User{ID: "user-2", Email: "ana@example.com", IsActive: true}, nil).Once()

		var got middlewarectx.Identity
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got, _ = middlewarectx.IdentityFrom(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/santiere/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		middlewarectx.OptionalAuth(maker, users, newNoopLogger())(next).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "user-2", got.UserID)
		users.AssertExpectations(t)
	})
}
