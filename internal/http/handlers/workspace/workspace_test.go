package workspace

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) AddNote(ctx context.Context, userID string, santierID int, in models.NoteInput) (*models.SantierNote, error) {
	args := m.Called(ctx, userID, santierID, in)
	v, _ := args.Get(0).(*models.SantierNote)
	return v, args.Error(1)
}

func (m *ServiceMock) Notes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error) {
	args := m.Called(ctx, userID, santierID)
	v, _ := args.Get(0).([]models.SantierNote)
	return v, args.Error(1)
}

func (m *ServiceMock) DeleteNote(ctx context.Context, userID string, noteID int) error {
	return m.Called(ctx, userID, noteID).Error(0)
}

func (m *ServiceMock) AddFavorite(ctx context.Context, userID string, santierID int, in models.FavoriteInput) (*models.FavoriteSantier, error) {
	args := m.Called(ctx, userID, santierID, in)
	v, _ := args.Get(0).(*models.FavoriteSantier)
	return v, args.Error(1)
}

func (m *ServiceMock) RemoveFavorite(ctx context.Context, userID string, santierID int) error {
	return m.Called(ctx, userID, santierID).Error(0)
}

func (m *ServiceMock) Favorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]models.FavoriteSantier)
	return v, args.Error(1)
}

func (m *ServiceMock) SaveSearch(ctx context.Context, userID string, in models.SavedSearchInput) (*models.SavedSearch, error) {
	args := m.Called(ctx, userID, in)
	v, _ := args.Get(0).(*models.SavedSearch)
	return v, args.Error(1)
}

func (m *ServiceMock) SavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]models.SavedSearch)
	return v, args.Error(1)
}

func (m *ServiceMock) DeleteSavedSearch(ctx context.Context, userID string, id int) error {
	return m.Called(ctx, userID, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRouter(h *Handler, userID string) http.Handler {
	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middlewarectx.WithIdentity(req.Context(), middlewarectx.Identity{UserID: userID})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	r.Get("/santiere/{id}/notes", h.Notes)
	r.Post("/santiere/{id}/notes", h.AddNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Get("/favorites", h.Favorites)
	r.Post("/favorites/{santierID}", h.AddFavorite)
	r.Delete("/favorites/{santierID}", h.RemoveFavorite)
	r.Get("/searches", h.SavedSearches)
	r.Post("/searches", h.SaveSearch)
	r.Delete("/searches/{id}", h.DeleteSavedSearch)
	return r
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RequiresUser(t *testing.T) {
	rec := serve(newRouter(New(newNoopLogger(), new(ServiceMock)), ""), http.MethodGet, "/favorites", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Notes(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		setupMocks     func(*ServiceMock)
		wantStatusCode int
	}{
		{
			name:   "add note",
			method: http.MethodPost,
			target: "/santiere/3/notes",
			body:   `{"nota":"Sun luni"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("AddNote", mock.Anything, "u1", 3, models.NoteInput{Nota: "Sun luni"}).
					Return(&models.SantierNote{ID: 1, Nota: "Sun luni"}, nil).Once()
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "note too long",
			method:         http.MethodPost,
			target:         "/santiere/3/notes",
			body:           `{"nota":"` + strings.Repeat("a", 1001) + `"}`,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:   "note on missing santier",
			method: http.MethodPost,
			target: "/santiere/99/notes",
			body:   `{"nota":"x"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("AddNote", mock.Anything, "u1", 99, models.NoteInput{Nota: "x"}).Return(nil, models.ErrNotFound).Once()
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:   "delete foreign note",
			method: http.MethodDelete,
			target: "/notes/8",
			setupMocks: func(m *ServiceMock) {
				m.On("DeleteNote", mock.Anything, "u1", 8).Return(models.ErrNotFound).Once()
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			rec := serve(newRouter(New(newNoopLogger(), svc), "u1"), tt.method, tt.target, tt.body)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Favorites(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("AddFavorite", mock.Anything, "u1", 4, models.FavoriteInput{}).
		Return(&models.FavoriteSantier{ID: 1, SantierID: 4}, nil).Once()
	svc.On("Favorites", mock.Anything, "u1").Return([]models.FavoriteSantier{{ID: 1, SantierID: 4}}, nil).Once()
	svc.On("RemoveFavorite", mock.Anything, "u1", 4).Return(nil).Once()
	router := newRouter(New(newNoopLogger(), svc), "u1")

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/favorites/4", "").Code)

	rec := serve(router, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got["data"], 1)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/favorites/4", "").Code)
	svc.AssertExpectations(t)
}

func TestHandler_SaveSearch(t *testing.T) {
	t.Run("limit reached", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SaveSearch", mock.Anything, "u1", mock.AnythingOfType("models.SavedSearchInput")).
			Return(nil, models.ErrSavedSearchLimit).Once()

		rec := serve(newRouter(New(newNoopLogger(), svc), "u1"), http.MethodPost, "/searches",
			`{"name":"Cluj","search_parameters":{"judet":"Cluj"}}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "saved searches limit reached")
	})

	t.Run("missing parameters", func(t *testing.T) {
		rec := serve(newRouter(New(newNoopLogger(), new(ServiceMock)), "u1"), http.MethodPost, "/searches", `{"name":"Cluj"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
