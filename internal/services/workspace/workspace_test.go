package workspace

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateNote(ctx context.Context, n models.SantierNote) (int, error) {
	args := m.Called(ctx, n)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ListNotes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error) {
	args := m.Called(ctx, userID, santierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SantierNote), args.Error(1)
}

func (m *MockRepository) DeactivateNote(ctx context.Context, noteID int, userID string, now time.Time) error {
	args := m.Called(ctx, noteID, userID, now)
	return args.Error(0)
}

func (m *MockRepository) AddFavorite(ctx context.Context, f models.FavoriteSantier) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) RemoveFavorite(ctx context.Context, userID string, santierID int) error {
	args := m.Called(ctx, userID, santierID)
	return args.Error(0)
}

func (m *MockRepository) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FavoriteSantier), args.Error(1)
}

func (m *MockRepository) CountSavedSearches(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreateSavedSearch(ctx context.Context, ss models.SavedSearch) (int, error) {
	args := m.Called(ctx, ss)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ListSavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SavedSearch), args.Error(1)
}

func (m *MockRepository) DeleteSavedSearch(ctx context.Context, id int, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type MockSantiere struct {
	mock.Mock
}

func (m *MockSantiere) GetSantier(ctx context.Context, id int) (*models.Santier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Santier), args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 2, 14, 8, 30, 0, 0, time.UTC)

type fixture struct {
	repo     *MockRepository
	santiere *MockSantiere
	users    *MockUsers
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{repo: new(MockRepository), santiere: new(MockSantiere), users: new(MockUsers)}
	f.svc = New(f.repo, f.santiere, f.users, newNoopLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	alarm := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("EET", 2*3600))

	t.Run("заметка с напоминанием в UTC", func(t *testing.T) {
		f := newFixture()
		f.santiere.On("GetSantier", ctx, 5).Return(&models.Santier{ID: 5, IsActive: true}, nil)
		f.repo.On("CreateNote", ctx, mock.MatchedBy(func(n models.SantierNote) bool {
			return n.Nota == "Sună beneficiarul" && n.UserID == "u1" && n.SantierID == 5 &&
				n.Alarma != nil && n.Alarma.Equal(alarm) && n.Alarma.Location() == time.UTC &&
				n.CreatedAt.Equal(fixedNow) && n.IsActive
		})).Return(11, nil)

		note, err := f.svc.AddNote(ctx, "u1", 5, models.NoteInput{Nota: "  Sună beneficiarul ", Alarma: &alarm})
		require.NoError(t, err)
		assert.Equal(t, 11, note.ID)
	})

	t.Run("пустой текст", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AddNote(ctx, "u1", 5, models.NoteInput{Nota: "   "})
		require.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("неактивная запись", func(t *testing.T) {
		f := newFixture()
		f.santiere.On("GetSantier", ctx, 5).Return(&models.Santier{ID: 5}, nil)
		_, err := f.svc.AddNote(ctx, "u1", 5, models.NoteInput{Nota: "x"})
		require.ErrorIs(t, err, models.ErrNotFound)
		f.repo.AssertNotCalled(t, "CreateNote", mock.Anything, mock.Anything)
	})
}

func TestDeleteNote_ForeignNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("DeactivateNote", ctx, 3, "u2", fixedNow).Return(models.ErrNotFound)

	require.ErrorIs(t, f.svc.DeleteNote(ctx, "u2", 3), models.ErrNotFound)
}

func TestAddFavorite(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	notes := "de urmărit"
	f.santiere.On("GetSantier", ctx, 8).Return(&models.Santier{ID: 8, IsActive: true}, nil)
	f.repo.On("AddFavorite", ctx, models.FavoriteSantier{UserID: "u1", SantierID: 8, AddedAt: fixedNow, Notes: &notes}).
		Return(4, nil).Twice()

	first, err := f.svc.AddFavorite(ctx, "u1", 8, models.FavoriteInput{Notes: &notes})
	require.NoError(t, err)
	second, err := f.svc.AddFavorite(ctx, "u1", 8, models.FavoriteInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSaveSearch(t *testing.T) {
	ctx := context.Background()
	params := json.RawMessage(`{"judet":"Cluj"}`)

	tests := []struct {
		name        string
		accountType string
		count       int
		wantErr     error
	}{
		{name: "free не может сохранять", accountType: access.AccountFree, wantErr: models.ErrSavedSearchDisabled},
		{name: "basic в пределах лимита", accountType: access.AccountBasic, count: 4},
		{name: "basic лимит исчерпан", accountType: access.AccountBasic, count: 5, wantErr: models.ErrSavedSearchLimit},
		{name: "enterprise без лимита", accountType: access.AccountEnterprise, count: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.users.On("GetUserByID", ctx, "u1").Return(&models.User{ID: "u1", AccountType: tt.accountType}, nil)
			f.repo.On("CountSavedSearches", ctx, "u1").Return(tt.count, nil)
			f.repo.On("CreateSavedSearch", ctx, models.SavedSearch{
				UserID: "u1", Name: "Cluj", SearchParameters: params, CreatedAt: fixedNow,
			}).Return(2, nil)

			ss, err := f.svc.SaveSearch(ctx, "u1", models.SavedSearchInput{Name: "Cluj", SearchParameters: params})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				f.repo.AssertNotCalled(t, "CreateSavedSearch", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, ss.ID)
			if tt.accountType == access.AccountEnterprise {
				f.repo.AssertNotCalled(t, "CountSavedSearches", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSaveSearch_InvalidParameters(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SaveSearch(context.Background(), "u1", models.SavedSearchInput{Name: "x", SearchParameters: json.RawMessage(`{`)})
	require.ErrorIs(t, err, models.ErrBadRequest)
}
