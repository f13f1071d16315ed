package santier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/cache"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/services/entitlement"
	"github.com/magabrotheeeer/datesantiere/internal/services/history"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSantier(ctx context.Context, s models.Santier) (int, error) {
	args := m.Called(ctx, s)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetSantier(ctx context.Context, id int) (*models.Santier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Santier), args.Error(1)
}

func (m *MockRepository) UpdateSantier(ctx context.Context, s models.Santier, expectedUpdatedAt time.Time) error {
	args := m.Called(ctx, s, expectedUpdatedAt)
	return args.Error(0)
}

func (m *MockRepository) DeactivateSantier(ctx context.Context, id int, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockRepository) ListSantiere(ctx context.Context, f models.SantierFilter) ([]models.Santier, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Santier), args.Int(1), args.Error(2)
}

func (m *MockRepository) DistinctSantierValues(ctx context.Context, column string, activeOnly bool) ([]string, error) {
	args := m.Called(ctx, column, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) SiteStats(ctx context.Context, now time.Time) (models.SiteStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(models.SiteStats), args.Error(1)
}

func (m *MockRepository) LatestSantiere(ctx context.Context, limit int) ([]models.Santier, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Santier), args.Error(1)
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

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, user *models.User, santierID int) (entitlement.Decision, error) {
	args := m.Called(ctx, user, santierID)
	return args.Get(0).(entitlement.Decision), args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) RecordCreate(ctx context.Context, s *models.Santier, actor history.Actor) {
	m.Called(ctx, s, actor)
}

func (m *MockHistory) RecordUpdate(ctx context.Context, before, after *models.Santier, actor history.Actor) {
	m.Called(ctx, before, after, actor)
}

func (m *MockHistory) RecordDelete(ctx context.Context, s *models.Santier, actor history.Actor) {
	m.Called(ctx, s, actor)
}

func (m *MockHistory) List(ctx context.Context, santierID int) ([]models.SantierHistory, error) {
	args := m.Called(ctx, santierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SantierHistory), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	repo      *MockRepository
	users     *MockUsers
	evaluator *MockEvaluator
	history   *MockHistory
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(MockRepository),
		users:     new(MockUsers),
		evaluator: new(MockEvaluator),
		history:   new(MockHistory),
	}
	f.svc = New(f.repo, f.users, f.evaluator, f.history,
		cache.NewMemory(time.Minute, time.Minute), cache.NewMemory(time.Minute, time.Minute), newNoopLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func ptr[T any](v T) *T { return &v }

func activeSantier() *models.Santier {
	return &models.Santier{
		ID:             3,
		Name:           "Pod",
		Judet:          "Cluj",
		Localitate:     "Dej",
		Categorie:      "Infrastructura",
		Beneficiar:     "CNAIR",
		ContactTelefon: ptr("0722000000"),
		Status:         ptr("In Progress"),
		IsActive:       true,
		CreatedAt:      fixedNow.Add(-time.Hour),
		UpdatedAt:      fixedNow.Add(-time.Hour),
	}
}

func TestService_Details(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		decision    entitlement.Decision
		wantPreview bool
	}{
		{name: "guest gets preview", userID: "", wantPreview: true},
		{name: "access granted", userID: "u1", decision: entitlement.Decision{HasAccess: true}},
		{name: "counted view is full", userID: "u1", decision: entitlement.Decision{}},
		{name: "limit reached gets preview", userID: "u1", decision: entitlement.Decision{LimitReached: true}, wantPreview: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("GetSantier", mock.Anything, 3).Return(activeSantier(), nil).Once()
			user := &models.User{ID: "u1"}
			if tt.userID != "" {
				f.users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
				f.evaluator.On("Evaluate", mock.Anything, user, 3).Return(tt.decision, nil)
			}

			got, err := f.svc.Details(context.Background(), 3, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPreview, got.Preview)
			assert.Equal(t, tt.decision.HasAccess, got.HasAccess)
			assert.Equal(t, tt.decision.LimitReached, got.LimitReached)
			if tt.wantPreview {
				assert.Nil(t, got.Santier.ContactTelefon)
			} else {
				require.NotNil(t, got.Santier.ContactTelefon)
			}
			if tt.userID == "" {
				f.evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_Details_CachedAndInactive(t *testing.T) {
	f := newFixture()
	inactive := activeSantier()
	inactive.IsActive = false
	f.repo.On("GetSantier", mock.Anything, 3).Return(inactive, nil).Once()

	_, err := f.svc.Details(context.Background(), 3, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Details(context.Background(), 3, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.repo.AssertNumberOfCalls(t, "GetSantier", 1)
}

func TestService_Details_EvaluatorErrorServesPreview(t *testing.T) {
	tests := []struct {
		name     string
		decision entitlement.Decision
	}{
		{name: "lookup failed under limit", decision: entitlement.Decision{}},
		{name: "persist failed with access", decision: entitlement.Decision{HasAccess: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			user := &models.User{ID: "u1"}
			f.repo.On("GetSantier", mock.Anything, 3).Return(activeSantier(), nil)
			f.users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
			f.evaluator.On("Evaluate", mock.Anything, user, 3).Return(tt.decision, errors.New("db down"))

			got, err := f.svc.Details(context.Background(), 3, "u1")
			require.NoError(t, err)
			assert.True(t, got.Preview)
			assert.Nil(t, got.Santier.ContactTelefon)
		})
	}
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) UpdateUsage(ctx context.Context, userID string, searches, exports int, lastReset time.Time) error {
	args := m.Called(ctx, userID, searches, exports, lastReset)
	return args.Error(0)
}

func (m *MockUsageRepository) HasActivePurchase(ctx context.Context, userID string, santierID int, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, santierID, now)
	return args.Bool(0), args.Error(1)
}

func TestService_Details_PurchaseLookupFailureKeepsContactsHidden(t *testing.T) {
	usage := new(MockUsageRepository)
	usage.On("HasActivePurchase", mock.Anything, "u1", 3, mock.Anything).Return(false, errors.New("db down"))
	usage.On("UpdateUsage", mock.Anything, "u1", 1, 0, mock.Anything).Return(nil).Once()

	repo := new(MockRepository)
	users := new(MockUsers)
	user := &models.User{
		ID:                   "u1",
		AccountType:          access.AccountFree,
		MonthlySearchLimit:   10,
		CurrentMonthSearches: 10,
		LastResetDate:        time.Now().AddDate(0, -2, 0),
	}
	repo.On("GetSantier", mock.Anything, 3).Return(activeSantier(), nil)
	users.On("GetUserByID", mock.Anything, "u1").Return(user, nil)

	svc := New(repo, users, entitlement.New(usage, newNoopLogger(), metrics.NewNoop()), new(MockHistory),
		cache.NewMemory(time.Minute, time.Minute), cache.NewMemory(time.Minute, time.Minute), newNoopLogger())

	got, err := svc.Details(context.Background(), 3, "u1")
	require.NoError(t, err)
	assert.True(t, got.Preview)
	assert.False(t, got.HasAccess)
	assert.Nil(t, got.Santier.ContactTelefon)
	usage.AssertExpectations(t)
}

func TestService_List_ForcesPublicScope(t *testing.T) {
	f := newFixture()
	active := false
	in := models.SantierFilter{Judet: "Cluj", IncludeInactive: true, IsActive: &active, PageSize: 500, Page: 2}
	want := models.SantierFilter{Judet: "Cluj", PageSize: PublicPageSize, Page: 2}
	f.repo.On("ListSantiere", mock.Anything, want).Return([]models.Santier{*activeSantier()}, 21, nil)

	page, err := f.svc.List(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Nil(t, page.Items[0].ContactTelefon)
}

func TestService_Update(t *testing.T) {
	t.Run("id mismatch", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Update(context.Background(), 3, models.SantierInput{ID: 4}, history.Actor{})
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.repo.AssertNotCalled(t, "GetSantier", mock.Anything, mock.Anything)
	})

	t.Run("records diff and keeps created at", func(t *testing.T) {
		f := newFixture()
		before := activeSantier()
		f.repo.On("GetSantier", mock.Anything, 3).Return(before, nil)
		f.repo.On("UpdateSantier", mock.Anything, mock.MatchedBy(func(s models.Santier) bool {
			return s.ID == 3 && s.Name == "Pod nou" && s.CreatedAt.Equal(before.CreatedAt) && s.UpdatedAt.Equal(fixedNow)
		}), before.UpdatedAt).Return(nil)
		f.history.On("RecordUpdate", mock.Anything, before, mock.Anything, history.Actor{UserID: "a1"}).Return()

		in := models.SantierInput{
			ID: 3, Name: "Pod nou", Judet: "Cluj", Localitate: "Dej", Categorie: "Infrastructura",
			Beneficiar: "CNAIR", ContactTelefon: ptr("0722000000"), Status: ptr("In Progress"),
		}
		got, err := f.svc.Update(context.Background(), 3, in, history.Actor{UserID: "a1"})
		require.NoError(t, err)
		assert.Equal(t, "Pod nou", got.Name)
		assert.True(t, got.IsActive)
		f.history.AssertExpectations(t)
	})

	t.Run("conflict is surfaced without history", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetSantier", mock.Anything, 3).Return(activeSantier(), nil)
		f.repo.On("UpdateSantier", mock.Anything, mock.Anything, mock.Anything).Return(models.ErrConflict)

		_, err := f.svc.Update(context.Background(), 3, models.SantierInput{ID: 3, Name: "x"}, history.Actor{})
		assert.ErrorIs(t, err, models.ErrConflict)
		f.history.AssertNotCalled(t, "RecordUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_CreateAndDelete(t *testing.T) {
	f := newFixture()
	f.repo.On("CreateSantier", mock.Anything, mock.MatchedBy(func(s models.Santier) bool {
		return s.IsActive && s.CreatedAt.Equal(fixedNow) && s.UpdatedAt.Equal(fixedNow)
	})).Return(9, nil)
	f.history.On("RecordCreate", mock.Anything, mock.MatchedBy(func(s *models.Santier) bool { return s.ID == 9 }), history.Actor{UserID: "a1"}).Return()

	inactive := false
	created, err := f.svc.Create(context.Background(), models.SantierInput{Name: "Scoala", IsActive: &inactive}, history.Actor{UserID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, 9, created.ID)
	assert.True(t, created.IsActive)

	f.repo.On("GetSantier", mock.Anything, 9).Return(created, nil)
	f.repo.On("DeactivateSantier", mock.Anything, 9, fixedNow).Return(nil)
	f.history.On("RecordDelete", mock.Anything, created, history.Actor{UserID: "a1"}).Return()

	require.NoError(t, f.svc.Delete(context.Background(), 9, history.Actor{UserID: "a1"}))
	f.history.AssertExpectations(t)

	f.repo.On("GetSantier", mock.Anything, 10).Return(nil, models.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), 10, history.Actor{}), models.ErrNotFound)
}

func TestService_FiltersAreCached(t *testing.T) {
	f := newFixture()
	f.repo.On("DistinctSantierValues", mock.Anything, "judet", true).Return([]string{"Alba", "Cluj"}, nil).Once()

	for range 2 {
		got, err := f.svc.Judete(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Alba", "Cluj"}, got)
	}
	f.repo.AssertNumberOfCalls(t, "DistinctSantierValues", 1)
}
