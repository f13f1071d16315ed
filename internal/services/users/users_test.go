package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *MockRepository) AdminUpdateUser(ctx context.Context, userID string, u models.AdminUserUpdate) error {
	args := m.Called(ctx, userID, u)
	return args.Error(0)
}

func (m *MockRepository) DeleteUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	superAdmin = Caller{ID: "root", AdminType: access.AdminSuper}
	admin      = Caller{ID: "adm", AdminType: access.AdminRegular}
	moderator  = Caller{ID: "mod", AdminType: access.AdminModerator}
)

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("страница по умолчанию", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())
		repo.On("ListUsers", ctx, models.UserFilter{Search: "ion", Page: 1, PageSize: PageSize}).
			Return([]models.User{{ID: "u1"}}, 26, nil)

		page, err := svc.List(ctx, admin, models.UserFilter{Search: "ion"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Items, 1)
	})

	t.Run("модератору запрещено", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())

		_, err := svc.List(ctx, moderator, models.UserFilter{})
		require.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	regular := &models.User{ID: "u1", AccountType: access.AccountFree}
	otherAdmin := &models.User{ID: "u2", AdminType: access.AdminModerator, AccountType: access.AccountFree}
	upd := models.AdminUserUpdate{FirstName: "Ion", LastName: "Pop", AccountType: access.AccountPremium, MonthlySearchLimit: 500, MonthlyExportLimit: 50, IsActive: true}

	tests := []struct {
		name    string
		caller  Caller
		target  *models.User
		upd     func(u models.AdminUserUpdate) models.AdminUserUpdate
		wantErr error
	}{
		{name: "admin меняет тариф обычного пользователя", caller: admin, target: regular},
		{
			name:    "admin не может назначить администратора",
			caller:  admin,
			target:  regular,
			upd:     func(u models.AdminUserUpdate) models.AdminUserUpdate { u.AdminType = access.AdminSupport; return u },
			wantErr: models.ErrForbidden,
		},
		{
			name:    "admin не может менять администратора",
			caller:  admin,
			target:  otherAdmin,
			upd:     func(u models.AdminUserUpdate) models.AdminUserUpdate { u.AdminType = access.AdminModerator; return u },
			wantErr: models.ErrForbidden,
		},
		{
			name:   "super admin назначает администратора",
			caller: superAdmin,
			target: regular,
			upd:    func(u models.AdminUserUpdate) models.AdminUserUpdate { u.AdminType = access.AdminRegular; return u },
		},
		{name: "модератору запрещено", caller: moderator, target: regular, wantErr: models.ErrForbidden},
		{
			name:    "неизвестный тариф",
			caller:  superAdmin,
			target:  regular,
			upd:     func(u models.AdminUserUpdate) models.AdminUserUpdate { u.AccountType = "Gold"; return u },
			wantErr: models.ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := New(repo, newNoopLogger())
			in := upd
			if tt.upd != nil {
				in = tt.upd(upd)
			}
			repo.On("GetUserByID", ctx, tt.target.ID).Return(tt.target, nil)
			repo.On("AdminUpdateUser", ctx, tt.target.ID, in).Return(nil)

			_, err := svc.Update(ctx, tt.caller, tt.target.ID, in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "AdminUpdateUser", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertCalled(t, "AdminUpdateUser", ctx, tt.target.ID, in)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("нельзя удалить себя", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())

		err := svc.Delete(ctx, superAdmin, superAdmin.ID)
		require.ErrorIs(t, err, models.ErrSelfDelete)
		repo.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("admin не удаляет администратора", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())
		repo.On("GetUserByID", ctx, "u2").Return(&models.User{ID: "u2", AdminType: access.AdminSupport}, nil)

		err := svc.Delete(ctx, admin, "u2")
		require.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("удаление пользователя", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())
		repo.On("GetUserByID", ctx, "u1").Return(&models.User{ID: "u1"}, nil)
		repo.On("DeleteUser", ctx, "u1").Return(1, nil)

		require.NoError(t, svc.Delete(ctx, admin, "u1"))
		repo.AssertExpectations(t)
	})

	t.Run("пользователь не найден", func(t *testing.T) {
		repo := new(MockRepository)
		svc := New(repo, newNoopLogger())
		repo.On("GetUserByID", ctx, "u404").Return(nil, models.ErrNotFound)

		require.ErrorIs(t, svc.Delete(ctx, admin, "u404"), models.ErrNotFound)
	})
}
