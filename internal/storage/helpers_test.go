package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/migrations"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(dsn)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations"), slog.New(slog.NewTextHandler(io.Discard, nil))))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// testFactory создаёт тестовые данные напрямую через Storage.
type testFactory struct {
	t       *testing.T
	storage *Storage
	now     time.Time
}

func newTestFactory(t *testing.T, s *Storage) *testFactory {
	return &testFactory{t: t, storage: s, now: time.Now().UTC().Truncate(time.Microsecond)}
}

func (f *testFactory) user(email string) models.User {
	f.t.Helper()
	limits := access.LimitsFor(access.AccountFree)
	u := models.User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       "hash",
		FirstName:          "Ion",
		LastName:           "Popescu",
		CreatedAt:          f.now,
		IsActive:           true,
		AccountType:        access.AccountFree,
		MonthlySearchLimit: limits.SearchLimit,
		MonthlyExportLimit: limits.ExportLimit,
		LastResetDate:      f.now,
	}
	require.NoError(f.t, f.storage.CreateUser(context.Background(), u))
	return u
}

func (f *testFactory) santier(name, judet, categorie string) models.Santier {
	f.t.Helper()
	status := "In executie"
	value := 150000.5
	s := models.Santier{
		Name:            name,
		Judet:           judet,
		Localitate:      "Cluj-Napoca",
		Categorie:       categorie,
		Beneficiar:      "Primaria Cluj",
		Status:          &status,
		ValoareEstimata: &value,
		CreatedAt:       f.now,
		UpdatedAt:       f.now,
		IsActive:        true,
	}
	id, err := f.storage.CreateSantier(context.Background(), s)
	require.NoError(f.t, err)
	s.ID = id
	return s
}
