package scripts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateScriptRun(ctx context.Context, scriptName, requestedBy string, now time.Time) (int, error) {
	args := m.Called(ctx, scriptName, requestedBy, now)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CompleteScriptRun(ctx context.Context, id int, result models.ScriptResult) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockRepository) ListScriptRuns(ctx context.Context, limit int) ([]models.ScriptRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScriptRun), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2025, 8, 10, 3, 0, 0, 0, time.UTC)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash is not available")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.sh", "echo b")
	writeScript(t, dir, "a.PS1", "Write-Host a")
	writeScript(t, dir, "c.bat", "echo c")
	writeScript(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.sh"), 0o755))

	svc := New(dir, new(MockRepository), new(MockPublisher), newNoopLogger())
	list, err := svc.List()
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"a.PS1", "b.sh", "c.bat"}, names)
}

func TestList_MissingDir(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "none"), new(MockRepository), new(MockPublisher), newNoopLogger())
	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeScript(t, dir, "cleanup.sh", "echo ok")

	tests := []struct {
		name    string
		script  string
		wantErr error
	}{
		{name: "обход каталога", script: "../cleanup.sh", wantErr: models.ErrInvalidScriptPath},
		{name: "вложенный путь", script: "sub/cleanup.sh", wantErr: models.ErrInvalidScriptPath},
		{name: "обратный слеш", script: `..\cleanup.sh`, wantErr: models.ErrInvalidScriptPath},
		{name: "чужое расширение", script: "cleanup.exe", wantErr: models.ErrInvalidScriptPath},
		{name: "нет файла", script: "missing.sh", wantErr: models.ErrScriptNotFound},
		{name: "успех", script: "cleanup.sh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pub := new(MockRepository), new(MockPublisher)
			svc := New(dir, repo, pub, newNoopLogger())
			svc.now = func() time.Time { return fixedNow }
			repo.On("CreateScriptRun", ctx, tt.script, "root", fixedNow).Return(7, nil)
			pub.On("Publish", rabbitmq.KeyScriptRun, models.ScriptJob{RunID: 7, ScriptName: tt.script, RequestedBy: "root"}).Return(nil)

			run, err := svc.Enqueue(ctx, tt.script, "root")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "CreateScriptRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.ScriptQueued, run.Status)
			pub.AssertExpectations(t)
		})
	}
}

func TestEnqueue_PublishFailureMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeScript(t, dir, "cleanup.sh", "echo ok")
	repo, pub := new(MockRepository), new(MockPublisher)
	svc := New(dir, repo, pub, newNoopLogger())
	svc.now = func() time.Time { return fixedNow }

	repo.On("CreateScriptRun", ctx, "cleanup.sh", "root", fixedNow).Return(7, nil)
	pub.On("Publish", rabbitmq.KeyScriptRun, mock.Anything).Return(errors.New("channel closed"))
	repo.On("CompleteScriptRun", ctx, 7, mock.MatchedBy(func(r models.ScriptResult) bool {
		return !r.Success && r.ExitCode == -1
	})).Return(nil)

	_, err := svc.Enqueue(ctx, "cleanup.sh", "root")
	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestExecutor_Run(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeScript(t, dir, "ok.sh", "echo salut")
	writeScript(t, dir, "fail.sh", "echo bad >&2\nexit 3")
	writeScript(t, dir, "slow.sh", "exec sleep 5")

	runner := NewExecutor(dir, 300*time.Millisecond, new(MockRepository), newNoopLogger(), metrics.NewNoop())
	ctx := context.Background()

	ok := runner.Run(ctx, "ok.sh")
	assert.True(t, ok.Success)
	assert.Equal(t, 0, ok.ExitCode)
	assert.Equal(t, "salut", ok.Output)

	fail := runner.Run(ctx, "fail.sh")
	assert.False(t, fail.Success)
	assert.Equal(t, 3, fail.ExitCode)
	assert.Contains(t, fail.Output, "bad")

	slow := runner.Run(ctx, "slow.sh")
	assert.False(t, slow.Success)
	assert.Equal(t, -1, slow.ExitCode)
	assert.Contains(t, slow.Output, "killed")
	assert.Less(t, slow.Duration, 5*time.Second)

	invalid := runner.Run(ctx, "../ok.sh")
	assert.False(t, invalid.Success)
}

func TestExecutor_HandleJob(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	writeScript(t, dir, "ok.sh", "echo done")
	repo := new(MockRepository)
	executor := NewExecutor(dir, time.Second, repo, newNoopLogger(), metrics.NewNoop())
	ctx := context.Background()

	repo.On("CompleteScriptRun", ctx, 12, mock.MatchedBy(func(r models.ScriptResult) bool {
		return r.Success && r.Output == "done"
	})).Return(nil)

	body, err := json.Marshal(models.ScriptJob{RunID: 12, ScriptName: "ok.sh", RequestedBy: "root"})
	require.NoError(t, err)
	require.NoError(t, executor.HandleJob(ctx, body))
	repo.AssertExpectations(t)

	require.Error(t, executor.HandleJob(ctx, []byte("{")))
}
