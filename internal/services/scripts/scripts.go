// Package scripts управляет служебными скриптами: список файлов в каталоге, постановка запуска в очередь
// и выполнение задания с ограничением по времени.
package scripts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
)

// RunsLimit количество последних запусков в списке.
const RunsLimit = 50

var allowedExt = map[string]bool{".ps1": true, ".bat": true, ".sh": true}

// Repository журнал запусков скриптов.
type Repository interface {
	CreateScriptRun(ctx context.Context, scriptName, requestedBy string, now time.Time) (int, error)
	CompleteScriptRun(ctx context.Context, id int, result models.ScriptResult) error
	ListScriptRuns(ctx context.Context, limit int) ([]models.ScriptRun, error)
}

// Publisher ставит задание в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service список скриптов и постановка запуска в очередь.
type Service struct {
	dir       string
	repo      Repository
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service для каталога dir.
func New(dir string, repo Repository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{dir: dir, repo: repo, publisher: publisher, log: log, now: time.Now}
}

// resolve проверяет имя файла и возвращает путь внутри dir.
func resolve(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", models.ErrInvalidScriptPath
	}
	if !allowedExt[strings.ToLower(filepath.Ext(name))] {
		return "", models.ErrInvalidScriptPath
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absDir, name)
	if rel, err := filepath.Rel(absDir, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", models.ErrInvalidScriptPath
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", models.ErrScriptNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", models.ErrScriptNotFound
	}
	return full, nil
}

// List возвращает скрипты каталога, отсортированные по имени. Отсутствующий каталог даёт пустой список.
func (s *Service) List() ([]models.ScriptInfo, error) {
	const op = "scripts.List"
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.ScriptInfo{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := []models.ScriptInfo{}
	for _, e := range entries {
		if e.IsDir() || !allowedExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.log.Warn("failed to stat script", slog.String("name", e.Name()), sl.Err(err))
			continue
		}
		result = append(result, models.ScriptInfo{Name: e.Name(), Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Enqueue регистрирует запуск и публикует задание для script-runner.
func (s *Service) Enqueue(ctx context.Context, name, requestedBy string) (*models.ScriptRun, error) {
	const op = "scripts.Enqueue"
	if _, err := resolve(s.dir, name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	id, err := s.repo.CreateScriptRun(ctx, name, requestedBy, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	job := models.ScriptJob{RunID: id, ScriptName: name, RequestedBy: requestedBy}
	if err := s.publisher.Publish(rabbitmq.KeyScriptRun, job); err != nil {
		s.log.Error("failed to publish script job", slog.Int("run_id", id), sl.Err(err))
		if cerr := s.repo.CompleteScriptRun(ctx, id, models.ScriptResult{
			Output:     "failed to enqueue: " + err.Error(),
			ExitCode:   -1,
			ExecutedAt: now,
		}); cerr != nil {
			s.log.Error("failed to mark script run failed", slog.Int("run_id", id), sl.Err(cerr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("script queued", slog.Int("run_id", id), slog.String("script", name), slog.String("requested_by", requestedBy))
	return &models.ScriptRun{ID: id, ScriptName: name, RequestedBy: requestedBy, Status: models.ScriptQueued, CreatedAt: now}, nil
}

// Runs возвращает последние запуски.
func (s *Service) Runs(ctx context.Context) ([]models.ScriptRun, error) {
	runs, err := s.repo.ListScriptRuns(ctx, RunsLimit)
	if err != nil {
		return nil, fmt.Errorf("scripts.Runs: %w", err)
	}
	return runs, nil
}
