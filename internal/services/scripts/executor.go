package scripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// maxOutput ограничивает сохраняемый вывод скрипта.
const maxOutput = 64 * 1024

// Executor выполняет скрипты из каталога с таймаутом.
type Executor struct {
	dir     string
	timeout time.Duration
	repo    Repository
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewExecutor создает Executor.
func NewExecutor(dir string, timeout time.Duration, repo Repository, log *slog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{dir: dir, timeout: timeout, repo: repo, log: log, metrics: m, now: time.Now}
}

// command подбирает интерпретатор по расширению файла.
func command(ctx context.Context, path string) *exec.Cmd {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ps1":
		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File", path)
	case ".bat":
		return exec.CommandContext(ctx, "cmd", "/c", path)
	default:
		return exec.CommandContext(ctx, "bash", path)
	}
}

// Run выполняет скрипт и возвращает результат. Ошибка запуска отражается в результате, а не в error.
func (e *Executor) Run(ctx context.Context, name string) models.ScriptResult {
	started := e.now()
	result := models.ScriptResult{ExecutedAt: started.UTC(), ExitCode: -1}

	path, err := resolve(e.dir, name)
	if err != nil {
		result.Output = err.Error()
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	cmd := command(runCtx, path)
	cmd.Dir = filepath.Dir(path)
	// Дочерние процессы могут удерживать вывод после остановки интерпретатора.
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	result.Duration = e.now().Sub(started)

	output := string(out)
	if len(output) > maxOutput {
		output = output[:maxOutput]
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		output += fmt.Sprintf("\nscript killed after %s", e.timeout)
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		output += "\n" + err.Error()
	}
	result.Output = strings.TrimSpace(output)
	return result
}

// HandleJob разбирает задание из очереди, выполняет скрипт и сохраняет результат.
func (e *Executor) HandleJob(ctx context.Context, body []byte) error {
	const op = "scripts.HandleJob"
	var job models.ScriptJob
	if err := json.Unmarshal(body, &job); err != nil {
		e.log.Error("failed to unmarshal script job", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log := e.log.With(slog.Int("run_id", job.RunID), slog.String("script", job.ScriptName))
	log.Info("running script", slog.String("requested_by", job.RequestedBy))
	result := e.Run(ctx, job.ScriptName)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	e.metrics.ScriptRuns.WithLabelValues(outcome).Inc()
	log.Info("script finished",
		slog.Bool("success", result.Success),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", result.Duration),
		slog.String("output_size", humanize.Bytes(uint64(len(result.Output)))))

	if err := e.repo.CompleteScriptRun(ctx, job.RunID, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
