package models

import "time"

// ScriptJob сообщение очереди на запуск скрипта.
type ScriptJob struct {
	RunID       int    `json:"run_id"`
	ScriptName  string `json:"script_name"`
	RequestedBy string `json:"requested_by"`
}

// ScriptResult результат выполнения скрипта.
type ScriptResult struct {
	Success    bool          `json:"success"`
	Output     string        `json:"output"`
	ExitCode   int           `json:"exit_code"`
	ExecutedAt time.Time     `json:"executed_at"`
	Duration   time.Duration `json:"duration"`
}

// ScriptRun запись о запуске скрипта.
type ScriptRun struct {
	ID          int           `json:"id"`
	ScriptName  string        `json:"script_name"`
	RequestedBy string        `json:"requested_by"`
	Status      string        `json:"status"` // queued, done, failed
	Result      *ScriptResult `json:"result,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Статусы запуска скрипта.
const (
	ScriptQueued = "queued"
	ScriptDone   = "done"
	ScriptFailed = "failed"
)

// ScriptInfo файл скрипта, доступный для запуска.
type ScriptInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RunScriptRequest запрос на запуск скрипта по имени файла.
type RunScriptRequest struct {
	Name string `json:"name" validate:"required"`
}
