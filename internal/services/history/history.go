// Package history ведёт неизменяемый журнал создания, изменения и удаления карточек șantier.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Repository хранилище журнала.
type Repository interface {
	InsertHistory(ctx context.Context, h models.SantierHistory) (int, error)
	ListHistory(ctx context.Context, santierID int) ([]models.SantierHistory, error)
}

// Actor пользователь, выполнивший изменение.
type Actor struct {
	UserID    string
	IPAddress string
}

// Recorder записывает историю. Ошибки записи логируются и не прерывают основное изменение.
type Recorder struct {
	repo    Repository
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New создает Recorder.
func New(repo Repository, log *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		repo:    repo,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

type createdSnapshot struct {
	Name            string   `json:"Name"`
	Judet           string   `json:"Judet"`
	Localitate      string   `json:"Localitate"`
	Categorie       string   `json:"Categorie"`
	ValoareEstimata *float64 `json:"ValoareEstimata"`
	Status          *string  `json:"Status"`
}

type deletedSnapshot struct {
	Name      string    `json:"Name"`
	DeletedAt time.Time `json:"DeletedAt"`
}

// RecordCreate записывает начальное состояние новой карточки.
func (r *Recorder) RecordCreate(ctx context.Context, s *models.Santier, actor Actor) {
	if s == nil {
		return
	}
	r.write(ctx, s.ID, actor, models.ActionCreated, createdSnapshot{
		Name:            s.Name,
		Judet:           s.Judet,
		Localitate:      s.Localitate,
		Categorie:       s.Categorie,
		ValoareEstimata: s.ValoareEstimata,
		Status:          s.Status,
	})
}

// RecordUpdate записывает изменившиеся поля. Если изменений нет, запись не создаётся.
func (r *Recorder) RecordUpdate(ctx context.Context, before, after *models.Santier, actor Actor) {
	if before == nil || after == nil {
		return
	}
	changes := diff(before, after)
	if len(changes) == 0 {
		return
	}
	r.write(ctx, after.ID, actor, models.ActionUpdated, changes)
}

// RecordDelete записывает мягкое удаление карточки.
func (r *Recorder) RecordDelete(ctx context.Context, s *models.Santier, actor Actor) {
	if s == nil {
		return
	}
	r.write(ctx, s.ID, actor, models.ActionDeleted, deletedSnapshot{
		Name:      s.Name,
		DeletedAt: r.now().UTC(),
	})
}

func (r *Recorder) write(ctx context.Context, santierID int, actor Actor, action string, payload any) {
	log := r.log.With(slog.Int("santier_id", santierID), slog.String("action", action))

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal history changes", sl.Err(err))
		r.metrics.HistoryFailures.WithLabelValues(action).Inc()
		return
	}

	_, err = r.repo.InsertHistory(ctx, models.SantierHistory{
		SantierID: santierID,
		UserID:    actor.UserID,
		Action:    action,
		Changes:   body,
		CreatedAt: r.now(),
		IPAddress: actor.IPAddress,
	})
	if err != nil {
		log.Error("failed to write history entry", sl.Err(err))
		r.metrics.HistoryFailures.WithLabelValues(action).Inc()
		return
	}
	log.Debug("history entry written")
}

// List возвращает журнал карточки, новые записи первыми.
func (r *Recorder) List(ctx context.Context, santierID int) ([]models.SantierHistory, error) {
	const op = "history.List"
	entries, err := r.repo.ListHistory(ctx, santierID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}
