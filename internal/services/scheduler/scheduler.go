// Package scheduler периодически ищет заметки с наступившим напоминанием и ставит письма в очередь.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
)

// batchSize количество напоминаний, обрабатываемых за один проход.
const batchSize = 100

// AlarmRepository методы хранилища напоминаний.
type AlarmRepository interface {
	ListDueAlarms(ctx context.Context, now time.Time, limit int) ([]models.DueAlarm, error)
	MarkNoteNotified(ctx context.Context, noteID int, now time.Time) (bool, error)
}

// Publisher публикует уведомления.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service планировщик напоминаний.
type Service struct {
	repo      AlarmRepository
	publisher Publisher
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service.
func New(repo AlarmRepository, publisher Publisher, interval time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, interval: interval, log: log, now: time.Now}
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.runDueAlarms(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("alarm scheduler stopped")
			return
		case <-ticker.C:
			s.runDueAlarms(ctx)
		}
	}
}

// runDueAlarms публикует наступившие напоминания и возвращает количество отправленных.
// Напоминание отмечается только после успешной публикации, поэтому сбой брокера приводит к повтору на следующем проходе.
func (s *Service) runDueAlarms(ctx context.Context) int {
	now := s.now().UTC()
	alarms, err := s.repo.ListDueAlarms(ctx, now, batchSize)
	if err != nil {
		s.log.Error("failed to find due alarms", sl.Err(err))
		return 0
	}
	if len(alarms) == 0 {
		s.log.Debug("no due alarms")
		return 0
	}
	s.log.Info("found due alarms", slog.Int("count", len(alarms)))

	sent := 0
	for _, alarm := range alarms {
		if err := s.publisher.Publish(rabbitmq.KeyAlarm, alarm); err != nil {
			s.log.Error("failed to publish alarm", slog.Int("note_id", alarm.NoteID), sl.Err(err))
			continue
		}
		if _, err := s.repo.MarkNoteNotified(ctx, alarm.NoteID, now); err != nil {
			s.log.Error("failed to mark note notified", slog.Int("note_id", alarm.NoteID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent
}
