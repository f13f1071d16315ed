// Package contact содержит формы публичного сайта: обращения через форму обратной связи и подписку на рассылку.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
)

// PageSize размер страницы списка обращений.
const PageSize = 25

// DefaultRequestType тип обращения, если он не указан.
const DefaultRequestType = "General"

// Repository методы хранилища обращений и подписок.
type Repository interface {
	CreateContactRequest(ctx context.Context, c models.ContactRequest) (int, error)
	GetContactRequest(ctx context.Context, id int) (*models.ContactRequest, error)
	ListContactRequests(ctx context.Context, processed *bool, page, pageSize int) ([]models.ContactRequest, int, error)
	MarkContactProcessed(ctx context.Context, id int, processedBy, response string, now time.Time) error
	GetNewsletterByEmail(ctx context.Context, email string) (*models.Newsletter, error)
	UpsertNewsletter(ctx context.Context, n models.Newsletter) error
	UnsubscribeNewsletter(ctx context.Context, token string, now time.Time) error
}

// CaptchaVerifier проверяет токен капчи.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Publisher ставит письмо с ответом в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service обрабатывает обращения и подписки.
type Service struct {
	repo      Repository
	captcha   CaptchaVerifier
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service.
func New(repo Repository, captcha CaptchaVerifier, publisher Publisher, log *slog.Logger) *Service {
	return &Service{repo: repo, captcha: captcha, publisher: publisher, log: log, now: time.Now}
}

// Submit сохраняет обращение после проверки капчи.
func (s *Service) Submit(ctx context.Context, in models.ContactInput, remoteIP string) (*models.ContactRequest, error) {
	const op = "contact.Submit"
	if err := s.captcha.Verify(ctx, in.CaptchaToken, remoteIP); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	requestType := in.RequestType
	if requestType == "" {
		requestType = DefaultRequestType
	}
	c := models.ContactRequest{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Phone:       in.Phone,
		Company:     in.Company,
		CUI:         in.CUI,
		Message:     in.Message,
		RequestType: requestType,
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.repo.CreateContactRequest(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.ID = id
	s.log.Info("contact request received", slog.Int("id", id), slog.String("type", requestType))
	return &c, nil
}

// List возвращает страницу обращений. processed равный nil выбирает все.
func (s *Service) List(ctx context.Context, processed *bool, page int) (models.Page[models.ContactRequest], error) {
	const op = "contact.List"
	if page < 1 {
		page = 1
	}
	items, total, err := s.repo.ListContactRequests(ctx, processed, page, PageSize)
	if err != nil {
		return models.Page[models.ContactRequest]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewPage(items, total, page, PageSize), nil
}

// Process отмечает обращение обработанным и отправляет ответ на e-mail автора.
func (s *Service) Process(ctx context.Context, id int, processedBy, response string) error {
	const op = "contact.Process"
	response = strings.TrimSpace(response)
	if response == "" {
		return fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	c, err := s.repo.GetContactRequest(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.MarkContactProcessed(ctx, id, processedBy, response, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.ContactReplyMessage{Email: c.Email, Name: c.Name, Message: c.Message, Response: response}
	if err := s.publisher.Publish(rabbitmq.KeyContactReply, msg); err != nil {
		s.log.Error("failed to publish contact reply", slog.Int("id", id), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("contact request processed", slog.Int("id", id), slog.String("processed_by", processedBy))
	return nil
}

// Subscribe подписывает e-mail на рассылку или возобновляет отключённую подписку.
func (s *Service) Subscribe(ctx context.Context, in models.NewsletterInput) error {
	const op = "contact.Subscribe"
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}

	n := models.Newsletter{Email: email, Name: in.Name, SubscribedAt: s.now().UTC(), IsActive: true}
	existing, err := s.repo.GetNewsletterByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsActive {
			return fmt.Errorf("%s: %w", op, models.ErrAlreadySubscribed)
		}
		n.UnsubscribeToken = existing.UnsubscribeToken
	case errors.Is(err, models.ErrNotFound):
		n.UnsubscribeToken = uuid.NewString()
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.UpsertNewsletter(ctx, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Unsubscribe отключает подписку по токену.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	const op = "contact.Unsubscribe"
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	if err := s.repo.UnsubscribeNewsletter(ctx, token, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
