// Package sender отправляет письма по сообщениям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/lib/smtp"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const (
	kindAlarm         = "alarm"
	kindPasswordReset = "password_reset"
	kindContactReply  = "contact_reply"

	alarmTimeLayout = "02.01.2006 15:04"
)

// Service отправляет письма через SMTP транспорт.
type Service struct {
	transport smtp.TransportInterface
	publicURL string
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// New создает новый экземпляр Service. publicURL используется для ссылок в письмах.
func New(transport smtp.TransportInterface, publicURL string, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		transport: transport,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
		metrics:   m,
	}
}

// SendAlarm отправляет напоминание по заметке.
func (s *Service) SendAlarm(body []byte) error {
	var msg models.DueAlarm
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal alarm message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Reamintire: " + msg.SantierName
	text := fmt.Sprintf("Bună ziua, %s!\n\nAți setat o reamintire pentru %s (%s) la șantierul %q:\n\n%s\n\nDetalii: %s\n",
		msg.FirstName,
		msg.Alarma.Format(alarmTimeLayout),
		humanize.Time(msg.Alarma),
		msg.SantierName,
		msg.Nota,
		fmt.Sprintf("%s/santiere/%d", s.publicURL, msg.SantierID),
	)

	return s.send(kindAlarm, msg.Email, subject, text)
}

// SendPasswordReset отправляет ссылку для сброса пароля.
func (s *Service) SendPasswordReset(body []byte) error {
	var msg models.PasswordResetMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal password reset message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Resetare parolă DateSantiere"
	text := fmt.Sprintf("Bună ziua, %s!\n\nPentru a vă reseta parola accesați linkul de mai jos. Linkul este valabil o oră.\n\n%s\n\nDacă nu ați solicitat resetarea, ignorați acest mesaj.\n",
		msg.FirstName, s.ResetLink(msg.Email, msg.Token))

	return s.send(kindPasswordReset, msg.Email, subject, text)
}

// SendContactReply отправляет ответ администратора на обращение.
func (s *Service) SendContactReply(body []byte) error {
	var msg models.ContactReplyMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal contact reply message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Răspuns la mesajul dumneavoastră"
	text := fmt.Sprintf("Bună ziua, %s!\n\n%s\n\n---\nMesajul dumneavoastră:\n%s\n",
		msg.Name, msg.Response, msg.Message)

	return s.send(kindContactReply, msg.Email, subject, text)
}

// ResetLink собирает ссылку на страницу сброса пароля.
func (s *Service) ResetLink(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return s.publicURL + "/reset-password?" + q.Encode()
}

func (s *Service) send(kind, to, subject, text string) error {
	if err := s.sendEmail([]string{to}, subject, text); err != nil {
		return err
	}
	s.metrics.EmailsSent.WithLabelValues(kind).Inc()
	return nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Transfer-Encoding: 8bit",
		"",
		strings.ReplaceAll(bodyText, "\n", "\r\n"),
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("size", humanize.Bytes(uint64(len(msg)))))
	return nil
}
