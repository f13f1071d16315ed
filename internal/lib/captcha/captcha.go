// Package captcha проверяет токены reCAPTCHA через siteverify.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Client проверяет токены. Пустой секрет отключает проверку.
type Client struct {
	secret     string
	minScore   float64
	verifyURL  string
	httpClient *http.Client
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// New создаёт клиент.
func New(secret string, minScore float64, verifyURL string) *Client {
	return &Client{
		secret:     secret,
		minScore:   minScore,
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify возвращает models.ErrCaptchaFailed, если токен отклонён или оценка ниже порога.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) error {
	const op = "captcha.Verify"
	if c.secret == "" {
		return nil
	}
	if token == "" {
		return fmt.Errorf("%s: %w", op, models.ErrCaptchaFailed)
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !body.Success {
		return fmt.Errorf("%s: %w: %s", op, models.ErrCaptchaFailed, strings.Join(body.ErrorCodes, ","))
	}
	if body.Score != nil && *body.Score < c.minScore {
		return fmt.Errorf("%s: %w: score %.2f", op, models.ErrCaptchaFailed, *body.Score)
	}
	return nil
}
