package contact

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Submit(ctx context.Context, in models.ContactInput, remoteIP string) (*models.ContactRequest, error) {
	args := m.Called(ctx, in, remoteIP)
	v, _ := args.Get(0).(*models.ContactRequest)
	return v, args.Error(1)
}

func (m *ServiceMock) List(ctx context.Context, processed *bool, page int) (models.Page[models.ContactRequest], error) {
	args := m.Called(ctx, processed, page)
	return args.Get(0).(models.Page[models.ContactRequest]), args.Error(1)
}

func (m *ServiceMock) Process(ctx context.Context, id int, processedBy, response string) error {
	return m.Called(ctx, id, processedBy, response).Error(0)
}

func (m *ServiceMock) Subscribe(ctx context.Context, in models.NewsletterInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *ServiceMock) Unsubscribe(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/contact", h.Submit)
	r.Post("/newsletter/subscribe", h.Subscribe)
	r.Post("/newsletter/unsubscribe", h.Unsubscribe)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middlewarectx.WithIdentity(req.Context(), middlewarectx.Identity{UserID: "a1", Email: "admin@datesantiere.ro", AdminType: "Admin"})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Get("/admin/contacts", h.List)
		r.Post("/admin/contacts/{id}/process", h.Process)
	})
	return r
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "172.16.0.4:9000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Submit(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*ServiceMock)
		wantStatusCode int
	}{
		{
			name: "stored",
			body: `{"name":"Ana","email":"ana@example.com","message":"Buna","captcha_token":"tok"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("Submit", mock.Anything, mock.AnythingOfType("models.ContactInput"), "172.16.0.4").
					Return(&models.ContactRequest{ID: 9}, nil).Once()
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "unknown request type",
			body:           `{"name":"Ana","email":"ana@example.com","message":"Buna","request_type":"Spam"}`,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "captcha failed",
			body: `{"name":"Ana","email":"ana@example.com","message":"Buna"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("Submit", mock.Anything, mock.AnythingOfType("models.ContactInput"), "172.16.0.4").
					Return(nil, models.ErrCaptchaFailed).Once()
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			rec := serve(newRouter(New(newNoopLogger(), svc)), http.MethodPost, "/contact", tt.body)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Newsletter(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Subscribe", mock.Anything, models.NewsletterInput{Email: "ion@example.com"}).Return(models.ErrAlreadySubscribed).Once()
	svc.On("Subscribe", mock.Anything, models.NewsletterInput{}).Return(models.ErrBadRequest).Once()
	svc.On("Unsubscribe", mock.Anything, "tok-1").Return(nil).Twice()
	router := newRouter(New(newNoopLogger(), svc))

	assert.Equal(t, http.StatusConflict, serve(router, http.MethodPost, "/newsletter/subscribe", `{"email":"ion@example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/newsletter/subscribe", `{"email":""}`).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/newsletter/unsubscribe", `{"token":"tok-1"}`).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/newsletter/unsubscribe?token=tok-1", "").Code)
	svc.AssertExpectations(t)
}

func TestHandler_Process(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Process", mock.Anything, 4, "admin@datesantiere.ro", "Va contactam").Return(nil).Once()
	processed := false
	svc.On("List", mock.Anything, &processed, 1).Return(models.NewPage([]models.ContactRequest{}, 0, 1, 25), nil).Once()
	router := newRouter(New(newNoopLogger(), svc))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/admin/contacts/4/process", `{"response":"Va contactam"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, serve(router, http.MethodPost, "/admin/contacts/4/process", `{}`).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/admin/contacts?processed=false", "").Code)
	svc.AssertExpectations(t)
}
