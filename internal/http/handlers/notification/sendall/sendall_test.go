package sendall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SendToAll(ctx context.Context, n models.Notification) (models.DispatchReport, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(models.DispatchReport), args.Error(1)
}

func (m *MockService) EnqueueBroadcast(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func TestSendAllHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := models.Notification{Title: "Hi", Body: "New wallpapers"}

	tests := []struct {
		name           string
		url            string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "частичный отказ возвращает 200 с отчётом",
			url:  "/notifications/send-to-all",
			body: `{"title":"Hi","message":"New wallpapers"}`,
			setupMock: func(m *MockService) {
				m.On("SendToAll", mock.Anything, n).Return(models.DispatchReport{
					SuccessCount: 597, FailureCount: 3, TotalTargeted: 600,
					Failures: []models.FailureDetail{{Token: "t", UserID: "u", Reason: "token unregistered"}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"message":"notified 597 of 600 users"`,
		},
		{
			name: "асинхронная рассылка",
			url:  "/notifications/send-to-all?async=true",
			body: `{"title":"Hi","message":"New wallpapers"}`,
			setupMock: func(m *MockService) {
				m.On("EnqueueBroadcast", mock.Anything, n).Return(nil)
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `"message":"notification queued"`,
		},
		{
			name:           "некорректный JSON",
			url:            "/notifications/send-to-all",
			body:           `{`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "пустой заголовок",
			url:            "/notifications/send-to-all",
			body:           `{"message":"x"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Title is a required field`,
		},
		{
			name: "ошибка получения списка",
			url:  "/notifications/send-to-all",
			body: `{"title":"Hi","message":"New wallpapers"}`,
			setupMock: func(m *MockService) {
				m.On("SendToAll", mock.Anything, n).Return(models.DispatchReport{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not send notification`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
