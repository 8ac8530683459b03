package purchase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/wallpaper-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ApplyPurchase(ctx context.Context, userUID, rawPlan, purchaseToken, source string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID, rawPlan, purchaseToken, source)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestPurchaseHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	expiry := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		userID         string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "успешная покупка",
			userID: "u1",
			body:   `{"purchase_token":"gp-1","plan":"monthly"}`,
			setupMock: func(m *MockService) {
				m.On("ApplyPurchase", mock.Anything, "u1", "monthly", "gp-1", "restore").
					Return(&models.Entitlement{UserUID: "u1", Plan: "monthly", ExpiryDate: &expiry}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"plan":"monthly"`,
		},
		{
			name:   "неизвестный план",
			userID: "u1",
			body:   `{"purchase_token":"gp-1","plan":"gold"}`,
			setupMock: func(m *MockService) {
				m.On("ApplyPurchase", mock.Anything, "u1", "gold", "gp-1", "restore").
					Return(nil, fmt.Errorf("op: %w", models.ErrInvalidPlan))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid plan`,
		},
		{
			name:   "пользователь не найден",
			userID: "admin",
			body:   `{"purchase_token":"gp-1","plan":"weekly"}`,
			setupMock: func(m *MockService) {
				m.On("ApplyPurchase", mock.Anything, "admin", "weekly", "gp-1", "restore").
					Return(nil, fmt.Errorf("op: %w", models.ErrUserNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `user not found`,
		},
		{
			name:           "без токена покупки",
			userID:         "u1",
			body:           `{"plan":"weekly"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PurchaseToken is a required field`,
		},
		{
			name:           "без пользователя в контексте",
			body:           `{"purchase_token":"gp-1","plan":"weekly"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/restore", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			rr := httptest.NewRecorder()
			New(logger, svc, "restore").ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
