// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и перевода доменных ошибок в HTTP-статусы.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status - статус запроса ("OK" или "Error").
// Поле Message - короткое пояснение для клиента (опционально).
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse - структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// OKWithMessage возвращает успешный Response с сообщением и данными.
func OKWithMessage(msg string, data any) Response {
	return Response{
		Status:  StatusOK,
		Message: msg,
		Data:    data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
func ValidationError(err error) Response {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return Response{Status: StatusError, Error: "invalid request"}
	}

	errsMsgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// FromError переводит доменную ошибку в HTTP-статус и текст для клиента.
// Непредвиденные ошибки скрываются за fallback.
func FromError(err error, fallback string) (int, ErrorResponse) {
	var (
		gwErr  *models.GatewayError
		aggErr *models.AggregationError
	)
	switch {
	case errors.As(err, &aggErr):
		return http.StatusInternalServerError, Error("failed to aggregate statistics")
	case errors.Is(err, models.ErrInvalidPlan):
		return http.StatusBadRequest, Error("invalid plan")
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, Error("user not found")
	case errors.Is(err, models.ErrNoPushToken):
		return http.StatusUnprocessableEntity, Error("user has no push token")
	case errors.As(err, &gwErr):
		return http.StatusBadGateway, Error("push gateway error: " + gwErr.Reason)
	default:
		return http.StatusInternalServerError, Error(fallback)
	}
}
