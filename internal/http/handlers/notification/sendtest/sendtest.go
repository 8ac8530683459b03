// Package sendtest реализует HTTP-обработчик тестовой отправки на произвольный push-токен.
package sendtest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wallpaper-backend/internal/http/response"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	SendTest(ctx context.Context, token string, n models.Notification) (string, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Тестовая отправка на push-токен
// @Tags Notifications
// @Accept  json
// @Produce  json
// @Param request body models.SendTestRequest true "Токен и текст"
// @Success 200 {object} response.Response "Уведомление отправлено"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка push-шлюза"
// @Security BearerAuth
// @Router /notifications/test [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.sendtest"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err))
		return
	}

	id, err := h.service.SendTest(r.Context(), req.Token,
		models.Notification{Title: req.Title, Body: req.Message, Data: req.Data})
	if err != nil {
		log.Error("failed to send test notification", sl.Token(req.Token), sl.Err(err))
		status, resp := response.FromError(err, "could not send notification")
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithMessage("test notification sent", map[string]any{
		"message_id": id,
	}))
}
