// Package senduser реализует HTTP-обработчик отправки уведомления одному пользователю.
package senduser

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
	SendToUser(ctx context.Context, userID string, n models.Notification) (string, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить уведомление пользователю
// @Tags Notifications
// @Accept  json
// @Produce  json
// @Param request body models.SendUserRequest true "Получатель и текст"
// @Success 200 {object} response.Response "Уведомление отправлено"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "У пользователя нет push-токена или ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка push-шлюза"
// @Security BearerAuth
// @Router /notifications/send-to-user [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.senduser"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SendUserRequest
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

	id, err := h.service.SendToUser(r.Context(), req.UserID,
		models.Notification{Title: req.Title, Body: req.Message, Data: req.Data})
	if err != nil {
		log.Error("failed to send notification", slog.String("user_id", req.UserID), sl.Err(err))
		status, resp := response.FromError(err, "could not send notification")
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("notification sent", slog.String("user_id", req.UserID))
	render.JSON(w, r, response.OKWithMessage("notification sent", map[string]any{
		"message_id": id,
	}))
}
