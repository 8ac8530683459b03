// Package sendall реализует HTTP-обработчик рассылки уведомления всем пользователям.
//
// Синхронный режим возвращает отчёт о рассылке даже при частичных отказах.
// С параметром ?async=true рассылка ставится в очередь и обработчик отвечает 202.
package sendall

import (
	"context"
	"encoding/json"
	"fmt"
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

// Service описывает рассылку всем пользователям.
type Service interface {
	SendToAll(ctx context.Context, n models.Notification) (models.DispatchReport, error)
	EnqueueBroadcast(ctx context.Context, n models.Notification) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить уведомление всем пользователям
// @Description Рассылает push всем пользователям с токеном. Частичные отказы не считаются ошибкой запроса.
// @Tags Notifications
// @Accept  json
// @Produce  json
// @Param request body models.SendAllRequest true "Текст уведомления"
// @Param async query bool false "Поставить рассылку в очередь"
// @Success 200 {object} response.Response "Отчёт о рассылке"
// @Success 202 {object} response.Response "Рассылка поставлена в очередь"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /notifications/send-to-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.sendall"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SendAllRequest
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
	n := models.Notification{Title: req.Title, Body: req.Message, Data: req.Data}

	if r.URL.Query().Get("async") == "true" {
		if err := h.service.EnqueueBroadcast(r.Context(), n); err != nil {
			log.Error("failed to enqueue broadcast", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not enqueue notification"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		render.JSON(w, r, response.OKWithMessage("notification queued", nil))
		return
	}

	report, err := h.service.SendToAll(r.Context(), n)
	if err != nil {
		log.Error("failed to send notification", sl.Err(err))
		status, resp := response.FromError(err, "could not send notification")
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("broadcast finished",
		slog.Int("notified", report.SuccessCount),
		slog.Int("targeted", report.TotalTargeted))
	render.JSON(w, r, response.OKWithMessage(
		fmt.Sprintf("notified %d of %d users", report.SuccessCount, report.TotalTargeted),
		report,
	))
}
