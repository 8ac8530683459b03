// Package cancel реализует HTTP-обработчик отмены подписки.
// Состояние не меняется: доступ сохраняется до даты окончания, продления не будет.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/wallpaper-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/response"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Cancel(ctx context.Context, userUID string) (models.SubscriptionStatus, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить продление подписки
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response "Подписка не будет продлена"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Security BearerAuth
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	st, err := h.service.Cancel(r.Context(), userID)
	if err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		code, resp := response.FromError(err, "could not cancel subscription")
		w.WriteHeader(code)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithMessage("subscription will not renew", st))
}
