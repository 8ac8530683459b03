// Package stats реализует HTTP-обработчик сводной статистики пользователей.
//
// Параметр period_start (YYYY-MM-DD) задаёт начало периода для подсчёта новых
// пользователей, по умолчанию используется первое число текущего месяца.
package stats

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/wallpaper-backend/internal/http/response"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/month"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

type Service interface {
	Overview(ctx context.Context, periodStart time.Time) (models.Stats, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Сводная статистика пользователей
// @Description Количество пользователей по действующим планам. Администраторы не учитываются.
// @Tags Users
// @Produce  json
// @Param period_start query string false "Начало периода, YYYY-MM-DD"
// @Success 200 {object} response.Response "Статистика"
// @Failure 400 {object} response.ErrorResponse "Некорректная дата"
// @Failure 500 {object} response.ErrorResponse "Ошибка подсчёта"
// @Security BearerAuth
// @Router /users/stats/overview [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.stats"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	periodStart, err := month.ParsePeriodStart(r.URL.Query().Get("period_start"), h.now())
	if err != nil {
		log.Error("invalid period_start", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("period_start must be in format YYYY-MM-DD"))
		return
	}

	st, err := h.service.Overview(r.Context(), periodStart)
	if err != nil {
		log.Error("failed to compute stats", sl.Err(err))
		code, resp := response.FromError(err, "could not compute statistics")
		w.WriteHeader(code)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(st))
}
