// Package purchase реализует HTTP-обработчики подтверждения и восстановления покупки.
//
// Оба маршрута применяют покупку одинаково и различаются только источником в логах и метриках.
package purchase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/wallpaper-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/response"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	source   string
	validate *validator.Validate
}

// Service применяет покупку к подписке пользователя.
type Service interface {
	ApplyPurchase(ctx context.Context, userUID, rawPlan, purchaseToken, source string) (*models.Entitlement, error)
}

// New создаёт обработчик для точки входа source ("verify" или "restore").
func New(log *slog.Logger, service Service, source string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		source:   source,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтвердить или восстановить покупку
// @Description Записывает план и дату окончания. Токен покупки у платёжного провайдера не проверяется.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.PurchaseRequest true "Данные покупки"
// @Success 200 {object} response.Response "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Неизвестный план"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security BearerAuth
// @Router /subscriptions/verify [post]
// @Router /subscriptions/restore [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.purchase"
	log := h.log.With(
		slog.String("op", op),
		slog.String("source", h.source),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.PurchaseRequest
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

	ent, err := h.service.ApplyPurchase(r.Context(), userID, req.Plan, req.PurchaseToken, h.source)
	if err != nil {
		log.Error("failed to apply purchase", slog.String("plan", req.Plan), sl.Err(err))
		status, resp := response.FromError(err, "could not apply purchase")
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("purchase applied", slog.String("user_id", userID), slog.String("plan", ent.Plan))
	render.JSON(w, r, response.OKWithMessage("subscription activated", models.SubscriptionStatus{
		Plan:       ent.Plan,
		ExpiryDate: ent.ExpiryDate,
		IsPro:      true,
	}))
}
