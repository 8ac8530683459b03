package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/wallpaper-backend/internal/config"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/health"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/notification/sendall"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/notification/sendtest"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/notification/senduser"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/subscription/purchase"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/users/pushtoken"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/handlers/users/stats"
	"github.com/magabrotheeeer/wallpaper-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
	subservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/subscription"
)

// NotificationService объединяет операции рассылки и регистрации push-токена.
type NotificationService interface {
	sendall.Service
	senduser.Service
	sendtest.Service
	pushtoken.Service
}

// SubscriptionService объединяет операции над подпиской пользователя.
type SubscriptionService interface {
	purchase.Service
	status.Service
	cancel.Service
}

// Deps зависимости, нужные маршрутам API.
type Deps struct {
	Tokens        middlewarectx.TokenParser
	DB            health.Pinger
	Notifications NotificationService
	Subscriptions SubscriptionService
	Stats         stats.Service
	RateLimit     config.RateLimit
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, deps.DB).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))

			// Панель администратора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(models.RoleAdmin, logger))
				r.Get("/users/stats/overview", stats.New(logger, deps.Stats).ServeHTTP)

				r.Route("/notifications", func(r chi.Router) {
					r.Use(middlewarectx.RateLimitMiddleware(logger, deps.RateLimit.RequestsPerSecond, deps.RateLimit.Burst))
					r.Post("/send-to-all", sendall.New(logger, deps.Notifications).ServeHTTP)
					r.Post("/send-to-user", senduser.New(logger, deps.Notifications).ServeHTTP)
					r.Post("/test", sendtest.New(logger, deps.Notifications).ServeHTTP)
				})
			})

			// Мобильное приложение
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(models.RoleUser, logger))
				r.Post("/subscriptions/verify", purchase.New(logger, deps.Subscriptions, subservice.SourceVerify).ServeHTTP)
				r.Post("/subscriptions/restore", purchase.New(logger, deps.Subscriptions, subservice.SourceRestore).ServeHTTP)
				r.Get("/subscriptions/status", status.New(logger, deps.Subscriptions).ServeHTTP)
				r.Post("/subscriptions/cancel", cancel.New(logger, deps.Subscriptions).ServeHTTP)
				r.Post("/users/fcm-token", pushtoken.New(logger, deps.Notifications).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
