// Package models содержит доменные структуры: пользователя с его подпиской,
// уведомления, отчёты рассылки и статистику. Структуры используются
// в бизнес-логике, хранилище и HTTP-слое.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя приложения вместе с данными подписки.
// План хранится как есть и может быть устаревшим: действующий план
// вычисляется пакетом entitlement.
type User struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	Role          string     `json:"role"`
	Plan          string     `json:"plan"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	PurchaseToken *string    `json:"-"`
	PushToken     *string    `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPushToken сообщает, зарегистрирован ли у пользователя push-токен.
func (u *User) HasPushToken() bool {
	return u.PushToken != nil && *u.PushToken != ""
}

// Entitlement описывает сохранённое состояние подписки пользователя.
type Entitlement struct {
	UserUID       string     `json:"user_uid"`
	Plan          string     `json:"plan"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	PurchaseToken string     `json:"purchase_token,omitempty"`
}

// SubscriptionStatus возвращается клиенту при проверке статуса подписки.
type SubscriptionStatus struct {
	Plan       string     `json:"plan"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	IsPro      bool       `json:"is_pro"`
	IsExpired  bool       `json:"is_expired"`
}

// PurchaseRequest принимает данные покупки из JSON-запроса.
type PurchaseRequest struct {
	PurchaseToken string `json:"purchase_token" validate:"required"`
	Plan          string `json:"plan" validate:"required"`
	ProductID     string `json:"product_id,omitempty"`
}

// PushTokenRequest принимает новый push-токен устройства.
type PushTokenRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
}

// ExpiringUser описывает пользователя, чья платная подписка скоро закончится.
type ExpiringUser struct {
	UID        string    `json:"uid"`
	Plan       string    `json:"plan"`
	ExpiryDate time.Time `json:"expiry_date"`
}
