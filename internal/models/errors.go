package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlan возвращается для неизвестного плана или плана free при покупке.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrUserNotFound возвращается, если пользователь не найден или является администратором.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoPushToken возвращается, если у пользователя нет push-токена.
	ErrNoPushToken = errors.New("user has no push token")
)

// GatewayError описывает ошибку push-шлюза для одного токена или целого пакета.
type GatewayError struct {
	Token  string
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("push gateway: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("push gateway: token %s: %s: %v", e.Token, e.Reason, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// AggregationError возвращается, если хранилище не смогло посчитать статистику.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
