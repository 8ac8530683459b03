// Package push отправляет уведомления через Firebase Cloud Messaging.
package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/magabrotheeeer/wallpaper-backend/internal/config"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// MaxMulticastTokens ограничение FCM на число токенов в одном multicast-вызове.
const MaxMulticastTokens = 500

// Причины отказа, которые возвращает шлюз.
const (
	ReasonUnregistered     = "token unregistered"
	ReasonInvalidArgument  = "invalid argument"
	ReasonQuotaExceeded    = "quota exceeded"
	ReasonUnavailable      = "service unavailable"
	ReasonInternal         = "internal error"
	ReasonSenderIDMismatch = "sender id mismatch"
	ReasonAuth             = "third party auth error"
	ReasonBatchFailed      = "batch send failed"
	ReasonUnknown          = "unknown error"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCM push-шлюз поверх клиента Firebase Messaging.
type FCM struct {
	client    messagingClient
	channelID string
}

// NewFCM инициализирует приложение Firebase и клиента сообщений.
// Без файла учётных данных используются Application Default Credentials.
func NewFCM(ctx context.Context, cfg config.Push) (*FCM, error) {
	const op = "push.NewFCM"

	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return newFCM(client, cfg.AndroidChannelID), nil
}

func newFCM(client messagingClient, channelID string) *FCM {
	return &FCM{client: client, channelID: channelID}
}

// SendMulticast отправляет уведомление на до MaxMulticastTokens токенов одним вызовом.
// Результаты возвращаются в порядке tokens. Ошибка означает, что не удался весь пакет.
func (f *FCM) SendMulticast(ctx context.Context, tokens []string, n models.Notification) ([]models.SendResult, error) {
	const op = "push.SendMulticast"
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("%s: %w", op, &models.GatewayError{
			Reason: ReasonInvalidArgument,
			Err:    fmt.Errorf("%d tokens exceed multicast limit %d", len(tokens), MaxMulticastTokens),
		})
	}

	resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Data:         n.Data,
		Notification: f.notification(n),
		Android:      f.android(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &models.GatewayError{Reason: Reason(err), Err: err})
	}
	if resp == nil || len(resp.Responses) != len(tokens) {
		return nil, fmt.Errorf("%s: %w", op, &models.GatewayError{
			Reason: ReasonBatchFailed,
			Err:    fmt.Errorf("gateway returned mismatched responses for %d tokens", len(tokens)),
		})
	}

	results := make([]models.SendResult, len(tokens))
	for i, r := range resp.Responses {
		results[i].Token = tokens[i]
		if r == nil {
			results[i].Err = &models.GatewayError{Token: tokens[i], Reason: ReasonUnknown, Err: fmt.Errorf("empty response")}
			continue
		}
		if r.Success {
			results[i].MessageID = r.MessageID
			continue
		}
		results[i].Err = &models.GatewayError{Token: tokens[i], Reason: Reason(r.Error), Err: r.Error}
	}
	return results, nil
}

// SendSingle отправляет уведомление на один токен и возвращает идентификатор сообщения.
func (f *FCM) SendSingle(ctx context.Context, token string, n models.Notification) (string, error) {
	const op = "push.SendSingle"
	id, err := f.client.Send(ctx, &messaging.Message{
		Token:        token,
		Data:         n.Data,
		Notification: f.notification(n),
		Android:      f.android(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, &models.GatewayError{Token: token, Reason: Reason(err), Err: err})
	}
	return id, nil
}

func (f *FCM) notification(n models.Notification) *messaging.Notification {
	return &messaging.Notification{Title: n.Title, Body: n.Body}
}

func (f *FCM) android() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			ChannelID: f.channelID,
			Sound:     "default",
		},
	}
}

// Reason переводит ошибку FCM в короткое описание для отчёта о рассылке.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case messaging.IsUnregistered(err):
		return ReasonUnregistered
	case errorutils.IsInvalidArgument(err):
		return ReasonInvalidArgument
	case messaging.IsQuotaExceeded(err):
		return ReasonQuotaExceeded
	case errorutils.IsUnavailable(err):
		return ReasonUnavailable
	case errorutils.IsInternal(err):
		return ReasonInternal
	case messaging.IsSenderIDMismatch(err):
		return ReasonSenderIDMismatch
	case messaging.IsThirdPartyAuthError(err):
		return ReasonAuth
	default:
		return err.Error()
	}
}
