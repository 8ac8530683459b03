package notification

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) FindUsersWithToken(ctx context.Context) ([]models.Recipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recipient), args.Error(1)
}

func (m *RepoMock) SetPushToken(ctx context.Context, userUID, token string) error {
	return m.Called(ctx, userUID, token).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

// fakeGateway отвечает отказом для токенов из failTokens и отказом всего пакета
// для пакетов, содержащих токен из failBatch.
type fakeGateway struct {
	mu         sync.Mutex
	calls      [][]string
	single     []string
	failTokens map[string]string
	failBatch  map[string]bool
	block      chan struct{}
	started    chan struct{}
}

func (g *fakeGateway) SendMulticast(_ context.Context, tokens []string, _ models.Notification) ([]models.SendResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, append([]string(nil), tokens...))
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}

	for _, t := range tokens {
		if g.failBatch[t] {
			return nil, &models.GatewayError{Reason: "unavailable"}
		}
	}
	results := make([]models.SendResult, len(tokens))
	for i, t := range tokens {
		results[i].Token = t
		if why, ok := g.failTokens[t]; ok {
			results[i].Err = &models.GatewayError{Token: t, Reason: why}
			continue
		}
		results[i].MessageID = "msg-" + t
	}
	return results, nil
}

func (g *fakeGateway) SendSingle(_ context.Context, token string, _ models.Notification) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.single = append(g.single, token)
	if why, ok := g.failTokens[token]; ok {
		return "", &models.GatewayError{Token: token, Reason: why}
	}
	return "msg-" + token, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
