package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/entitlement"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) UpdateEntitlement(ctx context.Context, userUID, plan string, expiry *time.Time, purchaseToken *string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID, plan, expiry, purchaseToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

func (m *RepoMock) DowngradeExpired(ctx context.Context, userUID string, now time.Time) (bool, error) {
	args := m.Called(ctx, userUID, now)
	return args.Bool(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) InvalidatePrefix(ctx context.Context, prefix string) error {
	return m.Called(ctx, prefix).Error(0)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, cache Cache) *Service {
	s := NewService(repo, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return fixedNow }
	return s
}

func ptr[T any](v T) *T { return &v }

func TestStatus(t *testing.T) {
	tests := []struct {
		name         string
		user         *models.User
		wantPlan     string
		wantPro      bool
		wantExpired  bool
		wantDowngrad bool
	}{
		{
			name:     "active monthly",
			user:     &models.User{UID: "u1", Role: models.RoleUser, Plan: "monthly", ExpiryDate: ptr(fixedNow.Add(time.Hour))},
			wantPlan: "monthly",
			wantPro:  true,
		},
		{
			name:         "expired weekly",
			user:         &models.User{UID: "u1", Role: models.RoleUser, Plan: "weekly", ExpiryDate: ptr(fixedNow.Add(-time.Millisecond))},
			wantPlan:     "free",
			wantExpired:  true,
			wantDowngrad: true,
		},
		{
			name:     "lifetime with past expiry",
			user:     &models.User{UID: "u1", Role: models.RoleUser, Plan: "lifetime", ExpiryDate: ptr(fixedNow.AddDate(-1, 0, 0))},
			wantPlan: "lifetime",
			wantPro:  true,
		},
		{
			name:     "free",
			user:     &models.User{UID: "u1", Role: models.RoleUser, Plan: "free"},
			wantPlan: "free",
		},
		{
			name:     "paid without expiry",
			user:     &models.User{UID: "u1", Role: models.RoleUser, Plan: "yearly"},
			wantPlan: "yearly",
			wantPro:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			repo.On("GetUser", mock.Anything, "u1").Return(tt.user, nil)
			if tt.wantDowngrad {
				repo.On("DowngradeExpired", mock.Anything, "u1", fixedNow).Return(true, nil)
				cache.On("InvalidatePrefix", mock.Anything, models.StatsCachePrefix).Return(nil)
			}

			got, err := newTestService(repo, cache).Status(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, got.Plan)
			assert.Equal(t, tt.wantPro, got.IsPro)
			assert.Equal(t, tt.wantExpired, got.IsExpired)
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
			if !tt.wantDowngrad {
				repo.AssertNotCalled(t, "DowngradeExpired", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestStatus_WriteBackFailureStillReturnsFree(t *testing.T) {
	repo := new(RepoMock)
	user := &models.User{UID: "u1", Role: models.RoleUser, Plan: "monthly", ExpiryDate: ptr(fixedNow.Add(-time.Hour))}
	repo.On("GetUser", mock.Anything, "u1").Return(user, nil)
	repo.On("DowngradeExpired", mock.Anything, "u1", fixedNow).Return(false, errors.New("db down"))

	got, err := newTestService(repo, nil).Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", got.Plan)
	assert.True(t, got.IsExpired)
}

func TestStatus_AdminAndMissing(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUser", mock.Anything, "admin").Return(&models.User{UID: "admin", Role: models.RoleAdmin, Plan: "free"}, nil)
	repo.On("GetUser", mock.Anything, "ghost").Return(nil, models.ErrUserNotFound)
	s := newTestService(repo, nil)

	_, err := s.Status(context.Background(), "admin")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = s.Status(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestApplyPurchase(t *testing.T) {
	tests := []struct {
		name       string
		plan       string
		wantPlan   string
		wantExpiry time.Time
	}{
		{"weekly", "weekly", "weekly", fixedNow.Add(7 * 24 * time.Hour)},
		{"monthly", "monthly", "monthly", fixedNow.Add(30 * 24 * time.Hour)},
		{"annual alias", "annual", "yearly", fixedNow.Add(365 * 24 * time.Hour)},
		{"lifetime", "lifetime", "lifetime", entitlement.LifetimeExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			repo.On("UpdateEntitlement", mock.Anything, "u1", tt.wantPlan,
				mock.MatchedBy(func(e *time.Time) bool { return e != nil && e.Equal(tt.wantExpiry) }),
				mock.MatchedBy(func(tok *string) bool { return tok != nil && *tok == "gp-token" }),
			).Return(&models.Entitlement{UserUID: "u1", Plan: tt.wantPlan, ExpiryDate: &tt.wantExpiry, PurchaseToken: "gp-token"}, nil)
			cache.On("InvalidatePrefix", mock.Anything, models.StatsCachePrefix).Return(nil)

			got, err := newTestService(repo, cache).Verify(context.Background(), "u1",
				models.PurchaseRequest{Plan: tt.plan, PurchaseToken: "gp-token"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, got.Plan)
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestApplyPurchase_InvalidPlanDoesNotWrite(t *testing.T) {
	for _, plan := range []string{"free", "platinum", ""} {
		t.Run(plan, func(t *testing.T) {
			repo := new(RepoMock)
			_, err := newTestService(repo, nil).Restore(context.Background(), "u1",
				models.PurchaseRequest{Plan: plan, PurchaseToken: "tok"})
			assert.ErrorIs(t, err, models.ErrInvalidPlan)
			repo.AssertNotCalled(t, "UpdateEntitlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestApplyPurchase_UserNotFound(t *testing.T) {
	repo := new(RepoMock)
	repo.On("UpdateEntitlement", mock.Anything, "admin", "monthly", mock.Anything, mock.Anything).
		Return(nil, models.ErrUserNotFound)

	_, err := newTestService(repo, nil).Verify(context.Background(), "admin",
		models.PurchaseRequest{Plan: "monthly", PurchaseToken: "tok"})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

// memRepo хранит пользователей в памяти и повторяет условия SQL-запросов хранилища.
type memRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (r *memRepo) GetUser(_ context.Context, uid string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (r *memRepo) UpdateEntitlement(_ context.Context, uid, plan string, expiry *time.Time, token *string) (*models.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok || u.IsAdmin() {
		return nil, models.ErrUserNotFound
	}
	u.Plan, u.ExpiryDate, u.PurchaseToken = plan, expiry, token
	r.users[uid] = u
	return &models.Entitlement{UserUID: uid, Plan: plan, ExpiryDate: expiry, PurchaseToken: *token}, nil
}

func (r *memRepo) DowngradeExpired(_ context.Context, uid string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[uid]
	if !ok || u.Plan == "free" || u.Plan == "lifetime" || u.ExpiryDate == nil || !u.ExpiryDate.Before(now) {
		return false, nil
	}
	u.Plan, u.ExpiryDate, u.PurchaseToken = "free", nil, nil
	r.users[uid] = u
	return true, nil
}

func TestStatus_PersistsDowngrade(t *testing.T) {
	repo := &memRepo{users: map[string]models.User{
		"u1": {UID: "u1", Role: models.RoleUser, Plan: "monthly", ExpiryDate: ptr(fixedNow.Add(-time.Minute)), PurchaseToken: ptr("old")},
	}}
	s := newTestService(repo, nil)

	got, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", got.Plan)

	stored, err := repo.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", stored.Plan)
	assert.Nil(t, stored.ExpiryDate)
	assert.Nil(t, stored.PurchaseToken)

	again, err := s.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", again.Plan)
	assert.False(t, again.IsExpired)
}

func TestRestore_Idempotent(t *testing.T) {
	repo := &memRepo{users: map[string]models.User{"u1": {UID: "u1", Role: models.RoleUser, Plan: "free"}}}
	s := newTestService(repo, nil)
	req := models.PurchaseRequest{Plan: "yearly", PurchaseToken: "tok"}

	first, err := s.Restore(context.Background(), "u1", req)
	require.NoError(t, err)
	second, err := s.Restore(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, first.Plan, second.Plan)
	assert.True(t, first.ExpiryDate.Equal(*second.ExpiryDate))
}

func TestCancel(t *testing.T) {
	expiry := fixedNow.Add(48 * time.Hour)
	repo := &memRepo{users: map[string]models.User{"u1": {UID: "u1", Role: models.RoleUser, Plan: "weekly", ExpiryDate: &expiry}}}

	got, err := newTestService(repo, nil).Cancel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "weekly", got.Plan)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, got.ExpiryDate.Equal(expiry))

	stored, _ := repo.GetUser(context.Background(), "u1")
	assert.Equal(t, "weekly", stored.Plan)
}
