package usecase_test

import (
	"context"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminUserRepo struct{ s *adminStore }

func (r *adminUserRepo) Create(ctx context.Context, user *model.User) error {
	r.s.nextID++
	user.ID = r.s.nextID
	r.s.users[user.ID] = *user
	return nil
}

func (r *adminUserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (r *adminUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

func (r *adminUserRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *adminUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.s.users[user.ID]; !ok {
		return repo.ErrUserNotFound
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *adminUserRepo) SetActive(ctx context.Context, userID int64, isActive bool) error {
	u, ok := r.s.users[userID]
	if !ok {
		return repo.ErrUserNotFound
	}
	u.IsActive = isActive
	r.s.users[userID] = u
	return nil
}

func (r *adminUserRepo) IncrementTokenVersion(ctx context.Context, userID int64) error {
	u, ok := r.s.users[userID]
	if !ok {
		return repo.ErrUserNotFound
	}
	u.TokenVersion++
	r.s.users[userID] = u
	return nil
}

type adminRefreshRepo struct{ s *adminStore }

func (r *adminRefreshRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	panic("not used in AdminUserUsecase tests")
}

func (r *adminRefreshRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	panic("not used in AdminUserUsecase tests")
}

func (r *adminRefreshRepo) Revoke(ctx context.Context, id string) error {
	panic("not used in AdminUserUsecase tests")
}

func (r *adminRefreshRepo) RevokeAllByUser(ctx context.Context, userID int64) error {
	r.s.revokedTokenUsers = append(r.s.revokedTokenUsers, userID)
	return nil
}

func newAdminUserUsecase(s *adminStore) *usecase.AdminUserUsecase {
	return usecase.NewAdminUserUsecase(
		&adminTxManager{s},
		&adminUserRepo{s},
		&adminAuditRepo{s},
		plainHasher{},
	)
}

// =====================
// DeleteUser
// =====================

func TestAdminUserUsecase_DeleteUser_KillsAllSessions(t *testing.T) {
	ctx := context.Background()
	s := newAdminStore()
	s.users[5] = model.User{ID: 5, Email: "u@example.com", Role: model.RoleUser, IsActive: true}
	uc := newAdminUserUsecase(s)

	require.NoError(t, uc.DeleteUser(ctx, 1, 5))

	// ソフトデリート + アクセストークン失効 + リフレッシュトークン全失効
	assert.False(t, s.users[5].IsActive)
	assert.Equal(t, 1, s.users[5].TokenVersion)
	assert.Equal(t, []int64{5}, s.revokedTokenUsers)

	require.Len(t, s.audits, 1)
	assert.Equal(t, model.AuditActionDeactivate, s.audits[0].Action)
	assert.Equal(t, model.AuditResourceUser, s.audits[0].ResourceType)
	assert.Equal(t, int64(5), s.audits[0].ResourceID)
	assert.Equal(t, int64(1), s.audits[0].ActorUserID)
}

func TestAdminUserUsecase_DeleteUser_UnknownUser(t *testing.T) {
	uc := newAdminUserUsecase(newAdminStore())

	err := uc.DeleteUser(context.Background(), 1, 99)
	assert.Equal(t, 404, httpStatus(t, err))
}

// =====================
// ListAuditLogs
// =====================

func TestAdminUserUsecase_ListAuditLogs_ReturnsEntries(t *testing.T) {
	s := newAdminStore()
	s.audits = []model.AuditLog{
		{ID: 1, ActorUserID: 1, Action: model.AuditActionCreate, ResourceType: model.AuditResourceProduct, ResourceID: 10},
	}
	uc := newAdminUserUsecase(s)

	rt := model.AuditResourceProduct
	logs, err := uc.ListAuditLogs(context.Background(), repo.AuditLogFilter{ResourceType: &rt})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(10), logs[0].ResourceID)
}

func TestAdminUserUsecase_ListAuditLogs_InvalidResourceType(t *testing.T) {
	uc := newAdminUserUsecase(newAdminStore())

	rt := model.AuditResourceType("basket")
	_, err := uc.ListAuditLogs(context.Background(), repo.AuditLogFilter{ResourceType: &rt})
	assert.Equal(t, 400, httpStatus(t, err))
}
