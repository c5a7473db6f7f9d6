package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks / Fakes
// =====================

type AuthUserRepoMock struct{ mock.Mock }

func (m *AuthUserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	user.ID = 1
	return args.Error(0)
}

func (m *AuthUserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) List(ctx context.Context) ([]model.User, error) {
	panic("not used in AuthUsecase tests")
}

func (m *AuthUserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *AuthUserRepoMock) SetActive(ctx context.Context, userID int64, isActive bool) error {
	panic("not used in AuthUsecase tests")
}

func (m *AuthUserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	panic("not used in AuthUsecase tests")
}

type AuthRefreshRepoMock struct{ mock.Mock }

func (m *AuthRefreshRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *AuthRefreshRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	rt, _ := args.Get(0).(*model.RefreshToken)
	return rt, args.Error(1)
}

func (m *AuthRefreshRepoMock) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *AuthRefreshRepoMock) RevokeAllByUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type plainVerifier struct{}

func (plainVerifier) Verify(plain string, hashed string) bool { return "hashed:"+plain == hashed }

type fixedIssuer struct{}

func (fixedIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	return "access-token", now.Add(15 * time.Minute), nil
}

type fixedIDGen struct{}

func (fixedIDGen) NewID() string { return "rt-id-1" }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newAuthUsecase(userRepo repo.UserRepository, rtRepo repo.RefreshTokenRepository) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		userRepo,
		rtRepo,
		plainHasher{},
		plainVerifier{},
		fixedIssuer{},
		fixedIDGen{},
		fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		14*24*time.Hour,
	)
}

// =====================
// Register
// =====================

func TestAuthUsecase_Register_InvalidEmail(t *testing.T) {
	uc := newAuthUsecase(new(AuthUserRepoMock), new(AuthRefreshRepoMock))

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "not-an-email", Password: "correct horse battery"})
	assert.Equal(t, 400, httpStatus(t, err))
}

func TestAuthUsecase_Register_ShortPassword(t *testing.T) {
	uc := newAuthUsecase(new(AuthUserRepoMock), new(AuthRefreshRepoMock))

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "a@example.com", Password: "short"})
	assert.Equal(t, 400, httpStatus(t, err))
}

func TestAuthUsecase_Register_WeakPassword(t *testing.T) {
	uc := newAuthUsecase(new(AuthUserRepoMock), new(AuthRefreshRepoMock))

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "a@example.com", Password: "123456789012"})
	assert.Equal(t, 400, httpStatus(t, err))
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{ID: 1}, nil)

	uc := newAuthUsecase(userRepo, new(AuthRefreshRepoMock))

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "a@example.com", Password: "correct horse battery"})
	assert.Equal(t, 409, httpStatus(t, err))
}

func TestAuthUsecase_Register_Success(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return((*model.User)(nil), repo.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "a@example.com" &&
			u.PasswordHash == "hashed:correct horse battery" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(nil)

	uc := newAuthUsecase(userRepo, new(AuthRefreshRepoMock))

	user, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "a@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, user.Role)
	userRepo.AssertExpectations(t)
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_UnknownEmail(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return((*model.User)(nil), repo.ErrUserNotFound)

	uc := newAuthUsecase(userRepo, new(AuthRefreshRepoMock))

	_, _, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "whatever whatever"})
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: "hashed:pw", IsActive: false,
	}, nil)

	uc := newAuthUsecase(userRepo, new(AuthRefreshRepoMock))

	_, _, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "pw"})
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: "hashed:right", IsActive: true,
	}, nil)

	uc := newAuthUsecase(userRepo, new(AuthRefreshRepoMock))

	_, _, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "wrong"})
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Login_Success(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: "hashed:pw", Role: model.RoleUser, IsActive: true,
	}, nil)
	userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("Create", mock.Anything, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		// DBには平文でなくハッシュ（sha256 hex = 64桁）だけ
		return rt.ID == "rt-id-1" && rt.UserID == 1 && len(rt.TokenHash) == 64
	})).Return(nil)

	uc := newAuthUsecase(userRepo, rtRepo)

	out, side, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "pw", UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, "access-token", out.Token.AccessToken)
	assert.Equal(t, 15*60, out.Token.ExpiresIn)
	assert.NotEmpty(t, side.PlainRefreshToken)
	assert.NotContains(t, side.PlainRefreshToken, " ")
	userRepo.AssertExpectations(t)
	rtRepo.AssertExpectations(t)
}

// =====================
// Refresh / Logout
// =====================

// DBに置くのは平文でなくsha256 hex
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func futureRefreshToken() *model.RefreshToken {
	return &model.RefreshToken{
		ID:        "rt-old",
		UserID:    1,
		TokenHash: sha256Hex("old-token"),
		ExpiresAt: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestAuthUsecase_Refresh_RotatesToken(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{
		ID: 1, Email: "a@example.com", Role: model.RoleUser, IsActive: true,
	}, nil)

	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(futureRefreshToken(), nil)
	rtRepo.On("Revoke", mock.Anything, "rt-old").Return(nil)
	rtRepo.On("Create", mock.Anything, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		return rt.ID == "rt-id-1" && rt.UserID == 1 &&
			len(rt.TokenHash) == 64 && rt.TokenHash != sha256Hex("old-token")
	})).Return(nil)

	uc := newAuthUsecase(userRepo, rtRepo)

	out, side, err := uc.Refresh(context.Background(), "old-token", "test")
	require.NoError(t, err)
	assert.Equal(t, "access-token", out.Token.AccessToken)
	assert.NotEmpty(t, side.PlainRefreshToken)
	assert.NotEqual(t, "old-token", side.PlainRefreshToken)
	rtRepo.AssertExpectations(t)
}

func TestAuthUsecase_Refresh_EmptyToken(t *testing.T) {
	uc := newAuthUsecase(new(AuthUserRepoMock), new(AuthRefreshRepoMock))

	_, _, err := uc.Refresh(context.Background(), "", "test")
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Refresh_UnknownToken(t *testing.T) {
	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return((*model.RefreshToken)(nil), repo.ErrNotFound)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	_, _, err := uc.Refresh(context.Background(), "no-such-token", "test")
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Refresh_RevokedTokenRejected(t *testing.T) {
	revokedAt := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	rt := futureRefreshToken()
	rt.RevokedAt = &revokedAt

	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(rt, nil)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	// 失効済みの使い回しは401、新しいトークンも出さない
	_, _, err := uc.Refresh(context.Background(), "old-token", "test")
	assert.Equal(t, 401, httpStatus(t, err))
	rtRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Refresh_ExpiredToken(t *testing.T) {
	rt := futureRefreshToken()
	rt.ExpiresAt = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(rt, nil)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	_, _, err := uc.Refresh(context.Background(), "old-token", "test")
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Refresh_InactiveUser(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, IsActive: false}, nil)

	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(futureRefreshToken(), nil)

	uc := newAuthUsecase(userRepo, rtRepo)

	_, _, err := uc.Refresh(context.Background(), "old-token", "test")
	assert.Equal(t, 401, httpStatus(t, err))
	rtRepo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Logout_RevokesToken(t *testing.T) {
	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(futureRefreshToken(), nil)
	rtRepo.On("Revoke", mock.Anything, "rt-old").Return(nil)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	require.NoError(t, uc.Logout(context.Background(), "old-token"))
	rtRepo.AssertExpectations(t)
}

func TestAuthUsecase_Logout_UnknownToken(t *testing.T) {
	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return((*model.RefreshToken)(nil), repo.ErrNotFound)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	err := uc.Logout(context.Background(), "no-such-token")
	assert.Equal(t, 401, httpStatus(t, err))
}

func TestAuthUsecase_Logout_AlreadyRevokedIsFine(t *testing.T) {
	rtRepo := new(AuthRefreshRepoMock)
	rtRepo.On("FindByTokenHash", mock.Anything, sha256Hex("old-token")).Return(futureRefreshToken(), nil)
	rtRepo.On("Revoke", mock.Anything, "rt-old").Return(repo.ErrNotFound)

	uc := newAuthUsecase(new(AuthUserRepoMock), rtRepo)

	assert.NoError(t, uc.Logout(context.Background(), "old-token"))
}
