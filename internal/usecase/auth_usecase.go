package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"shop/internal/domain/model"
	"shop/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// UUID等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// AuthUsecase は会員登録とログイン。
type AuthUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	hasher     PasswordHasher
	verifier   PasswordVerifier
	issuer     AccessTokenIssuer
	idGen      IDGenerator
	clock      Clock
	refreshTTL time.Duration
}

// DI
func NewAuthUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	refreshTTL time.Duration,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		hasher:     hasher,
		verifier:   verifier,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
	}
}

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

type JwtAccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type LoginOutput struct {
	User  model.User     `json:"user"`
	Token JwtAccessToken `json:"token"`
}

// handlerがCookieに詰めるために必要な値
type LoginSideEffect struct {
	PlainRefreshToken string
}

// Register は会員登録。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if !isValidEmailFormat(in.Email) {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if len(in.Password) < 12 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}
	if isWeakPassword(in.Password) {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "weak password")
	}

	// email重複チェック
	existing, err := u.userRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return model.User{}, NewHTTPError(http.StatusConflict, "email already exists")
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashed,
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return *user, nil
}

// Login はアクセストークンとリフレッシュトークンを発行する。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	user, err := u.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, side, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return out, side, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 停止ユーザーはログイン不可
	if !user.IsActive {
		return out, side, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, side, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := u.clock.Now()
	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, side, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// RefreshToken生成：平文はCookieへ、DBにはハッシュだけ置く
	plainRefresh, err := u.storeNewRefreshToken(ctx, user.ID, in.UserAgent, now)
	if err != nil {
		return out, side, err
	}

	// 最終ログイン時刻更新
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return out, side, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out.User = *user
	out.Token = JwtAccessToken{
		AccessToken: accessToken,
		ExpiresIn:   int(accessExp.Sub(now).Seconds()),
	}
	side.PlainRefreshToken = plainRefresh
	return out, side, nil
}

// Refresh はリフレッシュトークンを回転させてアクセストークンを再発行する。
// 旧トークンは必ず失効させる（使い回し不可）。
func (u *AuthUsecase) Refresh(ctx context.Context, plainRefresh string, userAgent string) (LoginOutput, LoginSideEffect, error) {
	var out LoginOutput
	var side LoginSideEffect

	if plainRefresh == "" {
		return out, side, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plainRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, side, NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return out, side, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := u.clock.Now()
	if rt.RevokedAt != nil || rt.ExpiresAt.Before(now) {
		return out, side, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if err != nil || user == nil || !user.IsActive {
		return out, side, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	// 回転：旧を失効させてから新を発行
	if err := u.rtRepo.Revoke(ctx, rt.ID); err != nil {
		return out, side, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, side, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	newPlain, err := u.storeNewRefreshToken(ctx, user.ID, userAgent, now)
	if err != nil {
		return out, side, err
	}

	out.User = *user
	out.Token = JwtAccessToken{
		AccessToken: accessToken,
		ExpiresIn:   int(accessExp.Sub(now).Seconds()),
	}
	side.PlainRefreshToken = newPlain
	return out, side, nil
}

// Logout はリフレッシュトークンを失効させる。
func (u *AuthUsecase) Logout(ctx context.Context, plainRefresh string) error {
	if plainRefresh == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plainRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.rtRepo.Revoke(ctx, rt.ID); err != nil {
		// 失効済みならもう目的は果たしている
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 新しいリフレッシュトークンを作り、ハッシュだけDBへ置いて平文を返す。
func (u *AuthUsecase) storeNewRefreshToken(ctx context.Context, userID int64, userAgent string, now time.Time) (string, error) {
	plain, err := generateSecureToken(32)
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	refresh := &model.RefreshToken{
		ID:        u.idGen.NewID(),
		UserID:    userID,
		TokenHash: hashToken(plain),
		UserAgent: userAgent,
		ExpiresAt: now.Add(u.refreshTTL),
	}
	if err := u.rtRepo.Create(ctx, refresh); err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return plain, nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// メールチェック
func isValidEmailFormat(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	_, err := mail.ParseAddress(trimmed)
	return err == nil
}

// よくある弱いパスワードの拒否
func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":     {},
		"password123":  {},
		"123456789012": {},
		"1234567890":   {},
		"12345678":     {},
		"qwerty":       {},
		"qwertyuiop":   {},
		"letmein":      {},
		"admin":        {},
		"admin123":     {},
	}

	_, ok := weak[normalized]
	return ok
}

func generateSecureToken(bytesLen int) (string, error) {
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
