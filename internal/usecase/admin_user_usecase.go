package usecase

import (
	"context"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// AdminUserUsecase は管理者によるユーザー管理。
type AdminUserUsecase struct {
	tx        repo.TransactionManager
	userRepo  repo.UserRepository
	auditRepo repo.AuditLogRepository
	hasher    PasswordHasher
}

// DI
func NewAdminUserUsecase(
	tx repo.TransactionManager,
	userRepo repo.UserRepository,
	auditRepo repo.AuditLogRepository,
	hasher PasswordHasher,
) *AdminUserUsecase {
	return &AdminUserUsecase{
		tx:        tx,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		hasher:    hasher,
	}
}

type AdminCreateUserInput struct {
	Email    string
	Password string
	Role     model.Role
}

type AdminUpdateUserInput struct {
	Email    string
	Role     model.Role
	IsActive bool
}

// ListUsers はアクティブ→管理者の順の全ユーザー。
func (u *AdminUserUsecase) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := u.userRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return users, nil
}

func (u *AdminUserUsecase) CreateUser(ctx context.Context, adminID int64, in AdminCreateUserInput) (model.User, error) {
	if !isValidEmailFormat(in.Email) {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 12 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}
	if in.Role != model.RoleUser && in.Role != model.RoleAdmin {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	if existing, err := u.userRepo.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return model.User{}, NewHTTPError(http.StatusConflict, "email already exists")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashed,
		Role:         in.Role,
		IsActive:     true,
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Create(ctx, user); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionCreate, model.AuditResourceUser, user.ID, user.Email))
	})
	if err != nil {
		return model.User{}, mapAdminError(err)
	}

	return *user, nil
}

func (u *AdminUserUsecase) UpdateUser(ctx context.Context, adminID int64, id int64, in AdminUpdateUserInput) error {
	if !isValidEmailFormat(in.Email) {
		return NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if in.Role != model.RoleUser && in.Role != model.RoleAdmin {
		return NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}

		user.Email = strings.TrimSpace(in.Email)
		user.Role = in.Role
		user.IsActive = in.IsActive
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionUpdate, model.AuditResourceUser, id, user.Email))
	})
	return mapNilOrAdminError(err)
}

// DeleteUser はソフトデリート。
// token_versionを上げてアクセストークンを、RevokeAllByUserで
// リフレッシュトークンを、両方その場で使えなくする。
func (u *AdminUserUsecase) DeleteUser(ctx context.Context, adminID int64, id int64) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().SetActive(ctx, id, false); err != nil {
			return err
		}
		if err := r.Users().IncrementTokenVersion(ctx, id); err != nil {
			return err
		}
		if err := r.RefreshTokens().RevokeAllByUser(ctx, id); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionDeactivate, model.AuditResourceUser, id, ""))
	})
	return mapNilOrAdminError(err)
}

// ListAuditLogs は管理者操作ログを新しい順で返す。
func (u *AdminUserUsecase) ListAuditLogs(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	if filter.ResourceType != nil {
		switch *filter.ResourceType {
		case model.AuditResourceCategory, model.AuditResourceProduct, model.AuditResourceUser:
		default:
			return nil, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
		}
	}

	logs, err := u.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

func mapNilOrAdminError(err error) error {
	if err == nil {
		return nil
	}
	return mapAdminError(err)
}
