package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// 保存・取得を約束
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// 管理画面用。アクティブ→管理者の順で並べる。
	List(ctx context.Context) ([]model.User, error)
	// アクティブかどうか・ロールの変更・最終ログイン更新など
	Update(ctx context.Context, user *model.User) error
	SetActive(ctx context.Context, userID int64, isActive bool) error
	// token_versionを+1（既発行トークンの即時失効）
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
