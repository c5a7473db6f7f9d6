package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
)

// 在庫が予約量に足りない
var ErrInsufficientStock = errors.New("insufficient stock")

// バスケット明細の永続化を約束。
type BasketRepository interface {
	// ユーザーの明細を追加順で全件（Productを同時ロード）。
	// 合計はこのスナップショット1回分から計算する。
	ListByUser(ctx context.Context, userID int64) ([]model.BasketItem, error)
	FindByID(ctx context.Context, itemID int64) (model.BasketItem, error)
	FindByUserAndProduct(ctx context.Context, userID int64, productID int64) (model.BasketItem, error)

	Create(ctx context.Context, item model.BasketItem) (model.BasketItem, error)
	// DB側の式で quantity = quantity + by（read-modify-writeしない）
	IncrementQuantity(ctx context.Context, itemID int64, by int64) error
	UpdateQuantity(ctx context.Context, itemID int64, qty int64) error
	DeleteByID(ctx context.Context, itemID int64) error
}
