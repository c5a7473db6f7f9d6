package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 公開一覧の検索条件。
// CategoryIDがnilなら全カテゴリ。OrderByPriceで価格昇順。
type ProductListQuery struct {
	CategoryID   *int64
	OrderByPrice bool
}

// 商品の永続化だけを約束。
// 「公開中」= product.is_active かつ category.is_active。
type ProductRepository interface {
	ListActive(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// ランダムな公開商品1件（ホット商品）
	FindRandomActive(ctx context.Context) (model.Product, error)
	// 同カテゴリの公開商品（excludeIDを除く）
	ListActiveInCategory(ctx context.Context, categoryID int64, excludeID int64) ([]model.Product, error)

	// 管理画面用（非公開も含む）
	ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	// 削除の実体は is_active=false
	SetActive(ctx context.Context, id int64, isActive bool) error
}

// 在庫の増減だけを約束。
type InventoryRepository interface {
	// 足りるときだけ減らす。減らせたらtrue。
	ReserveStock(ctx context.Context, productID int64, qty int64) (bool, error)
	// 予約分を在庫へ戻す。
	ReleaseStock(ctx context.Context, productID int64, qty int64) error
	// 在庫を現在値にセットし、調整履歴を残す。
	SetStockWithAdjustment(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) error
}
