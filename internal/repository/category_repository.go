package repository

import (
	"context"

	"shop/internal/domain/model"
)

// カテゴリの永続化を約束。
type CategoryRepository interface {
	// 公開カテゴリだけ（メニュー用）
	ListActive(ctx context.Context) ([]model.ProductCategory, error)
	// 管理画面用（非公開も含む）
	ListAll(ctx context.Context) ([]model.ProductCategory, error)
	FindByID(ctx context.Context, id int64) (model.ProductCategory, error)

	Create(ctx context.Context, c model.ProductCategory) (model.ProductCategory, error)
	Update(ctx context.Context, c model.ProductCategory) error
	SetActive(ctx context.Context, id int64, isActive bool) error

	// カテゴリ配下の商品のis_activeをまとめて揃える（カスケード）
	SetProductsActive(ctx context.Context, categoryID int64, isActive bool) error
	// 配下の商品に割引率を適用：price = price * (100 - percent) / 100
	ApplyDiscount(ctx context.Context, categoryID int64, percent int64) error
}
