package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BasketGormRepository struct {
	db *gorm.DB
}

// DI
func NewBasketGormRepository(db *gorm.DB) *BasketGormRepository {
	return &BasketGormRepository{db: db}
}

// ユーザーの明細を追加順で一覧取得（Productも同時ロード）
func (r *BasketGormRepository) ListByUser(ctx context.Context, userID int64) ([]model.BasketItem, error) {
	var items []model.BasketItem

	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.BasketItem{}, err
	}

	return items, nil
}

// 明細を取得
func (r *BasketGormRepository) FindByID(ctx context.Context, itemID int64) (model.BasketItem, error) {
	var item model.BasketItem

	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", itemID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.BasketItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.BasketItem{}, err
	}
	return item, nil
}

// (user, product)の明細を取得
func (r *BasketGormRepository) FindByUserAndProduct(ctx context.Context, userID int64, productID int64) (model.BasketItem, error) {
	var item model.BasketItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.BasketItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.BasketItem{}, err
	}
	return item, nil
}

// 明細の新規作成。同時リクエストが先に同じ(user_id, product_id)を
// 作っていたら、行を増やさず数量に合算する（Postgresのトランザクション内では
// ユニーク違反後のリトライができないのでDB側のupsertで吸収する）。
func (r *BasketGormRepository) Create(ctx context.Context, item model.BasketItem) (model.BasketItem, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("basket_items.quantity + excluded.quantity"),
			}),
		}).
		Create(&item).Error; err != nil {
		return model.BasketItem{}, err
	}
	return item, nil
}

// DB側の式で quantity を加算する。
// アプリ側で読んで足して書く、をしない。
func (r *BasketGormRepository) IncrementQuantity(ctx context.Context, itemID int64, by int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.BasketItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", by))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細の数量を更新
func (r *BasketGormRepository) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.BasketItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *BasketGormRepository) DeleteByID(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.BasketItem{}, itemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
