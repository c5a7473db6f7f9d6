package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

// 公開カテゴリだけ（メニュー用）
func (r *CategoryGormRepository) ListActive(ctx context.Context) ([]model.ProductCategory, error) {
	var categories []model.ProductCategory

	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id asc").
		Find(&categories).Error; err != nil {
		return []model.ProductCategory{}, err
	}

	return categories, nil
}

// 管理画面用（非公開も含む）
func (r *CategoryGormRepository) ListAll(ctx context.Context) ([]model.ProductCategory, error) {
	var categories []model.ProductCategory

	if err := r.db.WithContext(ctx).
		Order("id asc").
		Find(&categories).Error; err != nil {
		return []model.ProductCategory{}, err
	}

	return categories, nil
}

// IDでカテゴリを取得
func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.ProductCategory, error) {
	var c model.ProductCategory

	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductCategory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductCategory{}, err
	}
	return c, nil
}

// カテゴリの作成
func (r *CategoryGormRepository) Create(ctx context.Context, c model.ProductCategory) (model.ProductCategory, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.ProductCategory{}, err
	}
	return c, nil
}

// カテゴリの更新
func (r *CategoryGormRepository) Update(ctx context.Context, c model.ProductCategory) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductCategory{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":        c.Name,
			"description": c.Description,
			"is_active":   c.IsActive,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 削除の実体は is_active の切り替え
func (r *CategoryGormRepository) SetActive(ctx context.Context, id int64, isActive bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductCategory{}).
		Where("id = ?", id).
		Update("is_active", isActive)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カテゴリ配下の商品のis_activeをまとめて揃える。
// 対象0件でもエラーにしない（空カテゴリもある）。
func (r *CategoryGormRepository) SetProductsActive(ctx context.Context, categoryID int64, isActive bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Update("is_active", isActive).Error
}

// 配下の商品の価格に割引率を適用。DB側の式で一括更新。
func (r *CategoryGormRepository) ApplyDiscount(ctx context.Context, categoryID int64, percent int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Update("price", gorm.Expr("price * (100 - ?) / 100", percent)).Error
}
