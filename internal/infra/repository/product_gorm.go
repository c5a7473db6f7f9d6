package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開商品= 自分のis_activeとカテゴリのis_activeが両方true。
func activeScope(db *gorm.DB) *gorm.DB {
	return db.
		Joins("join product_categories on product_categories.id = products.category_id").
		Where("products.is_active = ? AND product_categories.is_active = ?", true, true)
}

// 公開商品の一覧。ページ分割は呼び出し側（キャッシュ済みリストを切る）。
func (r *ProductGormRepository) ListActive(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	var products []model.Product

	tx := activeScope(r.db.WithContext(ctx).Model(&model.Product{}))

	if q.CategoryID != nil {
		tx = tx.Where("products.category_id = ?", *q.CategoryID)
	}

	if q.OrderByPrice {
		tx = tx.Order("products.price asc").Order("products.id asc")
	} else {
		// 作成順
		tx = tx.Order("products.id asc")
	}

	if err := tx.Find(&products).Error; err != nil {
		return []model.Product{}, err
	}

	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// ランダムな公開商品1件（ホット商品）
func (r *ProductGormRepository) FindRandomActive(ctx context.Context) (model.Product, error) {
	var p model.Product

	err := activeScope(r.db.WithContext(ctx).Model(&model.Product{})).
		Order("random()").
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 同カテゴリの公開商品（本人を除く）
func (r *ProductGormRepository) ListActiveInCategory(ctx context.Context, categoryID int64, excludeID int64) ([]model.Product, error) {
	var products []model.Product

	err := activeScope(r.db.WithContext(ctx).Model(&model.Product{})).
		Where("products.category_id = ? AND products.id <> ?", categoryID, excludeID).
		Order("products.id asc").
		Find(&products).Error

	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 管理画面用（非公開も含む）
func (r *ProductGormRepository) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	var products []model.Product

	if err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("id asc").
		Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の更新。在庫（quantity）はここでは触らない。
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"category_id": p.CategoryID,
			"name":        p.Name,
			"short_desc":  p.ShortDesc,
			"description": p.Description,
			"price":       p.Price,
			"is_active":   p.IsActive,
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
func (r *ProductGormRepository) SetActive(ctx context.Context, id int64, isActive bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
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
