package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// AdminCatalogUsecase は管理者によるカテゴリ・商品のCRUD。
// 「保存＋カスケード」はひとつのTxにまとめる。部分適用は作らない。
type AdminCatalogUsecase struct {
	tx            repo.TransactionManager
	categoryRepo  repo.CategoryRepository
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	cache         repo.Cache
}

// DI
func NewAdminCatalogUsecase(
	tx repo.TransactionManager,
	categoryRepo repo.CategoryRepository,
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	cache repo.Cache,
) *AdminCatalogUsecase {
	return &AdminCatalogUsecase{
		tx:            tx,
		categoryRepo:  categoryRepo,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		cache:         cache,
	}
}

type CategoryInput struct {
	Name        string
	Description string
	IsActive    bool
	// 1〜99。nilなら割引なし。
	DiscountPercent *int64
}

type ProductCreateInput struct {
	CategoryID  int64
	Name        string
	ShortDesc   string
	Description string
	Price       int64
	Quantity    int64
	IsActive    bool
}

// 更新では在庫（Quantity）を受け取らない。
// 在庫はバスケットと在庫調整APIだけが動かす。
type ProductUpdateInput struct {
	CategoryID  int64
	Name        string
	ShortDesc   string
	Description string
	Price       int64
	IsActive    bool
}

// ListCategories は非公開も含む全カテゴリ。
func (u *AdminCatalogUsecase) ListCategories(ctx context.Context) ([]model.ProductCategory, error) {
	categories, err := u.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return categories, nil
}

func (u *AdminCatalogUsecase) CreateCategory(ctx context.Context, adminID int64, in CategoryInput) (model.ProductCategory, error) {
	if err := validateCategoryInput(in); err != nil {
		return model.ProductCategory{}, err
	}

	var created model.ProductCategory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		created, err = r.Categories().Create(ctx, model.ProductCategory{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			IsActive:    in.IsActive,
		})
		if err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionCreate, model.AuditResourceCategory, created.ID, created.Name))
	})
	if err != nil {
		return model.ProductCategory{}, mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, created.ID, 0)
	return created, nil
}

// UpdateCategory はカテゴリを保存し、配下商品のis_activeを揃える。
// カスケードはフラグが変わらない保存でも毎回走る（冪等）。
// 割引率が来ていれば配下の価格も同じTxで一括更新する。
func (u *AdminCatalogUsecase) UpdateCategory(ctx context.Context, adminID int64, id int64, in CategoryInput) error {
	if err := validateCategoryInput(in); err != nil {
		return err
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		category, err := r.Categories().FindByID(ctx, id)
		if err != nil {
			return err
		}

		category.Name = strings.TrimSpace(in.Name)
		category.Description = in.Description
		category.IsActive = in.IsActive
		if err := r.Categories().Update(ctx, category); err != nil {
			return err
		}

		if err := r.Categories().SetProductsActive(ctx, id, in.IsActive); err != nil {
			return err
		}

		if in.DiscountPercent != nil {
			if err := r.Categories().ApplyDiscount(ctx, id, *in.DiscountPercent); err != nil {
				return err
			}
		}

		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionUpdate, model.AuditResourceCategory, id, category.Name))
	})
	if err != nil {
		return mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, id, 0)
	return nil
}

// DeleteCategory はソフトデリート。配下の商品も非公開にする。
func (u *AdminCatalogUsecase) DeleteCategory(ctx context.Context, adminID int64, id int64) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Categories().SetActive(ctx, id, false); err != nil {
			return err
		}
		if err := r.Categories().SetProductsActive(ctx, id, false); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionDeactivate, model.AuditResourceCategory, id, ""))
	})
	if err != nil {
		return mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, id, 0)
	return nil
}

// ListCategoryProducts はカテゴリ配下の商品（非公開も含む）。
func (u *AdminCatalogUsecase) ListCategoryProducts(ctx context.Context, categoryID int64) ([]model.Product, error) {
	if _, err := u.categoryRepo.FindByID(ctx, categoryID); err != nil {
		return nil, mapAdminError(err)
	}

	products, err := u.productRepo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return products, nil
}

func (u *AdminCatalogUsecase) CreateProduct(ctx context.Context, adminID int64, in ProductCreateInput) (model.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.Price < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	if in.Quantity < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			return err
		}

		var err error
		created, err = r.Products().Create(ctx, model.Product{
			CategoryID:  in.CategoryID,
			Name:        strings.TrimSpace(in.Name),
			ShortDesc:   in.ShortDesc,
			Description: in.Description,
			Price:       in.Price,
			Quantity:    in.Quantity,
			IsActive:    in.IsActive,
		})
		if err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionCreate, model.AuditResourceProduct, created.ID, created.Name))
	})
	if err != nil {
		return model.Product{}, mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, created.CategoryID, created.ID)
	return created, nil
}

func (u *AdminCatalogUsecase) UpdateProduct(ctx context.Context, adminID int64, id int64, in ProductUpdateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.Price < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	var categoryID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		categoryID = p.CategoryID

		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			return err
		}

		p.CategoryID = in.CategoryID
		p.Name = strings.TrimSpace(in.Name)
		p.ShortDesc = in.ShortDesc
		p.Description = in.Description
		p.Price = in.Price
		p.IsActive = in.IsActive
		if err := r.Products().Update(ctx, p); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionUpdate, model.AuditResourceProduct, id, p.Name))
	})
	if err != nil {
		return mapAdminError(err)
	}

	// 移動元と移動先のカテゴリ両方のリストを消す
	invalidateCatalogCache(ctx, u.cache, categoryID, id)
	if in.CategoryID != categoryID {
		invalidateCatalogCache(ctx, u.cache, in.CategoryID, id)
	}
	return nil
}

// DeleteProduct はソフトデリート。
func (u *AdminCatalogUsecase) DeleteProduct(ctx context.Context, adminID int64, id int64) error {
	var categoryID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		categoryID = p.CategoryID

		if err := r.Products().SetActive(ctx, id, false); err != nil {
			return err
		}
		return r.AuditLogs().Create(ctx, auditEntry(adminID, model.AuditActionDeactivate, model.AuditResourceProduct, id, p.Name))
	})
	if err != nil {
		return mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, categoryID, id)
	return nil
}

// SetStock は在庫を現在値にセットして調整履歴を残す。
// カタログ編集では在庫を触らないので、入口はここだけ。
func (u *AdminCatalogUsecase) SetStock(ctx context.Context, adminID int64, productID int64, newStock int64, reason string) error {
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return mapAdminError(err)
	}

	if err := u.inventoryRepo.SetStockWithAdjustment(ctx, adminID, productID, newStock, reason); err != nil {
		return mapAdminError(err)
	}

	invalidateCatalogCache(ctx, u.cache, p.CategoryID, productID)
	return nil
}

func validateCategoryInput(in CategoryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if in.DiscountPercent != nil {
		if *in.DiscountPercent < 1 || *in.DiscountPercent > 99 {
			return NewHTTPError(http.StatusBadRequest, "invalid discount")
		}
	}
	return nil
}

func auditEntry(actorID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, detail string) model.AuditLog {
	if detail != "" {
		detail = fmt.Sprintf("name=%s", detail)
	}
	return model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		Detail:       detail,
	}
}

func mapAdminError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrUserNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
