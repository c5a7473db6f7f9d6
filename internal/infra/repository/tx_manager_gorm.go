package repository

import (
	"context"

	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	categories repo.CategoryRepository
	products   repo.ProductRepository
	inventory  repo.InventoryRepository
	basket     repo.BasketRepository
	users      repo.UserRepository
	refresh    repo.RefreshTokenRepository
	audit      repo.AuditLogRepository
}

func (r *txReposGorm) Categories() repo.CategoryRepository        { return r.categories }
func (r *txReposGorm) Products() repo.ProductRepository           { return r.products }
func (r *txReposGorm) Inventory() repo.InventoryRepository        { return r.inventory }
func (r *txReposGorm) BasketItems() repo.BasketRepository         { return r.basket }
func (r *txReposGorm) Users() repo.UserRepository                 { return r.users }
func (r *txReposGorm) RefreshTokens() repo.RefreshTokenRepository { return r.refresh }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository         { return r.audit }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			categories: NewCategoryGormRepository(tx),
			products:   NewProductGormRepository(tx),
			inventory:  NewInventoryGormRepository(tx),
			basket:     NewBasketGormRepository(tx),
			users:      NewUserGormRepository(tx),
			refresh:    NewRefreshTokenGormRepository(tx),
			audit:      NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
