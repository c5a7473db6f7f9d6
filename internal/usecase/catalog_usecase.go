package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// カタログ一覧のページサイズ。
const productPageSize = 3

// CatalogUsecase は公開カタログの読み取りロジック。
// cacheがnilならリードスルーを飛ばして毎回ストアへ行く。
type CatalogUsecase struct {
	categoryRepo repo.CategoryRepository
	productRepo  repo.ProductRepository
	cache        repo.Cache
	cacheTTL     time.Duration
}

// DI
func NewCatalogUsecase(
	categoryRepo repo.CategoryRepository,
	productRepo repo.ProductRepository,
	cache repo.Cache,
	cacheTTL time.Duration,
) *CatalogUsecase {
	return &CatalogUsecase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

// 1ページ分の商品一覧。
type ProductPageOutput struct {
	Items      []model.Product `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
}

type CategoryProductsOutput struct {
	Category model.ProductCategory `json:"category"`
	ProductPageOutput
}

type HotProductOutput struct {
	Hot  model.Product   `json:"hot_product"`
	Same []model.Product `json:"same_products"`
}

// Menu は公開カテゴリの一覧（ヘッダメニュー用）。
func (u *CatalogUsecase) Menu(ctx context.Context) ([]model.ProductCategory, error) {
	categories, err := u.cachedMenu(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return categories, nil
}

// ListProducts は全カテゴリの公開商品を作成順でページ分割して返す。
func (u *CatalogUsecase) ListProducts(ctx context.Context, page int) (ProductPageOutput, error) {
	products, err := u.cachedActiveProducts(ctx)
	if err != nil {
		return ProductPageOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return paginateProducts(products, page), nil
}

// CategoryProducts はカテゴリ内の公開商品を価格昇順でページ分割して返す。
// categoryID=0 は「全カテゴリ」。
func (u *CatalogUsecase) CategoryProducts(ctx context.Context, categoryID int64, page int) (CategoryProductsOutput, error) {
	if categoryID == 0 {
		products, err := u.cachedActiveProducts(ctx)
		if err != nil {
			return CategoryProductsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return CategoryProductsOutput{
			Category:          model.ProductCategory{ID: 0, Name: "all", IsActive: true},
			ProductPageOutput: paginateProducts(products, page),
		}, nil
	}

	category, err := u.cachedCategory(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return CategoryProductsOutput{}, NewHTTPError(http.StatusNotFound, "category not found")
	}
	if err != nil {
		return CategoryProductsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	products, err := u.cachedCategoryProducts(ctx, categoryID)
	if err != nil {
		return CategoryProductsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CategoryProductsOutput{
		Category:          category,
		ProductPageOutput: paginateProducts(products, page),
	}, nil
}

// ProductDetail は商品1件。無ければ404。
func (u *CatalogUsecase) ProductDetail(ctx context.Context, id int64) (model.Product, error) {
	p, err := u.cachedProduct(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// ProductPrice は非同期の価格取得用。
func (u *CatalogUsecase) ProductPrice(ctx context.Context, id int64) (int64, error) {
	p, err := u.ProductDetail(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Price, nil
}

// HotProduct はランダムな公開商品と同カテゴリの商品を返す。
// ランダムなのでキャッシュしない。
func (u *CatalogUsecase) HotProduct(ctx context.Context) (HotProductOutput, error) {
	hot, err := u.productRepo.FindRandomActive(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return HotProductOutput{}, NewHTTPError(http.StatusNotFound, "no active products")
	}
	if err != nil {
		return HotProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	same, err := u.productRepo.ListActiveInCategory(ctx, hot.CategoryID, hot.ID)
	if err != nil {
		return HotProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return HotProductOutput{Hot: hot, Same: same}, nil
}

// ページ番号は範囲外ならエラーにせず先頭/末尾へ寄せる。
func paginateProducts(products []model.Product, page int) ProductPageOutput {
	total := len(products)

	totalPages := (total + productPageSize - 1) / productPageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * productPageSize
	end := start + productPageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return ProductPageOutput{
		Items:      products[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}

// ===== リードスルーキャッシュ =====
// ミスならストアから読んでJSONで詰める。キャッシュ側の失敗は
// 読み取りを止めない（ログだけ残してストアへ行く）。

func (u *CatalogUsecase) cachedCategory(ctx context.Context, id int64) (model.ProductCategory, error) {
	if u.cache == nil {
		return u.categoryRepo.FindByID(ctx, id)
	}

	key := cacheKeyCategory(id)
	var cached model.ProductCategory
	if ok := u.cacheGet(ctx, key, &cached); ok {
		return cached, nil
	}

	c, err := u.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return model.ProductCategory{}, err
	}
	u.cacheSet(ctx, key, c)
	return c, nil
}

func (u *CatalogUsecase) cachedProduct(ctx context.Context, id int64) (model.Product, error) {
	if u.cache == nil {
		return u.productRepo.FindByID(ctx, id)
	}

	key := cacheKeyProduct(id)
	var cached model.Product
	if ok := u.cacheGet(ctx, key, &cached); ok {
		return cached, nil
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	u.cacheSet(ctx, key, p)
	return p, nil
}

func (u *CatalogUsecase) cachedMenu(ctx context.Context) ([]model.ProductCategory, error) {
	if u.cache == nil {
		return u.categoryRepo.ListActive(ctx)
	}

	var cached []model.ProductCategory
	if ok := u.cacheGet(ctx, cacheKeyMenu, &cached); ok {
		return cached, nil
	}

	categories, err := u.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	u.cacheSet(ctx, cacheKeyMenu, categories)
	return categories, nil
}

func (u *CatalogUsecase) cachedActiveProducts(ctx context.Context) ([]model.Product, error) {
	if u.cache == nil {
		return u.productRepo.ListActive(ctx, repo.ProductListQuery{})
	}

	var cached []model.Product
	if ok := u.cacheGet(ctx, cacheKeyProducts, &cached); ok {
		return cached, nil
	}

	products, err := u.productRepo.ListActive(ctx, repo.ProductListQuery{})
	if err != nil {
		return nil, err
	}
	u.cacheSet(ctx, cacheKeyProducts, products)
	return products, nil
}

func (u *CatalogUsecase) cachedCategoryProducts(ctx context.Context, categoryID int64) ([]model.Product, error) {
	q := repo.ProductListQuery{CategoryID: &categoryID, OrderByPrice: true}
	if u.cache == nil {
		return u.productRepo.ListActive(ctx, q)
	}

	key := cacheKeyCategoryProducts(categoryID)
	var cached []model.Product
	if ok := u.cacheGet(ctx, key, &cached); ok {
		return cached, nil
	}

	products, err := u.productRepo.ListActive(ctx, q)
	if err != nil {
		return nil, err
	}
	u.cacheSet(ctx, key, products)
	return products, nil
}

func (u *CatalogUsecase) cacheGet(ctx context.Context, key string, out interface{}) bool {
	b, err := u.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repo.ErrCacheMiss) {
			logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache entry broken")
		return false
	}
	return true
}

func (u *CatalogUsecase) cacheSet(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := u.cache.Set(ctx, key, b, u.cacheTTL); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
