package usecase

import (
	"context"
	"fmt"

	repo "shop/internal/repository"
)

// カタログのキャッシュキー。
const (
	cacheKeyMenu     = "links_menu"
	cacheKeyProducts = "products"
)

func cacheKeyCategory(id int64) string {
	return fmt.Sprintf("productcategory_%d", id)
}

func cacheKeyProduct(id int64) string {
	return fmt.Sprintf("product_%d", id)
}

func cacheKeyCategoryProducts(id int64) string {
	return fmt.Sprintf("products_in_category_%d", id)
}

// カタログ書き込み後の無効化。
// 個別キーとリスト系キーをまとめて消す。cacheがnilなら何もしない。
func invalidateCatalogCache(ctx context.Context, cache repo.Cache, categoryID int64, productID int64) {
	if cache == nil {
		return
	}

	keys := []string{
		cacheKeyMenu,
		cacheKeyProducts,
		cacheKeyCategory(categoryID),
		cacheKeyCategoryProducts(categoryID),
	}
	if productID != 0 {
		keys = append(keys, cacheKeyProduct(productID))
	}

	if err := cache.Delete(ctx, keys...); err != nil {
		logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
