package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CatProductRepoMock struct{ mock.Mock }

func (m *CatProductRepoMock) ListActive(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *CatProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CatProductRepoMock) FindRandomActive(ctx context.Context) (model.Product, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CatProductRepoMock) ListActiveInCategory(ctx context.Context, categoryID int64, excludeID int64) ([]model.Product, error) {
	args := m.Called(ctx, categoryID, excludeID)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *CatProductRepoMock) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	panic("not used in CatalogUsecase tests")
}
func (m *CatProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in CatalogUsecase tests")
}
func (m *CatProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in CatalogUsecase tests")
}
func (m *CatProductRepoMock) SetActive(ctx context.Context, id int64, isActive bool) error {
	panic("not used in CatalogUsecase tests")
}

type CatCategoryRepoMock struct{ mock.Mock }

func (m *CatCategoryRepoMock) ListActive(ctx context.Context) ([]model.ProductCategory, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.ProductCategory)
	return items, args.Error(1)
}

func (m *CatCategoryRepoMock) FindByID(ctx context.Context, id int64) (model.ProductCategory, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.ProductCategory)
	return c, args.Error(1)
}

func (m *CatCategoryRepoMock) ListAll(ctx context.Context) ([]model.ProductCategory, error) {
	panic("not used in CatalogUsecase tests")
}
func (m *CatCategoryRepoMock) Create(ctx context.Context, c model.ProductCategory) (model.ProductCategory, error) {
	panic("not used in CatalogUsecase tests")
}
func (m *CatCategoryRepoMock) Update(ctx context.Context, c model.ProductCategory) error {
	panic("not used in CatalogUsecase tests")
}
func (m *CatCategoryRepoMock) SetActive(ctx context.Context, id int64, isActive bool) error {
	panic("not used in CatalogUsecase tests")
}
func (m *CatCategoryRepoMock) SetProductsActive(ctx context.Context, categoryID int64, isActive bool) error {
	panic("not used in CatalogUsecase tests")
}
func (m *CatCategoryRepoMock) ApplyDiscount(ctx context.Context, categoryID int64, percent int64) error {
	panic("not used in CatalogUsecase tests")
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *CacheMock) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func products(n int) []model.Product {
	out := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Product{ID: int64(i), Name: "p", Price: int64(100 * i), IsActive: true})
	}
	return out
}

// =====================
// ページ分割（範囲外は寄せる）
// =====================

func TestCatalogUsecase_ListProducts_Pagination(t *testing.T) {
	ctx := context.Background()
	pRepo := new(CatProductRepoMock)
	pRepo.On("ListActive", mock.Anything, repo.ProductListQuery{}).Return(products(7), nil)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, nil, 0)

	out, err := uc.ListProducts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Page)
	assert.Equal(t, 3, out.TotalPages)
	assert.Equal(t, 7, out.Total)
	require.Len(t, out.Items, 3)
	assert.Equal(t, int64(4), out.Items[0].ID)

	// 0は先頭へ
	out, err = uc.ListProducts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, int64(1), out.Items[0].ID)

	// 末尾超過は最終ページへ
	out, err = uc.ListProducts(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Page)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(7), out.Items[0].ID)
}

func TestCatalogUsecase_ListProducts_Empty(t *testing.T) {
	pRepo := new(CatProductRepoMock)
	pRepo.On("ListActive", mock.Anything, repo.ProductListQuery{}).Return([]model.Product{}, nil)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, nil, 0)

	out, err := uc.ListProducts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 1, out.TotalPages)
	assert.Empty(t, out.Items)
}

// =====================
// カテゴリ表示
// =====================

func TestCatalogUsecase_CategoryProducts_ZeroIsAllCategories(t *testing.T) {
	pRepo := new(CatProductRepoMock)
	pRepo.On("ListActive", mock.Anything, repo.ProductListQuery{}).Return(products(2), nil)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, nil, 0)

	out, err := uc.CategoryProducts(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Category.ID)
	assert.Equal(t, "all", out.Category.Name)
	assert.Len(t, out.Items, 2)
}

func TestCatalogUsecase_CategoryProducts_OrdersByPrice(t *testing.T) {
	catID := int64(3)
	cRepo := new(CatCategoryRepoMock)
	cRepo.On("FindByID", mock.Anything, catID).Return(model.ProductCategory{ID: catID, Name: "coffee", IsActive: true}, nil)

	pRepo := new(CatProductRepoMock)
	pRepo.On("ListActive", mock.Anything, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return q.CategoryID != nil && *q.CategoryID == catID && q.OrderByPrice
	})).Return(products(1), nil)

	uc := usecase.NewCatalogUsecase(cRepo, pRepo, nil, 0)

	out, err := uc.CategoryProducts(context.Background(), catID, 1)
	require.NoError(t, err)
	assert.Equal(t, "coffee", out.Category.Name)
	pRepo.AssertExpectations(t)
}

func TestCatalogUsecase_CategoryProducts_UnknownCategory(t *testing.T) {
	cRepo := new(CatCategoryRepoMock)
	cRepo.On("FindByID", mock.Anything, int64(99)).Return(model.ProductCategory{}, repo.ErrNotFound)

	uc := usecase.NewCatalogUsecase(cRepo, new(CatProductRepoMock), nil, 0)

	_, err := uc.CategoryProducts(context.Background(), 99, 1)
	assert.Equal(t, 404, httpStatus(t, err))
}

// =====================
// リードスルーキャッシュ
// =====================

func TestCatalogUsecase_ListProducts_CacheHitSkipsStore(t *testing.T) {
	cached, err := json.Marshal(products(4))
	require.NoError(t, err)

	cache := new(CacheMock)
	cache.On("Get", mock.Anything, "products").Return(cached, nil)

	pRepo := new(CatProductRepoMock) // ストアは呼ばれない

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, cache, time.Minute)

	out, err := uc.ListProducts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Total)
	pRepo.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
}

func TestCatalogUsecase_ListProducts_CacheMissFillsCache(t *testing.T) {
	cache := new(CacheMock)
	cache.On("Get", mock.Anything, "products").Return([]byte(nil), repo.ErrCacheMiss)
	cache.On("Set", mock.Anything, "products", mock.Anything, time.Minute).Return(nil)

	pRepo := new(CatProductRepoMock)
	pRepo.On("ListActive", mock.Anything, repo.ProductListQuery{}).Return(products(2), nil)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, cache, time.Minute)

	out, err := uc.ListProducts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	cache.AssertExpectations(t)
}

func TestCatalogUsecase_Menu_BrokenCacheEntryFallsThrough(t *testing.T) {
	cache := new(CacheMock)
	cache.On("Get", mock.Anything, "links_menu").Return([]byte("{not json"), nil)
	cache.On("Set", mock.Anything, "links_menu", mock.Anything, time.Minute).Return(nil)

	cRepo := new(CatCategoryRepoMock)
	cRepo.On("ListActive", mock.Anything).Return([]model.ProductCategory{{ID: 1, Name: "coffee"}}, nil)

	uc := usecase.NewCatalogUsecase(cRepo, new(CatProductRepoMock), cache, time.Minute)

	menu, err := uc.Menu(context.Background())
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.Equal(t, "coffee", menu[0].Name)
}

// =====================
// ホット商品
// =====================

func TestCatalogUsecase_HotProduct(t *testing.T) {
	pRepo := new(CatProductRepoMock)
	hot := model.Product{ID: 5, CategoryID: 2, Name: "beans", IsActive: true}
	pRepo.On("FindRandomActive", mock.Anything).Return(hot, nil)
	pRepo.On("ListActiveInCategory", mock.Anything, int64(2), int64(5)).Return(products(2), nil)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, nil, 0)

	out, err := uc.HotProduct(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Hot.ID)
	assert.Len(t, out.Same, 2)
}

func TestCatalogUsecase_HotProduct_NoActiveProducts(t *testing.T) {
	pRepo := new(CatProductRepoMock)
	pRepo.On("FindRandomActive", mock.Anything).Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewCatalogUsecase(new(CatCategoryRepoMock), pRepo, nil, 0)

	_, err := uc.HotProduct(context.Background())
	assert.Equal(t, 404, httpStatus(t, err))
}
