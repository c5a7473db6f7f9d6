package main

import (
	"os"
	"strconv"
	"time"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/handler"
	"shop/internal/infra/cache"
	"shop/internal/infra/db"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/repository"
	"shop/internal/server"
	"shop/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func newJWTIssuer(secret string) *jwtIssuer {
	//アクセストークン
	return &jwtIssuer{
		secret:    []byte(secret),
		accessTTL: 15 * time.Minute,
	}
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"tv":   tokenVersion,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file, using environment as-is")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.ProductCategory{},
		&model.Product{},
		&model.BasketItem{},
		&model.AuditLog{},
		&model.InventoryAdjustment{},
	); err != nil {
		panic(err)
	}

	//キャッシュ（無効ならnilのまま。usecase側が素通しする）
	var catalogCache repository.Cache
	if cfg.CacheEnabled {
		catalogCache = cache.NewRedisCache(cache.NewClient(cfg.RedisAddr))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("catalog cache enabled")
	}

	//Repository（GORM実装）生成
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	basketRepo := infraRepo.NewBasketGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()
	issuer := newJWTIssuer(cfg.JWTSecret)
	refreshTTL := 14 * 24 * time.Hour

	//Usecase生成
	catalogUC := usecase.NewCatalogUsecase(categoryRepo, productRepo, catalogCache, cfg.CacheTTL)
	basketUC := usecase.NewBasketUsecase(txManager, basketRepo)
	adminCatalogUC := usecase.NewAdminCatalogUsecase(txManager, categoryRepo, productRepo, inventoryRepo, catalogCache)
	adminUserUC := usecase.NewAdminUserUsecase(txManager, userRepo, auditRepo, hasher)
	authUC := usecase.NewAuthUsecase(userRepo, rtRepo, hasher, verifier, issuer, idGen, clock, refreshTTL)

	//Handler生成
	catalogH := handler.NewCatalogHandler(catalogUC)
	basketH := handler.NewBasketHandler(basketUC)
	authH := handler.NewAuthHandler(authUC, refreshTTL)
	adminCatalogH := handler.NewAdminCatalogHandler(adminCatalogUC)
	adminUserH := handler.NewAdminUserHandler(adminUserUC)

	//Server起動
	e := server.New(cfg, userRepo, catalogH, basketH, authH, adminCatalogH, adminUserH)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	if err := server.Start(e, addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
