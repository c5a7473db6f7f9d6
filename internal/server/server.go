package server

import (
	"os"

	"shop/internal/config"
	"shop/internal/handler"
	"shop/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// New は全ルートを張ったechoを作る。
func New(
	cfg config.Config,
	userRepo repository.UserRepository,
	catalogH *handler.CatalogHandler,
	basketH *handler.BasketHandler,
	authH *handler.AuthHandler,
	adminCatalogH *handler.AdminCatalogHandler,
	adminUserH *handler.AdminUserHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(requestLogger())

	catalogH.RegisterRoutes(e)
	authH.RegisterRoutes(e)
	basketH.RegisterRoutes(e, cfg, userRepo)
	adminCatalogH.RegisterRoutes(e, cfg, userRepo)
	adminUserH.RegisterRoutes(e, cfg, userRepo)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}

// アクセスログをzerologへ流す
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogMethod: true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			ev.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	})
}
