package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"supplychain/internal/handler"
	"supplychain/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Orders    *handler.OrderHandler
	Inventory *handler.InventoryHandler
}

// echoの組み立て（ルート登録まで）
func New(h Handlers, jwtSecret string, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Orders.RegisterRoutes(e, jwtSecret)
	h.Inventory.RegisterRoutes(e, jwtSecret)
	return e
}

// ctxが終わるまで待ってからgraceful shutdown
func Start(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}

// ":8080" / "8080" どちらも受ける
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}
