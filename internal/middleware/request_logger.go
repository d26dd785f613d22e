package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxRequestIDKey = "request_id"
)

// リクエストIDを付けて、終わったら1行ログを出す
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, rid)
			c.Response().Header().Set(HeaderRequestID, rid)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}

			status := c.Response().Status
			switch {
			case status >= 500:
				logger.Error("request", append(fields, zap.Error(err))...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			//c.Errorで処理済み
			return nil
		}
	}
}
