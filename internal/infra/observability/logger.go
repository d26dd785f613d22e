package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// prodならJSON、それ以外は読みやすいコンソール出力
func NewLogger(prod bool) (*zap.Logger, error) {
	if prod {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
