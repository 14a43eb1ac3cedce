package handlers

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(logger *zap.Logger) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		start := time.Now()
		err := e.Next()

		fields := []zap.Field{
			zap.String("method", e.Request.Method),
			zap.String("path", e.Request.URL.Path),
			zap.Int("status", e.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("request failed", append(fields, zap.Error(err))...)
			return err
		}
		logger.Info("request", fields...)
		return nil
	}
}
