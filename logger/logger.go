package logger

import (
	"os"

	"go.uber.org/zap"
)

// InitLogger returns a production zap logger, or a development one when
// APP_ENV=development.
func InitLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
