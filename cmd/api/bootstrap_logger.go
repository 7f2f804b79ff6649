package main

import (
	config "github.com/NordCoder/firmbook/internal/config/api"
	"github.com/NordCoder/firmbook/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := obs.NewLogger(cfg.LogConfig())
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
