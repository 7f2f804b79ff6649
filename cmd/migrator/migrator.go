package main

import (
	"os"

	"github.com/NordCoder/firmbook/internal/obs"
	"github.com/NordCoder/firmbook/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	logger, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "firmbook-migrator"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Fatal("DB_DSN is empty")
	}
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := goose.Run(cmd, db, "."); err != nil {
		logger.Fatal("migrate", zap.String("cmd", cmd), zap.Error(err))
	}
	logger.Info("migrations done", zap.String("cmd", cmd))
}
