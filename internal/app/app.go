package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"threegen/internal/config"
	"threegen/internal/db"
	documentdomain "threegen/internal/domain/document"
	userdomain "threegen/internal/domain/user"
	"threegen/internal/repository/inmemory"
	documentrepo "threegen/internal/repository/postgres/document"
	userrepo "threegen/internal/repository/postgres/user"
	"threegen/internal/transport/httpserver"
	"threegen/internal/transport/httpserver/handler"
	"threegen/pkg/logger"
)

// App is the remote document service.
type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
}

func New(cfg config.Config, log logger.Logger) (*App, error) {
	dbConn, err := openMigrated(cfg, log)
	if err != nil {
		return nil, err
	}

	documents := documentdomain.NewService(documentrepo.NewPostgres(dbConn))
	users := userdomain.NewService(userrepo.NewPostgres(dbConn))
	sessions := inmemory.NewInMemorySessionCache()

	log.Info("app: initializing router")
	router := httpserver.NewRouter(cfg, handler.New(documents, log), users, sessions, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
	}, nil
}

// Migrate applies pending SQL migrations and closes the connection.
func Migrate(cfg config.Config, log logger.Logger) error {
	dbConn, err := openMigrated(cfg, log)
	if err != nil {
		return err
	}
	closeDB(dbConn)
	return nil
}

func openMigrated(cfg config.Config, log logger.Logger) (*gorm.DB, error) {
	log.Info("app: initializing database", "host", cfg.DB.Host, "name", cfg.DB.Name)
	dbConn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(dbConn, log); err != nil {
		closeDB(dbConn)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return dbConn, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(dbConn *gorm.DB) {
	if sqlDB, err := dbConn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
