package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"alpine_stay/internal/adapters/export"
	server "alpine_stay/internal/adapters/http_server"
	"alpine_stay/internal/adapters/observability"
	redisad "alpine_stay/internal/adapters/redis"
	"alpine_stay/internal/app"
	"alpine_stay/internal/shared"
	mysqlrepo "alpine_stay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	handlers := &server.Handlers{
		Search:   app.NewSearchService(repo, cache, cfg.CacheTTL),
		Avail:    app.NewAvailabilityService(repo),
		Res:      app.NewReservationService(repo, cache),
		Inv:      app.NewInventoryService(repo, cache),
		Store:    repo,
		Export:   export.NewWriter(cfg.ExportDir),
		Sessions: server.NewSessionRegistry(repo),
	}

	// http
	srv := server.New(cfg.RateRPS)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
