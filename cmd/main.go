// 程序入口：归属结果只读查询服务；仅负责读取配置、初始化依赖并启动服务，路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"zip-territory/internal/api"
	"zip-territory/internal/config"
	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
	"zip-territory/internal/middleware"
	"zip-territory/internal/migrate"
	"zip-territory/internal/utils"
)

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	l.Debug("log_init_ok")

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	exportPath := os.Getenv("EXPORT_PATH")
	if exportPath == "" {
		exportPath = filepath.Join("data", "territory_assignments.csv")
	}
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "territory.db")
	}
	ttl := 300
	if s := os.Getenv("CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			ttl = n
		}
	}
	l.Debug("config_api", "base", apiBase, "export", exportPath, "cache_ttl_s", ttl)

	st, err := utils.OpenStoreFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	// 流水线尚未运行时也能启动，返回空结果
	if err := migrate.EnsureSchema(context.Background(), st.DB()); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedisFromEnv()
	if rc != nil {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		defer rc.Close()
	}
	if os.Getenv(middleware.TokenEnv) == "" {
		l.Warn("api_token_missing", "env", middleware.TokenEnv)
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(st, rc, api.Options{
		ExportPath: exportPath,
		DataPath:   dbPath,
		CacheTTL:   time.Duration(ttl) * time.Second,
	})
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "territory-api.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
