// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcel-api/internal/api"
	"parcel-api/internal/cadastre"
	"parcel-api/internal/config"
	"parcel-api/internal/ingest"
	"parcel-api/internal/logger"
	"parcel-api/internal/middleware"
	"parcel-api/internal/session"
	"parcel-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := cadastre.NewSource(cfg.ParcelsURL, cfg.ParcelsPath)
	l.Info("dataset_source", "source", src.String())
	ds := cadastre.NewDataset(src, cadastre.WithLoadTimeout(cfg.DatasetLoadTimeout), cadastre.WithLogger(l))
	// 背景：后台预热，首个指针事件通常无需等待加载；失败不影响启动，下一次请求重试
	go func() {
		if _, err := ds.EnsureLoaded(ctx); err != nil {
			l.Error("dataset_warmup_error", "err", err)
		}
	}()

	rc := utils.OpenRedisFromConfig(ctx, cfg, l)
	if rc != nil {
		defer rc.Close()
	}

	loc := cadastre.NewLocator(ds, cfg.LocatorCacheSize, cfg.LocatorCacheTTL)
	ingest.StartPeriodic(ctx, ds, cfg.DatasetRefresh, func(*cadastre.Collection) { loc.Purge() }, l)
	sessions := session.NewRegistry(ds, cfg.FrameInterval(), l)
	defer sessions.CloseAll()

	apiMux := api.BuildRoutes(api.Deps{
		Dataset:        ds,
		Locator:        loc,
		Resolver:       api.NewResolveService(loc, rc, cfg.ResolveTTL, cfg.RedisKeyScope, l),
		Sessions:       sessions,
		AdminToken:     cfg.AdminToken,
		AllowedOrigins: cfg.WSAllowedOrigins,
		Log:            l,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(cfg, l, handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "parcel-api.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_ok")
}
