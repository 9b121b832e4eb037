package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/docs"
	"github.com/fatflowers/lifecycle/internal/app/api/handlers"
	mw "github.com/fatflowers/lifecycle/internal/app/api/middleware"
	"github.com/fatflowers/lifecycle/internal/app/scheduler"
	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/reminder"
	"github.com/fatflowers/lifecycle/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/metrics"
)

const shutdownTimeout = 120 * time.Second

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func newAdminDeps(s *scheduler.Scheduler, runner *scheduler.Runner, h *health.Service, rem *reminder.Service, stats *statistics.Service) handlers.AdminDeps {
	return handlers.AdminDeps{Jobs: s, Runner: runner, Health: h, Reminders: rem, Stats: stats}
}

func newPrometheus(log *zap.SugaredLogger, reg *prometheus.Registry) *metrics.Prometheus {
	return metrics.NewPrometheus(metrics.NewPrometheusOptions{
		Registry: reg,
		ReqCntURLLabelMappingFn: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		},
		Logger: log,
	})
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, p *metrics.Prometheus, deps handlers.AdminDeps) {
	r.Use(p.HandlerFunc())

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterAdminRoutes(admin, deps)
}

func serve(lc fx.Lifecycle, log *zap.SugaredLogger, name string, srv *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "server", name, "addr", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "server", name, "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server", "server", name)
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	serve(lc, log, "api", &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second})
}

// runMetricsServer exposes the registry on its own listener so scrapes
// never share the admin port.
func runMetricsServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, p *metrics.Prometheus) {
	if cfg.MetricsAddr == "" {
		log.Warnw("metrics_addr is empty, metrics are not exposed")
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	serve(lc, log, "metrics", &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
}

var Module = fx.Options(
	fx.Provide(newEngine, newAdminDeps, newPrometheus),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
	fx.Invoke(runMetricsServer),
)
