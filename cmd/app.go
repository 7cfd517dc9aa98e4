package cmd

import (
	"context"
	"errors"
	"net/http"

	"ddd-users/api"
	"ddd-users/config"
	"ddd-users/domain/events"
	"ddd-users/infrastructure/outbox"
	"ddd-users/infrastructure/persistence/gormstore"
	"ddd-users/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type App struct {
	config   *config.Config
	router   *api.Router
	server   *http.Server
	worker   *outbox.Worker
	registry *events.Registry
	db       *gorm.DB
	closers  []func() error
}

// Run 启动 HTTP 服务和（可选的）outbox worker，ctx 取消后优雅退出
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Run(ctx)
		})
	}

	err := g.Wait()
	if pending := a.registry.MarkedAggregates(); len(pending) > 0 {
		logger.Warn("Aggregates still marked at shutdown", zap.Int("count", len(pending)))
	}
	return err
}

// Close releases the database and publisher connections.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
	if a.db != nil {
		if err := gormstore.Close(a.db); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
		a.db = nil
	}
	_ = logger.Sync()
}

// Handler 获取 HTTP 处理器（用于测试）
func (a *App) Handler() *gin.Engine {
	return a.router.GetEngine()
}
