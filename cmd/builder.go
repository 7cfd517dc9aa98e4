package cmd

import (
	"context"
	"fmt"
	"net/http"

	"ddd-users/api"
	apiforum "ddd-users/api/forum"
	"ddd-users/api/health"
	apiuser "ddd-users/api/user"
	forumapp "ddd-users/application/forum"
	userapp "ddd-users/application/user"
	"ddd-users/config"
	"ddd-users/domain/events"
	forumdomain "ddd-users/domain/forum"
	"ddd-users/domain/shared"
	userdomain "ddd-users/domain/user"
	"ddd-users/infrastructure/auth"
	metrics "ddd-users/infrastructure/metrics/prometheus"
	"ddd-users/infrastructure/outbox"
	"ddd-users/infrastructure/persistence/gormstore"
	"ddd-users/infrastructure/persistence/memory"
	"ddd-users/infrastructure/persistence/retry"
	"ddd-users/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxKinds 写入 outbox 的事件类型
var OutboxKinds = []shared.EventKind{
	userdomain.KindUserCreated,
	userdomain.KindUserDeleted,
	userdomain.KindUserLoggedIn,
	userdomain.KindEmailVerified,
	forumdomain.KindMemberCreated,
}

// AppBuilder assembles the application from config.
// Order: storage → registry → repositories → UoW → subscriptions → services → router.
type AppBuilder struct {
	cfg        *config.Config
	skipLogger bool
}

func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// WithoutLoggerInit 跳过 logger.Init，测试里使用
func (b *AppBuilder) WithoutLoggerInit() *AppBuilder {
	b.skipLogger = true
	return b
}

type storage struct {
	db      *gorm.DB
	users   userdomain.Repository
	members forumdomain.MemberRepository
	uow     shared.UnitOfWork
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if !b.skipLogger {
		if err := logger.Init(&b.cfg.Log, b.cfg.App.Env); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env),
		zap.String("database", b.cfg.Database.Type))

	var (
		promRegistry *prometheus.Registry
		httpMetrics  *metrics.HTTPMetrics
		registryOpts = []events.Option{events.WithLogger(logger.Named("events"))}
	)
	if b.cfg.Server.MetricsEnabled {
		promRegistry = prometheus.NewRegistry()
		promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registryOpts = append(registryOpts, events.WithMetrics(metrics.NewDispatchMetrics(promRegistry)))
		httpMetrics = metrics.NewHTTPMetrics(promRegistry)
	}
	registry := events.NewRegistry(registryOpts...)

	store, err := b.initStorage(ctx, registry)
	if err != nil {
		return nil, err
	}

	app := &App{config: b.cfg, db: store.db, registry: registry}

	// subscriptions
	forumapp.NewAfterUserCreated(store.members, store.uow, registry.Marker()).Subscribe(registry)
	if b.cfg.Outbox.Enabled {
		outboxStore := outbox.NewStore(store.db)
		outbox.NewRecorder(outboxStore).Subscribe(registry, OutboxKinds...)

		publisher, closePublisher, err := NewPublisher(ctx, b.cfg.Outbox)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, closePublisher)

		app.worker, err = outbox.NewWorker(outboxStore, publisher, b.cfg.Outbox)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create outbox worker: %w", err)
		}
	}

	tokens := auth.NewTokenIssuer(b.cfg.Auth)
	userService := userapp.NewService(store.users, store.uow, tokens, registry.Marker())
	memberService := forumapp.NewMemberService(store.members)

	checks := map[string]health.CheckFunc{}
	if store.db != nil {
		db := store.db
		checks["database"] = func(ctx context.Context) error { return gormstore.Ping(ctx, db) }
	}

	var gatherer prometheus.Gatherer
	if promRegistry != nil {
		gatherer = promRegistry
	}
	router := api.NewRouter(b.cfg,
		health.NewController(b.cfg, checks),
		apiuser.NewController(userService, tokens),
		apiforum.NewController(memberService),
		httpMetrics,
		gatherer,
	)
	router.SetupRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:         ":" + b.cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  b.cfg.Server.ReadTimeout,
		WriteTimeout: b.cfg.Server.WriteTimeout,
	}
	return app, nil
}

func (b *AppBuilder) initStorage(ctx context.Context, registry *events.Registry) (*storage, error) {
	if b.cfg.Database.Type == "memory" {
		logger.Info("Using in-memory persistence layer")
		return &storage{
			users:   memory.NewUserRepository(registry.Marker(), registry),
			members: memory.NewMemberRepository(registry.Marker(), registry),
			uow:     memory.NewUnitOfWork(registry),
		}, nil
	}

	db, err := OpenDatabase(ctx, b.cfg)
	if err != nil {
		return nil, err
	}
	if err := gormstore.RegisterDispatchHooks(db, registry); err != nil {
		_ = gormstore.Close(db)
		return nil, fmt.Errorf("failed to register dispatch hooks: %w", err)
	}

	uow := gormstore.NewUnitOfWork(db, registry)
	uow.SetRetryConfig(retry.FromRetryConfig(b.cfg.Database.Retry))

	return &storage{
		db:      db,
		users:   gormstore.NewUserRepository(db, registry.Marker()),
		members: gormstore.NewMemberRepository(db, registry.Marker()),
		uow:     uow,
	}, nil
}

// OpenDatabase connects, pings and (optionally) migrates.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := gormstore.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Type, err)
	}
	if err := gormstore.Ping(ctx, db); err != nil {
		_ = gormstore.Close(db)
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Database.Type, err)
	}
	logger.Info("Connected to database", zap.String("type", cfg.Database.Type))

	if cfg.Database.AutoMigrate {
		if err := gormstore.Migrate(ctx, db); err != nil {
			_ = gormstore.Close(db)
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}

// NewPublisher 根据配置选择 outbox 发布器
func NewPublisher(ctx context.Context, cfg config.OutboxConfig) (outbox.Publisher, func() error, error) {
	switch cfg.Publisher {
	case "redis":
		rdb, err := outbox.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return outbox.NewRedisPublisher(rdb, cfg.RedisChannel), rdb.Close, nil
	case "", "logging":
		return outbox.LoggingPublisher{}, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown outbox publisher: %q", cfg.Publisher)
	}
}
