package app

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursefront-backend/internal/data/db"
	"github.com/yungbote/coursefront-backend/internal/data/repos"
	httpapi "github.com/yungbote/coursefront-backend/internal/http"
	httpH "github.com/yungbote/coursefront-backend/internal/http/handlers"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
	"github.com/yungbote/coursefront-backend/internal/realtime/bus"
	"github.com/yungbote/coursefront-backend/internal/services"
)

type Repos struct {
	Course repos.CourseRepo
	Lesson repos.LessonRepo
}

type Services struct {
	Lesson      services.LessonService
	Order       services.LessonOrderService
	Migration   services.AudioMigrationService
	Coordinator services.ReorderCoordinator
	Notifier    services.LessonNotifier
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Store    contentstore.Store
	Bus      bus.Bus
	Repos    Repos
	Services Services
	Router   *gin.Engine
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log)

	a.pg, err = db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.DB = a.pg.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(a.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}

	a.Store, err = contentstore.New(ctx, cfg.ContentStore, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init content store: %w", err)
	}

	a.Bus, err = bus.NewRedisBus(log, cfg.Redis)
	if err != nil {
		// Events are best effort; run without them.
		log.Warn("redis bus unavailable; lesson events disabled", "error", err)
		a.Bus = nil
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.Store, a.Bus)
	a.Router = a.wireRouter()
	return a, nil
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course: repos.NewCourseRepo(theDB, log),
		Lesson: repos.NewLessonRepo(theDB, log),
	}
}

func wireServices(theDB *gorm.DB, log *logger.Logger, cfg Config, rs Repos, store contentstore.Store, b bus.Bus) Services {
	log.Info("Wiring services...")
	order := services.NewLessonOrderService(theDB, log, rs.Course, rs.Lesson)
	migration := services.NewAudioMigrationService(log, store, cfg.audioMigrationConfig())
	notifier := services.NewLessonNotifier(log, b)
	coord := services.NewReorderCoordinator(
		log,
		rs.Course,
		rs.Lesson,
		order,
		migration,
		notifier,
		services.ReorderCoordinatorConfig{MigrationTimeout: cfg.Migration.Timeout},
	)
	return Services{
		Lesson:      services.NewLessonService(log, rs.Course, rs.Lesson, order),
		Order:       order,
		Migration:   migration,
		Coordinator: coord,
		Notifier:    notifier,
	}
}

func (a *App) wireRouter() *gin.Engine {
	a.Log.Info("Wiring router...")
	var pinger httpH.Pinger
	if sqlDB, err := a.DB.DB(); err == nil {
		pinger = sqlDB
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:                a.Log,
		ServiceName:        a.Cfg.Otel.ServiceName,
		CORSOrigins:        a.Cfg.CORSOrigins,
		Metrics:            a.Metrics,
		LessonHandler:      httpH.NewLessonHandler(a.Services.Lesson),
		LessonAdminHandler: httpH.NewLessonAdminHandler(a.Services.Lesson, a.Services.Coordinator),
		HealthHandler:      httpH.NewHealthHandler(pinger),
	})
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
		return httpapi.NewServer(a.Cfg.HTTP, a.Router).Run(gctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("close redis bus", "error", err)
		}
	}
	if c, ok := a.Store.(io.Closer); ok {
		_ = c.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
