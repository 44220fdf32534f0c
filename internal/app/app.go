package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workshopplus_backend/internal/config"
	"workshopplus_backend/internal/controller"
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/service"
	"workshopplus_backend/pkg/database"
	"workshopplus_backend/pkg/logger"
	"workshopplus_backend/pkg/monitoring"
	"workshopplus_backend/pkg/security"
	"workshopplus_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	workshop    *repository.WorkshopRepository
	submission  *repository.SubmissionRepository
	assessment  *repository.AssessmentRepository
	aggregation *repository.AggregationRepository
	strategy    *repository.StrategyRepository
	gradeItem   *repository.GradeItemRepository
	evaluation  *repository.EvaluationRepository

	gradeStore      *repository.GradeStore
	allocationStore *repository.AllocationStore
	evaluationStore *repository.EvaluationStore
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	workshop    *service.WorkshopService
	submission  *service.SubmissionService
	assessment  *service.AssessmentService
	allocation  *service.AllocationService
	aggregation *service.AggregationService
	evaluation  *service.EvaluationService
	gradebook   *service.GradebookService
	storage     service.StorageProvider
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	workshop   *controller.WorkshopController
	submission *controller.SubmissionController
	assessment *controller.AssessmentController
	strategy   *controller.StrategyController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新回调入口，configwatcher 重新加载后调用
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	if a.services != nil && a.services.aggregation != nil {
		ratio := cfg.Grading.TAWeightRatio
		if ratio <= 0 {
			ratio = 5
		}
		a.services.aggregation.TAWeightRatio = ratio
	}
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("config reloaded", zap.Float64("taWeightRatio", cfg.Grading.TAWeightRatio))
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	r := &repositories{
		user:        repository.NewUserRepository(db),
		workshop:    repository.NewWorkshopRepository(db),
		submission:  repository.NewSubmissionRepository(db),
		assessment:  repository.NewAssessmentRepository(db),
		aggregation: repository.NewAggregationRepository(db),
		strategy:    repository.NewStrategyRepository(db),
		gradeItem:   repository.NewGradeItemRepository(db),
		evaluation:  repository.NewEvaluationRepository(db),
	}
	r.gradeStore = repository.NewGradeStore(r.assessment, r.submission, r.aggregation)
	r.allocationStore = repository.NewAllocationStore(r.assessment, r.submission)
	r.evaluationStore = repository.NewEvaluationStore(r.assessment, r.strategy, r.evaluation)
	return r
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	storage, err := service.NewStorageProvider(&cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)

	s.aggregation = service.NewAggregationService(repos.gradeStore, cfg.Grading.TAWeightRatio)
	s.gradebook = service.NewGradebookService(repos.submission, repos.aggregation, repos.gradeItem)
	s.workshop = service.NewWorkshopService(repos.workshop, repos.submission, s.gradebook, rdb)
	s.aggregation.Invalidator = s.workshop

	s.submission = service.NewSubmissionService(repos.submission, s.storage, s.aggregation)
	s.assessment = service.NewAssessmentService(repos.assessment, repos.submission, repos.workshop, repos.strategy, s.aggregation)
	s.allocation = service.NewAllocationService(repos.allocationStore)
	s.evaluation = service.NewEvaluationService(repos.evaluationStore)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		user:       controller.NewUserController(s.user),
		workshop:   controller.NewWorkshopController(s.workshop, s.aggregation, s.evaluation, s.gradebook, s.auth),
		submission: controller.NewSubmissionController(s.submission, s.assessment, s.workshop, s.auth),
		assessment: controller.NewAssessmentController(s.assessment, s.allocation, s.submission, s.workshop, s.auth),
		strategy:   controller.NewStrategyController(repos.strategy, repos.evaluation, s.workshop, s.auth),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时任务：提交截止已过的工作坊触发定时分配，
// 配置了自动切换的顺带切入评审阶段
func (a *App) startBackgroundTasks(s *services, repos *repositories) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			ws, err := repos.workshop.ListPendingScheduledAllocation()
			if err != nil {
				logger.Log.Error("scheduled allocation scan error", zap.Error(err))
				continue
			}
			for i := range ws {
				w := &ws[i]
				if w.ScheduledAllocation {
					allocator, err := s.allocation.Resolve(service.AllocatorScheduled)
					if err != nil {
						continue
					}
					result := allocator.Execute(w, service.SettingsFromWorkshop(w))
					if result.Status == service.StatusFailed {
						logger.Log.Error("scheduled allocation failed",
							zap.Uint("workshopId", w.ID), zap.String("message", result.Message))
						continue
					}
					if result.Status == service.StatusExecuted {
						monitoring.AggregationRuns.WithLabelValues("scheduled_allocation").Inc()
					}
				}
				if w.PhaseSwitchAssessment {
					if _, err := s.workshop.SwitchPhase(w, model.PhaseAssessment); err != nil {
						logger.Log.Error("automatic phase switch error",
							zap.Uint("workshopId", w.ID), zap.Error(err))
					}
				}
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("workshopplus", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, repos)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
