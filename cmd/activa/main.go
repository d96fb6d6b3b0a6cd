package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/entity"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/handler"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/repository"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/activa/service"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/config"
	"github.com/elmiguelacho7/sap-notes-sub000/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting activa service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 迁移表结构
	if err := db.AutoMigrate(
		&entity.ActivatePhase{},
		&entity.ActivityTemplate{},
		&entity.TaskStatus{},
		&entity.Project{},
		&entity.ProjectPhase{},
		&entity.Task{},
		&entity.Note{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 基础目录为空时播种
	seedCatalogs(db, zapLogger)

	// 初始化Redis（可选，目录缓存用）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	// 初始化依赖
	repos := repository.NewRepositories(db, rdb)
	services := service.NewServices(repos, zapLogger)
	handlers := handler.NewHandlers(services, repos)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 项目
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.ListProjects)
				projects.POST("", h.Project.CreateProject)
				projects.GET("/:id", h.Project.GetProject)
				projects.PUT("/:id", h.Project.UpdateProject)
				projects.DELETE("/:id", h.Project.DeleteProject)

				// 阶段
				projects.GET("/:id/phases", h.Project.ListPhases)
				projects.POST("/:id/phases/preview", h.Project.PreviewPhaseEdit)
				projects.PUT("/:id/phases", h.Project.SaveAllPhases)

				// 计划
				projects.GET("/:id/plan/windows", h.Plan.GetPhaseWindows)
				projects.POST("/:id/plan/generate", h.Plan.GeneratePlan)

				// 看板
				projects.GET("/:id/board", h.Board.GetBoard)
				projects.GET("/:id/board/metrics", h.Board.GetMetrics)

				// 任务
				projects.GET("/:id/tasks", h.Project.ListTasks)
				projects.POST("/:id/tasks", h.Project.CreateTask)
			}

			tasks := authorized.Group("/tasks")
			{
				tasks.GET("/:id", h.Project.GetTask)
				tasks.PUT("/:id", h.Project.UpdateTask)
				tasks.DELETE("/:id", h.Project.DeleteTask)
				tasks.PUT("/:id/status", h.Board.SetTaskStatus)
			}

			// 笔记
			notes := authorized.Group("/notes")
			{
				notes.GET("", h.Note.List)
				notes.POST("", h.Note.Create)
				notes.GET("/:id", h.Note.Get)
				notes.PUT("/:id", h.Note.Update)
				notes.DELETE("/:id", h.Note.Delete)
			}

			// 目录
			catalog := authorized.Group("/catalog")
			{
				catalog.GET("/phases", h.Catalog.ListPhases)
				catalog.GET("/templates", h.Catalog.ListTemplates)
				catalog.GET("/statuses", h.Catalog.ListStatuses)

				admin := catalog.Group("", middleware.RequireRole("admin"))
				{
					admin.POST("/templates", h.Catalog.CreateTemplate)
					admin.PUT("/templates/:id", h.Catalog.UpdateTemplate)
				}
			}
		}
	}
}

// seedCatalogs 基础目录为空时写入 SAP Activate 默认数据
func seedCatalogs(db *gorm.DB, zapLogger *zap.Logger) {
	var phaseCount int64
	db.Model(&entity.ActivatePhase{}).Count(&phaseCount)
	if phaseCount == 0 {
		phaseSeeds := []struct {
			Key    string
			Name   string
			Sort   int
			Weight float64
		}{
			{"discover", "Discover", 1, 10},
			{"prepare", "Prepare", 2, 15},
			{"explore", "Explore", 3, 20},
			{"realize", "Realize", 4, 35},
			{"deploy", "Deploy", 5, 10},
			{"run", "Run", 6, 10},
		}
		for _, s := range phaseSeeds {
			db.Create(&entity.ActivatePhase{
				ID:            uuid.New().String()[:32],
				PhaseKey:      s.Key,
				Name:          s.Name,
				SortOrder:     s.Sort,
				WeightPercent: s.Weight,
				CreatedAt:     time.Now(),
			})
		}
		zapLogger.Info("Seeded activate phase catalog", zap.Int("count", len(phaseSeeds)))
	}

	var statusCount int64
	db.Model(&entity.TaskStatus{}).Count(&statusCount)
	if statusCount == 0 {
		statusSeeds := []struct {
			Code  string
			Name  string
			Order int
		}{
			{entity.StatusCodeTodo, "Por hacer", 1},
			{entity.StatusCodeInProgress, "En progreso", 2},
			{entity.StatusCodeBlocked, "Bloqueado", 3},
			{entity.StatusCodeInReview, "En revisión", 4},
			{entity.StatusCodeDone, "Completado", 5},
		}
		for _, s := range statusSeeds {
			db.Create(&entity.TaskStatus{
				ID:         uuid.New().String()[:32],
				Code:       s.Code,
				Name:       s.Name,
				OrderIndex: s.Order,
				IsActive:   true,
				CreatedAt:  time.Now(),
			})
		}
		zapLogger.Info("Seeded task status catalog", zap.Int("count", len(statusSeeds)))
	}

	var tplCount int64
	db.Model(&entity.ActivityTemplate{}).Count(&tplCount)
	if tplCount == 0 {
		offset := func(p float64) *float64 { return &p }
		tplSeeds := []entity.ActivityTemplate{
			{ActivatePhaseKey: "discover", Name: "Kickoff del proyecto", ActivityType: entity.ActivityTypeMilestone, DefaultDurationDays: 0, OffsetPercentInPhase: offset(0)},
			{ActivatePhaseKey: "discover", Name: "Evaluación de procesos actuales", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 5, OffsetPercentInPhase: offset(10)},
			{ActivatePhaseKey: "prepare", Name: "Plan de proyecto detallado", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 5, OffsetPercentInPhase: offset(0)},
			{ActivatePhaseKey: "prepare", Name: "Preparación de infraestructura", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 10, OffsetPercentInPhase: offset(20)},
			{ActivatePhaseKey: "explore", Name: "Talleres fit-to-standard", ActivityType: entity.ActivityTypeWorkshop, DefaultDurationDays: 15, OffsetPercentInPhase: offset(0)},
			{ActivatePhaseKey: "explore", Name: "Documentación de gaps", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 10, OffsetPercentInPhase: offset(50)},
			{ActivatePhaseKey: "realize", Name: "Configuración del sistema", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 30, OffsetPercentInPhase: offset(0)},
			{ActivatePhaseKey: "realize", Name: "Pruebas integrales", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 15, OffsetPercentInPhase: offset(60)},
			{ActivatePhaseKey: "deploy", Name: "Migración de datos productiva", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 5, OffsetPercentInPhase: offset(0)},
			{ActivatePhaseKey: "deploy", Name: "Go-live", ActivityType: entity.ActivityTypeMilestone, DefaultDurationDays: 0, OffsetPercentInPhase: offset(80)},
			{ActivatePhaseKey: "run", Name: "Soporte hypercare", ActivityType: entity.ActivityTypeTask, DefaultDurationDays: 20, OffsetPercentInPhase: offset(0)},
		}
		for i := range tplSeeds {
			tplSeeds[i].ID = uuid.New().String()[:32]
			tplSeeds[i].IsActive = true
			tplSeeds[i].CreatedAt = time.Now()
			tplSeeds[i].UpdatedAt = time.Now()
			db.Create(&tplSeeds[i])
		}
		zapLogger.Info("Seeded activity template catalog", zap.Int("count", len(tplSeeds)))
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
