package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quinloq/examgate/config"
	"github.com/quinloq/examgate/database"
	_ "github.com/quinloq/examgate/docs" // Swagger docs - auto-generated
	"github.com/quinloq/examgate/internal/controller"
	"github.com/quinloq/examgate/internal/event"
	"github.com/quinloq/examgate/internal/logger"
	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/quinloq/examgate/internal/scheduler"
	"github.com/quinloq/examgate/internal/secure"
	"github.com/quinloq/examgate/internal/service"
	"github.com/quinloq/examgate/internal/storage"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title ExamGate API
// @version 1.0
// @description Exam attempt lifecycle, auto-grading and offline sync reconciliation API.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
			NewCipher,
			event.NewBus,
			NewScheduler,
			NewObjectStorage,
		),

		// Repositories layer
		fx.Provide(
			repository.NewSessionRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewSyncRepository,
			repository.NewActivityRepository,
			repository.NewJobRepository,
		),

		// Services layer
		fx.Provide(
			service.NewPackageBuilder,
			service.NewAttemptService,
			service.NewGeminiFeedbackService,
			service.NewGradingService,
			service.NewSyncService,
			service.NewUploadService,
		),

		// API controllers layer
		fx.Provide(
			controller.NewStudentController,
			controller.NewSyncController,
			controller.NewTeacherController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterJobHandlers),
		fx.Invoke(StartBackgroundWorkers),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func NewCipher(cfg *config.Config) *secure.Cipher {
	return secure.NewCipher(cfg.AnswerKeySecret)
}

func NewScheduler(jobs repository.JobRepository) *scheduler.Scheduler {
	return scheduler.NewScheduler(jobs)
}

// NewObjectStorage picks B2 when credentials are configured, local disk
// otherwise.
func NewObjectStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	if cfg.Storage.B2AccountID != "" && cfg.Storage.B2AppKey != "" && cfg.Storage.B2Bucket != "" {
		log.Info().Str("bucket", cfg.Storage.B2Bucket).Msg("Using B2 object storage")
		return storage.NewB2Storage(context.Background(), cfg.Storage.B2AccountID, cfg.Storage.B2AppKey, cfg.Storage.B2Bucket)
	}
	log.Info().Str("dir", cfg.Storage.LocalDir).Msg("Using local object storage")
	return storage.NewLocalStorage(cfg.Storage.LocalDir)
}

// RegisterJobHandlers binds the scheduler job kinds to their handlers. Must
// run before the scheduler starts polling.
func RegisterJobHandlers(
	sched *scheduler.Scheduler,
	attemptSvc service.AttemptService,
	gradingSvc service.GradingService,
	syncSvc service.SyncService,
) {
	sched.Register(service.KindTimeout, 4, attemptSvc.HandleTimeout)
	sched.Register(service.KindGrade, 4, gradingSvc.HandleGradeJob)
	sched.Register(service.KindSyncProcess, 8, syncSvc.Process)
}

func StartBackgroundWorkers(
	lc fx.Lifecycle,
	sched *scheduler.Scheduler,
	bus *event.Bus,
	uploadSvc service.UploadService,
) {
	bus.Subscribe(event.LogSubscriber)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sched.Start()
			uploadSvc.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			uploadSvc.Stop()
			bus.Close()
			return nil
		},
	})
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	studentCtrl *controller.StudentController,
	syncCtrl *controller.SyncController,
	teacherCtrl *controller.TeacherController,
) {
	apiV1 := router.Group("/api/v1")
	studentCtrl.RegisterRoutes(apiV1)
	syncCtrl.RegisterRoutes(apiV1)
	teacherCtrl.RegisterRoutes(apiV1)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("ExamGate API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.ExamSession{},
		&model.SessionToken{},
		&model.Question{},
		&model.Attempt{},
		&model.Answer{},
		&model.SyncQueueItem{},
		&model.ActivityLog{},
		&model.ScheduledJob{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
