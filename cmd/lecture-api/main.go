package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lecture-booking-api/api/swagger"
	"github.com/noah-isme/lecture-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lecture-booking-api/internal/middleware"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	"github.com/noah-isme/lecture-booking-api/internal/service"
	"github.com/noah-isme/lecture-booking-api/pkg/cache"
	"github.com/noah-isme/lecture-booking-api/pkg/config"
	"github.com/noah-isme/lecture-booking-api/pkg/database"
	"github.com/noah-isme/lecture-booking-api/pkg/export"
	"github.com/noah-isme/lecture-booking-api/pkg/jobs"
	"github.com/noah-isme/lecture-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lecture-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lecture-booking-api/pkg/middleware/requestid"
)

// @title Lecture Booking API
// @version 1.0.0
// @description Lecture scheduling and student booking service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type repositories struct {
	users       *repository.UserRepository
	teachers    *repository.TeacherRepository
	lectures    *repository.LectureRepository
	assignments *repository.LectureTeacherRepository
	schedules   *repository.ScheduleRepository
	bookings    *repository.BookingRepository
	locks       *repository.LockRepository
}

type services struct {
	auth      *service.AuthService
	users     *service.UserService
	teachers  *service.TeacherService
	lectures  *service.LectureService
	access    *service.LectureAccessService
	schedules *service.ScheduleService
	bookings  *service.BookingService
	metrics   *service.MetricsService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos := newRepositories(db)
	svcs := newServices(cfg, db, redisClient, repos, logr)

	var expiryQueue *jobs.Queue
	if cfg.Schedules.ExpiryEnabled {
		expiryQueue = jobs.NewQueue("schedule-expiry", service.NewScheduleExpiryHandler(svcs.schedules, logr), jobs.QueueConfig{
			Workers:    1,
			MaxRetries: cfg.Schedules.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		expiryQueue.Start(ctx)
		go expiryQueue.Every(ctx, cfg.Schedules.ExpiryInterval, service.ScheduleExpiryJob)
	}

	r := newRouter(cfg, db, redisClient, repos, svcs, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if expiryQueue != nil {
		expiryQueue.Stop()
	}
}

func newRepositories(db *sqlx.DB) repositories {
	return repositories{
		users:       repository.NewUserRepository(db),
		teachers:    repository.NewTeacherRepository(db),
		lectures:    repository.NewLectureRepository(db),
		assignments: repository.NewLectureTeacherRepository(db),
		schedules:   repository.NewScheduleRepository(db),
		bookings:    repository.NewBookingRepository(db),
		locks:       repository.NewLockRepository(),
	}
}

func newServices(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, repos repositories, logr *zap.Logger) services {
	validate := validator.New()
	location := cfg.Booking.Location()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	access := service.NewLectureAccessService(db, repos.lectures, repos.assignments, logr)
	conflicts := service.NewConflictDetector(repos.schedules, repos.bookings)
	admission := service.NewBookingAdmission(repos.lectures, repos.assignments, conflicts, location)

	return services{
		auth: service.NewAuthService(repos.users, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            "lecture-booking-api",
		}),
		users:    service.NewUserService(db, repos.users, repos.teachers, validate, logr),
		teachers: service.NewTeacherService(repos.teachers, validate, logr),
		lectures: service.NewLectureService(service.LectureServiceDeps{
			DB:          db,
			Tx:          db,
			Locks:       repos.locks,
			Lectures:    repos.lectures,
			Assignments: repos.assignments,
			Teachers:    repos.teachers,
			Access:      access,
			Cache:       cacheSvc,
			Validator:   validate,
			Logger:      logr,
		}),
		access: access,
		schedules: service.NewScheduleService(service.ScheduleServiceDeps{
			DB:          db,
			Tx:          db,
			Locks:       repos.locks,
			Schedules:   repos.schedules,
			Lectures:    repos.lectures,
			Assignments: repos.assignments,
			Teachers:    repos.teachers,
			Access:      access,
			Conflicts:   conflicts,
			Cache:       cacheSvc,
			Validator:   validate,
			Metrics:     metrics,
			Logger:      logr,
			Location:    location,
		}),
		bookings: service.NewBookingService(db, repos.locks, repos.bookings, admission, access, export.NewRenderer(), validate, metrics, logr),
		metrics:  metrics,
	}
}

func newRouter(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, repos repositories, svcs services, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(svcs.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(svcs.metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svcs.auth)
	userHandler := handler.NewUserHandler(svcs.users)
	teacherHandler := handler.NewTeacherHandler(svcs.teachers)
	lectureHandler := handler.NewLectureHandler(svcs.lectures, svcs.access)
	scheduleHandler := handler.NewScheduleHandler(svcs.schedules)
	bookingHandler := handler.NewBookingHandler(svcs.bookings)

	admin := string(models.RoleAdmin)
	teacher := string(models.RoleTeacher)
	student := string(models.RoleStudent)
	audit := func(action, resource, idParam string) gin.HandlerFunc {
		return internalmiddleware.Audit(repos.users, logr, action, resource, idParam)
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/users/register", authHandler.Register)
	api.POST("/users/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(svcs.auth))

	users := secured.Group("/users")
	users.GET("/me", authHandler.Me)
	users.GET("", internalmiddleware.RBAC(admin), userHandler.List)
	users.GET("/:id", internalmiddleware.RBAC(admin, internalmiddleware.SelfRole), userHandler.Get)
	users.PATCH("/:id/role", internalmiddleware.RBAC(admin), userHandler.ChangeRole)

	teachers := secured.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.PUT("/me/profile", internalmiddleware.RBAC(teacher), teacherHandler.UpdateProfile)
	teachers.GET("/:id", teacherHandler.Get)

	lectures := secured.Group("/lectures")
	lectures.GET("", lectureHandler.List)
	lectures.POST("", internalmiddleware.RBAC(admin, teacher), audit(models.AuditActionLectureCreate, "lectures", ""), lectureHandler.Create)
	lectures.GET("/:id", lectureHandler.Get)
	lectures.GET("/:id/access", lectureHandler.Access)
	lectures.PATCH("/:id/teacher", internalmiddleware.RBAC(admin), audit(models.AuditActionTeacherChange, "lectures", "id"), lectureHandler.ChangeTeacher)
	lectures.GET("/:id/teachers", lectureHandler.ListTeachers)
	lectures.POST("/:id/teachers", internalmiddleware.RBAC(admin), audit(models.AuditActionAssignmentAdd, "lectures", "id"), lectureHandler.AddTeacher)
	lectures.DELETE("/:id/teachers/:teacherId", internalmiddleware.RBAC(admin), audit(models.AuditActionAssignmentRemove, "lectures", "id"), lectureHandler.RemoveTeacher)

	schedules := secured.Group("/schedules")
	schedules.GET("", scheduleHandler.ListActive)
	schedules.POST("", internalmiddleware.RBAC(admin, teacher), audit(models.AuditActionScheduleCreate, "schedules", ""), scheduleHandler.Create)
	schedules.GET("/lecture/:lectureId", scheduleHandler.ListByLecture)
	schedules.GET("/:id", scheduleHandler.Get)
	schedules.PATCH("/:id/expire", internalmiddleware.RBAC(admin), audit(models.AuditActionScheduleExpire, "schedules", "id"), scheduleHandler.Expire)

	bookings := secured.Group("/bookings")
	bookings.POST("/register", internalmiddleware.RBAC(student), audit(models.AuditActionBookingCreate, "bookings", ""), bookingHandler.Create)
	bookings.PUT("/cancel/:id", internalmiddleware.RBAC(student), audit(models.AuditActionBookingCancel, "bookings", "id"), bookingHandler.Cancel)
	bookings.GET("/lecture/:lectureId", internalmiddleware.RBAC(admin, teacher), bookingHandler.ListByLecture)
	bookings.GET("/all", internalmiddleware.RBAC(admin), bookingHandler.ListAll)
	bookings.GET("/stats", internalmiddleware.RBAC(admin), bookingHandler.Stats)
	bookings.GET("/export", internalmiddleware.RBAC(admin), bookingHandler.Export)

	return r
}
