package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pcbooking/internal/config"
	"pcbooking/internal/middleware"
	"pcbooking/internal/modules/admin"
	"pcbooking/internal/modules/auth"
	"pcbooking/internal/modules/booking"
	"pcbooking/internal/modules/payment"
	"pcbooking/internal/modules/reservation"
	"pcbooking/internal/notify"
	"pcbooking/internal/pkg/jwt"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the outside resources the application is built on. Redis and
// Payment are optional; ExtraSinks are appended after the configured ones.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Payment    payment.Adapter
	ExtraSinks []notify.Sink
	Now        func() time.Time
	Log        *zap.Logger
}

// App is the wired HTTP application together with the background workers
// that must be flushed on shutdown.
type App struct {
	Router     *gin.Engine
	Hub        *notify.Hub
	Dispatcher *notify.Dispatcher

	kafka *notify.KafkaSink
}

func New(d Deps) (*App, error) {
	if d.Config == nil || d.DB == nil {
		return nil, errors.New("app: config and database are required")
	}
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.L()
	}
	now := d.Now
	if now == nil {
		loc := cfg.LoadLocation()
		now = func() time.Time { return time.Now().In(loc) }
	}

	a := &App{Hub: notify.NewHub()}

	sinks := []notify.Sink{a.Hub}
	if cfg.NotifyWebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyTimeout))
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		a.kafka = notify.NewKafkaSink(brokers, cfg.KafkaTopic, cfg.NotifyQueueSize)
		sinks = append(sinks, a.kafka)
	}
	sinks = append(sinks, d.ExtraSinks...)

	a.Dispatcher = notify.NewDispatcher(notify.Options{
		QueueSize: cfg.NotifyQueueSize,
		Retries:   cfg.NotifyRetries,
		Backoff:   200 * time.Millisecond,
		Timeout:   cfg.NotifyTimeout,
	}, sinks...)
	a.Dispatcher.Start()

	adapter := d.Payment
	if adapter == nil {
		adapter = payment.NewSimulator(cfg.PaymentLatency, cfg.PaymentDeclineRate, time.Now().UnixNano())
	}

	var ledger reservation.Ledger
	if d.Redis != nil {
		ledger = reservation.NewRedisLedger(d.Redis)
	}

	// Repositories
	bookingRepo := repository.NewBookingRepository(d.DB)
	userRepo := repository.NewUserRepository(d.DB)
	revokedRepo := repository.NewRevokedTokenRepository(d.DB)

	// Services
	authService := auth.NewService(userRepo, revokedRepo, jwt.New(cfg.JWTSecret, cfg.JWTTTL))
	bookingService := booking.NewService(bookingRepo, a.Dispatcher, now)
	reservationService := reservation.NewService(
		bookingRepo,
		adapter,
		a.Dispatcher,
		reservation.NewTokenCodec([]byte(cfg.ReservationHashKey), []byte(cfg.ReservationBlockKey), cfg.ReservationWindow),
		ledger,
		reservation.Options{
			Window:         cfg.ReservationWindow,
			PaymentTimeout: cfg.PaymentTimeout,
			Now:            now,
		},
	)
	adminService := admin.NewService(bookingService, authService, a.Hub)

	// Handlers
	authHandler := auth.NewHandler(authService)
	bookingHandler := booking.NewHandler(bookingService)
	reservationHandler := reservation.NewHandler(reservationService)
	adminHandler := admin.NewHandler(adminService, admin.NewFeedHandler(a.Hub, cfg.AllowedOrigins()))

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.ErrorLogger(log),
		middleware.CORS(cfg.AllowedOrigins()),
	)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin)
	requireUser := middleware.JWTAuth(authService)

	v1 := r.Group("/api/v1")
	{
		bookingHandler.RegisterRoutes(v1)

		limited := v1.Group("", limiter.Middleware())
		authHandler.RegisterPublicRoutes(limited)
		reservationHandler.RegisterRoutes(limited)

		protected := v1.Group("", requireUser)
		authHandler.RegisterProtectedRoutes(protected)

		operator := v1.Group("", requireUser, middleware.AdminOnly())
		bookingHandler.RegisterAdminRoutes(operator)

		adminGroup := v1.Group("/admin", requireUser, middleware.AdminOnly())
		adminHandler.RegisterRoutes(adminGroup)

		feedGroup := v1.Group("/admin", middleware.QueryTokenAuth(authService), middleware.AdminOnly())
		adminHandler.RegisterFeedRoutes(feedGroup)
	}

	a.Router = r
	return a, nil
}

// Close flushes queued notifications, then the Kafka producer, and drops
// admin feed connections.
func (a *App) Close(ctx context.Context) error {
	err := a.Dispatcher.Close(ctx)
	if a.kafka != nil {
		a.kafka.Close()
		a.kafka.WaitClosed()
	}
	a.Hub.Close()
	return err
}
