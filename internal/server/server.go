package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"deskhub/internal/activity"
	"deskhub/internal/auth"
	"deskhub/internal/booking"
	"deskhub/internal/config"
	"deskhub/internal/ledger"
	"deskhub/internal/location"
	"deskhub/internal/notification"
	"deskhub/internal/pass"
	"deskhub/internal/payment"
	"deskhub/internal/promo"
	"deskhub/internal/user"
	"deskhub/internal/wallet"
)

type Server struct {
	router *gin.Engine
	http   *http.Server

	// FeeSettings and Wallet are exposed so main can start their background
	// loops alongside the HTTP listener.
	FeeSettings *payment.SettingsProvider
	Wallet      wallet.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notification.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	ledgerRepo := ledger.NewRepository(db)
	activityService := activity.NewService(activity.NewRepository(db))
	locationRepo := location.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	walletService := wallet.NewService(wallet.NewRepository(db), ledgerRepo)
	passService := pass.NewService(pass.NewRepository(db))
	promoRepo := promo.NewRepository(db)
	promoService := promo.NewService(promoRepo)
	userService := user.NewService(user.NewRepository(db), cfg.JWTSecret)

	feeSettings := payment.NewSettingsProvider(paymentRepo, payment.FeeSnapshot{
		CardFeePercent:   decimal.RequireFromString(cfg.DefaultCardFeePercent),
		TransferFlatFee:  decimal.RequireFromString(cfg.DefaultTransferFlatFee),
		TransferFeeFloor: decimal.RequireFromString(cfg.DefaultTransferFeeFloor),
	})

	bookingService := booking.NewService(booking.Deps{
		Repo:        booking.NewRepository(db),
		Locations:   locationRepo,
		Wallet:      walletService,
		Passes:      passService,
		Promos:      promoService,
		Ledger:      ledgerRepo,
		Activity:    activityService,
		Payments:    paymentRepo,
		FeeSettings: feeSettings,
		Users:       userService,
		Notifier:    notifier,
	})

	userHandler := user.NewHandler(userService)
	locationHandler := location.NewHandler(locationRepo)
	walletHandler := wallet.NewHandler(walletService)
	passHandler := pass.NewHandler(passService)
	promoHandler := promo.NewHandler(promoService, promoRepo)
	bookingHandler := booking.NewHandler(bookingService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.Me)

		protected.GET("/locations", locationHandler.List)
		protected.GET("/locations/:locationID", locationHandler.Get)
		protected.GET("/locations/:locationID/seats", locationHandler.ListSeats)

		protected.GET("/wallet/balance", walletHandler.Balance)
		protected.GET("/wallet/grants", walletHandler.ListGrants)

		protected.GET("/passes/types", passHandler.ListTypes)
		protected.GET("/passes", passHandler.Balance)
		protected.GET("/passes/:passID", passHandler.Get)
		protected.POST("/passes/purchase", passHandler.Purchase)
		protected.POST("/passes/validate", bookingHandler.ValidatePass)

		protected.GET("/promos/:code", promoHandler.GetByCode)

		protected.POST("/bookings", bookingHandler.Create)
		protected.GET("/bookings", bookingHandler.ListMine)
		protected.GET("/bookings/:bookingID", bookingHandler.Get)
		protected.POST("/bookings/:bookingID/confirm-payment", bookingHandler.ConfirmPayment)
		protected.POST("/bookings/:bookingID/reschedule", bookingHandler.Reschedule)
		protected.POST("/bookings/:bookingID/reschedule/confirm-payment", bookingHandler.ConfirmReschedulePayment)
		protected.POST("/bookings/:bookingID/extensions", bookingHandler.Extend)
		protected.POST("/bookings/:bookingID/extensions/:extensionID/confirm-payment", bookingHandler.ConfirmExtensionPayment)
		protected.POST("/bookings/:bookingID/pass", bookingHandler.ApplyPass)
		protected.POST("/bookings/:bookingID/cancel", bookingHandler.Cancel)
		protected.GET("/bookings/:bookingID/discounts", bookingHandler.DiscountHistory)
		protected.GET("/bookings/:bookingID/discounts/summary", bookingHandler.DiscountSummary)
		protected.GET("/bookings/:bookingID/activity", bookingHandler.ActivityHistory)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.POST("/locations", locationHandler.Create)
		admin.POST("/locations/:locationID/seats", locationHandler.CreateSeat)
		admin.POST("/promos", promoHandler.Create)
		admin.POST("/wallet/grants", walletHandler.Grant)
		admin.GET("/notifications/queue", NotificationQueue(notifier))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router:      router,
		FeeSettings: feeSettings,
		Wallet:      walletService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
