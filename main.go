package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footyreserve/config"
	"footyreserve/cron"
	"footyreserve/database"
	bookingRepoPkg "footyreserve/database/repository/booking"
	matchRepoPkg "footyreserve/database/repository/match"
	paymentRepoPkg "footyreserve/database/repository/payment"
	userRepoPkg "footyreserve/database/repository/user"
	"footyreserve/gateway"
	"footyreserve/handlers"
	"footyreserve/routes"
	matchService "footyreserve/services/match"
	payoutService "footyreserve/services/payout"
	"footyreserve/services/pricing"
	reservationService "footyreserve/services/reservation"
	"footyreserve/services/settlement"
	userService "footyreserve/services/user"
	"footyreserve/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	matchRepo := matchRepoPkg.NewMongoMatchRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	paymentRepo := paymentRepoPkg.NewMongoPaymentRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()

	stripeGateway := gateway.NewStripeGateway()

	rates := pricing.Rates{
		PlatformRate: config.AppConfig.PlatformFeeRate,
		StripeRate:   config.AppConfig.StripeFeeRate,
		StripeFixed:  config.AppConfig.StripeFixedFee,
	}

	// services.
	userSvc := &userService.DefaultUserService{
		Users:  userRepo,
		Logger: logger,
	}

	matchSvc := &matchService.DefaultMatchService{
		Matches:          matchRepo,
		Bookings:         bookingRepo,
		Payments:         paymentRepo,
		Logger:           logger,
		Rates:            rates,
		MaxActiveMatches: config.AppConfig.MaxActiveMatches,
	}

	reservationSvc := &reservationService.DefaultReservationService{
		Matches:     matchRepo,
		Bookings:    bookingRepo,
		Payments:    paymentRepo,
		Gateway:     stripeGateway,
		Logger:      logger,
		StaleWindow: time.Duration(config.AppConfig.StaleReservationMin) * time.Minute,
		Currency:    config.AppConfig.Currency,
	}

	payoutSvc := &payoutService.Orchestrator{
		Matches:  matchRepo,
		Payments: paymentRepo,
		Users:    userRepo,
		Gateway:  stripeGateway,
		Logger:   logger,
		Currency: config.AppConfig.Currency,
	}

	settlementSvc := &settlement.Processor{
		Matches:  matchRepo,
		Bookings: bookingRepo,
		Payments: paymentRepo,
		Tx:       database.NewMongoTxRunner(),
		Payout:   payoutSvc,
		Logger:   logger,
	}

	// handlers.
	handlers.UserSvc = userSvc
	handlers.MatchSvc = matchSvc
	handlers.ReservationSvc = reservationSvc
	handlers.PayoutSvc = payoutSvc
	handlers.SettlementSvc = settlementSvc
	handlers.Gateway = stripeGateway

	routes.RegisterRoutes(router)

	// Background sweeper for abandoned reservations.
	cron.InitSweepWorker(reservationSvc)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
