package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-service/internal/config"
	"settlement-service/internal/database"
	grpcServer "settlement-service/internal/grpc"
	"settlement-service/internal/handlers"
	"settlement-service/internal/logger"
	"settlement-service/internal/messaging"
	"settlement-service/internal/middleware"
	"settlement-service/internal/repository"
	"settlement-service/internal/services"
	"settlement-service/internal/worker"
	"settlement-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.AppName, cfg.LogLevel)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := database.Connect(cfg.DB.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	ledger := repository.NewLedger(db)

	// Redis/Asynq Client
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	// Events
	var events services.EventPublisher = messaging.NoopPublisher{Log: log}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create kafka producer")
		}
		defer producer.Close()
		events = producer
	} else {
		log.Warn("KAFKA_BROKERS not set, ledger events are disabled")
	}

	// Collaborators
	identityClient := services.NewIdentityClient(cfg.IdentityServiceURL, cfg.ServiceToken)
	listingClient := services.NewListingClient(cfg.ListingServiceURL, cfg.ServiceToken)
	common.SetHTTPTimeout(cfg.Flutterwave.Timeout)
	flutterwaveService := services.NewFlutterwaveService(cfg.Flutterwave.BaseURL, cfg.Flutterwave.SecretKey, cfg.Flutterwave.Timeout, log)
	notifier := worker.NewNotifier(asynqClient, cfg.NotificationQueueName)

	// Init Services
	helperService := services.NewHelperService(ledger, log, notifier, events, identityClient)
	settingsService := services.NewSettingsService(helperService, cfg.DefaultPlatformFee)
	subaccountService := services.NewSubaccountService(helperService, flutterwaveService)
	settlementService := services.NewSettlementService(helperService, flutterwaveService, listingClient, settingsService, subaccountService, cfg.Flutterwave.CallbackURL)
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	challengeStore := services.NewChallengeStore(pingCtx, rdb, log)
	cancelPing()
	securityService := services.NewSecurityService(helperService, challengeStore, services.SecurityOptions{
		MaxAttempts:  cfg.PinMaxAttempts,
		LockDuration: cfg.PinLockDuration,
		OTPLength:    cfg.OTPLength,
		OTPTTL:       cfg.OTPTTL,
		ResetTTL:     cfg.PinResetTTL,
		BcryptCost:   cfg.BcryptCost,
	})
	withdrawalService := services.NewWithdrawalService(helperService, securityService, flutterwaveService, decimal.NewFromFloat(cfg.MinWithdrawal))
	disbursementService := services.NewDisbursementService(helperService, withdrawalService)
	walletService := services.NewWalletService(helperService)
	webhookService := services.NewWebhookService(helperService, cfg.Flutterwave.SecretHash, settlementService, withdrawalService)
	reconciliationService := services.NewReconciliationService(helperService, flutterwaveService, settlementService, withdrawalService, services.ReconciliationOptions{
		Schedule:             cfg.ReconcileSchedule,
		StalePaymentAfter:    cfg.StalePaymentAfter,
		StaleWithdrawalAfter: cfg.StaleWithdrawalAfter,
		BatchSize:            cfg.ReconcileBatchSize,
	})

	if cfg.Flutterwave.SecretHash == "" {
		log.Warn("FLUTTERWAVE_SECRET_HASH not set, all webhooks will be rejected")
	}

	// Initialize Gin
	r := gin.Default()

	// Ping endpoint
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Welcome To Settlement service",
		})
	})

	h := &handlers.Handler{
		Settlement:     settlementService,
		Wallets:        walletService,
		Withdrawals:    withdrawalService,
		Security:       securityService,
		Disbursements:  disbursementService,
		Webhooks:       webhookService,
		Settings:       settingsService,
		Reconciliation: reconciliationService,
		Log:            log,
	}
	h.RegisterRoutes(r, middleware.NewAuthenticator(cfg.JWTSecret))

	// Start gRPC health server
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("Failed to get database handle")
	}
	health := grpcServer.NewHealthServer(map[string]grpcServer.Checker{
		"database": sqlDB.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, log)
	go func() {
		if err := grpcServer.StartGRPCServer(ctx, cfg.GRPCPort, health, log); err != nil {
			log.WithError(err).Error("gRPC server stopped")
		}
	}()

	// Start Cron Schedulers
	scheduler, err := reconciliationService.StartScheduler()
	if err != nil {
		log.WithError(err).Fatal("Failed to start reconciliation scheduler")
	}
	defer scheduler.Stop()

	go func() {
		log.Infof("HTTP Server starting on port %s", cfg.Port)
		if err := r.Run(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
}
