package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"localcity/config"
	"localcity/cron"
	"localcity/database"
	"localcity/database/repository"
	"localcity/handlers"
	"localcity/routes"
	"localcity/services/campaign"
	"localcity/services/editor"
	"localcity/services/mail"
	"localcity/services/merchant"
	"localcity/services/notification"
	"localcity/services/receipt"
	"localcity/services/review"
	"localcity/services/storage"
	"localcity/services/tasks"
	"localcity/services/user"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// editorIdleTimeout closes editor sessions nobody touched for this long.
const editorIdleTimeout = 30 * time.Minute

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync() //nolint:errcheck

	config.Watch(func(c config.Config) {
		utils.SetLogLevel(c.LogLevel)
		logger.Info("config reloaded", zap.String("logLevel", c.LogLevel))
	})

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	utils.InitCache()
	repos := repository.NewMongoRepositories()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Media storage is optional; uploads answer 503 without it.
	var store storage.StorageService
	if s, err := utils.Cloudinary(); err != nil {
		logger.Warn("media uploads disabled", zap.Error(err))
	} else {
		store = s
	}

	var notifier notification.NotificationService = notification.NopNotificationService{}
	if file := config.AppConfig.FirebaseCredentials; file != "" {
		client, err := utils.FirebaseInit(ctx, file)
		if err != nil {
			logger.Fatal("main: failed to initialize firebase", zap.Error(err))
		}
		fcm, err := notification.NewDefaultNotificationService(repos.Users, client)
		if err != nil {
			logger.Fatal("main: failed to initialize notifications", zap.Error(err))
		}
		notifier = fcm
	} else {
		logger.Warn("push notifications disabled, FIREBASE_CREDENTIALS not set")
	}

	var mailer mail.Mailer = mail.LogMailer{Logger: logger}
	if token := config.AppConfig.PostmarkServerToken; token != "" {
		pm, err := mail.NewPostmarkMailer(token, config.AppConfig.PostmarkAccountToken,
			config.AppConfig.MailFrom, config.AppConfig.PostmarkStream)
		if err != nil {
			logger.Fatal("main: failed to initialize postmark", zap.Error(err))
		}
		mailer = pm
	} else {
		logger.Warn("campaign email disabled, POSTMARK_SERVER_TOKEN not set")
	}

	queue := asynq.NewClient(tasks.RedisOpt())
	defer queue.Close()

	// services.
	merchantService, err := merchant.NewDefaultMerchantService(repos.Merchants, store)
	if err != nil {
		logger.Fatal("main: merchant service", zap.Error(err))
	}
	campaignService, err := campaign.NewDefaultCampaignService(repos.Campaigns, repos.Users, mailer, queue)
	if err != nil {
		logger.Fatal("main: campaign service", zap.Error(err))
	}
	receiptService, err := receipt.NewDefaultReceiptService(repos.Receipts, notifier)
	if err != nil {
		logger.Fatal("main: receipt service", zap.Error(err))
	}
	reviewService, err := review.NewDefaultReviewService(repos.Reviews, merchantService)
	if err != nil {
		logger.Fatal("main: review service", zap.Error(err))
	}
	userService, err := user.NewDefaultUserService(repos.Users, config.AppConfig.AdminTokenTTL)
	if err != nil {
		logger.Fatal("main: user service", zap.Error(err))
	}

	if err := userService.BootstrapAdmin(ctx, config.AppConfig.BootstrapAdminEmail, config.AppConfig.BootstrapAdminPassword); err != nil {
		logger.Fatal("main: failed to bootstrap admin account", zap.Error(err))
	}

	// Live editor.
	editors := editor.NewManager(editor.Options{
		Store:        editor.NewRedisDraftStore(utils.GetDraftCacheClient()),
		Debounce:     config.AppConfig.AutoSaveDebounce,
		SavedDisplay: config.AppConfig.AutoSaveSavedDisplay,
		BackupTTL:    config.AppConfig.DraftBackupTTL,
		Logger:       logger.Named("editor"),
	})
	editor.RegisterMerchant(editors, merchantService)
	editor.RegisterCampaign(editors, campaignService)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := editors.CloseIdle(editorIdleTimeout); n > 0 {
					logger.Info("closed idle editor sessions", zap.Int("count", n))
				}
			}
		}
	}()

	worker := cron.NewCampaignWorker(campaignService, 2)
	worker.Start()

	utils.StartHealthMonitor(ctx, 30*time.Second,
		[]*redis.Client{utils.GetCacheClient(), utils.GetDraftCacheClient()},
		database.MongoClient)

	handlerBundle := &handlers.HandlerBundle{
		UserRepo:  repos.Users,
		Auth:      &handlers.AuthHandler{Users: userService},
		Merchants: handlers.NewMerchantHandler(merchantService),
		Hours:     &handlers.HoursHandler{},
		Campaigns: &handlers.CampaignHandler{Service: campaignService},
		Receipts:  &handlers.ReceiptHandler{Service: receiptService},
		Reviews:   &handlers.ReviewHandler{Service: reviewService},
		Users:     &handlers.UserHandler{Service: userService},
		Editor:    &handlers.EditorHandler{Manager: editors},
	}

	router := gin.New()
	routes.RegisterRoutes(router, handlerBundle)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	// Pending auto-saves are flushed before the stores go away.
	if err := editors.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: editor shutdown incomplete", zap.Error(err))
	}
	worker.Shutdown()
	stop()
	if err := database.CloseDB(shutdownCtx); err != nil {
		logger.Error("main: failed to close database", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
