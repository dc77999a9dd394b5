package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"servifix/config"
	"servifix/cron"
	"servifix/database"
	jobRepoPkg "servifix/database/repository/job"
	quoteRepoPkg "servifix/database/repository/quote"
	requestRepoPkg "servifix/database/repository/request"
	userRepoPkg "servifix/database/repository/user"
	"servifix/handlers"
	"servifix/middleware"
	"servifix/routes"
	"servifix/services/job"
	"servifix/services/loyalty"
	"servifix/services/mail"
	"servifix/services/matching"
	"servifix/services/notification"
	"servifix/services/quote"
	"servifix/services/request"
	"servifix/services/storage"
	"servifix/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitPresenceCache()

	// Media storage is optional; dispute evidence degrades to text-only
	// when it is not configured.
	var mediaStore storage.MediaStore
	if store, err := storage.NewCloudinaryStore(); err != nil {
		logger.Sugar().Warnf("main: cloudinary unavailable, evidence uploads disabled: %v", err)
	} else {
		mediaStore = store
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	userRepo := userRepoPkg.NewMongoUserRepo()
	requestRepo := requestRepoPkg.NewMongoRequestRepo()
	quoteRepo := quoteRepoPkg.NewMongoQuoteRepo()
	jobRepo := jobRepoPkg.NewMongoJobRepo()

	// realtime fanout over the Redis presence registry.
	hub := notification.NewHub(
		notification.NewRedisRegistry(utils.GetPresenceClient()))

	// services.
	matcher := &matching.DefaultMatcherService{
		UserRepo:    userRepo,
		RequestRepo: requestRepo,
	}
	loyaltyService := &loyalty.DefaultLoyaltyService{UserRepo: userRepo}
	requestService := request.NewRequestService(userRepo, requestRepo, quoteRepo, matcher, hub)
	quoteService := quote.NewQuoteService(userRepo, requestRepo, quoteRepo, jobRepo, hub)
	jobService := job.NewJobService(jobRepo, userRepo, loyaltyService, hub,
		mail.NewLogMailer(), mediaStore)

	// Assemble the handler bundle and routes.
	handlerBundle := handlers.NewHandlerBundle(
		requestService, quoteService, jobService, loyaltyService, userRepo, hub)
	routes.RegisterRoutes(router, handlerBundle)

	// Background quote expiry sweep.
	cron.InitQuoteSweeper(quoteService)

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
