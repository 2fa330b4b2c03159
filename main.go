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

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pixvault/config"
	"pixvault/database"
	"pixvault/handlers"
	"pixvault/logger"
	"pixvault/middleware"
	"pixvault/models"
	"pixvault/queue"
	"pixvault/repositories"
	"pixvault/services"
	"pixvault/storage"
	"pixvault/vision"
	"pixvault/worker"
)

func main() {
	log.Println("starting pixvault service")

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)

	if err := database.InitMySQL(&cfg.Database); err != nil {
		log.Fatalf("init mysql failed: %v", err)
	}

	database.DB.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.ImageMetadata{},
	)
	log.Println("database migration completed")

	if err := database.InitRedis(&cfg.Redis); err != nil {
		log.Fatalf("init redis failed: %v", err)
	}

	store, err := storage.NewMinioStorage(&cfg.Storage)
	if err != nil {
		log.Fatalf("init object storage failed: %v", err)
	}

	annotator, err := vision.NewGoogleAnnotator(context.Background(), &cfg.Vision)
	if err != nil {
		log.Fatalf("init vision client failed: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	jobs := queue.NewAsynqQueue(redisOpt, &cfg.Queue)

	repoContainer := repositories.NewGormRepositories(database.DB).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, store, annotator, jobs)
	handlers.SetServices(serviceContainer)

	analysisWorker := worker.New(redisOpt, &cfg.Queue, serviceContainer.Analysis)
	go func() {
		if err := analysisWorker.Start(); err != nil {
			log.Fatalf("analysis worker start failed: %v", err)
		}
	}()
	log.Println("analysis worker started")

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestLogger())
	setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := startHTTPServer(r, addr)
	log.Printf("server listening on http://%s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	analysisWorker.Shutdown()
	if err := jobs.Close(); err != nil {
		log.Printf("close queue client: %v", err)
	}
	if err := annotator.Close(); err != nil {
		log.Printf("close vision client: %v", err)
	}
	log.Println("bye")
}

func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	authorized := api.Group("")
	authorized.Use(middleware.AuthMiddleware())
	{
		authorized.GET("/auth/profile", handlers.GetProfile)

		authorized.POST("/images", handlers.UploadImages)
		authorized.GET("/images", handlers.ListImages)
		authorized.GET("/images/:id", handlers.GetImage)
		authorized.PATCH("/images/:id/tags", handlers.UpdateTags)
		authorized.DELETE("/images/:id", handlers.DeleteImage)

		authorized.GET("/search/text", handlers.TextSearch)
		authorized.GET("/search/similar/:id", handlers.SimilarSearch)
		authorized.GET("/search/color", handlers.ColorSearch)
	}
}

func startHTTPServer(r *gin.Engine, addr string) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server start failed: %v", err)
		}
	}()
	return srv
}
