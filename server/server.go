package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/kkdai/youtube/v2"

	"VibeFM/config"
	"VibeFM/core/audio"
	"VibeFM/core/catalog"
	"VibeFM/core/credential"
	"VibeFM/core/delivery"
	"VibeFM/core/pipeline"
	"VibeFM/core/recommend"
	"VibeFM/core/source"
	"VibeFM/logger"
	"VibeFM/storage"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	defer logger.Sync()

	ensureDirExists(cfg.TempDir)

	// 初始化 MinIO 客户端 — only when upload delivery can be selected.
	var uploader delivery.Uploader
	if cfg.MinioAccessKey != "" {
		store, err := storage.NewMinioStorage(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
		}
		uploader = store
	} else {
		logger.Warn("MinIO credentials not set, upload delivery disabled")
	}

	// The recommendation stage is optional: deployments without an agent key
	// serve literal queries only.
	var recommender pipeline.RecommendationResolver
	if cfg.AgentAPIKey != "" {
		recommender = recommend.NewAgentResolver(&recommend.AgentConfig{
			APIBaseURL:  cfg.AgentAPIBaseURL,
			APIKey:      cfg.AgentAPIKey,
			Model:       cfg.AgentModel,
			MaxTokens:   cfg.AgentMaxTokens,
			Temperature: cfg.AgentTemperature,
		})
	} else {
		logger.Warn("AGENT_API_KEY not set, description requests will fail")
	}

	credentials := credential.NewManager(cfg.SpotifyTokenURL, cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	metadata := catalog.NewSpotifyClient(cfg.SpotifySearchURL, credentials, nil)
	sources := source.NewYouTubeClient(cfg.YouTubeSearchURL, cfg.YouTubeAPIKey)
	transcoder := audio.NewFFmpegTranscoder(cfg.FFmpegPath, cfg.AudioBitrate)
	materializer := audio.NewMaterializer(&youtube.Client{}, transcoder, cfg.TempDir)

	orchestrator := pipeline.NewOrchestrator(recommender, metadata, sources, materializer, cfg.ExternalCallTimeout)
	songHandler := NewSongHandler(orchestrator, uploader, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/api/song", songHandler.ResolveSong).Methods(http.MethodGet)
	// Legacy route kept for existing clients.
	router.HandleFunc("/download", songHandler.ResolveSong).Methods(http.MethodGet)

	server := &http.Server{
		Addr: cfg.ServerAddr,
		// Write timeout stays generous: a download-mode response carries a
		// whole transcoded file.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
		Handler:      router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.ServerAddr),
			logger.String("deliveryMode", string(cfg.DeliveryMode)))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory",
				logger.String("path", path),
				logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}
