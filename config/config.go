package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"VibeFM/model"
)

// Config stores the application configuration. Every upstream endpoint is
// configurable so deployments (and tests) can point the pipeline elsewhere.
type Config struct {
	ServerAddr string

	// Spotify catalog search (metadata locator) and its token exchange.
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyTokenURL     string
	SpotifySearchURL    string

	// YouTube Data API search (stream source locator).
	YouTubeAPIKey    string
	YouTubeSearchURL string

	// OpenAI-compatible chat endpoint (recommendation resolver).
	AgentAPIBaseURL  string
	AgentAPIKey      string
	AgentModel       string
	AgentMaxTokens   int
	AgentTemperature float64

	// Transcode settings.
	FFmpegPath   string
	AudioBitrate string // e.g. "128k"
	TempDir      string // request-scoped transcode output lands here

	// Delivery settings.
	DeliveryMode model.DeliveryMode

	// MinIO配置 (remote-upload delivery only)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string // base URL prepended to object names in responses

	// Bounded timeout applied to each external call within a request.
	ExternalCallTimeout time.Duration

	// 日志配置
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	mode, ok := model.ParseDeliveryMode(getEnv("DELIVERY_MODE", string(model.DeliveryPassthrough)))
	if !ok {
		log.Printf("Invalid DELIVERY_MODE %q, falling back to passthrough", os.Getenv("DELIVERY_MODE"))
		mode = model.DeliveryPassthrough
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyTokenURL:     getEnv("SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token"),
		SpotifySearchURL:    getEnv("SPOTIFY_SEARCH_URL", "https://api.spotify.com/v1/search"),

		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		YouTubeSearchURL: getEnv("YOUTUBE_SEARCH_URL", "https://www.googleapis.com/youtube/v3/search"),

		AgentAPIBaseURL:  getEnv("AGENT_API_BASE_URL", "https://api.openai.com/v1"),
		AgentAPIKey:      os.Getenv("AGENT_API_KEY"),
		AgentModel:       getEnv("AGENT_MODEL", "gpt-4o-mini"),
		AgentMaxTokens:   getEnvInt("AGENT_MAX_TOKENS", 64),
		AgentTemperature: getEnvFloat("AGENT_TEMPERATURE", 0.7),

		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		AudioBitrate: getEnv("AUDIO_BITRATE", "128k"),
		TempDir:      getEnv("TEMP_DIR", os.TempDir()),

		DeliveryMode: mode,

		// MinIO配置，使用默认值
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "vibefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		ExternalCallTimeout: time.Duration(getEnvInt("EXTERNAL_CALL_TIMEOUT_SECONDS", 60)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
