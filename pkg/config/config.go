package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Blob       BlobConfig
	Recognizer RecognizerConfig
	JWT        JWTConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// Driver selects the document storage backend: postgres or memory.
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type BlobConfig struct {
	// Driver selects the blob backend: disk or gcs.
	Driver    string
	Dir       string
	GCSBucket string
}

type RecognizerConfig struct {
	URL              string
	Timeout          time.Duration
	FallbackCurrency string
}

type JWTConfig struct {
	SecretKey string
}

func Load() (*Config, error) {
	// Try to load a .env file; plain environment variables work as well.
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	recognizerTimeout, _ := strconv.Atoi(getEnv("RECOGNIZER_TIMEOUT", "30"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   getEnv("STORAGE_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "finscan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Blob: BlobConfig{
			Driver:    getEnv("BLOB_DRIVER", "disk"),
			Dir:       getEnv("BLOB_DIR", "uploads"),
			GCSBucket: getEnv("BLOB_GCS_BUCKET", ""),
		},
		Recognizer: RecognizerConfig{
			URL:              getEnv("RECOGNIZER_URL", "http://localhost:9090"),
			Timeout:          time.Duration(recognizerTimeout) * time.Second,
			FallbackCurrency: getEnv("RECOGNIZER_FALLBACK_CURRENCY", "USD"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "change-me-in-production"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
