package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Storage driver names accepted by STORAGE_DRIVER.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration

	HTTPPort        string
	ShutdownTimeout time.Duration

	StorageDriver string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string

	// Panel URLs selected by the authenticated user's role for
	// out-of-band navigation.
	CustomerPanelURL string
	AdminPanelURL    string
}

func Load() *Config {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:       getEnv("API_URL", "http://localhost:5000/api"),
		RequestTimeout:   30 * time.Second,
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		ShutdownTimeout:  10 * time.Second,
		StorageDriver:    getEnv("STORAGE_DRIVER", DriverFile),
		DataDir:          getEnv("DATA_DIR", ".storefront"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "storefront"),
		CustomerPanelURL: getEnv("CUSTOMER_PANEL_URL", "http://localhost:3000/profile"),
		AdminPanelURL:    getEnv("ADMIN_PANEL_URL", "http://localhost:3000/dashboard"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
