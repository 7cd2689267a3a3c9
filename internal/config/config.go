package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Environment        string
	MongoURI           string
	DBName             string
	RedisURL           string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	StripeSecretKey    string
	CloudinaryURL      string
	ClientURL          string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		MongoURI:           getEnvOrDefault("MONGO_URI", ""),
		DBName:             getEnvOrDefault("DB_NAME", "storefront"),
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		AccessTokenSecret:  getEnvOrDefault("ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret: getEnvOrDefault("REFRESH_TOKEN_SECRET", ""),
		AccessTokenTTL:     getDurationEnv("ACCESS_TOKEN_TTL", 15, time.Minute),
		RefreshTokenTTL:    getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		StripeSecretKey:    getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		CloudinaryURL:      getEnvOrDefault("CLOUDINARY_URL", ""),
		ClientURL:          getEnvOrDefault("CLIENT_URL", "http://localhost:5173"),
	}
}

// IsProduction reports whether the server runs in production, where auth
// cookies must carry the Secure attribute.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
