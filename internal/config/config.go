package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port               string
	Env                string
	StoreDriver        string
	DatabasePath       string
	MongoURI           string
	MongoDatabase      string
	RabbitMQURL        string
	NotifyExchange     string
	CORSAllowedOrigins []string
}

func envOrDefault(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

// Load reads a .env file when there is one and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := Config{
		Port:           envOrDefault("SERVER_PORT", "8080"),
		Env:            envOrDefault("APP_ENV", "development"),
		StoreDriver:    envOrDefault("STORE_DRIVER", "sqlite"),
		DatabasePath:   envOrDefault("DATABASE_PATH", "bracket_engine.db"),
		MongoURI:       envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  envOrDefault("MONGO_DATABASE", "bracket_engine"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		NotifyExchange: envOrDefault("NOTIFY_EXCHANGE", "notifications"),
	}

	for _, origin := range strings.Split(envOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}
	return cfg
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
