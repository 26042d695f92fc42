package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	SecretKey     string
	OpenAIAPIKey  string
	OpenAIAPIBase string
	DatabasePath  string
	HTTPPort      string
	LogLevel      string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		SecretKey:     getEnv("SECRET_KEY", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIBase: getEnv("OPENAI_API_BASE", ""),
		DatabasePath:  getEnv("DATABASE_PATH", "pagechat.db"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.SecretKey == "" {
		log.Fatal("SECRET_KEY environment variable is required")
	}

	if AppConfig.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
