package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const defaultMaxUploadSize = 50 * 1024 * 1024

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string
	LogMode    string

	CORSOrigins string

	// Object storage backing file submissions: "memory" or "gcs"
	StorageDriver    string
	GCSBucket        string
	GCSCredentials   string
	MaxUploadSize    int64
	EnrollCodeLength int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "learning_platform"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogMode:          getEnv("LOG_MODE", "dev"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		StorageDriver:    getEnv("STORAGE_DRIVER", "memory"),
		GCSBucket:        getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", ""),
		MaxUploadSize:    int64(getEnvInt("MAX_UPLOAD_SIZE", defaultMaxUploadSize)),
		EnrollCodeLength: getEnvInt("ENROLLMENT_CODE_LENGTH", 8),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
