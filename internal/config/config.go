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
	MongoURI       string
	DBName         string
	JWTSecret      string
	Port           string
	AllowedOrigins []string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SMTPFrom       string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:       getEnvOrDefault("MONGO_URI", ""),
		DBName:         getEnvOrDefault("DB_NAME", "healup"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: getListEnv("ALLOWED_ORIGINS", "*"),
		TokenTTL:       getDurationEnv("TOKEN_TTL_HOURS", 24, time.Hour),
		OTPTTL:         getDurationEnv("OTP_TTL_MINUTES", 10, time.Minute),
		SMTPHost:       getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:       getIntEnv("SMTP_PORT", 587),
		SMTPUser:       getEnvOrDefault("SMTP_USER", ""),
		SMTPPassword:   getEnvOrDefault("SMTP_PASSWORD", ""),
		SMTPFrom:       getEnvOrDefault("SMTP_FROM", "no-reply@healup.local"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
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

func getListEnv(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
