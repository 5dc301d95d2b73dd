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
	Port           string
	BaseURL        string
	MongoURI       string
	DBName         string
	OrderSecret    string
	AdminAPIKey    string
	JWTSecret      string
	AccessTokenTTL time.Duration

	WhatsAppAccessToken  string
	WhatsAppPhoneID      string
	WhatsAppLanguageCode string

	KitchenStaffEmail    string
	KitchenStaffPassword string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		BaseURL:        getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		MongoURI:       getEnvOrDefault("MONGO_URI", ""),
		DBName:         getEnvOrDefault("DB_NAME", "impulse"),
		OrderSecret:    mustEnv("IMPULSE_ORDER_SECRET"),
		AdminAPIKey:    mustEnv("ADMIN_API_KEY"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 12, time.Hour),

		WhatsAppAccessToken:  getEnvOrDefault("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneID:      getEnvOrDefault("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppLanguageCode: getEnvOrDefault("WHATSAPP_LANGUAGE_CODE", "es_MX"),

		KitchenStaffEmail:    getEnvOrDefault("KITCHEN_STAFF_EMAIL", ""),
		KitchenStaffPassword: getEnvOrDefault("KITCHEN_STAFF_PASSWORD", ""),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		log.Fatalf("ENV %s is required", key)
	}
	return value
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
