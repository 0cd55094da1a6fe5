package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all startup settings for the tracking service.
type Config struct {
	MongoURI     string
	MongoDB      string
	Port         string
	ORSAPIKey    string
	TickInterval time.Duration
	ORSTimeout   time.Duration

	// Optional MQTT bridge; disabled when MQTTBrokerURL is empty.
	MQTTBrokerURL string
	MQTTTopic     string
}

// Load reads configuration from the environment, after loading a .env file if
// one is present. Environment variables always win over .env entries.
// A missing ORS_API_KEY is the only fatal condition.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "bustracking"),
		Port:          getenv("PORT", "5000"),
		ORSAPIKey:     os.Getenv("ORS_API_KEY"),
		TickInterval:  durationSeconds("TICK_SECONDS", 5),
		ORSTimeout:    durationSeconds("ORS_TIMEOUT_SECONDS", 10),
		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),
		MQTTTopic:     getenv("MQTT_TOPIC", "buses/updates"),
	}

	if cfg.ORSAPIKey == "" {
		return nil, fmt.Errorf("ORS_API_KEY is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
