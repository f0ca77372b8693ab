package config

import (
	"os"
)

// Config holds everything the process reads from the environment. Handles
// built from it are owned by main and injected downward; no package keeps
// a global connection.
type Config struct {
	ServerPort    string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	AMQPURL       string
	AMQPExchange  string
	NotifyQueue   string
	NotifyInbox   string
	PostmarkToken string
	EmailSender   string
	JWTSecret     []byte
}

func Load() *Config {
	return &Config{
		ServerPort:    getEnvOrDefault("PORT", "8000"),
		MongoURI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGO_DB", "bakery"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnvOrDefault("AMQP_EXCHANGE", "bakery.orders"),
		NotifyQueue:   getEnvOrDefault("NOTIFY_QUEUE", "order-notifications"),
		NotifyInbox:   os.Getenv("NOTIFY_INBOX"),
		PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
		EmailSender:   os.Getenv("EMAIL_SENDER"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
	}
}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}
