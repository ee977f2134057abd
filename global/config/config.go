package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables:
//
//	PORT             listening port            (default 8800)
//	NODE_ID          gateway node id           (default gateway_1)
//	SNOWFLAKE_NODE   id-generator node number  (default 1)
//	ALLOWED_ORIGINS  comma-separated allowlist (default http://localhost:3000)
//	REDIS_ADDR       optional; set => redis-backed presence table
//	REDIS_PASSWORD, REDIS_DB
//	NATS_URL         optional; set => presence events published to NATS
//	NATS_SUBJECT     (default presence.events)
//	LOG_LEVEL        debug|info|warn|error (read by the logger package)

type RedisConf struct {
	Addr     string
	Password string
	DB       int
}

type NatsConf struct {
	URL     string
	Subject string
}

type AppConfig struct {
	NodeID         string
	SnowflakeNode  int64
	Port           int
	AllowedOrigins []string
	Redis          RedisConf
	Nats           NatsConf
}

// Load reads the whole gateway configuration from the environment.
func Load() AppConfig {
	return AppConfig{
		NodeID:         GetEnv("NODE_ID", "gateway_1"),
		SnowflakeNode:  int64(GetEnvInt("SNOWFLAKE_NODE", 1)),
		Port:           GetEnvInt("PORT", 8800),
		AllowedOrigins: splitCSV(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Redis: RedisConf{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		Nats: NatsConf{
			URL:     os.Getenv("NATS_URL"),
			Subject: GetEnv("NATS_SUBJECT", "presence.events"),
		},
	}
}

func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
