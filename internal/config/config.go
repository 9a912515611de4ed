package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr      string
	APIBaseURL    string
	APITimeout    time.Duration
	RedisAddr     string
	RedisPassword string

	SessionCacheTTL time.Duration

	VerifyPollInterval  time.Duration
	VerifyRedirectDelay time.Duration
	VerifyWatchTTL      time.Duration

	RecoveryRateLimit  int
	RecoveryRateWindow time.Duration

	MatriculaMinLen int
	MatriculaMaxLen int
	MatriculaPrefix string
	MatriculaSuffix string
}

func Load() Config {
	return Config{
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		APIBaseURL:          getenv("API_BASE_URL", "http://127.0.0.1:3001"),
		APITimeout:          getenvDuration("API_TIMEOUT", 10*time.Second),
		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		SessionCacheTTL:     getenvDuration("SESSION_CACHE_TTL", 30*time.Second),
		VerifyPollInterval:  getenvDuration("VERIFY_POLL_INTERVAL", 3*time.Second),
		VerifyRedirectDelay: getenvDuration("VERIFY_REDIRECT_DELAY", 4*time.Second),
		VerifyWatchTTL:      getenvDuration("VERIFY_WATCH_TTL", 30*time.Minute),
		RecoveryRateLimit:   getenvInt("RECOVERY_RATE_LIMIT", 10),
		RecoveryRateWindow:  getenvDuration("RECOVERY_RATE_WINDOW", 15*time.Minute),
		MatriculaMinLen:     getenvInt("MATRICULA_MIN_LEN", 4),
		MatriculaMaxLen:     getenvInt("MATRICULA_MAX_LEN", 6),
		MatriculaPrefix:     getenv("MATRICULA_PREFIX", ""),
		MatriculaSuffix:     getenv("MATRICULA_SUFFIX", ""),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
