package env

import (
	"os"
)

const (
	APIURL         = "CONSOLE_API_URL"
	PushURL        = "CONSOLE_WS_URL"
	AccessToken    = "CONSOLE_ACCESS_TOKEN"
	CacheRedisURL  = "CACHE_REDIS_URL"
	CacheRedisPass = "CACHE_REDIS_PASS"
	MetricsAddr    = "CONSOLE_METRICS_ADDR"
	SoundAsset     = "CONSOLE_SOUND_ASSET"
)

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
