package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// Store holds the settings needed to open durable storage.
type Store struct {
	Driver    string
	Path      string
	RedisAddr string
	RedisDB   int
}

// Settings is the full runtime configuration of the contest CLI.
type Settings struct {
	Store     Store
	LogLevel  string
	LogFormat string
}

// FromEnv builds Settings from the environment, applying defaults.
// Call Load first if a .env file should be honoured.
func FromEnv() Settings {
	return Settings{
		Store: Store{
			Driver:    GetEnv("STORE_DRIVER", "bolt"),
			Path:      GetEnv("STORE_PATH", "contest.db"),
			RedisAddr: GetEnv("REDIS_ADDR", "localhost:6379"),
			RedisDB:   GetEnvInt("REDIS_DB", 0),
		},
		LogLevel:  GetEnv("LOG_LEVEL", "warn"),
		LogFormat: GetEnv("LOG_FORMAT", "text"),
	}
}
