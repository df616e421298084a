package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	ngramindex "github.com/luhtfiimanal/go-ngram-index"
)

// Settings holds flag defaults loaded from the environment. Explicit flags
// always win.
type Settings struct {
	ChunkSize     int64
	UseMmap       bool
	Headroom      float64
	MaxEvictions  int
	LogLevel      string
	LogFormat     string
	MemlimitRatio float64
}

// LoadSettings reads NGRAM_* environment variables, falling back to the
// library defaults. Returns an error if a variable holds an invalid value.
func LoadSettings() (Settings, error) {
	cache := ngramindex.DefaultOptions()

	chunkSize, err := getEnvInt64("NGRAM_CHUNK_SIZE", ngramindex.DefaultChunkSize)
	if err != nil {
		return Settings{}, err
	}
	useMmap, err := getEnvBool("NGRAM_MMAP", cache.UseMmap)
	if err != nil {
		return Settings{}, err
	}
	headroom, err := getEnvFloat64("NGRAM_HEADROOM", cache.Headroom)
	if err != nil {
		return Settings{}, err
	}
	maxEvictions, err := getEnvInt("NGRAM_MAX_EVICTIONS", cache.MaxEvictionsPerMiss)
	if err != nil {
		return Settings{}, err
	}
	memlimitRatio, err := getEnvFloat64("NGRAM_MEMLIMIT_RATIO", 0)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		ChunkSize:     chunkSize,
		UseMmap:       useMmap,
		Headroom:      headroom,
		MaxEvictions:  maxEvictions,
		LogLevel:      getEnvString("NGRAM_LOG_LEVEL", "info"),
		LogFormat:     getEnvString("NGRAM_LOG_FORMAT", "text"),
		MemlimitRatio: memlimitRatio,
	}, nil
}

func getEnvString(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
	return n, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
	return b, nil
}
