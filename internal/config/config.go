package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoTimeout    time.Duration
	VectorIndex     string

	GDELTBaseURL string
	FetchTimeout time.Duration
	FetchRetries int
	PollInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Gemini embedding configuration.
	GeminiAPIKey    string
	EmbedEnabled    bool
	EmbedModel      string
	EmbedDimensions int
	EmbedTimeout    time.Duration
	EmbedCacheSize  int

	// Google Maps reverse-geocoding configuration.
	MapsAPIKey       string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset. Missing credentials fail here, at startup, never mid-run.
func Load() (*Config, error) {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	mongoTimeout, err := envDuration("MONGO_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := envDuration("POLL_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	embedTimeout, err := envDuration("EMBED_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := envDuration("GEOCODE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	fetchRetries, err := envInt("FETCH_RETRIES", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	embedDimensions, err := envInt("EMBED_DIMENSIONS", 768, 1, 4096)
	if err != nil {
		return nil, err
	}
	embedCacheSize, err := envInt("EMBED_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	geocodeCacheSize, err := envInt("GEOCODE_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	embedEnabled := geminiKey != ""
	if v := os.Getenv("EMBED_ENABLED"); v != "" {
		embedEnabled = v == "true"
	}

	mapsKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	geocodeEnabled := mapsKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		MongoURI:        mongoURI,
		MongoDatabase:   envOrDefault("MONGO_DATABASE", "gdelt"),
		MongoCollection: envOrDefault("MONGO_COLLECTION", "disasters"),
		MongoTimeout:    mongoTimeout,
		VectorIndex:     envOrDefault("VECTOR_INDEX", "embedding_index"),

		GDELTBaseURL: envOrDefault("GDELT_BASE_URL", "http://data.gdeltproject.org/events"),
		FetchTimeout: fetchTimeout,
		FetchRetries: fetchRetries,
		PollInterval: pollInterval,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeminiAPIKey:    geminiKey,
		EmbedEnabled:    embedEnabled,
		EmbedModel:      envOrDefault("EMBED_MODEL", "gemini-embedding-001"),
		EmbedDimensions: embedDimensions,
		EmbedTimeout:    embedTimeout,
		EmbedCacheSize:  embedCacheSize,

		MapsAPIKey:       mapsKey,
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: geocodeCacheSize,
	}

	if cfg.EmbedEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("EMBED_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.GeocodeEnabled && cfg.MapsAPIKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but GOOGLE_MAPS_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: %q (want %d-%d)", key, s, minVal, maxVal)
	}
	return n, nil
}
