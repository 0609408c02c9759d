package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tallgrasslabs/climatecompare/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// ESGF federated search.
	ESGFSearchURL string
	ESGFTimeout   time.Duration
	ESGFPageSize  int
	ESGFCacheSize int
	Query         domain.CatalogQuery

	// ARM Live Data Web Service.
	ARMBaseURL    string
	ARMUser       string
	ARMToken      string
	ARMDatastream string
	ARMTimeout    time.Duration
	ObsVariable   string

	// Comparison window and site.
	PeriodStart time.Time
	PeriodEnd   time.Time
	Site        domain.Site
	TargetUnit  string

	// Local data handling.
	DataDir    string
	OutputPath string
	Workers    int
	ChunkLen   int

	// Kafka sink (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Scheduled mode: 0 means run once and exit.
	ScheduleInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is folded in first for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	esgfTimeout, err := envDuration("ESGF_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	armTimeout, err := envDuration("ARM_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := envDuration("SCHEDULE_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	periodStart, err := envDate("PERIOD_START", "2013-01-01")
	if err != nil {
		return nil, err
	}
	periodEnd, err := envDate("PERIOD_END", "2014-12-31")
	if err != nil {
		return nil, err
	}

	siteLat, err := envFloat("SITE_LAT", 36.605)
	if err != nil {
		return nil, err
	}
	siteLon, err := envFloat("SITE_LON", -97.485)
	if err != nil {
		return nil, err
	}

	brokers := splitCSV(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ESGFSearchURL: envOrDefault("ESGF_SEARCH_URL", "https://esgf-node.llnl.gov/esg-search/search"),
		ESGFTimeout:   esgfTimeout,
		ESGFPageSize:  envIntOrDefault("ESGF_PAGE_SIZE", 100),
		ESGFCacheSize: envIntOrDefault("ESGF_CACHE_SIZE", 100),
		Query: domain.CatalogQuery{
			Project:      envOrDefault("ESGF_PROJECT", "CMIP6"),
			SourceID:     envOrDefault("ESGF_SOURCE_ID", "CESM2"),
			ExperimentID: envOrDefault("ESGF_EXPERIMENT_ID", "historical"),
			VariableID:   envOrDefault("ESGF_VARIABLE_ID", "tas"),
			Frequency:    envOrDefault("ESGF_FREQUENCY", "day"),
			VariantLabel: os.Getenv("ESGF_VARIANT_LABEL"),
			Latest:       true,
		},

		ARMBaseURL:    envOrDefault("ARM_BASE_URL", "https://adc.arm.gov/armlive/data"),
		ARMUser:       os.Getenv("ARM_USER"),
		ARMToken:      os.Getenv("ARM_TOKEN"),
		ARMDatastream: envOrDefault("ARM_DATASTREAM", "sgpmetE13.b1"),
		ARMTimeout:    armTimeout,
		ObsVariable:   envOrDefault("ARM_OBS_VARIABLE", "temp_mean"),

		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Site: domain.Site{
			Name: envOrDefault("SITE_NAME", "SGP E13"),
			Lat:  siteLat,
			Lon:  siteLon,
		},
		TargetUnit: envOrDefault("TARGET_UNIT", "degC"),

		DataDir:    envOrDefault("DATA_DIR", "data"),
		OutputPath: envOrDefault("OUTPUT_PATH", "comparison.html"),
		Workers:    envIntOrDefault("WORKERS", runtime.NumCPU()),
		ChunkLen:   envIntOrDefault("CHUNK_LEN", 365),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "model-obs-comparisons"),

		ScheduleInterval: scheduleInterval,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Query.VariableID == "" {
		return errors.New("ESGF_VARIABLE_ID is required")
	}
	if c.ARMUser == "" {
		return errors.New("ARM_USER is required")
	}
	if c.ARMToken == "" {
		return errors.New("ARM_TOKEN is required")
	}
	if !c.PeriodEnd.After(c.PeriodStart) {
		return errors.New("PERIOD_END must be after PERIOD_START")
	}
	if c.Site.Lat < -90 || c.Site.Lat > 90 {
		return errors.New("SITE_LAT must be within [-90, 90]")
	}
	if c.Site.Lon < -180 || c.Site.Lon >= 360 {
		return errors.New("SITE_LON must be within [-180, 360)")
	}
	if c.Workers <= 0 {
		return errors.New("WORKERS must be positive")
	}
	if c.ChunkLen <= 0 {
		return errors.New("CHUNK_LEN must be positive")
	}
	if c.ESGFPageSize <= 0 || c.ESGFPageSize > 10000 {
		return errors.New("ESGF_PAGE_SIZE must be in (0, 10000]")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if c.ScheduleInterval < 0 {
		return errors.New("SCHEDULE_INTERVAL must not be negative")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envDate(key, def string) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		s = def
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t.UTC(), nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
