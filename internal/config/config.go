package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MobilityCSV  string
	SummaryCSV   string
	DisasterName string

	Model  domain.Model
	Params domain.Params

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	BatchSize       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	params, err := loadParams()
	if err != nil {
		return nil, err
	}

	model, err := domain.ParseModel(sharedcfg.EnvOrDefault("RESILIENCE_MODEL", string(domain.ModelTriangle)))
	if err != nil {
		return nil, fmt.Errorf("invalid RESILIENCE_MODEL: %w", err)
	}

	cfg := &Config{
		MobilityCSV:  sharedcfg.EnvOrDefault("MOBILITY_CSV", ""),
		SummaryCSV:   sharedcfg.EnvOrDefault("SUMMARY_CSV", "cbg_resilience_summary.csv"),
		DisasterName: sharedcfg.EnvOrDefault("DISASTER_NAME", ""),
		Model:        model,
		Params:       params,

		KafkaEnabled:   sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "resilience-metrics"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		BatchSize:       batchSize,
	}

	if cfg.MobilityCSV == "" {
		return nil, errors.New("MOBILITY_CSV is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func loadParams() (domain.Params, error) {
	startStr := sharedcfg.EnvOrDefault("DISASTER_START", "")
	endStr := sharedcfg.EnvOrDefault("DISASTER_END", "")
	if startStr == "" || endStr == "" {
		return domain.Params{}, errors.New("DISASTER_START and DISASTER_END are required")
	}
	start, err := domain.ParseDay(startStr)
	if err != nil {
		return domain.Params{}, fmt.Errorf("invalid DISASTER_START: %w", err)
	}
	end, err := domain.ParseDay(endStr)
	if err != nil {
		return domain.Params{}, fmt.Errorf("invalid DISASTER_END: %w", err)
	}
	if end.Before(start) {
		return domain.Params{}, errors.New("DISASTER_END must not precede DISASTER_START")
	}

	p := domain.DefaultParams(start, end)

	if p.SmoothingWindow, err = parsePositiveInt("SMOOTHING_WINDOW", p.SmoothingWindow); err != nil {
		return domain.Params{}, err
	}
	if p.BaselineLookbackDays, err = parsePositiveInt("BASELINE_LOOKBACK_DAYS", p.BaselineLookbackDays); err != nil {
		return domain.Params{}, err
	}

	thresholdStr := sharedcfg.EnvOrDefault("AUC_THRESHOLD", strconv.FormatFloat(domain.DefaultAUCThreshold, 'g', -1, 64))
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || threshold < 0 {
		return domain.Params{}, errors.New("invalid AUC_THRESHOLD")
	}
	p.AUCThreshold = threshold

	mode, err := domain.ParseSlopeMode(sharedcfg.EnvOrDefault("SLOPE_MODE", string(domain.SlopeElapsedDays)))
	if err != nil {
		return domain.Params{}, fmt.Errorf("invalid SLOPE_MODE: %w", err)
	}
	p.Slope.Mode = mode

	switch v := sharedcfg.EnvOrDefault("DEGENERATE_SLOPE", "0"); v {
	case "0":
		p.Slope.Degenerate = 0
	case "1":
		p.Slope.Degenerate = 1
	default:
		return domain.Params{}, fmt.Errorf("invalid DEGENERATE_SLOPE %q: must be 0 or 1", v)
	}

	return p, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
