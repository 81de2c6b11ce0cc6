package config

import "errors"

var (
	ErrReadingConfigFile   = errors.New("failed to read config file")
	ErrUnmarshallingConfig = errors.New("failed to unmarshal config")
	ErrConfigFileMissing   = errors.New("config file not found")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidWindow       = errors.New("invalid analysis time window")
	ErrMissingInput        = errors.New("required input file not configured")
	ErrNoOutput            = errors.New("no output configured (sql, kafka or geojson)")
	ErrEmptyKafkaTopic     = errors.New("kafka topic cannot be empty when brokers are set")
	ErrInvalidThresholds   = errors.New("percent access thresholds must be in (0, 100]")
)
