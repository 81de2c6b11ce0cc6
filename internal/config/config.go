package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Analysis tools.
const (
	ToolAccessibility   = "accessibility"
	ToolTravelTimeStats = "travel_time_stats"
	ToolPercentAccess   = "percent_access"
	ToolStopHeadways    = "stop_headways"
)

const (
	defaultMaxWorkers     = 4
	defaultChunkSize      = 50
	defaultTimeChunks     = 1
	defaultCellSize       = 100.0
	defaultIncrement      = 1 * time.Minute
	defaultSQLDriver      = "sqlite"
	defaultKafkaBatch     = 100 * time.Millisecond
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultLogFileEnabled = false
	defaultLogDirectory   = "log"
	defaultLogFilename    = "transitlens.log"
	defaultLogMaxSizeMB   = 100
	defaultLogMaxBackups  = 3
	defaultLogMaxAgeDays  = 7
	defaultLogCompress    = false

	// Environment variable prefix
	envPrefix = "TRANSITLENS"
)

var defaultThresholds = []float64{25, 50, 75, 100}

type Config struct {
	Run     RunConfig     `mapstructure:"run"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type RunConfig struct {
	Tool       string       `mapstructure:"tool" validate:"required,oneof=accessibility travel_time_stats percent_access stop_headways"`
	Window     WindowConfig `mapstructure:"window"`
	MaxWorkers int          `mapstructure:"maxWorkers" validate:"gte=1,lte=256"`
	ChunkSize  int          `mapstructure:"chunkSize" validate:"gte=1"`
	TimeChunks int          `mapstructure:"timeChunks" validate:"gte=0"`
	Inputs     InputConfig  `mapstructure:"inputs"`

	// Percent access only.
	CellSize    float64   `mapstructure:"cellSize" validate:"gt=0"`
	Thresholds  []float64 `mapstructure:"thresholds"`
	TotalSlices int       `mapstructure:"totalSlices" validate:"gte=0"`
}

type WindowConfig struct {
	StartDay  string        `mapstructure:"startDay"`
	StartTime string        `mapstructure:"startTime"`
	EndDay    string        `mapstructure:"endDay"`
	EndTime   string        `mapstructure:"endTime"`
	Increment time.Duration `mapstructure:"increment" validate:"gt=0"`
}

type InputConfig struct {
	Replay   string `mapstructure:"replay"`   // recorded OD solves (YAML)
	Polygons string `mapstructure:"polygons"` // time lapse polygons (GeoJSON)
	Schedule string `mapstructure:"schedule"` // stop departures (YAML)
}

type OutputConfig struct {
	NullSentinel bool        `mapstructure:"nullSentinel"`
	SQL          SQLConfig   `mapstructure:"sql"`
	Kafka        KafkaConfig `mapstructure:"kafka"`
	GeoJSONDir   string      `mapstructure:"geojsonDir"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batchTimeout" validate:"gte=0"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"` // megabytes
	MaxBackups         int    `mapstructure:"maxBackups"`
	MaxAge             int    `mapstructure:"maxAge"` // days
	Compress           bool   `mapstructure:"compress"`
}

// Window converts the configured window for enumeration.
func (w WindowConfig) Window() timewindow.Window {
	return timewindow.Window{
		StartDay:  w.StartDay,
		StartTime: w.StartTime,
		EndDay:    w.EndDay,
		EndTime:   w.EndTime,
		Increment: w.Increment,
	}
}

// Load reads the YAML file at configPath over the defaults, applies
// TRANSITLENS_* environment overrides and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper points v at the config file and the environment.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers defaults for every optional key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("run.maxWorkers", defaultMaxWorkers)
	v.SetDefault("run.chunkSize", defaultChunkSize)
	v.SetDefault("run.timeChunks", defaultTimeChunks)
	v.SetDefault("run.cellSize", defaultCellSize)
	v.SetDefault("run.thresholds", defaultThresholds)
	v.SetDefault("run.window.increment", defaultIncrement)
	v.SetDefault("output.sql.driver", defaultSQLDriver)
	v.SetDefault("output.kafka.batchTimeout", defaultKafkaBatch)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile separates a missing file from an unreadable one.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrConfigFileMissing, err)
	}
	return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
}

// Validate checks struct tags first, then the rules that span fields.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	run := cfg.Run
	switch run.Tool {
	case ToolAccessibility, ToolTravelTimeStats:
		if run.Inputs.Replay == "" {
			return fmt.Errorf("%w: run.inputs.replay for %s", ErrMissingInput, run.Tool)
		}
		if _, err := run.Window.Window().Timestamps(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidWindow, err)
		}
	case ToolPercentAccess:
		if run.Inputs.Polygons == "" {
			return fmt.Errorf("%w: run.inputs.polygons for %s", ErrMissingInput, run.Tool)
		}
		if len(run.Thresholds) == 0 {
			return ErrInvalidThresholds
		}
		for _, p := range run.Thresholds {
			if !(p > 0 && p <= 100) {
				return fmt.Errorf("%w: got %v", ErrInvalidThresholds, p)
			}
		}
	case ToolStopHeadways:
		if run.Inputs.Schedule == "" {
			return fmt.Errorf("%w: run.inputs.schedule for %s", ErrMissingInput, run.Tool)
		}
		if _, err := timewindow.ParseClock(run.Window.StartTime); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidWindow, err)
		}
		if _, err := timewindow.ParseClock(run.Window.EndTime); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidWindow, err)
		}
	}

	out := cfg.Output
	if len(out.Kafka.Brokers) > 0 && out.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if out.SQL.DSN == "" && len(out.Kafka.Brokers) == 0 && out.GeoJSONDir == "" {
		return ErrNoOutput
	}
	return nil
}
