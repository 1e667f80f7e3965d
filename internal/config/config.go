package config

import (
	"fmt"
	"time"

	"github.com/kickoff/mapkit/internal/geo"
	"github.com/kickoff/mapkit/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "mapkit.cfg.json"

// SdkConfig bounds SDK readiness polling.
type SdkConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
	// LoadTimeout bounds the wait for the SDK's modules once its namespace is present.
	LoadTimeout time.Duration
}

// GeometryConfig bounds container measurement while constructing the map.
type GeometryConfig struct {
	MaxAttempts    int
	RetryInterval  time.Duration
	FallbackWidth  int
	FallbackHeight int
}

// MarkerConfig is the custom marker icon. An empty ImageURL keeps the SDK default.
type MarkerConfig struct {
	ImageURL    string
	ImageWidth  int
	ImageHeight int
}

// MapConfig holds every map lifecycle setting.
type MapConfig struct {
	Sdk            SdkConfig
	Geometry       GeometryConfig
	SettleDelay    time.Duration
	ResizeDebounce time.Duration
	MaxLevel       int
	HomeCenter     core.Coordinate
	HomeLevel      int
	DetailLevel    int
	Marker         MarkerConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string
	Format  string
	LogsDir string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults installs the defaults without reading a file.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "text")
	viper.SetDefault("logsDir", "./mapkitlogs")

	viper.SetDefault("map.sdk.maxAttempts", 10)
	viper.SetDefault("map.sdk.pollInterval", "500ms")
	viper.SetDefault("map.sdk.loadTimeout", "5s")

	viper.SetDefault("map.geometry.maxAttempts", 10)
	viper.SetDefault("map.geometry.retryInterval", "100ms")
	viper.SetDefault("map.geometry.fallbackWidth", 360)
	viper.SetDefault("map.geometry.fallbackHeight", 400)

	viper.SetDefault("map.settleDelay", "300ms")
	viper.SetDefault("map.resize.debounce", "16ms")
	viper.SetDefault("map.maxLevel", 14)

	viper.SetDefault("map.home.center", "37.504,127.049")
	viper.SetDefault("map.home.level", 5)
	viper.SetDefault("map.detail.level", 3)

	viper.SetDefault("map.marker.imageUrl", "/img/markerStar.png")
	viper.SetDefault("map.marker.imageWidth", 24)
	viper.SetDefault("map.marker.imageHeight", 35)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration returns a duration config value. Strings like "300ms" are parsed.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetMapConfig returns the map lifecycle settings.
func GetMapConfig() (MapConfig, error) {
	center, err := geo.ParseCoordinate(GetString("map.home.center"))
	if err != nil {
		return MapConfig{}, fmt.Errorf("map.home.center: %w", err)
	}
	return MapConfig{
		Sdk: SdkConfig{
			MaxAttempts:  GetInt("map.sdk.maxAttempts"),
			PollInterval: GetDuration("map.sdk.pollInterval"),
			LoadTimeout:  GetDuration("map.sdk.loadTimeout"),
		},
		Geometry: GeometryConfig{
			MaxAttempts:    GetInt("map.geometry.maxAttempts"),
			RetryInterval:  GetDuration("map.geometry.retryInterval"),
			FallbackWidth:  GetInt("map.geometry.fallbackWidth"),
			FallbackHeight: GetInt("map.geometry.fallbackHeight"),
		},
		SettleDelay:    GetDuration("map.settleDelay"),
		ResizeDebounce: GetDuration("map.resize.debounce"),
		MaxLevel:       GetInt("map.maxLevel"),
		HomeCenter:     center,
		HomeLevel:      GetInt("map.home.level"),
		DetailLevel:    GetInt("map.detail.level"),
		Marker: MarkerConfig{
			ImageURL:    GetString("map.marker.imageUrl"),
			ImageWidth:  GetInt("map.marker.imageWidth"),
			ImageHeight: GetInt("map.marker.imageHeight"),
		},
	}, nil
}

// GetLogConfig returns the logging settings.
func GetLogConfig() LogConfig {
	return LogConfig{
		Level:   GetString("logLevel"),
		Format:  GetString("logFormat"),
		LogsDir: GetString("logsDir"),
	}
}
