package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Image     ImageConfig     `mapstructure:"image"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// CatalogConfig holds the catalog feed configuration
type CatalogConfig struct {
	URL         string        `mapstructure:"url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RatePerHour int           `mapstructure:"rate_per_hour"`
}

// CacheConfig holds the feed payload cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// MatchingConfig holds match resolver configuration
type MatchingConfig struct {
	EnableDebugLogging bool `mapstructure:"enable_debug_logging"`
}

// ImageConfig holds image probing configuration
type ImageConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// LayoutConfig locates product rows of one table layout
type LayoutConfig struct {
	Name      string `mapstructure:"name"`
	NameCells string `mapstructure:"name_cells"`
	SKUCell   string `mapstructure:"sku_cell"`
	ImageCell string `mapstructure:"image_cell"`
}

// ColumnRuleConfig lists 1-based columns to hide in a table
type ColumnRuleConfig struct {
	Table   string `mapstructure:"table"`
	Columns []int  `mapstructure:"columns"`
}

// AlternativeTablesConfig detects extra tables by their SKU header
type AlternativeTablesConfig struct {
	Tables     string   `mapstructure:"tables"`
	Exclude    string   `mapstructure:"exclude"`
	Keywords   []string `mapstructure:"keywords"`
	SKUColumns []int    `mapstructure:"sku_columns"`
	Columns    []int    `mapstructure:"columns"`
}

// ScannerConfig holds the page scanner configuration
type ScannerConfig struct {
	PrimaryLinkHost   string                  `mapstructure:"primary_link_host"`
	SKUAttribute      string                  `mapstructure:"sku_attribute"`
	Layouts           []LayoutConfig          `mapstructure:"layouts"`
	HiddenColumns     []ColumnRuleConfig      `mapstructure:"hidden_columns"`
	AlternativeTables AlternativeTablesConfig `mapstructure:"alternative_tables"`
}

// FilterConfig selects the mutations that trigger a rescan
type FilterConfig struct {
	ChildListTargets  string   `mapstructure:"child_list_targets"`
	AddedNodes        string   `mapstructure:"added_nodes"`
	AddedNodesContain string   `mapstructure:"added_nodes_contain"`
	AttributeTargets  string   `mapstructure:"attribute_targets"`
	HighlightClass    string   `mapstructure:"highlight_class"`
	TitleMarker       string   `mapstructure:"title_marker"`
	TrackedAttributes []string `mapstructure:"tracked_attributes"`
}

// WatcherConfig holds the change watcher configuration
type WatcherConfig struct {
	Debounce          time.Duration `mapstructure:"debounce"`
	NavigationDelay   time.Duration `mapstructure:"navigation_delay"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	DiscoveryAttempts int           `mapstructure:"discovery_attempts"`
	DiscoveryInterval time.Duration `mapstructure:"discovery_interval"`
	Containers        string        `mapstructure:"containers"`
	Attributes        []string      `mapstructure:"attributes"`
	Targets           string        `mapstructure:"targets"`
	Filter            FilterConfig  `mapstructure:"filter"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // "json" or "console"
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
	AddCaller   bool   `mapstructure:"add_caller"`
	ServiceName string `mapstructure:"service_name"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from the default search paths
// when path is empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/imagefinder/")
	}

	v.SetEnvPrefix("IMAGEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The file is optional when searching the default paths
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "https://*.lionwheel.com"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 8<<20)

	// Catalog defaults
	v.SetDefault("catalog.url", "https://raw.githubusercontent.com/AdamLee9186/anipet/main/anipet_master_catalog_v1.csv")
	v.SetDefault("catalog.user_agent", "imagefinder/1.0")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.load_timeout", "60s")
	v.SetDefault("catalog.max_attempts", 1)
	v.SetDefault("catalog.rate_per_hour", 120)

	// Cache defaults
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup_interval", "1m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("matching.enable_debug_logging", false)
	v.SetDefault("image.probe_timeout", "5s")

	// Scanner defaults match the task pages of the delivery dashboard
	v.SetDefault("scanner.primary_link_host", "anipet.co.il")
	v.SetDefault("scanner.sku_attribute", "data-original-sku")
	v.SetDefault("scanner.layouts", []map[string]any{
		{
			"name":       "task_overview",
			"name_cells": "#taskOverview > div > div:nth-child(2) > div.row > div > div > table > tbody > tr > td:nth-child(3)",
			"sku_cell":   "td.text-nowrap",
			"image_cell": "td:first-child",
		},
		{
			"name": "kt_content",
			"name_cells": "#kt_content > div.d-flex.flex-column-fluid > div > div > div > div > div > div > div > div > " +
				"div:nth-child(8) > div > div > table > tbody > tr > td:nth-child(3)",
			"sku_cell":   "td:nth-child(2)",
			"image_cell": "td:first-child",
		},
	})
	v.SetDefault("scanner.hidden_columns", []map[string]any{
		{"table": "#taskOverview table.table-hover", "columns": []int{4, 7, 8, 9, 10}},
		{"table": "#kt_content table.table-hover", "columns": []int{4, 7, 8, 9, 10}},
	})
	v.SetDefault("scanner.alternative_tables.tables", "table.table.table-hover")
	v.SetDefault("scanner.alternative_tables.exclude", "#taskOverview, #kt_content")
	v.SetDefault("scanner.alternative_tables.keywords", []string{"מק״ט", "sku"})
	v.SetDefault("scanner.alternative_tables.sku_columns", []int{2, 3})
	v.SetDefault("scanner.alternative_tables.columns", []int{4, 7, 8, 9, 10})

	// Watcher defaults
	v.SetDefault("watcher.debounce", "450ms")
	v.SetDefault("watcher.navigation_delay", "700ms")
	v.SetDefault("watcher.initial_delay", "1s")
	v.SetDefault("watcher.discovery_attempts", 20)
	v.SetDefault("watcher.discovery_interval", "700ms")
	v.SetDefault("watcher.containers", "#taskOverview, #kt_content, table.table-hover")
	v.SetDefault("watcher.attributes", []string{"data-original-sku", "title"})
	v.SetDefault("watcher.targets", "#taskOverview, #kt_content")
	v.SetDefault("watcher.filter.child_list_targets", "#taskOverview, #kt_content, table.table-hover")
	v.SetDefault("watcher.filter.added_nodes",
		"#taskOverview table, #taskOverview tr, #kt_content table, #kt_content tr, table.table-hover, table.table-hover tr")
	v.SetDefault("watcher.filter.added_nodes_contain", "#taskOverview table, #kt_content table, table.table-hover")
	v.SetDefault("watcher.filter.attribute_targets", "#taskOverview table, #kt_content table, table.table-hover")
	v.SetDefault("watcher.filter.highlight_class", "barcode-highlight")
	v.SetDefault("watcher.filter.title_marker", "ברקוד הוחלף")
	v.SetDefault("watcher.filter.tracked_attributes", []string{"data-original-sku"})

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 14)
	v.SetDefault("logger.service_name", "imagefinder")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.URL == "" {
		return fmt.Errorf("catalog URL is required (set IMAGEFINDER_CATALOG_URL)")
	}

	durations := map[string]time.Duration{
		"catalog.timeout":          config.Catalog.Timeout,
		"catalog.load_timeout":     config.Catalog.LoadTimeout,
		"watcher.debounce":         config.Watcher.Debounce,
		"watcher.navigation_delay": config.Watcher.NavigationDelay,
		"watcher.initial_delay":    config.Watcher.InitialDelay,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got: %s", key, d)
		}
	}

	if config.Catalog.MaxAttempts < 1 {
		return fmt.Errorf("catalog.max_attempts must be at least 1, got: %d", config.Catalog.MaxAttempts)
	}

	if config.Logger.Format != "json" && config.Logger.Format != "console" {
		return fmt.Errorf("logger format must be 'json' or 'console', got: %s", config.Logger.Format)
	}

	if len(config.Scanner.Layouts) == 0 {
		return fmt.Errorf("at least one scanner layout is required")
	}
	for i, layout := range config.Scanner.Layouts {
		if layout.NameCells == "" {
			return fmt.Errorf("scanner layout %d has no name_cells selector", i)
		}
	}

	return nil
}
