// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Web        WebConfig        `yaml:"web"`
	Database   DatabaseConfig   `yaml:"database"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Sonar      SonarConfig      `yaml:"sonar"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Include    IncludeConfig    `yaml:"include"`
}

type IncludeConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern"`
	Enabled   bool   `yaml:"enabled"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr is the listen address built from host and port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type WebConfig struct {
	StaticDir   string `yaml:"static_dir"`
	ServeStatic bool   `yaml:"serve_static"`
	Root        string `yaml:"root"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type SonarConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Token           string        `yaml:"token"`
	CompanyID       *int64        `yaml:"company_id"`
	AccountStatusID *int64        `yaml:"account_status_id"`
	Timeout         time.Duration `yaml:"timeout"`
	PageSize        int           `yaml:"page_size"`
	MaxPages        int           `yaml:"max_pages"`
}

type CacheConfig struct {
	SummaryTTL   time.Duration `yaml:"summary_ttl"`
	DownTTL      time.Duration `yaml:"down_ttl"`
	WarningTTL   time.Duration `yaml:"warning_ttl"`
	SingleFlight *bool         `yaml:"single_flight"`
}

// SingleFlightEnabled defaults to true when unset.
func (c CacheConfig) SingleFlightEnabled() bool {
	return c.SingleFlight == nil || *c.SingleFlight
}

type MonitoringConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PartialConfig represents a partial configuration that can be merged
type PartialConfig struct {
	Server     *ServerConfig     `yaml:"server,omitempty"`
	Web        *WebConfig        `yaml:"web,omitempty"`
	Database   *DatabaseConfig   `yaml:"database,omitempty"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
	Sonar      *SonarConfig      `yaml:"sonar,omitempty"`
	Cache      *CacheConfig      `yaml:"cache,omitempty"`
	Monitoring *MonitoringConfig `yaml:"monitoring,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
}

// ConfigError reports a missing or malformed setting.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Msg)
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Load reads the YAML file (optional when it does not exist), merges any
// include files, loads envFiles, applies environment overrides, fills
// defaults and validates the result.
func Load(filename string, envFiles ...string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config file: %w", err)
	}

	if config.Include.Enabled && config.Include.Directory != "" {
		if err := loadIncludes(config, filepath.Dir(filename)); err != nil {
			return nil, fmt.Errorf("failed to load includes: %w", err)
		}
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFile(filename string) (*Config, error) {
	var config Config
	if filename == "" {
		return &config, nil
	}

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func loadIncludes(config *Config, baseDir string) error {
	includeDir := config.Include.Directory
	if !filepath.IsAbs(includeDir) {
		includeDir = filepath.Join(baseDir, includeDir)
	}

	if _, err := os.Stat(includeDir); os.IsNotExist(err) {
		return fmt.Errorf("include directory does not exist: %s", includeDir)
	}

	pattern := config.Include.Pattern
	if pattern == "" {
		pattern = "*.yaml"
	}

	matches, err := filepath.Glob(filepath.Join(includeDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to glob include pattern: %w", err)
	}

	if pattern == "*.yaml" {
		ymlMatches, err := filepath.Glob(filepath.Join(includeDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to glob .yml files: %w", err)
		}
		matches = append(matches, ymlMatches...)
	}

	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})

	for _, match := range matches {
		if err := loadAndMergeInclude(config, match); err != nil {
			return fmt.Errorf("failed to load include file %s: %w", match, err)
		}
	}

	return nil
}

func loadAndMergeInclude(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read include file: %w", err)
	}

	var partial PartialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("failed to parse include file YAML: %w", err)
	}

	mergePartialConfig(config, &partial)
	return nil
}

func mergePartialConfig(config *Config, partial *PartialConfig) {
	if partial.Server != nil {
		mergeServerConfig(&config.Server, partial.Server)
	}
	if partial.Web != nil {
		mergeWebConfig(&config.Web, partial.Web)
	}
	if partial.Database != nil {
		mergeDatabaseConfig(&config.Database, partial.Database)
	}
	if partial.Prometheus != nil {
		mergePrometheusConfig(&config.Prometheus, partial.Prometheus)
	}
	if partial.Sonar != nil {
		mergeSonarConfig(&config.Sonar, partial.Sonar)
	}
	if partial.Cache != nil {
		mergeCacheConfig(&config.Cache, partial.Cache)
	}
	if partial.Monitoring != nil && partial.Monitoring.RefreshInterval != 0 {
		config.Monitoring.RefreshInterval = partial.Monitoring.RefreshInterval
	}
	if partial.Logging != nil {
		mergeLoggingConfig(&config.Logging, partial.Logging)
	}
}

func mergeServerConfig(main *ServerConfig, partial *ServerConfig) {
	if partial.Host != "" {
		main.Host = partial.Host
	}
	if partial.Port != 0 {
		main.Port = partial.Port
	}
	if partial.ReadTimeout != 0 {
		main.ReadTimeout = partial.ReadTimeout
	}
	if partial.WriteTimeout != 0 {
		main.WriteTimeout = partial.WriteTimeout
	}
}

func mergeWebConfig(main *WebConfig, partial *WebConfig) {
	if partial.StaticDir != "" {
		main.StaticDir = partial.StaticDir
	}
	if partial.Root != "" {
		main.Root = partial.Root
	}
	main.ServeStatic = partial.ServeStatic
}

func mergeDatabaseConfig(main *DatabaseConfig, partial *DatabaseConfig) {
	if partial.Type != "" {
		main.Type = partial.Type
	}
	if partial.Path != "" {
		main.Path = partial.Path
	}
}

func mergePrometheusConfig(main *PrometheusConfig, partial *PrometheusConfig) {
	main.Enabled = partial.Enabled
	if partial.MetricsPath != "" {
		main.MetricsPath = partial.MetricsPath
	}
}

func mergeSonarConfig(main *SonarConfig, partial *SonarConfig) {
	if partial.Endpoint != "" {
		main.Endpoint = partial.Endpoint
	}
	if partial.Token != "" {
		main.Token = partial.Token
	}
	if partial.CompanyID != nil {
		main.CompanyID = partial.CompanyID
	}
	if partial.AccountStatusID != nil {
		main.AccountStatusID = partial.AccountStatusID
	}
	if partial.Timeout != 0 {
		main.Timeout = partial.Timeout
	}
	if partial.PageSize != 0 {
		main.PageSize = partial.PageSize
	}
	if partial.MaxPages != 0 {
		main.MaxPages = partial.MaxPages
	}
}

func mergeCacheConfig(main *CacheConfig, partial *CacheConfig) {
	if partial.SummaryTTL != 0 {
		main.SummaryTTL = partial.SummaryTTL
	}
	if partial.DownTTL != 0 {
		main.DownTTL = partial.DownTTL
	}
	if partial.WarningTTL != 0 {
		main.WarningTTL = partial.WarningTTL
	}
	if partial.SingleFlight != nil {
		main.SingleFlight = partial.SingleFlight
	}
}

func mergeLoggingConfig(main *LoggingConfig, partial *LoggingConfig) {
	if partial.Level != "" {
		main.Level = partial.Level
	}
	if partial.Format != "" {
		main.Format = partial.Format
	}
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "json"
	}
	if cfg.Database.Path == "" {
		if cfg.Database.Type == "boltdb" {
			cfg.Database.Path = "./data/sonarboard.db"
		} else {
			cfg.Database.Path = "./data/suppressions.json"
		}
	}

	// Web defaults
	if cfg.Web.StaticDir == "" {
		cfg.Web.StaticDir = "public"
	}
	if cfg.Web.Root == "" {
		cfg.Web.Root = "index.html"
	}

	// Include defaults
	if cfg.Include.Pattern == "" {
		cfg.Include.Pattern = "*.yaml"
	}

	// Upstream defaults
	if cfg.Sonar.Timeout == 0 {
		cfg.Sonar.Timeout = 30 * time.Second
	}
	if cfg.Sonar.PageSize == 0 {
		cfg.Sonar.PageSize = 100
	}
	if cfg.Sonar.MaxPages == 0 {
		cfg.Sonar.MaxPages = 50
	}

	// Cache defaults
	if cfg.Cache.SummaryTTL == 0 {
		cfg.Cache.SummaryTTL = 60 * time.Second
	}
	if cfg.Cache.DownTTL == 0 {
		cfg.Cache.DownTTL = 60 * time.Second
	}
	if cfg.Cache.WarningTTL == 0 {
		cfg.Cache.WarningTTL = 60 * time.Second
	}

	// Prometheus defaults
	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Sonar.Endpoint) == "" {
		return &ConfigError{Field: "SONAR_ENDPOINT", Msg: "is required"}
	}
	if !isValidURL(cfg.Sonar.Endpoint) {
		return &ConfigError{Field: "SONAR_ENDPOINT", Msg: "must be an http(s) URL"}
	}
	if strings.TrimSpace(cfg.Sonar.Token) == "" {
		return &ConfigError{Field: "SONAR_TOKEN", Msg: "is required"}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Msg: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.Port)}
	}

	switch cfg.Database.Type {
	case "json", "boltdb":
	default:
		return &ConfigError{Field: "database.type", Msg: fmt.Sprintf("must be json or boltdb, got %q", cfg.Database.Type)}
	}

	if cfg.Sonar.PageSize < 1 {
		return &ConfigError{Field: "sonar.page_size", Msg: "must be at least 1"}
	}
	if cfg.Sonar.MaxPages < 1 {
		return &ConfigError{Field: "sonar.max_pages", Msg: "must be at least 1"}
	}
	if cfg.Monitoring.RefreshInterval < 0 {
		return &ConfigError{Field: "monitoring.refresh_interval", Msg: "must not be negative"}
	}

	if cfg.Include.Enabled {
		if cfg.Include.Directory == "" {
			return &ConfigError{Field: "include.directory", Msg: "must be specified when include.enabled is true"}
		}
		if !isValidGlobPattern(cfg.Include.Pattern) {
			return &ConfigError{Field: "include.pattern", Msg: fmt.Sprintf("contains invalid glob pattern: %s", cfg.Include.Pattern)}
		}
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Msg: fmt.Sprintf("must be text or json, got %q", cfg.Logging.Format)}
	}

	return nil
}

// isValidURL checks if a string is a valid URL
func isValidURL(str string) bool {
	return strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://")
}

// isValidGlobPattern checks if a string is a valid glob pattern
func isValidGlobPattern(pattern string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "\\") {
		return false
	}
	_, err := filepath.Match(pattern, "test.yaml")
	return err == nil
}
