// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	contextutils "examprep/internal/utils"

	"gopkg.in/yaml.v3"
)

// CertificationConfig represents the subjects and course options for a certification
type CertificationConfig struct {
	Name     string   `json:"name" yaml:"name"`
	Subjects []string `json:"subjects" yaml:"subjects"`
}

// SchedulerConfig holds the tunables of the daily study-routine scheduler.
// Defaults encode the design targets of the program: every question seen
// roughly three times over a course, a hard floor of ten review questions a
// day, and the last 20% of the course spent purely on review.
type SchedulerConfig struct {
	// RepetitionCoefficient is the aggregate number of times each question
	// should be shown across the whole course
	RepetitionCoefficient float64 `json:"repetition_coefficient" yaml:"repetition_coefficient"`
	// ReviewFloor is the minimum daily review quota regardless of bank size
	ReviewFloor int `json:"review_floor" yaml:"review_floor"`
	// ReadingFloor is the minimum reading session size
	ReadingFloor int `json:"reading_floor" yaml:"reading_floor"`
	// FinalPhaseThreshold is the course progress ratio after which new
	// material stops and all capacity goes to review
	FinalPhaseThreshold float64 `json:"final_phase_threshold" yaml:"final_phase_threshold"`
	// NewRatio is the share of daily capacity spent on new questions during
	// the learning phase
	NewRatio float64 `json:"new_ratio" yaml:"new_ratio"`
}

// PhaseGateConfig holds the tunables of the Phase 2 readiness gate
type PhaseGateConfig struct {
	// AccuracyThreshold is the minimum accuracy (percent) a mastery quiz must
	// reach to count toward readiness
	AccuracyThreshold float64 `json:"accuracy_threshold" yaml:"accuracy_threshold"`
	// RequiredStreak is how many of the most recent results must clear the
	// threshold
	RequiredStreak int `json:"required_streak" yaml:"required_streak"`
	// HistoryLimit bounds the per-subject result history
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`
}

// ReviewReminderConfig holds the age buckets for wrong-answer review reminders
type ReviewReminderConfig struct {
	ShortTermDays int `json:"short_term_days" yaml:"short_term_days"`
	LongTermDays  int `json:"long_term_days" yaml:"long_term_days"`
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Certifications and their subject rotations
	Certifications map[string]CertificationConfig `json:"certifications" yaml:"certifications"`

	// Scheduler tunables
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// Phase gate tunables
	PhaseGate PhaseGateConfig `json:"phase_gate" yaml:"phase_gate"`

	// Review reminder buckets
	ReviewReminder ReviewReminderConfig `json:"review_reminder" yaml:"review_reminder"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port              string   `json:"port" yaml:"port"`
	WorkerPort        string   `json:"worker_port" yaml:"worker_port"`
	AdminUsername     string   `json:"admin_username" yaml:"admin_username"`
	AdminPassword     string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret     string   `json:"session_secret" yaml:"session_secret"`
	Debug             bool     `json:"debug" yaml:"debug"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins"`
	ExtractionBaseURL string   `json:"extraction_base_url" yaml:"extraction_base_url"`
}

// GetCertifications returns a sorted slice of all configured certification codes
func (c *Config) GetCertifications() []string {
	if c.Certifications == nil {
		return []string{}
	}

	certs := make([]string, 0, len(c.Certifications))
	for cert := range c.Certifications {
		certs = append(certs, cert)
	}

	sort.Strings(certs)
	return certs
}

// GetSubjectsForCertification returns the subject rotation for a certification.
// The order is the order subjects appear in config, which drives the
// day-by-day rotation, so it must be stable.
func (c *Config) GetSubjectsForCertification(certification string) []string {
	if c.Certifications == nil {
		return []string{}
	}

	certConfig, exists := c.Certifications[certification]
	if !exists {
		return []string{}
	}

	return certConfig.Subjects
}

// SchedulerDefaults returns a SchedulerConfig with the documented defaults
func SchedulerDefaults() SchedulerConfig {
	return SchedulerConfig{
		RepetitionCoefficient: 3.0,
		ReviewFloor:           10,
		ReadingFloor:          5,
		FinalPhaseThreshold:   0.8,
		NewRatio:              0.6,
	}
}

// PhaseGateDefaults returns a PhaseGateConfig with the documented defaults
func PhaseGateDefaults() PhaseGateConfig {
	return PhaseGateConfig{
		AccuracyThreshold: 70,
		RequiredStreak:    3,
		HistoryLimit:      5,
	}
}

// applyDefaults fills zero-valued tunables with their documented defaults
func (c *Config) applyDefaults() {
	if c.Scheduler.RepetitionCoefficient <= 0 {
		c.Scheduler.RepetitionCoefficient = 3.0
	}
	if c.Scheduler.ReviewFloor <= 0 {
		c.Scheduler.ReviewFloor = 10
	}
	if c.Scheduler.ReadingFloor <= 0 {
		c.Scheduler.ReadingFloor = 5
	}
	if c.Scheduler.FinalPhaseThreshold <= 0 {
		c.Scheduler.FinalPhaseThreshold = 0.8
	}
	if c.Scheduler.NewRatio <= 0 {
		c.Scheduler.NewRatio = 0.6
	}
	if c.PhaseGate.AccuracyThreshold <= 0 {
		c.PhaseGate.AccuracyThreshold = 70
	}
	if c.PhaseGate.RequiredStreak <= 0 {
		c.PhaseGate.RequiredStreak = 3
	}
	if c.PhaseGate.HistoryLimit <= 0 {
		c.PhaseGate.HistoryLimit = 5
	}
	if c.ReviewReminder.ShortTermDays <= 0 {
		c.ReviewReminder.ShortTermDays = 7
	}
	if c.ReviewReminder.LongTermDays <= 0 {
		c.ReviewReminder.LongTermDays = 30
	}
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "examprep-backend" or "examprep-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Use the otel auto SDK tracer provider
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP          SMTPConfig          `json:"smtp" yaml:"smtp"`
	DailyReminder DailyReminderConfig `json:"daily_reminder" yaml:"daily_reminder"`
	Enabled       bool                `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// DailyReminderConfig represents daily reminder email configuration
type DailyReminderConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Hour    int  `json:"hour" yaml:"hour"` // Hour of day to send (0-23)
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			// Handle pointer to struct
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("EXAMPREP_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml
	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
