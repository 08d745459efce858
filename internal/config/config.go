package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Embedding  EmbeddingConfig
	Matching   MatchingConfig
	Attendance AttendanceConfig
	Web        WebConfig
	Log        LogConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL   string `yaml:"url"`   // embedding server, defaults to http://localhost:8000
	Dim   int    `yaml:"dim"`   // descriptor length, defaults to 128
	Model string `yaml:"model"` // stored next to every face sample
}

type MatchingConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type AttendanceConfig struct {
	LateCutoff string `yaml:"late_cutoff"` // HH:MM local time
	Timezone   string `yaml:"timezone"`    // IANA name or "Local"
	Location   string `yaml:"location"`    // default check-in location
}

type WebConfig struct {
	Host           string
	Port           int
	APIToken       string // bearer token for admin endpoints, empty disables the check
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type defaults struct {
	Matching   MatchingConfig   `yaml:"matching"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Attendance AttendanceConfig `yaml:"attendance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL:   envString("EMBEDDING_URL", d.Embedding.URL),
			Dim:   envInt("EMBEDDING_DIM", d.Embedding.Dim),
			Model: envString("EMBEDDING_MODEL", d.Embedding.Model),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", d.Matching.Threshold),
		},
		Attendance: AttendanceConfig{
			LateCutoff: envString("ATTENDANCE_LATE_CUTOFF", d.Attendance.LateCutoff),
			Timezone:   envString("ATTENDANCE_TIMEZONE", d.Attendance.Timezone),
			Location:   envString("ATTENDANCE_LOCATION", d.Attendance.Location),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}

// ParseCutoff parses "HH:MM" into a duration since midnight.
func ParseCutoff(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid late cutoff %q (want HH:MM): %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// LoadLocation resolves the attendance timezone. Empty and "Local" mean the process timezone.
func (c *AttendanceConfig) LoadLocation() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid attendance timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CutoffDuration returns the parsed late cutoff.
func (c *AttendanceConfig) CutoffDuration() (time.Duration, error) {
	return ParseCutoff(c.LateCutoff)
}
