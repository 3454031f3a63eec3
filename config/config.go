// Package config loads the leadagent configuration from a JSON file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
)

type Config struct {
	LLM     LLMConfig     `json:"llm"`
	Server  ServerConfig  `json:"server"`
	Session SessionConfig `json:"session"`
	Sink    SinkConfig    `json:"sink"`
	Log     LogConfig     `json:"log"`
}

type LLMConfig struct {
	APIKey      string   `json:"api_key"`
	BaseURL     string   `json:"base_url"`
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	Timeout     Duration `json:"timeout"`
	Language    string   `json:"language"`
	// ToolExtraction extracts fields with a forced tool call instead of a JSON prompt.
	ToolExtraction bool `json:"tool_extraction"`
}

type ServerConfig struct {
	Port        string   `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`
}

type SessionConfig struct {
	TTL           Duration `json:"ttl"`
	RedisURL      string   `json:"redis_url"`
	HistoryWindow int      `json:"history_window"`
}

type SinkConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty disables the record store.
	DSN             string   `json:"dsn"`
	PhoneRegion     string   `json:"phone_region"`
	CredentialsFile string   `json:"credentials_file"`
	SpreadsheetID   string   `json:"spreadsheet_id"`
	SheetName       string   `json:"sheet_name"`
	CSVPath         string   `json:"csv_path"`
	JournalPath     string   `json:"journal_path"`
	TimeZone        string   `json:"time_zone"`
	Timeout         Duration `json:"timeout"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration reads "30s" style strings or whole seconds from JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		v, err := time.ParseDuration(unquoted)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", unquoted, err)
		}
		d.Duration = v
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s", s)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     Duration{30 * time.Second},
			Language:    "English",
		},
		Server: ServerConfig{
			Port:        "8000",
			CORSOrigins: []string{"*"},
			RateLimit:   2,
			RateBurst:   10,
		},
		Session: SessionConfig{
			TTL:           Duration{24 * time.Hour},
			HistoryWindow: 6,
		},
		Sink: SinkConfig{
			DSN:         "./data/leads.db",
			PhoneRegion: "IN",
			CSVPath:     "./data/leads.csv",
			JournalPath: "./data/leads.ndjson",
			Timeout:     Duration{20 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the JSON file at path
// (skipped when path is empty), then environment overrides. A .env file
// in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := sonic.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.Language = getEnv("LEADAGENT_LANGUAGE", c.LLM.Language)
	c.LLM.ToolExtraction = getEnvBool("LEADAGENT_TOOL_EXTRACTION", c.LLM.ToolExtraction)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitCSV(v)
	}
	c.Session.RedisURL = getEnv("REDIS_URL", c.Session.RedisURL)

	c.Sink.DSN = getEnv("DB_DSN", c.Sink.DSN)
	c.Sink.PhoneRegion = getEnv("PHONE_REGION", c.Sink.PhoneRegion)
	c.Sink.CredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.Sink.CredentialsFile)
	c.Sink.SpreadsheetID = getEnv("SPREADSHEET_ID", c.Sink.SpreadsheetID)
	c.Sink.SheetName = getEnv("SHEET_NAME", c.Sink.SheetName)
	c.Sink.CSVPath = getEnv("SHEET_CSV_PATH", c.Sink.CSVPath)
	c.Sink.JournalPath = getEnv("JOURNAL_PATH", c.Sink.JournalPath)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var errs []error
	if v, ok := os.LookupEnv("LLM_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = float32(f)
		}
	}
	if v, ok := os.LookupEnv("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT: %w", err))
		} else {
			c.Server.RateLimit = f
		}
	}
	for key, dst := range map[string]*Duration{
		"LLM_TIMEOUT":  &c.LLM.Timeout,
		"SESSION_TTL":  &c.Session.TTL,
		"SINK_TIMEOUT": &c.Sink.Timeout,
	} {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			dst.Duration = d
		}
	}
	return errors.Join(errs...)
}

// Validate checks ranges and required combinations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port cannot be empty"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm model cannot be empty"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature %.2f out of range [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.Timeout.Duration < 0 || c.Sink.Timeout.Duration < 0 || c.Session.TTL.Duration < 0 {
		errs = append(errs, errors.New("timeouts and ttl cannot be negative"))
	}
	if c.Session.HistoryWindow <= 0 {
		errs = append(errs, errors.New("session history window must be > 0"))
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("rate limit and burst cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		errs = append(errs, errors.New("rate burst must be > 0 when rate limiting is enabled"))
	}
	if c.Sink.SpreadsheetID != "" && c.Sink.CredentialsFile == "" {
		errs = append(errs, errors.New("spreadsheet id requires a credentials file"))
	}
	if c.Sink.TimeZone != "" {
		if _, err := time.LoadLocation(c.Sink.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("sink time zone: %w", err))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Backends lists the independent lead backends this configuration enables:
// the record store and the sheet mirror (Google Sheets, else CSV).
func (c SinkConfig) Backends() []string {
	var out []string
	if c.DSN != "" {
		out = append(out, "record_store")
	}
	if c.SpreadsheetID != "" || c.CSVPath != "" {
		out = append(out, "sheet_mirror")
	}
	return out
}

// Postgres reports whether the record store DSN points at Postgres.
func (c SinkConfig) Postgres() bool {
	return strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://")
}

// Location returns the zone sheet timestamps are rendered in.
func (c SinkConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
