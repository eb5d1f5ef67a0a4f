package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultExpectedAnswer is used when neither the caller nor the environment
// supplies an expected answer.
const DefaultExpectedAnswer = "(x + 1)**2"

// Placeholder credentials shipped in example env files. They count as unset.
const (
	PlaceholderAppID  = "YOUR_APP_ID"
	PlaceholderAppKey = "YOUR_APP_KEY"
)

type Config struct {
	Server   ServerConfig
	MathPix  MathPixConfig
	Grading  GradingConfig
	Symbolic SymbolicConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	UploadMaxBytes int64
	AllowedOrigins []string
}

type MathPixConfig struct {
	AppID   string
	AppKey  string
	URL     string
	Timeout time.Duration
}

// Configured reports whether real credentials are present.
func (c MathPixConfig) Configured() bool {
	if c.AppID == "" || c.AppKey == "" {
		return false
	}
	return c.AppID != PlaceholderAppID && c.AppKey != PlaceholderAppKey
}

type GradingConfig struct {
	DefaultExpectedAnswer string
}

// SymbolicConfig bounds the work done by the expression comparator.
type SymbolicConfig struct {
	MaxExponent int
	MaxTerms    int
	MaxBits     int // widest exact coefficient, in bits
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MATHPIX_APP_ID", PlaceholderAppID)
	v.SetDefault("MATHPIX_APP_KEY", PlaceholderAppKey)
	v.SetDefault("MATHPIX_URL", "https://api.mathpix.com/v3/text")
	v.SetDefault("MATHPIX_TIMEOUT", "15s")
	v.SetDefault("DEFAULT_EXPECTED_ANSWER", DefaultExpectedAnswer)
	v.SetDefault("SYMBOLIC_MAX_EXPONENT", 64)
	v.SetDefault("SYMBOLIC_MAX_TERMS", 4096)
	v.SetDefault("SYMBOLIC_MAX_BITS", 1<<16)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	// Optional file, env still wins
	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("MATHPIX_TIMEOUT"))
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}

	expected := strings.TrimSpace(v.GetString("DEFAULT_EXPECTED_ANSWER"))
	if expected == "" {
		expected = DefaultExpectedAnswer
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		MathPix: MathPixConfig{
			AppID:   strings.TrimSpace(v.GetString("MATHPIX_APP_ID")),
			AppKey:  strings.TrimSpace(v.GetString("MATHPIX_APP_KEY")),
			URL:     v.GetString("MATHPIX_URL"),
			Timeout: timeout,
		},
		Grading: GradingConfig{
			DefaultExpectedAnswer: expected,
		},
		Symbolic: SymbolicConfig{
			MaxExponent: v.GetInt("SYMBOLIC_MAX_EXPONENT"),
			MaxTerms:    v.GetInt("SYMBOLIC_MAX_TERMS"),
			MaxBits:     v.GetInt("SYMBOLIC_MAX_BITS"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
