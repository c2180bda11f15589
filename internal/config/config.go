package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type MockProviderConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Credentials the mock accepts via basic auth
	AccountSID string `envconfig:"TWILIO_ACCOUNT_SID" default:"mock_sid"`
	AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN" default:"mock_token"`

	OutcomesRaw string `envconfig:"MOCK_OUTCOMES" default:"ok"`
	DelayMs     int    `envconfig:"MOCK_DELAY_MS" default:"0"`

	Outcomes []string      `ignored:"true"`
	Delay    time.Duration `ignored:"true"`
}

// LoadMockProvider reads an optional .env file, then the environment.
func LoadMockProvider() (MockProviderConfig, error) {
	_ = godotenv.Load()

	var cfg MockProviderConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return MockProviderConfig{}, err
	}
	cfg.Outcomes = ParseCSV(cfg.OutcomesRaw)
	if cfg.DelayMs > 0 {
		cfg.Delay = time.Duration(cfg.DelayMs) * time.Millisecond
	}
	return cfg, nil
}

func ParseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{"ok"}
	}
	return out
}
