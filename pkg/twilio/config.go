package twilio

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvAccountSID          = "TWILIO_ACCOUNT_SID"
	EnvAuthToken           = "TWILIO_AUTH_TOKEN"
	EnvMessagingServiceSID = "TWILIO_MESSAGING_SERVICE_SID"
)

// Settings are the process-wide fallbacks consulted when a constructor or send
// argument is empty.
type Settings struct {
	AccountSID          string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken           string `envconfig:"TWILIO_AUTH_TOKEN"`
	MessagingServiceSID string `envconfig:"TWILIO_MESSAGING_SERVICE_SID"`
}

// ConfigSource supplies Settings. The client asks for them at construction for
// credentials and again on each send for the messaging service SID.
type ConfigSource interface {
	Settings() (Settings, error)
}

// EnvSource reads Settings from the process environment.
type EnvSource struct{}

func (EnvSource) Settings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, fmt.Errorf("load twilio settings from env: %w", err)
	}
	return s, nil
}

// MapSource serves Settings from a fixed key/value map using the TWILIO_* keys.
type MapSource map[string]string

func (m MapSource) Settings() (Settings, error) {
	return Settings{
		AccountSID:          m[EnvAccountSID],
		AuthToken:           m[EnvAuthToken],
		MessagingServiceSID: m[EnvMessagingServiceSID],
	}, nil
}

// DotEnvSource reads Settings from one or more .env files without touching the
// process environment. Files are read on every call.
type DotEnvSource []string

func (d DotEnvSource) Settings() (Settings, error) {
	vals, err := godotenv.Read(d...)
	if err != nil {
		return Settings{}, fmt.Errorf("read dotenv: %w", err)
	}
	return MapSource(vals).Settings()
}
