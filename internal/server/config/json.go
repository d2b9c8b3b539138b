package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/messagely/internal/flagx"
)

// Duration accepts either a Go duration string ("10s", "1m30s") or an integer
// number of nanoseconds when unmarshalled from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}

	return nil
}

// JSONConfig is the on-disk shape of the config file. Pointer fields tell
// "absent" apart from an explicit zero value so the file only overrides what
// it mentions.
type JSONConfig struct {
	EndpointAddrHTTP      *string   `json:"endpoint_addr_http"`
	DatabaseDSN           *string   `json:"database_dsn"`
	SecretKey             *string   `json:"secret_key"`
	BcryptWorkFactor      *int      `json:"bcrypt_work_factor"`
	TokenValidityDuration *Duration `json:"token_validity_duration"`
	TwilioAccountSID      *string   `json:"twilio_account_sid"`
	TwilioAuthToken       *string   `json:"twilio_auth_token"`
	TwilioFromPhone       *string   `json:"twilio_from_phone"`
	TwilioToPhone         *string   `json:"twilio_to_phone"`
	NotifyTimeout         *Duration `json:"notify_timeout"`
	ShutdownTimeout       *Duration `json:"shutdown_timeout"`
	LogLevel              *string   `json:"log_level"`
}

// parseJSON overlays values from the file given by -c/-config. Without that
// flag it is a no-op.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.BcryptWorkFactor != nil {
		config.BcryptWorkFactor = *c.BcryptWorkFactor
	}
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.TwilioAccountSID, c.TwilioAccountSID)
	setString(&config.TwilioAuthToken, c.TwilioAuthToken)
	setString(&config.TwilioFromPhone, c.TwilioFromPhone)
	setString(&config.TwilioToPhone, c.TwilioToPhone)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
