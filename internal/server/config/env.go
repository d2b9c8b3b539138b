package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// envBindings maps viper keys to the environment variables they are read from.
var envBindings = map[string]string{
	"address":            "ADDRESS",
	"database_dsn":       "DATABASE_DSN",
	"secret_key":         "SECRET_KEY",
	"bcrypt_work_factor": "BCRYPT_WORK_FACTOR",
	"token_validity":     "TOKEN_VALIDITY",
	"twilio_account_sid": "TWILIO_ACCOUNT_SID",
	"twilio_auth_token":  "TWILIO_AUTH_TOKEN",
	"twilio_from_phone":  "TWILIO_FROM_PHONE",
	"twilio_to_phone":    "TWILIO_TO_PHONE",
	"notify_timeout":     "NOTIFY_TIMEOUT",
	"shutdown_timeout":   "SHUTDOWN_TIMEOUT",
	"log_level":          "LOG_LEVEL",
}

// parseEnv overlays values from environment variables that are set and
// non-empty. Durations use Go syntax ("30s"); the work factor is an integer.
func parseEnv(config *Config) error {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	stringVars := map[string]*string{
		"address":            &config.EndpointAddrHTTP,
		"database_dsn":       &config.DatabaseDSN,
		"secret_key":         &config.SecretKey,
		"twilio_account_sid": &config.TwilioAccountSID,
		"twilio_auth_token":  &config.TwilioAuthToken,
		"twilio_from_phone":  &config.TwilioFromPhone,
		"twilio_to_phone":    &config.TwilioToPhone,
		"log_level":          &config.LogLevel,
	}
	for key, dst := range stringVars {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("bcrypt_work_factor") {
		n, err := strconv.Atoi(v.GetString("bcrypt_work_factor"))
		if err != nil {
			return fmt.Errorf("%s: %w", envBindings["bcrypt_work_factor"], err)
		}
		config.BcryptWorkFactor = n
	}

	durationVars := map[string]*time.Duration{
		"token_validity":   &config.TokenValidityDuration,
		"notify_timeout":   &config.NotifyTimeout,
		"shutdown_timeout": &config.ShutdownTimeout,
	}
	for key, dst := range durationVars {
		if !v.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %w", envBindings[key], err)
		}
		*dst = d
	}

	return nil
}
