package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/messagely/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":3000")
//	-d string   PostgreSQL DSN ("" for the in-memory store)
//	-s string   token signing secret
//	-w int      bcrypt work factor
//	-t int      token validity, minutes (0 disables expiry)
//	-u string   Twilio account SID
//	-p string   Twilio auth token
//	-f string   Twilio sender phone
//	-n string   notification recipient phone
//	-l string   log level
//
// Only these flags are looked at; -c/-config belongs to parseJSON.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-w", "-t", "-u", "-p", "-f", "-n", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.BcryptWorkFactor, "w", config.BcryptWorkFactor, "bcrypt work factor")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes, 0 = no expiry)")
	fs.StringVar(&config.TwilioAccountSID, "u", config.TwilioAccountSID, "Twilio account SID")
	fs.StringVar(&config.TwilioAuthToken, "p", config.TwilioAuthToken, "Twilio auth token")
	fs.StringVar(&config.TwilioFromPhone, "f", config.TwilioFromPhone, "Twilio sender phone")
	fs.StringVar(&config.TwilioToPhone, "n", config.TwilioToPhone, "notification recipient phone")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Only an explicit -t overrides, so sub-minute values from JSON or env survive.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})

	return nil
}
