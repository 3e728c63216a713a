// config/overlay.go
package config

import (
	"os"
	"strconv"
)

// OverlayEnv applies environment overrides on top of the loaded file.
// The .env file (if any) has already been folded into the environment by
// the caller, so precedence is: env > .env > config.yml.
func OverlayEnv(cfg *Config) {
	if v := os.Getenv("LEADHUNT_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Browser.ChromePath = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.SMS.AccountSID = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		cfg.SMS.FromNumber = v
	}
}
