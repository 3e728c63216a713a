package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Search struct {
		Locations             []string `yaml:"locations"`
		Categories            []string `yaml:"categories"`
		MaxResultsPerCategory int      `yaml:"max_results_per_category"`
		DelaySeconds          int      `yaml:"delay_seconds"`
	} `yaml:"search"`

	Browser struct {
		Headless   bool   `yaml:"headless"`
		ChromePath string `yaml:"chrome_path"`
	} `yaml:"browser"`

	Delay struct {
		MinMillis int `yaml:"min_millis"`
		MaxMillis int `yaml:"max_millis"`
	} `yaml:"delay"`

	Enrich struct {
		Enabled   bool `yaml:"enabled"`
		MaxClicks int  `yaml:"max_clicks"`
	} `yaml:"enrich"`

	SMS struct {
		Enabled         bool   `yaml:"enabled"`
		AccountSID      string `yaml:"account_sid"`
		FromNumber      string `yaml:"from_number"`
		DelaySeconds    int    `yaml:"delay_seconds"`
		Workers         int    `yaml:"workers"`
		MessageTemplate string `yaml:"message_template"`
	} `yaml:"sms"`

	Autopilot struct {
		IntervalHours int `yaml:"interval_hours"`
	} `yaml:"autopilot"`
}

// Default is the config written on first run when no packaged default
// file is available.
func Default() Config {
	var cfg Config
	cfg.Search.Locations = []string{"Queens, NY"}
	cfg.Search.Categories = []string{"restaurants"}
	cfg.Search.MaxResultsPerCategory = 25
	cfg.Search.DelaySeconds = 30
	cfg.Browser.Headless = true
	cfg.Delay.MinMillis = 1000
	cfg.Delay.MaxMillis = 3000
	cfg.Enrich.Enabled = true
	cfg.Enrich.MaxClicks = 10
	cfg.SMS.DelaySeconds = 5
	cfg.SMS.Workers = 2
	cfg.SMS.MessageTemplate = "Hi {business_name}! We help local businesses get more customers online. Interested?"
	cfg.Autopilot.IntervalHours = 24
	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
