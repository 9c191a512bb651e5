package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Webhook struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxRetries     int    `yaml:"max_retries"`
	} `yaml:"webhook"`

	Algolia struct {
		AppID             string  `yaml:"app_id"`
		APIKey            string  `yaml:"api_key"`
		IndexProduction   string  `yaml:"index_production"`
		IndexByLaunch     string  `yaml:"index_by_launch"`
		HitsPerPage       int     `yaml:"hits_per_page"`
		MaxRetries        int     `yaml:"max_retries"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"algolia"`
}

func Default() Config {
	var cfg Config
	cfg.App.DataDir = "./data"
	cfg.Webhook.TimeoutSeconds = 30
	cfg.Webhook.MaxRetries = 3
	cfg.Algolia.HitsPerPage = 1000
	cfg.Algolia.MaxRetries = 3
	cfg.Algolia.RequestsPerSecond = 5
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
