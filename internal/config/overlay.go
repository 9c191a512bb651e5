package config

import "os"

// OverlayEnv applies environment variables on top of the file config.
// Flags are applied later still, in the CLI: file < env < flags.
func OverlayEnv(cfg *Config) {
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.App.DataDir = v
	}
	if v := os.Getenv("ALGOLIA_APP_ID"); v != "" {
		cfg.Algolia.AppID = v
	}
	if v := os.Getenv("ALGOLIA_API_KEY"); v != "" {
		cfg.Algolia.APIKey = v
	}
}
