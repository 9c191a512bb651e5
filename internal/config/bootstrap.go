package config

import (
	"errors"
	"os"
	"path/filepath"
)

const defaultConfigYAML = `# yc-radar configuration
app:
  data_dir: ./data

webhook:
  # Where new companies are POSTed. Can also come from WEBHOOK_URL or
  # --webhook-url.
  url: ""
  timeout_seconds: 30
  max_retries: 3

algolia:
  # Empty values fall back to the public YC directory credentials.
  app_id: ""
  api_key: ""
  index_production: ""
  index_by_launch: ""
  hits_per_page: 1000
  max_retries: 3
  requests_per_second: 5
`

// EnsureUserConfig creates dataDir's config.yml from the embedded default
// if the user doesn't have one yet, and returns its path.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
