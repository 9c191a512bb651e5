package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeAndValidateDefaults(t *testing.T) {
	cfg := Default()
	cfg.Webhook.URL = "https://hooks.example.com/yc"

	out, res := NormalizeAndValidate(cfg, true)
	if !res.OK() {
		t.Fatalf("default config invalid: %v", res.Errors)
	}
	if out.Webhook.URL != "https://hooks.example.com/yc" {
		t.Errorf("URL = %q", out.Webhook.URL)
	}
}

func TestNormalizeAndValidateRequiresWebhook(t *testing.T) {
	cfg := Default()

	_, res := NormalizeAndValidate(cfg, true)
	if res.OK() {
		t.Fatal("missing webhook URL accepted")
	}

	// seed/dry-run never deliver, so no webhook needed
	_, res = NormalizeAndValidate(cfg, false)
	if !res.OK() {
		t.Errorf("webhook required even when delivery is off: %v", res.Errors)
	}
}

func TestNormalizeAndValidateRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"not a url", "ftp://example.com/x", "http://"} {
		cfg := Default()
		cfg.Webhook.URL = bad
		if _, res := NormalizeAndValidate(cfg, true); res.OK() {
			t.Errorf("URL %q accepted", bad)
		}
	}
}

func TestNormalizeAndValidateTrimsWhitespace(t *testing.T) {
	cfg := Default()
	cfg.Webhook.URL = "  https://hooks.example.com/yc  "

	out, res := NormalizeAndValidate(cfg, true)
	if !res.OK() {
		t.Fatalf("trimmed URL rejected: %v", res.Errors)
	}
	if out.Webhook.URL != "https://hooks.example.com/yc" {
		t.Errorf("URL = %q, want trimmed", out.Webhook.URL)
	}
}

func TestNormalizeAndValidateNumericBounds(t *testing.T) {
	cfg := Default()
	cfg.Webhook.URL = "https://hooks.example.com/yc"
	cfg.Algolia.HitsPerPage = 0
	cfg.Webhook.TimeoutSeconds = -1

	_, res := NormalizeAndValidate(cfg, true)
	if res.OK() {
		t.Fatal("invalid numeric settings accepted")
	}
	if len(res.Errors) < 2 {
		t.Errorf("errors = %v, want both numeric violations reported", res.Errors)
	}
}

func TestEnsureUserConfigBootstrapsOnce(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	if err != nil {
		t.Fatalf("EnsureUserConfig(): %v", err)
	}
	if path != filepath.Join(dir, "config.yml") {
		t.Errorf("path = %q", path)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(bootstrapped): %v", err)
	}
	if cfg.Algolia.HitsPerPage != 1000 {
		t.Errorf("HitsPerPage = %d, want 1000", cfg.Algolia.HitsPerPage)
	}

	// user edits survive a second bootstrap
	edited := strings.Replace(defaultConfigYAML, `url: ""`, `url: "https://hooks.example.com/yc"`, 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureUserConfig(dir); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/yc" {
		t.Errorf("bootstrap overwrote user config: URL = %q", cfg.Webhook.URL)
	}
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("DATA_DIR", "/tmp/ycradar-test")

	cfg := Default()
	OverlayEnv(&cfg)

	if cfg.Webhook.URL != "https://env.example.com/hook" {
		t.Errorf("Webhook.URL = %q", cfg.Webhook.URL)
	}
	if cfg.App.DataDir != "/tmp/ycradar-test" {
		t.Errorf("App.DataDir = %q", cfg.App.DataDir)
	}
}
