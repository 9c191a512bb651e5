package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong with
// it. requireWebhook is false for seed and dry-run, which never deliver.
func NormalizeAndValidate(cfg Config, requireWebhook bool) (Config, Validation) {
	out := cfg
	var res Validation

	out.Webhook.URL = strings.TrimSpace(out.Webhook.URL)
	out.App.DataDir = strings.TrimSpace(out.App.DataDir)

	if out.App.DataDir == "" {
		res.addErr("app.data_dir must not be empty")
	}

	if out.Webhook.URL == "" {
		if requireWebhook {
			res.addErr("webhook.url is required (set it in config.yml, WEBHOOK_URL, or --webhook-url)")
		}
	} else {
		u, err := url.Parse(out.Webhook.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			res.addErr("webhook.url must be an http(s) URL, got %q", out.Webhook.URL)
		}
	}

	if out.Webhook.TimeoutSeconds <= 0 {
		res.addErr("webhook.timeout_seconds must be > 0")
	}
	if out.Webhook.MaxRetries <= 0 {
		res.addErr("webhook.max_retries must be > 0")
	} else if out.Webhook.MaxRetries > 5 {
		res.addWarn("webhook.max_retries is high (%d); each failing entry blocks the run while backing off.", out.Webhook.MaxRetries)
	}

	if out.Algolia.HitsPerPage <= 0 {
		res.addErr("algolia.hits_per_page must be > 0")
	} else if out.Algolia.HitsPerPage > 1000 {
		res.addWarn("algolia.hits_per_page above 1000 is clamped by Algolia.")
	}
	if out.Algolia.MaxRetries <= 0 {
		res.addErr("algolia.max_retries must be > 0")
	}
	if out.Algolia.RequestsPerSecond <= 0 {
		res.addErr("algolia.requests_per_second must be > 0")
	} else if out.Algolia.RequestsPerSecond > 10 {
		res.addWarn("algolia.requests_per_second is aggressive (%.1f); the directory API may throttle.", out.Algolia.RequestsPerSecond)
	}

	return out, res
}
