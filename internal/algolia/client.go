package algolia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"ycradar/internal/domain"
	"ycradar/internal/netutil"
)

// Public search credentials for the YC directory. The key is a search-only
// key scoped to the two company indices; it ships with the YC website.
const (
	DefaultAppID  = "45BWZJ1SGC"
	DefaultAPIKey = "ZjA3NWMwMmNhMzEwZmMxOThkZDlkMjFmNDAwNTNjNjdkZjdhNWJkOWRjMThiODQwMjUyZTVkYjA4" +
		"YjFlMmU2YnJlc3RyaWN0SW5kaWNlcz0lNUIlMjJZQ0NvbXBhbnlfcHJvZHVjdGlvbiUyMiUyQyUy" +
		"MllDQ29tcGFueV9CeV9MYXVuY2hfRGF0ZV9wcm9kdWN0aW9uJTIyJTVEJnRhZ0ZpbHRlcnM9JTVC" +
		"JTIyeWNkY19wdWJsaWMlMjIlNUQmYW5hbHl0aWNzVGFncz0lNUIlMjJ5Y2RjJTIyJTVE"

	DefaultIndexProduction = "YCCompany_production"
	DefaultIndexByLaunch   = "YCCompany_By_Launch_Date_production"

	companiesBaseURL = "https://www.ycombinator.com/companies"
)

type Config struct {
	AppID           string
	APIKey          string
	IndexProduction string
	IndexByLaunch   string
	HitsPerPage     int
	MaxRetries      int

	// BaseURL overrides the DSN endpoint; tests point it at a local server.
	BaseURL string
}

type Client struct {
	cfg     Config
	hc      *http.Client
	limiter *netutil.HostLimiter
	sleep   func(time.Duration)
}

func New(cfg Config, limiter *netutil.HostLimiter) *Client {
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultAPIKey
	}
	if cfg.IndexProduction == "" {
		cfg.IndexProduction = DefaultIndexProduction
	}
	if cfg.IndexByLaunch == "" {
		cfg.IndexByLaunch = DefaultIndexByLaunch
	}
	if cfg.HitsPerPage <= 0 {
		cfg.HitsPerPage = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s-dsn.algolia.net", cfg.AppID)
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		sleep:   time.Sleep,
	}
}

// RequestError is a fetch failure that survived all retries. It is fatal to
// the run: the caller must abort without touching persisted state.
type RequestError struct {
	Index  string
	Status int // 0 on transport errors
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("algolia query %s: status %d", e.Index, e.Status)
	}
	return fmt.Sprintf("algolia query %s: %v", e.Index, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Response schema is the standard Algolia search response; we parse only
// what we need.
type queryResponse struct {
	Hits   []hit                     `json:"hits"`
	NbHits int                       `json:"nbHits"`
	Facets map[string]map[string]int `json:"facets"`
}

type hit struct {
	ObjectID          string      `json:"objectID"`
	ID                json.Number `json:"id"`
	Name              string      `json:"name"`
	Slug              string      `json:"slug"`
	Website           string      `json:"website"`
	OneLiner          string      `json:"one_liner"`
	LongDescription   string      `json:"long_description"`
	Batch             string      `json:"batch"`
	Status            string      `json:"status"`
	Stage             string      `json:"stage"`
	Industry          string      `json:"industry"`
	Subindustry       string      `json:"subindustry"`
	Industries        []string    `json:"industries"`
	Tags              []string    `json:"tags"`
	TeamSize          int         `json:"team_size"`
	AllLocations      string      `json:"all_locations"`
	Regions           []string    `json:"regions"`
	IsHiring          bool        `json:"isHiring"`
	Nonprofit         bool        `json:"nonprofit"`
	TopCompany        bool        `json:"top_company"`
	SmallLogoThumbURL string      `json:"small_logo_thumb_url"`
	LaunchedAt        int64       `json:"launched_at"`
}

func (h hit) id() string {
	if h.ObjectID != "" {
		return h.ObjectID
	}
	return h.ID.String()
}

func (h hit) company() domain.Company {
	var launchedHuman string
	if h.LaunchedAt > 0 {
		launchedHuman = time.Unix(h.LaunchedAt, 0).UTC().Format("2006-01-02")
	}
	var canonical string
	if h.Slug != "" {
		canonical = companiesBaseURL + "/" + h.Slug
	}
	return domain.Company{
		ID:                h.id(),
		Name:              h.Name,
		Slug:              h.Slug,
		URL:               canonical,
		Website:           h.Website,
		OneLiner:          h.OneLiner,
		LongDescription:   h.LongDescription,
		Batch:             h.Batch,
		Status:            h.Status,
		Stage:             h.Stage,
		Industry:          h.Industry,
		Subindustry:       h.Subindustry,
		Industries:        h.Industries,
		Tags:              h.Tags,
		TeamSize:          h.TeamSize,
		AllLocations:      h.AllLocations,
		Regions:           h.Regions,
		IsHiring:          h.IsHiring,
		Nonprofit:         h.Nonprofit,
		TopCompany:        h.TopCompany,
		SmallLogoThumbURL: h.SmallLogoThumbURL,
		LaunchedAt:        h.LaunchedAt,
		LaunchedAtHuman:   launchedHuman,
	}
}

// query POSTs a search to one index, retrying with exponential backoff.
func (c *Client) query(ctx context.Context, index, params string) (*queryResponse, error) {
	u := fmt.Sprintf("%s/1/indexes/%s/query", c.cfg.BaseURL, index)

	body, _ := json.Marshal(map[string]string{"params": params})

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.WaitURL(ctx, u); err != nil {
				return nil, &RequestError{Index: index, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, &RequestError{Index: index, Err: err}
		}
		req.Header.Set("X-Algolia-Application-Id", c.cfg.AppID)
		req.Header.Set("X-Algolia-API-Key", c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.hc.Do(req)
		if err == nil {
			if res.StatusCode >= 200 && res.StatusCode <= 299 {
				var qr queryResponse
				decErr := json.NewDecoder(res.Body).Decode(&qr)
				res.Body.Close()
				if decErr != nil {
					return nil, &RequestError{Index: index, Err: fmt.Errorf("decode: %w", decErr)}
				}
				return &qr, nil
			}
			res.Body.Close()
			lastStatus = res.StatusCode
			lastErr = fmt.Errorf("status %d", res.StatusCode)
		} else {
			lastStatus = 0
			lastErr = err
		}

		if attempt == c.cfg.MaxRetries {
			break
		}
		wait := time.Duration(1<<attempt) * time.Second
		log.Printf("[algolia] query %s failed (attempt %d/%d): %v — retrying in %s",
			index, attempt, c.cfg.MaxRetries, lastErr, wait)
		c.sleep(wait)
	}

	return nil, &RequestError{Index: index, Status: lastStatus, Err: lastErr}
}

// Count returns the total number of companies in the directory. One cheap
// call; used as the no-change short-circuit.
func (c *Client) Count(ctx context.Context) (int, error) {
	qr, err := c.query(ctx, c.cfg.IndexProduction, "hitsPerPage=0&facets=batch")
	if err != nil {
		return 0, err
	}
	return qr.NbHits, nil
}

// FetchSince returns companies launched strictly after the given Unix
// timestamp, via the launch-date index. Best-effort shortcut: callers fall
// back to FetchAll when it errors or misses.
func (c *Client) FetchSince(ctx context.Context, ts int64) ([]domain.Company, error) {
	params := fmt.Sprintf(`hitsPerPage=%d&numericFilters=["launched_at>%d"]`, c.cfg.HitsPerPage, ts)
	qr, err := c.query(ctx, c.cfg.IndexByLaunch, params)
	if err != nil {
		return nil, err
	}
	log.Printf("[algolia] %d hits launched after %d", len(qr.Hits), ts)
	return toCompanies(qr.Hits), nil
}

// BatchNames returns every batch label in the directory, sorted. Batches
// partition the directory, so fetching each one walks the whole listing.
func (c *Client) BatchNames(ctx context.Context) ([]string, error) {
	qr, err := c.query(ctx, c.cfg.IndexProduction, "hitsPerPage=0&facets=batch")
	if err != nil {
		return nil, err
	}
	batches := qr.Facets["batch"]
	names := make([]string, 0, len(batches))
	total := 0
	for name, n := range batches {
		names = append(names, name)
		total += n
	}
	sort.Strings(names)
	log.Printf("[algolia] %d batches, total: %d", len(names), total)
	return names, nil
}

// FetchAll retrieves the entire directory, one batch at a time.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Company, error) {
	batches, err := c.BatchNames(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Company
	for i, batch := range batches {
		params := fmt.Sprintf(`hitsPerPage=%d&facetFilters=["batch:%s"]`, c.cfg.HitsPerPage, batch)
		qr, err := c.query(ctx, c.cfg.IndexProduction, params)
		if err != nil {
			return nil, err
		}
		log.Printf("[algolia] [%d/%d] batch %q: %d hits", i+1, len(batches), batch, len(qr.Hits))
		out = append(out, toCompanies(qr.Hits)...)
	}
	log.Printf("[algolia] full fetch complete: %d companies across %d batches", len(out), len(batches))
	return out, nil
}

func toCompanies(hits []hit) []domain.Company {
	out := make([]domain.Company, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.id()) == "" {
			continue
		}
		out = append(out, h.company())
	}
	return out
}
