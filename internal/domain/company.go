package domain

// Company is one YC directory listing. Identity is ID; a record never
// changes once fetched — a later run that sees the same ID sees the same
// company.
type Company struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	URL               string   `json:"url"`
	Website           string   `json:"website"`
	OneLiner          string   `json:"one_liner"`
	LongDescription   string   `json:"long_description"`
	Batch             string   `json:"batch"`
	Status            string   `json:"status"`
	Stage             string   `json:"stage"`
	Industry          string   `json:"industry"`
	Subindustry       string   `json:"subindustry"`
	Industries        []string `json:"industries"`
	Tags              []string `json:"tags"`
	TeamSize          int      `json:"team_size"`
	AllLocations      string   `json:"all_locations"`
	Regions           []string `json:"regions"`
	IsHiring          bool     `json:"is_hiring"`
	Nonprofit         bool     `json:"nonprofit"`
	TopCompany        bool     `json:"top_company"`
	SmallLogoThumbURL string   `json:"small_logo_thumb_url"`
	LaunchedAt        int64    `json:"launched_at"`
	LaunchedAtHuman   string   `json:"launched_at_human"`
}
