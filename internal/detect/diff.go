// Package detect holds the pure change-detection step: which fetched
// companies has the radar never seen before.
package detect

import "ycradar/internal/domain"

// NewCompanies returns the subsequence of fetched whose ID is absent from
// known, in fetch order. Duplicate IDs within one fetch collapse to the
// first occurrence; hits without an ID are dropped. No side effects.
func NewCompanies(fetched []domain.Company, known map[string]struct{}) []domain.Company {
	var out []domain.Company
	seen := make(map[string]struct{}, len(fetched))
	for _, c := range fetched {
		if c.ID == "" {
			continue
		}
		if _, ok := known[c.ID]; ok {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// IDs extracts the identifiers of a company list, preserving order.
func IDs(companies []domain.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.ID)
	}
	return out
}
