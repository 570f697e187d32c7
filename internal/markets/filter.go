package markets

import (
	"sort"
	"strings"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

// FilterOpts mirrors the dashboard's sidebar controls. Zero values disable
// the corresponding criterion except MinHours, which participates at zero so
// markets without an end date (hours-left -1) are still excluded.
type FilterOpts struct {
	// Search matches case-insensitively against question and slug.
	Search string

	// Categories, when non-empty, is an allowlist of exact category values.
	Categories []string

	// HideSports drops markets whose category contains "sports".
	HideSports bool

	MinProbability  float64
	MinHours        float64
	MinOpenInterest float64
}

// Apply filters the listing in the dashboard's fixed order: hide-sports,
// category allowlist, text search, then the numeric thresholds. now anchors
// the hours-left computation. The input slice is not modified.
func Apply(in []domain.Market, opts FilterOpts, now time.Time) []domain.Market {
	out := make([]domain.Market, 0, len(in))

	allowed := make(map[string]bool, len(opts.Categories))
	for _, c := range opts.Categories {
		allowed[c] = true
	}
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	for _, m := range in {
		if opts.HideSports && strings.Contains(strings.ToLower(m.Category), "sports") {
			continue
		}
		if len(allowed) > 0 && !allowed[m.Category] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Question), search) &&
			!strings.Contains(strings.ToLower(m.Slug), search) {
			continue
		}
		if m.Probability < opts.MinProbability {
			continue
		}
		if m.HoursLeft(now) < opts.MinHours {
			continue
		}
		if m.OpenInterest < opts.MinOpenInterest {
			continue
		}
		out = append(out, m)
	}

	return out
}

// Categories returns the sorted distinct non-empty categories in the listing,
// the way the dashboard builds its category multiselect.
func Categories(in []domain.Market) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range in {
		if m.Category == "" || seen[m.Category] {
			continue
		}
		seen[m.Category] = true
		out = append(out, m.Category)
	}
	sort.Strings(out)
	return out
}
