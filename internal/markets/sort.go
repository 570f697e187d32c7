package markets

import (
	"sort"

	"github.com/polyview/polyview/internal/domain"
)

// SortOption selects the listing order. Values match the dashboard dropdown.
type SortOption string

const (
	SortVolume24h       SortOption = "volume24hr"
	SortOpenInterest    SortOption = "openInterest"
	SortEndDateAsc      SortOption = "endDate_asc"
	SortEndDateDesc     SortOption = "endDate_desc"
	SortProbabilityAsc  SortOption = "probability_asc"
	SortProbabilityDesc SortOption = "probability_desc"
)

// Sort orders the listing by the given option, stably so ties keep the
// upstream order. An unknown option leaves the slice untouched. Markets
// without an end date sort last under either end-date direction.
func Sort(ms []domain.Market, opt SortOption) {
	var less func(a, b domain.Market) bool

	switch opt {
	case SortVolume24h:
		less = func(a, b domain.Market) bool { return a.Volume24h > b.Volume24h }
	case SortOpenInterest:
		less = func(a, b domain.Market) bool { return a.OpenInterest > b.OpenInterest }
	case SortEndDateAsc:
		less = endDateLess(true)
	case SortEndDateDesc:
		less = endDateLess(false)
	case SortProbabilityAsc:
		less = func(a, b domain.Market) bool { return a.Probability < b.Probability }
	case SortProbabilityDesc:
		less = func(a, b domain.Market) bool { return a.Probability > b.Probability }
	default:
		return
	}

	sort.SliceStable(ms, func(i, j int) bool { return less(ms[i], ms[j]) })
}

func endDateLess(asc bool) func(a, b domain.Market) bool {
	return func(a, b domain.Market) bool {
		switch {
		case a.EndDate == nil:
			return false
		case b.EndDate == nil:
			return true
		case asc:
			return a.EndDate.Before(*b.EndDate)
		default:
			return b.EndDate.Before(*a.EndDate)
		}
	}
}
