package polymarket

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

// errMissingField marks a record that cannot be converted because a required
// field is absent. Such records are skipped, not fatal to the fetch.
var errMissingField = errors.New("missing required field")

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. The Gamma API
// quotes prices and volumes inconsistently between endpoints. Unparseable or
// null values decode as zero rather than failing the whole record.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Slug         string    `json:"slug"`
	Category     string    `json:"category"`
	Active       flexBool  `json:"active"` // API may send bool or "true"/"false" string
	Closed       flexBool  `json:"closed"`
	YesPrice     flexFloat `json:"yesPrice"`
	NoPrice      flexFloat `json:"noPrice"`
	OpenInterest flexFloat `json:"openInterest"`
	Volume24h    flexFloat `json:"volume24hr"`

	// The listing's expiry appears under different names depending on the
	// market's vintage; the first non-empty one wins.
	EndDate string `json:"endDate"`
	EndsAt  string `json:"endsAt"`
	Expiry  string `json:"expiry"`
}

// marketsEnvelope is the object-wrapped response shape. Some Gamma endpoints
// return a bare array, others wrap it under "markets" or "data".
type marketsEnvelope struct {
	Markets []APIMarket `json:"markets"`
	Data    []APIMarket `json:"data"`
}

// decodeMarketList decodes a Gamma markets payload, accepting either a bare
// JSON array or an envelope object.
func decodeMarketList(body []byte) ([]APIMarket, error) {
	var list []APIMarket
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var env marketsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Markets != nil {
		return env.Markets, nil
	}
	return env.Data, nil
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. It returns
// errMissingField when the record lacks an ID or question; callers skip such
// records and keep the rest of the batch.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	if m.ID == "" || m.Question == "" {
		return domain.Market{}, errMissingField
	}

	dm := domain.Market{
		ID:           m.ID,
		Question:     m.Question,
		Slug:         m.Slug,
		Category:     m.Category,
		YesPrice:     float64(m.YesPrice),
		NoPrice:      float64(m.NoPrice),
		OpenInterest: float64(m.OpenInterest),
		Volume24h:    float64(m.Volume24h),
	}
	dm.Probability = domain.ImpliedProbability(dm.YesPrice, dm.NoPrice)

	if t, ok := parseEndDate(m.EndDate, m.EndsAt, m.Expiry); ok {
		dm.EndDate = &t
	}

	return dm, nil
}

// endDateLayouts are the accepted timestamp shapes: RFC 3339 ("Z" or offset),
// and the zone-less ISO form some records carry, which is taken as UTC.
var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// parseEndDate returns the first parseable timestamp among the candidate
// fields.
func parseEndDate(candidates ...string) (time.Time, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, layout := range endDateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
