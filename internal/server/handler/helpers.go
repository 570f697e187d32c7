package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/polyview/polyview/internal/markets"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseFilterOpts extracts filter criteria from the query string. Absent
// parameters leave the zero value, which disables that criterion (min_hours
// zero still excludes markets without an end date via the -1 sentinel).
func parseFilterOpts(r *http.Request) markets.FilterOpts {
	q := r.URL.Query()

	opts := markets.FilterOpts{
		Search:     q.Get("search"),
		HideSports: parseBool(q.Get("hide_sports")),
	}

	if v := q.Get("categories"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				opts.Categories = append(opts.Categories, c)
			}
		}
	}

	opts.MinProbability = parseFloat(q.Get("min_probability"))
	opts.MinHours = parseFloat(q.Get("min_hours"))
	opts.MinOpenInterest = parseFloat(q.Get("min_open_interest"))

	return opts
}

// parseSortOption reads the sort parameter; an empty or unknown value means
// upstream order.
func parseSortOption(r *http.Request) markets.SortOption {
	return markets.SortOption(r.URL.Query().Get("sort"))
}

func parseFloat(v string) float64 {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseBool(v string) bool {
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
