package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func authHandler(apiKey string) http.Handler {
	return Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		header     string
		value      string
		wantStatus int
	}{
		{"disabled passes through", "", "", "", http.StatusOK},
		{"missing token", "secret", "", "", http.StatusUnauthorized},
		{"valid bearer", "secret", "Authorization", "Bearer secret", http.StatusOK},
		{"bearer case insensitive scheme", "secret", "Authorization", "bearer secret", http.StatusOK},
		{"wrong bearer", "secret", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"valid api key header", "secret", "X-API-Key", "secret", http.StatusOK},
		{"wrong api key header", "secret", "X-API-Key", "nope", http.StatusUnauthorized},
		{"basic scheme rejected", "secret", "Authorization", "Basic secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			authHandler(tt.apiKey).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
					t.Errorf("WWW-Authenticate = %q, want Bearer challenge", got)
				}
			}
		})
	}
}
