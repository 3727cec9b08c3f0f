package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins

	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORS_OriginMatching(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantStatus int
		wantHeader string
	}{
		{
			name:       "no origins configured blocks all",
			origins:    []string{},
			origin:     "https://example.com",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "",
		},
		{
			name:       "allowed origin gets header",
			origins:    []string{"https://example.com"},
			origin:     "https://example.com",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "https://example.com",
		},
		{
			name:       "wildcard subdomain matches",
			origins:    []string{"*.snipay.io"},
			origin:     "https://app.snipay.io",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "https://app.snipay.io",
		},
		{
			name:       "wildcard does not match bare apex",
			origins:    []string{"*.snipay.io"},
			origin:     "https://snipay.io",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "",
		},
		{
			name:       "case insensitive match",
			origins:    []string{"HTTPS://EXAMPLE.COM"},
			origin:     "https://example.com",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "https://example.com",
		},
		{
			name:       "no origin header skips CORS",
			origins:    []string{"https://example.com"},
			origin:     "",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantHeader: "",
		},
		{
			name:       "preflight from allowed origin",
			origins:    []string{"https://example.com"},
			origin:     "https://example.com",
			method:     http.MethodOptions,
			wantStatus: http.StatusNoContent,
			wantHeader: "https://example.com",
		},
		{
			name:       "preflight from disallowed origin rejected",
			origins:    []string{"https://example.com"},
			origin:     "https://evil.example.net",
			method:     http.MethodOptions,
			wantStatus: http.StatusForbidden,
			wantHeader: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doCORS(tt.origins, tt.method, tt.origin)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	rec := doCORS([]string{"https://example.com"}, http.MethodOptions, "https://example.com")

	for _, header := range []string{
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Max-Age",
	} {
		if rec.Header().Get(header) == "" {
			t.Errorf("%s not set on preflight response", header)
		}
	}
}
