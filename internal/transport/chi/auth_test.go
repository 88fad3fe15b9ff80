package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authProbe(t *testing.T, keys []string, authHeader, path string) *httptest.ResponseRecorder {
	t.Helper()
	handler := BearerAuthMiddleware(keys)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	))
	req := httptest.NewRequest("GET", path, http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestBearerAuth(t *testing.T) {
	keys := []string{"key1", "key2"}

	tests := []struct {
		name   string
		keys   []string
		header string
		want   int
	}{
		{"no_keys_disables_auth", nil, "", http.StatusOK},
		{"blank_keys_disable_auth", []string{"", ""}, "", http.StatusOK},
		{"missing_header", keys, "", http.StatusUnauthorized},
		{"wrong_scheme", keys, "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty_token", keys, "Bearer ", http.StatusUnauthorized},
		{"unknown_token", keys, "Bearer wrong-key", http.StatusUnauthorized},
		{"first_key", keys, "Bearer key1", http.StatusOK},
		{"second_key", keys, "Bearer key2", http.StatusOK},
		{"scheme_case_insensitive", keys, "bearer key1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := authProbe(t, tt.keys, tt.header, "/api/v1/tables")
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestBearerAuth_RejectionEnvelope(t *testing.T) {
	rr := authProbe(t, []string{"secret"}, "", "/api/v1/tables")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != codeUnauthorized {
		t.Errorf("code = %s, want %s", resp.Code, codeUnauthorized)
	}
	if resp.Message == "" {
		t.Error("message is empty")
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics"} {
		rr := authProbe(t, []string{"secret"}, "", path)
		if rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: status = %d, want 200", path, rr.Code)
		}
	}
}
