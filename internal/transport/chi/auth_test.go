package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, path, authorization string) *httptest.ResponseRecorder {
	handler := BearerAuthMiddleware(keys)(okHandler())
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {}, {"", ""}} {
		if rr := serveAuth(keys, "/v1/process", ""); rr.Code != http.StatusOK {
			t.Errorf("keys %q: got %d, want %d", keys, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	keys := []string{"key-one", "key-two"}
	tests := []struct {
		name    string
		path    string
		header  string
		want    int
		wantMsg string
	}{
		{"missing header", "/v1/process", "", http.StatusUnauthorized, "missing authorization header"},
		{"basic scheme", "/v1/process", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "authorization header must use Bearer scheme"},
		{"scheme only", "/v1/process", "Bearer", http.StatusUnauthorized, "authorization header must use Bearer scheme"},
		{"empty token", "/v1/process", "Bearer   ", http.StatusUnauthorized, "empty bearer token"},
		{"wrong key", "/v1/process", "Bearer key-three", http.StatusUnauthorized, "invalid api key"},
		{"prefix of key", "/v1/process", "Bearer key-", http.StatusUnauthorized, "invalid api key"},
		{"first key", "/v1/process", "Bearer key-one", http.StatusOK, ""},
		{"second key", "/v1/verbs", "Bearer key-two", http.StatusOK, ""},
		{"lowercase scheme", "/v1/process", "bearer key-one", http.StatusOK, ""},
		{"health is public", "/health", "", http.StatusOK, ""},
		{"metrics is public", "/metrics", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth(keys, tt.path, tt.header)
			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				return
			}

			if got := rr.Header().Get("WWW-Authenticate"); got == "" {
				t.Error("expected WWW-Authenticate header")
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized {
				t.Errorf("error code: got %s, want %s", errResp.Code, CodeUnauthorized)
			}
			if errResp.Message != tt.wantMsg {
				t.Errorf("message: got %q, want %q", errResp.Message, tt.wantMsg)
			}
		})
	}
}
