package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware("secret", okHandler)

	tests := []struct {
		name     string
		path     string
		cookie   string
		expected int
	}{
		{"api without cookie", "/api/next", "", http.StatusUnauthorized},
		{"page without cookie", "/labeling", "", http.StatusSeeOther},
		{"forged cookie", "/api/next", "true", http.StatusUnauthorized},
		{"valid cookie", "/api/next", SessionToken("secret"), http.StatusOK},
		{"login page", "/login", "", http.StatusOK},
		{"static file", "/static/app.js", "", http.StatusOK},
		{"metrics", "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	handler := AuthMiddleware("", okHandler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/next", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected open access without a password, got %d", rec.Code)
	}
}
