package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the session cookie set by the login handler.
const CookieName = "authenticated"

// SessionToken derives the cookie value for a password.
func SessionToken(password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte("labelstation-session"))
	return hex.EncodeToString(mac.Sum(nil))
}

// AuthMiddleware sprawdza, czy użytkownik jest zalogowany. Przy pustym haśle
// przepuszcza wszystkie żądania.
func AuthMiddleware(password string, next http.Handler) http.Handler {
	if password == "" {
		return next
	}
	token := SessionToken(password)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Strona logowania, metryki i zasoby statyczne bez uwierzytelnienia
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			r.URL.Path == "/metrics" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || !hmac.Equal([]byte(cookie.Value), []byte(token)) {
			// API i websockety dostają 401, przeglądarka przekierowanie
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
