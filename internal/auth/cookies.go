// AngelaMos | 2026
// cookies.go

package auth

import (
	"net/http"
	"time"

	"github.com/propertynext/backend/internal/config"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieWriter scopes the token cookies: the access token rides on every
// request while the refresh token is only ever sent to the refresh endpoint.
type CookieWriter struct {
	domain          string
	refreshPath     string
	secure          bool
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

func NewCookieWriter(
	authCfg config.AuthConfig,
	jwtCfg config.JWTConfig,
	isProduction bool,
) *CookieWriter {
	return &CookieWriter{
		domain:          authCfg.CookieDomain,
		refreshPath:     authCfg.RefreshCookiePath,
		secure:          isProduction,
		accessLifetime:  jwtCfg.AccessTokenExpire,
		refreshLifetime: jwtCfg.RefreshTokenExpire,
	}
}

func (c *CookieWriter) SetAuthCookies(
	w http.ResponseWriter,
	accessToken, refreshToken string,
) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   int(c.accessLifetime / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     c.refreshPath,
		Domain:   c.domain,
		MaxAge:   int(c.refreshLifetime / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c *CookieWriter) ClearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     c.refreshPath,
		Domain:   c.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// RefreshTokenFromRequest prefers the request body but falls back to the
// scoped cookie so browser clients never handle the raw token.
func RefreshTokenFromRequest(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
