package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/config"
)

// CookieSettings controls how the session cookie is written
type CookieSettings struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieSettings derives cookie attributes from cfg. Production runs the
// web app on another origin, so the cookie must be Secure with SameSite=None.
func NewCookieSettings(cfg *config.Config) CookieSettings {
	s := CookieSettings{
		Name:     cfg.AuthCookieName,
		Domain:   cfg.AuthCookieDomain,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProduction() {
		s.Secure = true
		s.SameSite = http.SameSiteNoneMode
	}
	return s
}

func (s CookieSettings) set(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		Domain:   s.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}

func (s CookieSettings) clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		Domain:   s.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}
