package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const principalKey = "principal"

// CustomClaims contains the private claims of a session token
type CustomClaims struct {
	Role models.Role `json:"role"`
}

// Validate rejects tokens carrying an unknown role
func (c *CustomClaims) Validate(ctx context.Context) error {
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// Principal is the authenticated caller
type Principal struct {
	UserID string
	Role   models.Role
}

// Authenticator verifies session tokens and attaches the principal to the request
type Authenticator struct {
	validator  *validator.Validator
	cookieName string
	devUserID  string
	db         *gorm.DB
	logger     zerolog.Logger
}

// NewAuthenticator builds the session verifier from cfg
func NewAuthenticator(cfg *config.Config, db *gorm.DB, logger zerolog.Logger) (*Authenticator, error) {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	a := &Authenticator{
		validator:  jwtValidator,
		cookieName: cfg.AuthCookieName,
		db:         db,
		logger:     logger,
	}
	if cfg.DevAuthEnabled() {
		a.devUserID = cfg.DevAuthUserID
		logger.Warn().Str("user_id", a.devUserID).Msg("development auth bypass is enabled")
	}
	return a, nil
}

// extractToken reads the session cookie, falling back to a Bearer header
func (a *Authenticator) extractToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return jwtmiddleware.AuthHeaderTokenExtractor(r)
}

func principalFromClaims(claims *validator.ValidatedClaims) (*Principal, error) {
	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return nil, errors.New("session token is missing claims")
	}
	return &Principal{UserID: claims.RegisteredClaims.Subject, Role: custom.Role}, nil
}

// devPrincipal loads the bypass user, if the bypass is enabled
func (a *Authenticator) devPrincipal(ctx context.Context) (*Principal, bool) {
	if a.devUserID == "" {
		return nil, false
	}
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", a.devUserID).Error; err != nil {
		a.logger.Error().Err(err).Str("user_id", a.devUserID).Msg("development auth user not found")
		return nil, false
	}
	return &Principal{UserID: user.ID, Role: user.Role}, true
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.UserID)
}

// RequireSession rejects requests without a valid session
func (a *Authenticator) RequireSession() gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("session rejected")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}

	checker := jwtmiddleware.New(
		a.validator.ValidateToken,
		jwtmiddleware.WithTokenExtractor(a.extractToken),
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		if token, _ := a.extractToken(c.Request); token == "" {
			if p, ok := a.devPrincipal(c.Request.Context()); ok {
				setPrincipal(c, p)
				c.Next()
				return
			}
		}

		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				errorHandler(w, r, errors.New("claims not found in request context"))
				return
			}
			p, err := principalFromClaims(claims)
			if err != nil {
				errorHandler(w, r, err)
				return
			}

			passed = true
			c.Request = r
			setPrincipal(c, p)
			c.Next()
		}

		checker.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// OptionalSession attaches the principal when a valid session is present
// and otherwise lets the request through anonymously
func (a *Authenticator) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := a.extractToken(c.Request)
		if err != nil || token == "" {
			if p, ok := a.devPrincipal(c.Request.Context()); ok {
				setPrincipal(c, p)
			}
			c.Next()
			return
		}

		validated, err := a.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}
		if claims, ok := validated.(*validator.ValidatedClaims); ok {
			if p, err := principalFromClaims(claims); err == nil {
				setPrincipal(c, p)
			}
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, if any
func GetPrincipal(c *gin.Context) (*Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := value.(*Principal)
	return p, ok
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	p, ok := GetPrincipal(c)
	if !ok {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}
	return p.UserID, nil
}

// RequireRole is a middleware that admits only principals holding one of roles.
// It must run after RequireSession.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions to access this resource")
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
