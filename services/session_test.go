package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIssue(t *testing.T) {
	svc := NewSessionService("secret", "pixel-panic-api", "pixel-panic-web", 2*time.Hour)
	now := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return now }

	user := &models.User{ID: "user-1", Role: models.RoleTechnician}
	token, expiresAt, err := svc.Issue(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(now.Add(2*time.Hour)))
	assert.Equal(t, 2*time.Hour, svc.TTL())

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("pixel-panic-api"),
		jwt.WithAudience("pixel-panic-web"),
	)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "technician", claims.Role)
	assert.Equal(t, now.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, err = jwt.ParseWithClaims(token, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err, "a different secret must not verify")
}
