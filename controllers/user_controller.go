package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// UserController serves the signed-in user's own profile
type UserController struct {
	auth *services.AuthService
}

// NewUserController creates a user controller
func NewUserController(auth *services.AuthService) *UserController {
	return &UserController{auth: auth}
}

// GetMyProfile handles GET /api/auth/me - gets current user's profile
func (uc *UserController) GetMyProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := uc.auth.CurrentUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/auth/me - updates current user's name and email
func (uc *UserController) UpdateMyProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.auth.UpdateProfile(c.Request.Context(), p.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, user)
}
