package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// SendOTPRequest represents the request body for requesting a login code
type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=10,max=16"`
}

// VerifyOTPRequest represents the request body for signing in with a login code
type VerifyOTPRequest struct {
	PhoneNumber    string `json:"phone_number" binding:"required,min=10,max=16"`
	OTPCode        string `json:"otp_code" binding:"required,len=6,numeric"`
	VerificationID string `json:"verification_id" binding:"required"`
}

// SessionResponse is returned after a successful sign-in
type SessionResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthController handles phone + OTP sign-in
type AuthController struct {
	auth   *services.AuthService
	cookie CookieSettings
}

// NewAuthController creates an auth controller
func NewAuthController(auth *services.AuthService, cookie CookieSettings) *AuthController {
	return &AuthController{auth: auth, cookie: cookie}
}

// SendOTP handles POST /api/auth/send-otp
func (ac *AuthController) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	verificationID, err := ac.auth.SendOTP(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"verification_id": verificationID})
}

// VerifyOTP handles POST /api/auth/verify-otp
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := ac.auth.VerifyOTP(c.Request.Context(), req.PhoneNumber, req.VerificationID, req.OTPCode)
	if err != nil {
		respondError(c, err)
		return
	}

	ac.cookie.set(c, session.Token, session.ExpiresAt)
	respondOK(c, http.StatusOK, SessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// Logout handles POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.cookie.clear(c)
	respondOK(c, http.StatusOK, gin.H{"message": "Logged out"})
}
