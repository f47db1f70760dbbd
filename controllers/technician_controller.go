package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// GigStatusRequest advances a gig; only in_progress is accepted here,
// completion goes through the OTP-gated endpoint
type GigStatusRequest struct {
	To models.OrderStatus `json:"to" binding:"required"`
}

// CompleteGigRequest represents the request body for finishing a gig
type CompleteGigRequest struct {
	OTP    string   `json:"otp" binding:"required,len=6,numeric"`
	Notes  *string  `json:"notes" binding:"omitempty,max=2000"`
	Photos []string `json:"photos" binding:"omitempty,max=10,dive,url"`
}

// TechnicianController serves the technician's job flow and invitation redemption
type TechnicianController struct {
	orders      *services.OrderService
	technicians *services.TechnicianService
	images      *services.ImageService
	auth        *services.AuthService
	cookie      CookieSettings
}

// NewTechnicianController creates a technician controller. images may be nil
// when object storage is not configured.
func NewTechnicianController(orders *services.OrderService, technicians *services.TechnicianService, images *services.ImageService, auth *services.AuthService, cookie CookieSettings) *TechnicianController {
	return &TechnicianController{orders: orders, technicians: technicians, images: images, auth: auth, cookie: cookie}
}

// ListGigs handles GET /api/technicians/me/gigs?status=active|history
func (tc *TechnicianController) ListGigs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	gigs, err := tc.orders.ListGigs(c.Request.Context(), p.UserID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gigs)
}

// GetGig handles GET /api/technicians/gigs/:id
func (tc *TechnicianController) GetGig(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	gig, err := tc.orders.GetGig(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gig)
}

// UpdateGigStatus handles POST /api/technicians/gigs/:id/status
func (tc *TechnicianController) UpdateGigStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req GigStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	switch req.To {
	case models.OrderInProgress:
	case models.OrderCompleted:
		respondFailure(c, http.StatusBadRequest, "OTP_REQUIRED", "Completing a gig requires the customer's OTP", nil)
		return
	default:
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", map[string]string{"to": "Must be in_progress"})
		return
	}

	order, err := tc.orders.Start(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, services.GigView(*order))
}

// CompleteGig handles POST /api/technicians/gigs/:id/complete
func (tc *TechnicianController) CompleteGig(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CompleteGigRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := tc.orders.Complete(c.Request.Context(), services.CompleteInput{
		OrderID:      id,
		TechnicianID: p.UserID,
		OTP:          req.OTP,
		Notes:        req.Notes,
		Photos:       req.Photos,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, services.GigView(*order))
}

// UploadPhoto handles POST /api/technicians/upload (multipart field "image")
func (tc *TechnicianController) UploadPhoto(c *gin.Context) {
	if tc.images == nil {
		uploadsUnavailable(c)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required", nil)
		return
	}

	image, err := tc.images.UploadImage(c.Request.Context(), services.FolderOrderPhotos, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, image)
}

// GetInvite handles GET /api/technicians/invites/:token
func (tc *TechnicianController) GetInvite(c *gin.Context) {
	invite, err := tc.technicians.GetInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"phone_number": invite.PhoneNumber,
		"name":         invite.Name,
		"expires_at":   invite.ExpiresAt,
	})
}

// CompleteInvite handles POST /api/technicians/invites/:token/complete.
// The session is reissued so the new role takes effect immediately.
func (tc *TechnicianController) CompleteInvite(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := tc.technicians.CompleteInvite(c.Request.Context(), c.Param("token"), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := tc.auth.IssueSession(user)
	if err != nil {
		respondError(c, err)
		return
	}

	tc.cookie.set(c, session.Token, session.ExpiresAt)
	respondOK(c, http.StatusOK, SessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}
