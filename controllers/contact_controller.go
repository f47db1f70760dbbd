package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/pixelpanic/pixel-panic-api/services"
)

// ContactController handles the public contact form and its admin inbox
type ContactController struct {
	contact *services.ContactService
}

// NewContactController creates a contact controller
func NewContactController(contact *services.ContactService) *ContactController {
	return &ContactController{contact: contact}
}

// Submit handles POST /api/contact/submit
func (cc *ContactController) Submit(c *gin.Context) {
	var req services.ContactInput
	if !bindJSON(c, &req) {
		return
	}

	message, err := cc.contact.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"id": message.ID, "message": "Thanks, we'll be in touch soon"})
}

// List handles GET /api/admin/contact-messages?status=
func (cc *ContactController) List(c *gin.Context) {
	messages, err := cc.contact.List(c.Request.Context(), models.ContactStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, messages)
}

// Get handles GET /api/admin/contact-messages/:id
func (cc *ContactController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	message, err := cc.contact.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, message)
}

// Update handles PATCH /api/admin/contact-messages/:id
func (cc *ContactController) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ContactUpdate
	if !bindJSON(c, &req) {
		return
	}

	message, err := cc.contact.Update(c.Request.Context(), id, req, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, message)
}

// Stats handles GET /api/admin/contact-messages/stats
func (cc *ContactController) Stats(c *gin.Context) {
	stats, err := cc.contact.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, stats)
}
